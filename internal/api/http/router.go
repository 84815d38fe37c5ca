package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	TroubleTickets *handlers.TroubleTicketsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tmf := app.Group("/tmf-api/troubleTicket/v4")
	tmf.Post("/troubleTicket", cfg.TroubleTickets.CreateTroubleTicket)
	tmf.Get("/troubleTicket", cfg.TroubleTickets.ListTroubleTickets)
	tmf.Get("/troubleTicket/:id", cfg.TroubleTickets.GetTroubleTicket)
	tmf.Patch("/troubleTicket/:id", cfg.TroubleTickets.UpdateTroubleTicket)
	tmf.Delete("/troubleTicket/:id", cfg.TroubleTickets.DeleteTroubleTicket)
}
