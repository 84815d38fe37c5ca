package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/api/dto"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/service"
	apperrors "github.com/spec-kit/case-service/pkg/util"
)

const troubleTicketBasePath = "/tmf-api/troubleTicket/v4/troubleTicket/"

// TroubleTicketsHandler exposes the TMF621 trouble-ticket endpoints.
type TroubleTicketsHandler struct {
	service *service.CaseService
}

// NewTroubleTicketsHandler constructs handler.
func NewTroubleTicketsHandler(caseService *service.CaseService) *TroubleTicketsHandler {
	return &TroubleTicketsHandler{service: caseService}
}

// CreateTroubleTicket POST /troubleTicket.
func (h *TroubleTicketsHandler) CreateTroubleTicket(c *fiber.Ctx) error {
	var req dto.CreateTroubleTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Description) == "" {
		return apperrors.NewValidationError("name and description required", nil)
	}

	created, err := h.service.CreateCase(c.Context(), toCreateInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(troubleTicketResponse(created))
}

// GetTroubleTicket GET /troubleTicket/:id.
func (h *TroubleTicketsHandler) GetTroubleTicket(c *fiber.Ctx) error {
	record, err := h.service.GetCase(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(troubleTicketResponse(record))
}

// ListTroubleTickets GET /troubleTicket.
func (h *TroubleTicketsHandler) ListTroubleTickets(c *fiber.Ctx) error {
	filter := service.CaseListFilter{Limit: parseLimit(c.Query("limit"), 100)}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}
	if priority := c.Query("priority"); priority != "" {
		filter.Priority = &priority
	}
	if ticketType := c.Query("ticketType"); ticketType != "" {
		filter.TicketType = &ticketType
	}

	cases, err := h.service.ListCases(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TroubleTicketResponse, 0, len(cases))
	for i := range cases {
		items = append(items, troubleTicketResponse(&cases[i]))
	}
	return c.JSON(items)
}

// UpdateTroubleTicket PATCH /troubleTicket/:id.
func (h *TroubleTicketsHandler) UpdateTroubleTicket(c *fiber.Ctx) error {
	var req dto.UpdateTroubleTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.CaseUpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Severity:    req.Severity,
		Resolution:  req.Resolution,
		Notes:       toNoteInputs(req.Note),
	}
	updated, err := h.service.UpdateCase(c.Context(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(troubleTicketResponse(updated))
}

// DeleteTroubleTicket DELETE /troubleTicket/:id (soft delete).
func (h *TroubleTicketsHandler) DeleteTroubleTicket(c *fiber.Ctx) error {
	if err := h.service.CancelCase(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func toCreateInput(req dto.CreateTroubleTicketRequest) service.CaseCreateInput {
	input := service.CaseCreateInput{
		Name:        req.Name,
		Description: req.Description,
		TicketType:  req.TicketType,
		Priority:    req.Priority,
		Severity:    req.Severity,
		Notes:       toNoteInputs(req.Note),
	}
	if req.Channel != nil {
		input.Channel = &service.ChannelInput{ID: req.Channel.ID, Name: req.Channel.Name}
	}
	for _, party := range req.RelatedParty {
		input.RelatedParties = append(input.RelatedParties, service.RelatedPartyInput{
			ReferredType: party.ReferredType,
			ID:           party.ID,
			Name:         party.Name,
			Role:         party.Role,
		})
	}
	for _, tc := range req.TicketCharacteristic {
		input.Characteristics = append(input.Characteristics, service.CharacteristicInput{
			Name:  tc.Name,
			Value: tc.Value,
		})
	}
	return input
}

func toNoteInputs(notes []dto.NoteRequest) []service.NoteInput {
	result := make([]service.NoteInput, 0, len(notes))
	for _, note := range notes {
		result = append(result, service.NoteInput{Text: note.Text, Author: note.Author})
	}
	return result
}

func parseLimit(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func troubleTicketResponse(record *domain.Case) dto.TroubleTicketResponse {
	resp := dto.TroubleTicketResponse{
		ID:                   record.Protocol,
		Href:                 troubleTicketBasePath + record.Protocol,
		Name:                 record.Subject,
		Description:          record.Description,
		TicketType:           record.TicketType,
		Priority:             record.Priority.TMFValue(),
		Status:               record.Status.TMFValue(),
		CreationDate:         record.CreatedAt,
		LastUpdate:           record.UpdatedAt,
		ResolutionDate:       record.ResolvedAt,
		SalesforceCaseID:     record.SalesforceCaseID,
		SalesforceCaseNumber: record.SalesforceCaseNumber,
		Protocol:             record.Protocol,
	}
	if record.Severity != "" {
		resp.Severity = record.Severity.TMFValue()
	}
	if record.Channel != "" || record.ChannelName != "" {
		resp.Channel = &dto.ChannelRef{ID: record.Channel, Name: record.ChannelName}
	}
	for _, note := range record.Notes {
		resp.Note = append(resp.Note, dto.NoteResponse{
			ID:     note.ID,
			Text:   note.Text,
			Author: note.Author,
			Date:   note.CreatedAt,
		})
	}
	for _, party := range record.RelatedParties {
		resp.RelatedParty = append(resp.RelatedParty, dto.RelatedPartyRef{
			ReferredType: party.ReferredType,
			ID:           party.PartyID,
			Name:         party.Name,
			Role:         party.Role,
		})
	}
	for name, value := range record.Characteristics {
		resp.TicketCharacteristic = append(resp.TicketCharacteristic, dto.TicketCharacteristicRef{
			Name:  name,
			Value: value,
		})
	}
	return resp
}
