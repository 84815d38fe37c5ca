package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/api/dto"
	httptransport "github.com/spec-kit/case-service/internal/api/http"
	"github.com/spec-kit/case-service/internal/api/http/handlers"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/observability"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/salesforce"
	"github.com/spec-kit/case-service/internal/service"
)

type memoryCaseRepo struct {
	mu         sync.Mutex
	byProtocol map[string]domain.Case
}

func newMemoryCaseRepo() *memoryCaseRepo {
	return &memoryCaseRepo{byProtocol: map[string]domain.Case{}}
}

func (r *memoryCaseRepo) Create(ctx context.Context, c *domain.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	c.Version = 1
	r.byProtocol[c.Protocol] = *c
	return nil
}

func (r *memoryCaseRepo) Update(ctx context.Context, c *domain.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byProtocol[c.Protocol]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != c.Version {
		return repository.ErrVersionConflict
	}
	c.Version++
	c.UpdatedAt = time.Now()
	r.byProtocol[c.Protocol] = *c
	return nil
}

func (r *memoryCaseRepo) GetByProtocol(ctx context.Context, protocol string) (*domain.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byProtocol[protocol]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (r *memoryCaseRepo) GetBySalesforceID(ctx context.Context, salesforceID string) (*domain.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.byProtocol {
		if stored.SalesforceCaseID == salesforceID {
			copied := stored
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryCaseRepo) ListWithFilter(ctx context.Context, filter repository.CaseFilter) ([]domain.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Case
	for _, stored := range r.byProtocol {
		if filter.Status != nil && stored.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && stored.Priority != *filter.Priority {
			continue
		}
		if filter.TicketType != nil && stored.TicketType != *filter.TicketType {
			continue
		}
		result = append(result, stored)
	}
	return result, nil
}

type stubGateway struct {
	createResult salesforce.CreateResult
}

func (g *stubGateway) CreateCase(ctx context.Context, c *domain.Case) salesforce.CreateResult {
	return g.createResult
}

func (g *stubGateway) GetCase(ctx context.Context, salesforceID string) (*salesforce.RemoteCase, error) {
	return &salesforce.RemoteCase{ID: salesforceID, CaseNumber: "00001001"}, nil
}

func (g *stubGateway) UpdateCase(ctx context.Context, salesforceID string, c *domain.Case) error {
	return nil
}

type memoryBacklog struct {
	mu      sync.Mutex
	pending map[string]bool
}

func newMemoryBacklog() *memoryBacklog {
	return &memoryBacklog{pending: map[string]bool{}}
}

func (b *memoryBacklog) MarkPending(ctx context.Context, protocol string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[protocol] = true
	return nil
}

func (b *memoryBacklog) ClearPending(ctx context.Context, protocol string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, protocol)
	return nil
}

func (b *memoryBacklog) ListPending(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (b *memoryBacklog) PendingCount(ctx context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.pending)), nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	caseService := service.NewCaseService(service.CaseDependencies{
		CaseRepo:    newMemoryCaseRepo(),
		BacklogRepo: newMemoryBacklog(),
		Gateway:     &stubGateway{createResult: salesforce.CreateResult{ID: "500ABC", Success: true}},
		Logger:      zap.NewNop(),
		Metrics:     observability.NewMetrics(),
	})

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 5*time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("case-management-service", "test", nil, nil, newMemoryBacklog()),
		TroubleTickets: handlers.NewTroubleTicketsHandler(caseService),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	resp.Body.Close()
	return resp, data
}

const basePath = "/tmf-api/troubleTicket/v4/troubleTicket"

func createTicket(t *testing.T, app *fiber.App, payload map[string]any) dto.TroubleTicketResponse {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, basePath, payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	var ticket dto.TroubleTicketResponse
	if err := json.Unmarshal(body, &ticket); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return ticket
}

func TestCreateTroubleTicket(t *testing.T) {
	app := newTestApp(t)

	ticket := createTicket(t, app, map[string]any{
		"name":        "No signal",
		"description": "Customer has no signal since yesterday",
		"priority":    "High",
	})

	if ticket.Status != "new" {
		t.Errorf("expected status new, got %q", ticket.Status)
	}
	if ticket.Priority != "High" {
		t.Errorf("expected priority High, got %q", ticket.Priority)
	}
	if ticket.Protocol == "" || ticket.ID != ticket.Protocol {
		t.Errorf("expected id to be the protocol, got id=%q protocol=%q", ticket.ID, ticket.Protocol)
	}
	if ticket.SalesforceCaseID != "500ABC" {
		t.Errorf("expected synced salesforce id, got %q", ticket.SalesforceCaseID)
	}
	if ticket.SalesforceCaseNumber != "00001001" {
		t.Errorf("expected synced case number, got %q", ticket.SalesforceCaseNumber)
	}
	if ticket.ResolutionDate != nil {
		t.Error("resolutionDate must be absent for a new ticket")
	}
}

func TestCreateTroubleTicketValidation(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, basePath, map[string]any{
		"name": "missing description",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.StatusCode, body)
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "VALIDATION_FAILED" {
		t.Errorf("expected VALIDATION_FAILED, got %q", envelope.Error.Code)
	}
}

func TestGetTroubleTicketNotFound(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, basePath+"/CASE-UNKNOWN", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", resp.StatusCode, body)
	}

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %q", envelope.Error.Code)
	}
}

func TestResolveTroubleTicket(t *testing.T) {
	app := newTestApp(t)

	ticket := createTicket(t, app, map[string]any{
		"name":        "No signal",
		"description": "Customer has no signal since yesterday",
	})

	resp, body := doJSON(t, app, http.MethodPatch, basePath+"/"+ticket.ID, map[string]any{
		"status":     "resolved",
		"resolution": "replaced faulty SIM",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var updated dto.TroubleTicketResponse
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if updated.Status != "resolved" {
		t.Errorf("expected status resolved, got %q", updated.Status)
	}
	if updated.ResolutionDate == nil {
		t.Error("expected resolutionDate set on resolve")
	}
}

func TestCancelTroubleTicket(t *testing.T) {
	app := newTestApp(t)

	ticket := createTicket(t, app, map[string]any{
		"name":        "wrong address on invoice",
		"description": "billing complaint",
	})

	resp, body := doJSON(t, app, http.MethodDelete, basePath+"/"+ticket.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, app, http.MethodGet, basePath+"/"+ticket.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancelled ticket must remain readable, got %d: %s", resp.StatusCode, body)
	}
	var after dto.TroubleTicketResponse
	if err := json.Unmarshal(body, &after); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if after.Status != "cancelled" {
		t.Errorf("expected status cancelled, got %q", after.Status)
	}
}

func TestListTroubleTicketsWithStatusFilter(t *testing.T) {
	app := newTestApp(t)

	_ = createTicket(t, app, map[string]any{"name": "a", "description": "open one"})
	resolved := createTicket(t, app, map[string]any{"name": "b", "description": "to resolve"})
	resp, body := doJSON(t, app, http.MethodPatch, basePath+"/"+resolved.ID, map[string]any{"status": "resolved"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resolve setup failed: %d %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, app, http.MethodGet, basePath+"?status=resolved", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var items []dto.TroubleTicketResponse
	if err := json.Unmarshal(body, &items); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one resolved ticket, got %d", len(items))
	}
	if items[0].ID != resolved.ID {
		t.Errorf("wrong ticket in filtered list: %q", items[0].ID)
	}
}

func TestCreateTroubleTicketProjectsChildCollections(t *testing.T) {
	app := newTestApp(t)

	ticket := createTicket(t, app, map[string]any{
		"name":        "slow connection",
		"description": "intermittent packet loss",
		"severity":    "Major",
		"channel":     map[string]any{"id": "web", "name": "Self Service Portal"},
		"relatedParty": []map[string]any{
			{"@referredType": "Contact", "id": "cust-42", "name": "Jo Silva"},
		},
		"note": []map[string]any{
			{"text": "first diagnostic attached", "author": "agent-7"},
		},
		"ticketCharacteristic": []map[string]any{
			{"name": "region", "value": "south"},
		},
	})

	if ticket.Severity != "Major" {
		t.Errorf("expected severity Major, got %q", ticket.Severity)
	}
	if ticket.Channel == nil || ticket.Channel.ID != "web" {
		t.Errorf("channel not projected: %+v", ticket.Channel)
	}
	if len(ticket.RelatedParty) != 1 || ticket.RelatedParty[0].ID != "cust-42" {
		t.Errorf("related party not projected: %+v", ticket.RelatedParty)
	}
	if len(ticket.Note) != 1 || ticket.Note[0].Text != "first diagnostic attached" {
		t.Errorf("note not projected: %+v", ticket.Note)
	}
	if len(ticket.TicketCharacteristic) != 1 || ticket.TicketCharacteristic[0].Name != "region" {
		t.Errorf("characteristic not projected: %+v", ticket.TicketCharacteristic)
	}
}
