package events

import (
	"time"

	"github.com/spec-kit/case-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCaseCreated       EventType = "case_created"
	EventCaseSynced        EventType = "case_synced"
	EventCaseSyncFailed    EventType = "case_sync_failed"
	EventCaseStatusChanged EventType = "case_status_changed"
	EventCaseCancelled     EventType = "case_cancelled"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Protocol  string      `json:"protocol"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CaseCreatedPayload payload.
type CaseCreatedPayload struct {
	Subject    string              `json:"subject"`
	Priority   domain.CasePriority `json:"priority"`
	TicketType string              `json:"ticket_type,omitempty"`
	CustomerID string              `json:"customer_id,omitempty"`
}

// CaseSyncedPayload payload.
type CaseSyncedPayload struct {
	SalesforceCaseID     string `json:"salesforce_case_id"`
	SalesforceCaseNumber string `json:"salesforce_case_number,omitempty"`
}

// CaseSyncFailedPayload payload.
type CaseSyncFailedPayload struct {
	Operation string   `json:"operation"`
	Errors    []string `json:"errors,omitempty"`
}

// CaseStatusChangedPayload payload.
type CaseStatusChangedPayload struct {
	OldStatus domain.CaseStatus `json:"old_status"`
	NewStatus domain.CaseStatus `json:"new_status"`
}

// CaseCancelledPayload payload.
type CaseCancelledPayload struct {
	PreviousStatus domain.CaseStatus `json:"previous_status"`
}
