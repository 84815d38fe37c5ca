package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CaseStatus enumerates lifecycle states for cases (TMF621 TroubleTicket states).
type CaseStatus string

const (
	CaseStatusNew          CaseStatus = "NEW"
	CaseStatusAcknowledged CaseStatus = "ACKNOWLEDGED"
	CaseStatusInProgress   CaseStatus = "IN_PROGRESS"
	CaseStatusPending      CaseStatus = "PENDING"
	CaseStatusHeld         CaseStatus = "HELD"
	CaseStatusResolved     CaseStatus = "RESOLVED"
	CaseStatusClosed       CaseStatus = "CLOSED"
	CaseStatusCancelled    CaseStatus = "CANCELLED"
)

// CasePriority enumerates case urgency.
type CasePriority string

const (
	CasePriorityCritical CasePriority = "CRITICAL"
	CasePriorityHigh     CasePriority = "HIGH"
	CasePriorityMedium   CasePriority = "MEDIUM"
	CasePriorityLow      CasePriority = "LOW"
)

// CaseSeverity enumerates impact severity.
type CaseSeverity string

const (
	CaseSeverityCritical CaseSeverity = "CRITICAL"
	CaseSeverityMajor    CaseSeverity = "MAJOR"
	CaseSeverityMinor    CaseSeverity = "MINOR"
)

// enumValues carries the two wire representations of an enum member:
// the TMF621 public string and the value the Salesforce org expects.
type enumValues struct {
	TMF        string
	Salesforce string
}

var statusValues = map[CaseStatus]enumValues{
	CaseStatusNew:          {TMF: "new", Salesforce: "Novo"},
	CaseStatusAcknowledged: {TMF: "acknowledged", Salesforce: "Em Análise"},
	CaseStatusInProgress:   {TMF: "inProgress", Salesforce: "Em Andamento"},
	CaseStatusPending:      {TMF: "pending", Salesforce: "Pendente"},
	CaseStatusHeld:         {TMF: "held", Salesforce: "Em Espera"},
	CaseStatusResolved:     {TMF: "resolved", Salesforce: "Resolvido"},
	CaseStatusClosed:       {TMF: "closed", Salesforce: "Fechado"},
	CaseStatusCancelled:    {TMF: "cancelled", Salesforce: "Cancelado"},
}

var priorityValues = map[CasePriority]enumValues{
	CasePriorityCritical: {TMF: "Critical", Salesforce: "Crítica"},
	CasePriorityHigh:     {TMF: "High", Salesforce: "Alta"},
	CasePriorityMedium:   {TMF: "Medium", Salesforce: "Média"},
	CasePriorityLow:      {TMF: "Low", Salesforce: "Baixa"},
}

var severityValues = map[CaseSeverity]enumValues{
	CaseSeverityCritical: {TMF: "Critical", Salesforce: "Critical"},
	CaseSeverityMajor:    {TMF: "Major", Salesforce: "Major"},
	CaseSeverityMinor:    {TMF: "Minor", Salesforce: "Minor"},
}

// TMFValue returns the public wire string for the status.
func (s CaseStatus) TMFValue() string { return statusValues[s].TMF }

// SalesforceValue returns the CRM-side string for the status.
func (s CaseStatus) SalesforceValue() string { return statusValues[s].Salesforce }

func (p CasePriority) TMFValue() string        { return priorityValues[p].TMF }
func (p CasePriority) SalesforceValue() string { return priorityValues[p].Salesforce }

func (v CaseSeverity) TMFValue() string        { return severityValues[v].TMF }
func (v CaseSeverity) SalesforceValue() string { return severityValues[v].Salesforce }

// StatusFromTMF resolves a TMF status string; unrecognized input defaults to NEW.
func StatusFromTMF(value string) CaseStatus {
	for status, vals := range statusValues {
		if strings.EqualFold(vals.TMF, value) {
			return status
		}
	}
	return CaseStatusNew
}

// PriorityFromTMF resolves a TMF priority string; unrecognized input defaults to MEDIUM.
func PriorityFromTMF(value string) CasePriority {
	for priority, vals := range priorityValues {
		if strings.EqualFold(vals.TMF, value) {
			return priority
		}
	}
	return CasePriorityMedium
}

// SeverityFromTMF resolves a TMF severity string; unrecognized input defaults to MINOR.
func SeverityFromTMF(value string) CaseSeverity {
	for severity, vals := range severityValues {
		if strings.EqualFold(vals.TMF, value) {
			return severity
		}
	}
	return CaseSeverityMinor
}

// Case is the authoritative record of a support interaction. The local row is
// the source of truth; Salesforce identifiers stay empty until a sync succeeds.
type Case struct {
	ID       string
	Protocol string

	TicketType  string
	Category    string
	Subcategory string
	Priority    CasePriority
	Severity    CaseSeverity

	CustomerID      string
	CustomerName    string
	CustomerSegment string

	Status CaseStatus

	Subject     string
	Description string
	Resolution  string

	Channel     string
	ChannelName string

	SalesforceCaseID     string
	SalesforceCaseNumber string

	Characteristics map[string]string

	Notes          []CaseNote
	RelatedParties []RelatedParty

	CreatedAt  time.Time
	CreatedBy  string
	UpdatedAt  time.Time
	UpdatedBy  string
	ResolvedAt *time.Time
	ResolvedBy string

	Version int64
}

// CaseNote is an append-only comment owned by a single Case.
type CaseNote struct {
	ID        string
	CaseID    string
	Text      string
	Author    string
	CreatedAt time.Time
}

// RelatedParty links a party record (Account, Contact) to a Case.
type RelatedParty struct {
	ID           string
	CaseID       string
	ReferredType string
	PartyID      string
	Name         string
	Role         string
	CreatedAt    time.Time
}

// AddNote appends a note and stamps the back reference.
func (c *Case) AddNote(note CaseNote) {
	note.CaseID = c.ID
	c.Notes = append(c.Notes, note)
}

// AddRelatedParty appends a party and stamps the back reference.
func (c *Case) AddRelatedParty(party RelatedParty) {
	party.CaseID = c.ID
	c.RelatedParties = append(c.RelatedParties, party)
}

// GenerateProtocol produces the human-facing case identifier.
// Uniqueness is enforced by the store's unique index on protocol.
func GenerateProtocol() string {
	return "CASE-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
