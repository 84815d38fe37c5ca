package salesforce

import "github.com/spec-kit/case-service/internal/domain"

// caseCreateRequest is the Salesforce sobject payload for case creation.
type caseCreateRequest struct {
	Subject     string `json:"Subject"`
	Description string `json:"Description"`
	Status      string `json:"Status"`
	Priority    string `json:"Priority"`
	Type        string `json:"Type,omitempty"`
	Origin      string `json:"Origin,omitempty"`
	Severity    string `json:"Severity,omitempty"`
}

// caseUpdateRequest is the partial payload for case updates.
type caseUpdateRequest struct {
	Subject     string `json:"Subject,omitempty"`
	Description string `json:"Description,omitempty"`
	Status      string `json:"Status,omitempty"`
	Priority    string `json:"Priority,omitempty"`
	Resolution  string `json:"Resolution__c,omitempty"`
}

// caseCreateResponse is Salesforce's sobject create acknowledgement.
type caseCreateResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Errors  []any  `json:"errors"`
}

// RemoteCase is the CRM-side view of a case.
type RemoteCase struct {
	ID               string `json:"Id"`
	CaseNumber       string `json:"CaseNumber"`
	Subject          string `json:"Subject"`
	Description      string `json:"Description"`
	Status           string `json:"Status"`
	Priority         string `json:"Priority"`
	Type             string `json:"Type"`
	Origin           string `json:"Origin"`
	CreatedDate      string `json:"CreatedDate"`
	LastModifiedDate string `json:"LastModifiedDate"`
	ClosedDate       string `json:"ClosedDate"`
}

// CreateResult is the outcome of a remote create. A degraded call yields
// Success=false with a placeholder ID instead of an error, so callers can
// proceed without the remote linkage.
type CreateResult struct {
	ID      string
	Success bool
	Errors  []string
}

// FallbackIDPrefix marks placeholder identifiers produced when the CRM
// could not be reached. They are never stored as real remote ids.
const FallbackIDPrefix = "FALLBACK-"

func toCreateRequest(c *domain.Case) caseCreateRequest {
	req := caseCreateRequest{
		Subject:     c.Subject,
		Description: c.Description,
		Status:      c.Status.SalesforceValue(),
		Priority:    c.Priority.SalesforceValue(),
		Type:        c.TicketType,
		Origin:      c.ChannelName,
	}
	if req.Status == "" {
		req.Status = domain.CaseStatusNew.SalesforceValue()
	}
	if req.Priority == "" {
		req.Priority = domain.CasePriorityMedium.SalesforceValue()
	}
	if c.Severity != "" {
		req.Severity = c.Severity.SalesforceValue()
	}
	return req
}

func toUpdateRequest(c *domain.Case) caseUpdateRequest {
	return caseUpdateRequest{
		Subject:     c.Subject,
		Description: c.Description,
		Status:      c.Status.SalesforceValue(),
		Priority:    c.Priority.SalesforceValue(),
		Resolution:  c.Resolution,
	}
}
