package service

import (
	"strings"

	"github.com/spec-kit/case-service/internal/domain"
)

// ChannelInput identifies the originating channel.
type ChannelInput struct {
	ID   string
	Name string
}

// RelatedPartyInput describes a party reference in a create payload.
type RelatedPartyInput struct {
	ReferredType string
	ID           string
	Name         string
	Role         string
}

// NoteInput describes a note in a create or update payload.
type NoteInput struct {
	Text   string
	Author string
}

// CharacteristicInput is a freeform name/value attribute.
type CharacteristicInput struct {
	Name  string
	Value string
}

// CaseCreateInput describes case creation payload. Priority and severity
// carry TMF wire strings; nil means unspecified.
type CaseCreateInput struct {
	Name            string
	Description     string
	TicketType      string
	Priority        *string
	Severity        *string
	Channel         *ChannelInput
	RelatedParties  []RelatedPartyInput
	Notes           []NoteInput
	Characteristics []CharacteristicInput
}

// CaseUpdateInput describes a partial update. Nil fields are left untouched;
// the wire decoder preserves the present-but-set vs absent distinction.
type CaseUpdateInput struct {
	Name        *string
	Description *string
	Status      *string
	Priority    *string
	Severity    *string
	Resolution  *string
	Notes       []NoteInput
}

// caseFromCreateInput builds a new Case with defaulted status and priority,
// owned child collections, and the customer identity taken from the first
// related party tagged as a Contact.
func caseFromCreateInput(input CaseCreateInput) *domain.Case {
	c := &domain.Case{
		Protocol:        domain.GenerateProtocol(),
		Subject:         strings.TrimSpace(input.Name),
		Description:     strings.TrimSpace(input.Description),
		TicketType:      input.TicketType,
		Status:          domain.CaseStatusNew,
		Priority:        domain.CasePriorityMedium,
		Characteristics: map[string]string{},
	}

	if input.Priority != nil {
		c.Priority = domain.PriorityFromTMF(*input.Priority)
	}
	if input.Severity != nil {
		c.Severity = domain.SeverityFromTMF(*input.Severity)
	}
	if input.Channel != nil {
		c.Channel = input.Channel.ID
		c.ChannelName = input.Channel.Name
	}

	for _, party := range input.RelatedParties {
		c.AddRelatedParty(domain.RelatedParty{
			ReferredType: party.ReferredType,
			PartyID:      party.ID,
			Name:         party.Name,
			Role:         party.Role,
		})
		if c.CustomerID == "" && strings.EqualFold(party.ReferredType, "Contact") {
			c.CustomerID = party.ID
			c.CustomerName = party.Name
		}
	}

	for _, note := range input.Notes {
		c.AddNote(domain.CaseNote{Text: note.Text, Author: note.Author})
	}

	for _, tc := range input.Characteristics {
		c.Characteristics[tc.Name] = tc.Value
	}

	return c
}

// applyUpdate mutates only the fields present in the update payload.
func applyUpdate(c *domain.Case, input CaseUpdateInput) {
	if input.Name != nil {
		c.Subject = *input.Name
	}
	if input.Description != nil {
		c.Description = *input.Description
	}
	if input.Status != nil {
		c.Status = domain.StatusFromTMF(*input.Status)
	}
	if input.Priority != nil {
		c.Priority = domain.PriorityFromTMF(*input.Priority)
	}
	if input.Severity != nil {
		c.Severity = domain.SeverityFromTMF(*input.Severity)
	}
	if input.Resolution != nil {
		c.Resolution = *input.Resolution
	}
	for _, note := range input.Notes {
		c.AddNote(domain.CaseNote{Text: note.Text, Author: note.Author})
	}
}
