package dto

import "time"

// CreateTroubleTicketRequest is the TMF621 creation payload.
type CreateTroubleTicketRequest struct {
	Name                 string                    `json:"name"`
	Description          string                    `json:"description"`
	TicketType           string                    `json:"ticketType"`
	Priority             *string                   `json:"priority"`
	Severity             *string                   `json:"severity"`
	Channel              *ChannelRef               `json:"channel"`
	RelatedParty         []RelatedPartyRef         `json:"relatedParty"`
	Note                 []NoteRequest             `json:"note"`
	TicketCharacteristic []TicketCharacteristicRef `json:"ticketCharacteristic"`
}

// UpdateTroubleTicketRequest is the TMF621 partial update payload.
// Pointer fields preserve the present-vs-absent distinction for PATCH semantics.
type UpdateTroubleTicketRequest struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	Status      *string       `json:"status"`
	Priority    *string       `json:"priority"`
	Severity    *string       `json:"severity"`
	Resolution  *string       `json:"resolution"`
	Note        []NoteRequest `json:"note"`
}

// ChannelRef identifies the originating channel.
type ChannelRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RelatedPartyRef references an Account or Contact party.
type RelatedPartyRef struct {
	ReferredType string `json:"@referredType"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
}

// NoteRequest carries a note in create/update payloads.
type NoteRequest struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// TicketCharacteristicRef is a freeform name/value attribute.
type TicketCharacteristicRef struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NoteResponse is a persisted note.
type NoteResponse struct {
	ID     string    `json:"id"`
	Text   string    `json:"text"`
	Author string    `json:"author"`
	Date   time.Time `json:"date"`
}

// TroubleTicketResponse is the TMF621 projection of a case. It reflects
// local state only; remote identifiers appear once synchronization succeeded.
type TroubleTicketResponse struct {
	ID                   string                    `json:"id"`
	Href                 string                    `json:"href"`
	Name                 string                    `json:"name"`
	Description          string                    `json:"description"`
	TicketType           string                    `json:"ticketType,omitempty"`
	Priority             string                    `json:"priority,omitempty"`
	Severity             string                    `json:"severity,omitempty"`
	Status               string                    `json:"status"`
	Channel              *ChannelRef               `json:"channel,omitempty"`
	RelatedParty         []RelatedPartyRef         `json:"relatedParty,omitempty"`
	Note                 []NoteResponse            `json:"note,omitempty"`
	TicketCharacteristic []TicketCharacteristicRef `json:"ticketCharacteristic,omitempty"`
	CreationDate         time.Time                 `json:"creationDate"`
	LastUpdate           time.Time                 `json:"lastUpdate"`
	ResolutionDate       *time.Time                `json:"resolutionDate,omitempty"`
	SalesforceCaseID     string                    `json:"salesforceCaseId,omitempty"`
	SalesforceCaseNumber string                    `json:"salesforceCaseNumber,omitempty"`
	Protocol             string                    `json:"protocol"`
}
