package models

import "time"

// CandidateSlot is a time interval offered by the calendar backend. Slots are
// ephemeral: they live in the current proposal or suggestion list and are
// never persisted past the turn that consumes them.
type CandidateSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BookEventRequest carries everything the calendar backend needs to create
// an event for a confirmed slot.
type BookEventRequest struct {
	PersonName     string
	ServiceName    string
	Contact        Contact
	Start          time.Time
	End            time.Time
	ConversationID string
}

// AgendaEvent is a booked calendar event as stored by the agenda backend.
type AgendaEvent struct {
	ID             string    `bson:"_id" json:"id"`
	PersonName     string    `bson:"personName" json:"personName"`
	ServiceName    string    `bson:"serviceName,omitempty" json:"serviceName,omitempty"`
	ContactID      string    `bson:"contactId,omitempty" json:"contactId,omitempty"`
	ContactName    string    `bson:"contactName,omitempty" json:"contactName,omitempty"`
	ContactEmail   string    `bson:"contactEmail,omitempty" json:"contactEmail,omitempty"`
	Start          time.Time `bson:"start" json:"start"`
	End            time.Time `bson:"end" json:"end"`
	ConversationID string    `bson:"conversationId,omitempty" json:"conversationId,omitempty"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
}
