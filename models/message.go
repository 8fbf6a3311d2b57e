package models

import "time"

// Contact identifies the person the conversation is with. All fields are
// optional; a missing contact never fails a turn.
type Contact struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// TurnInput is one inbound message plus the ambient values the engine needs
// to process it deterministically: an injected clock and a read-only
// directory snapshot.
type TurnInput struct {
	ConversationID string
	Text           string
	Contact        Contact
	Now            time.Time
	Directory      Directory
}

// Directive types for outbound messages.
const (
	DirectiveText    = "text"
	DirectiveOptions = "options"
)

// Directive is one outbound message the caller should deliver. Type is
// either "text" (Text set) or "options" (Options set, ordered).
type Directive struct {
	Type    string   `json:"type"`
	Text    string   `json:"text,omitempty"`
	Options []string `json:"options,omitempty"`
}

// TextDirective builds a plain text message directive.
func TextDirective(text string) Directive {
	return Directive{Type: DirectiveText, Text: text}
}

// OptionsDirective builds an enumerable options directive.
func OptionsDirective(options []string) Directive {
	return Directive{Type: DirectiveOptions, Options: options}
}

// TurnResult is the outcome of one handled turn. Handled=false means the
// message is not schedule-related and the caller should route it elsewhere;
// when Handled is true, Messages is never empty.
type TurnResult struct {
	Handled  bool        `json:"handled"`
	Messages []Directive `json:"messages"`
}

// ReminderPayload is the task payload enqueued when a booking is confirmed,
// consumed by the reminder worker shortly before the event starts.
type ReminderPayload struct {
	ConversationID string    `json:"conversationId"`
	PersonName     string    `json:"personName"`
	ServiceName    string    `json:"serviceName,omitempty"`
	ContactName    string    `json:"contactName,omitempty"`
	Start          time.Time `json:"start"`
}
