package dialogue

import (
	"context"
	"time"

	"agendly/models"

	"go.uber.org/zap"
)

// DialogueEngine turns one inbound message into outbound message directives,
// advancing the per-conversation scheduling state machine as a side effect.
type DialogueEngine interface {
	HandleTurn(ctx context.Context, in models.TurnInput) (models.TurnResult, error)
}

// StateStore persists the dialogue state blob keyed by conversation id.
// Load returns nil for a conversation with no active dialogue; Save with a
// nil state clears it. The engine reads once at turn entry and writes once
// at turn exit; the store only needs single-row overwrite semantics.
type StateStore interface {
	Load(ctx context.Context, conversationID string) (*models.DialogueState, error)
	Save(ctx context.Context, conversationID string, state *models.DialogueState) error
}

// BookStatus is the outcome of a booking attempt against the calendar
// backend. Anything that is not created or conflict surfaces as an error and
// ends the attempt without an automatic retry.
type BookStatus string

const (
	BookStatusCreated  BookStatus = "created"
	BookStatusConflict BookStatus = "conflict"
)

// CalendarClient is the capability interface to the external scheduling
// backend. SuggestSlots returns candidates ordered earliest-first; the engine
// treats a transport error the same as an empty result. BookEvent reports
// conflict when the previously offered slot is no longer free.
type CalendarClient interface {
	SuggestSlots(ctx context.Context, personName, skill string, from time.Time, durationMinutes int) ([]models.CandidateSlot, error)
	BookEvent(ctx context.Context, req models.BookEventRequest) (BookStatus, error)
}

// DefaultDialogueEngine implements DialogueEngine.
type DefaultDialogueEngine struct {
	States          StateStore
	Calendar        CalendarClient
	Logger          *zap.Logger
	TZOffsetMinutes int
}

func NewDefaultDialogueEngine(states StateStore, calendar CalendarClient, logger *zap.Logger, tzOffsetMinutes int) *DefaultDialogueEngine {
	return &DefaultDialogueEngine{
		States:          states,
		Calendar:        calendar,
		Logger:          logger,
		TZOffsetMinutes: tzOffsetMinutes,
	}
}
