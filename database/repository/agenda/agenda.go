package agendaRepo

import (
	"context"
	"errors"
	"time"

	"agendly/models"
)

// ErrSlotTaken is reported when an event cannot be created because the
// interval overlaps an existing event for the same person.
var ErrSlotTaken = errors.New("agenda slot already taken")

// AgendaRepository abstracts the calendar storage backing slot suggestion
// and booking.
type AgendaRepository interface {
	// WorkingHours returns the recurring availability templates for a person.
	WorkingHours(ctx context.Context, personName string) ([]models.WorkingWindow, error)
	// EventsBetween returns booked events for a person ordered by start time.
	EventsBetween(ctx context.Context, personName string, from, to time.Time) ([]models.AgendaEvent, error)
	// CreateEvent persists an event, returning ErrSlotTaken when the
	// interval is no longer free.
	CreateEvent(ctx context.Context, event models.AgendaEvent) error
}
