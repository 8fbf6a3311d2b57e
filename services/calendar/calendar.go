package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	agendaRepo "agendly/database/repository/agenda"
	"agendly/models"
	"agendly/services/dialogue"
	"agendly/services/reminder"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxCandidates caps how many slots one suggestion call returns; the
// dialogue engine only ever offers a short, enumerable list anyway.
const maxCandidates = 8

// MongoCalendar implements dialogue.CalendarClient on top of the agenda
// repository: candidate slots are instantiated from each person's recurring
// working-hours templates over a bounded booking window, minus already
// booked events.
type MongoCalendar struct {
	Repo            agendaRepo.AgendaRepository
	Reminders       *reminder.Scheduler
	Logger          *zap.Logger
	WindowDays      int
	TZOffsetMinutes int
}

func NewMongoCalendar(repo agendaRepo.AgendaRepository, reminders *reminder.Scheduler, logger *zap.Logger, windowDays, tzOffsetMinutes int) *MongoCalendar {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &MongoCalendar{
		Repo:            repo,
		Reminders:       reminders,
		Logger:          logger,
		WindowDays:      windowDays,
		TZOffsetMinutes: tzOffsetMinutes,
	}
}

// SuggestSlots walks each day of the booking window, instantiates the
// person's working windows for that weekday and steps through them in
// duration-sized increments, skipping anything before the requested instant
// or overlapping a booked event. Results are ordered earliest first.
func (c *MongoCalendar) SuggestSlots(ctx context.Context, personName, skill string, from time.Time, durationMinutes int) ([]models.CandidateSlot, error) {
	if durationMinutes <= 0 {
		durationMinutes = 30
	}
	windows, err := c.Repo.WorkingHours(ctx, personName)
	if err != nil {
		return nil, fmt.Errorf("failed to load working hours: %w", err)
	}
	if len(windows) == 0 {
		return nil, nil
	}

	horizon := from.AddDate(0, 0, c.WindowDays)
	events, err := c.Repo.EventsBetween(ctx, personName, from, horizon)
	if err != nil {
		return nil, fmt.Errorf("failed to load booked events: %w", err)
	}

	loc := time.FixedZone("local", c.TZOffsetMinutes*60)
	duration := time.Duration(durationMinutes) * time.Minute

	var candidates []models.CandidateSlot
	for dayOffset := 0; dayOffset <= c.WindowDays; dayOffset++ {
		day := from.In(loc).AddDate(0, 0, dayOffset)
		dayMidnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)

		for _, w := range windows {
			if time.Weekday(w.Weekday) != day.Weekday() {
				continue
			}
			if skill != "" && len(w.Skills) > 0 && !hasSkill(w.Skills, skill) {
				continue
			}
			windowStart := dayMidnight.Add(time.Duration(w.StartMinute) * time.Minute)
			windowEnd := dayMidnight.Add(time.Duration(w.EndMinute) * time.Minute)

			for start := windowStart; !start.Add(duration).After(windowEnd); start = start.Add(duration) {
				end := start.Add(duration)
				if start.Before(from) || start.After(horizon) {
					continue
				}
				if overlapsAny(events, start, end) {
					continue
				}
				candidates = append(candidates, models.CandidateSlot{Start: start.UTC(), End: end.UTC()})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Start.Before(candidates[j].Start)
	})
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates, nil
}

// BookEvent reserves the slot. A repository ErrSlotTaken maps to the
// conflict status; every other failure surfaces as an error. On success a
// reminder task is enqueued best-effort.
func (c *MongoCalendar) BookEvent(ctx context.Context, req models.BookEventRequest) (dialogue.BookStatus, error) {
	event := models.AgendaEvent{
		ID:             uuid.New().String(),
		PersonName:     req.PersonName,
		ServiceName:    req.ServiceName,
		ContactID:      req.Contact.ID,
		ContactName:    req.Contact.DisplayName,
		ContactEmail:   req.Contact.Email,
		Start:          req.Start,
		End:            req.End,
		ConversationID: req.ConversationID,
		CreatedAt:      time.Now().UTC(),
	}

	if err := c.Repo.CreateEvent(ctx, event); err != nil {
		if errors.Is(err, agendaRepo.ErrSlotTaken) {
			return dialogue.BookStatusConflict, nil
		}
		return "", fmt.Errorf("failed to book event: %w", err)
	}

	if c.Reminders != nil {
		payload := models.ReminderPayload{
			ConversationID: req.ConversationID,
			PersonName:     req.PersonName,
			ServiceName:    req.ServiceName,
			ContactName:    req.Contact.DisplayName,
			Start:          req.Start,
		}
		if err := c.Reminders.ScheduleAppointmentReminder(ctx, payload); err != nil {
			c.Logger.Warn("failed to schedule appointment reminder",
				zap.String("eventId", event.ID), zap.Error(err))
		}
	}

	return dialogue.BookStatusCreated, nil
}

func hasSkill(skills []string, skill string) bool {
	for _, s := range skills {
		if s == skill {
			return true
		}
	}
	return false
}

func overlapsAny(events []models.AgendaEvent, start, end time.Time) bool {
	for _, ev := range events {
		if ev.Start.Before(end) && ev.End.After(start) {
			return true
		}
	}
	return false
}
