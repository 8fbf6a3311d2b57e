package dialogue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"agendly/models"

	"go.uber.org/zap"
)

// HandleTurn processes one inbound message. State is loaded once on entry
// and written once on exit (the write is skipped after a booking hard
// failure, so the user's next message re-enters the same state). The engine
// performs at most two external calendar calls per turn and never more than
// one booking attempt per inbound message.
func (e *DefaultDialogueEngine) HandleTurn(ctx context.Context, in models.TurnInput) (models.TurnResult, error) {
	state, err := e.States.Load(ctx, in.ConversationID)
	if err != nil {
		return models.TurnResult{}, fmt.Errorf("failed to load dialogue state: %w", err)
	}

	if state != nil && !state.Valid() {
		// Data-integrity anomaly (e.g. confirm step without a proposal).
		// Reset the flow and tell the user instead of crashing mid-turn.
		e.Logger.Warn("resetting invalid dialogue state",
			zap.String("conversationId", in.ConversationID),
			zap.String("step", string(state.Step)))
		if err := e.States.Save(ctx, in.ConversationID, nil); err != nil {
			return models.TurnResult{}, fmt.Errorf("failed to clear dialogue state: %w", err)
		}
		return handled(models.TextDirective(msgFlowReset)), nil
	}

	if state == nil {
		return e.startFlow(ctx, in)
	}

	switch state.Step {
	case models.StepAwaitingAll:
		return e.onAwaitingAll(ctx, in, state)
	case models.StepAwaitingDatetime:
		return e.onAwaitingDatetime(ctx, in, state)
	case models.StepConfirm:
		return e.onConfirm(ctx, in, state)
	case models.StepPickSlot:
		return e.onPickSlot(ctx, in, state)
	default: // cancel_await / resched_await
		return e.onHandoff(ctx, in)
	}
}

func handled(msgs ...models.Directive) models.TurnResult {
	return models.TurnResult{Handled: true, Messages: msgs}
}

// startFlow runs when the conversation has no active dialogue. Anything
// without a scheduling intent is handed back to the caller unhandled.
func (e *DefaultDialogueEngine) startFlow(ctx context.Context, in models.TurnInput) (models.TurnResult, error) {
	switch DetectIntent(in.Text) {
	case IntentCancel:
		state := &models.DialogueState{Flow: models.FlowSchedule, Step: models.StepCancelAwait}
		if err := e.States.Save(ctx, in.ConversationID, state); err != nil {
			return models.TurnResult{}, fmt.Errorf("failed to save dialogue state: %w", err)
		}
		return handled(models.TextDirective(msgAskCancelDetails)), nil

	case IntentReschedule:
		state := &models.DialogueState{Flow: models.FlowSchedule, Step: models.StepReschedAwait}
		if err := e.States.Save(ctx, in.ConversationID, state); err != nil {
			return models.TurnResult{}, fmt.Errorf("failed to save dialogue state: %w", err)
		}
		return handled(models.TextDirective(msgAskReschedDetails)), nil

	case IntentSchedule:
		state := &models.DialogueState{Flow: models.FlowSchedule, Step: models.StepAwaitingAll}
		e.fillDraft(&state.Draft, in)
		return e.advanceDraft(ctx, in, state)
	}

	return models.TurnResult{Handled: false}, nil
}

// fillDraft merges whatever the message yields into the draft. Only
// directory-resolved canonical names are stored; a hint that resolves to
// nothing leaves the slot empty and the user gets re-prompted.
func (e *DefaultDialogueEngine) fillDraft(draft *models.BookingDraft, in models.TurnInput) {
	if draft.PersonName == "" {
		if hint := ExtractPersonHint(in.Text); hint != "" {
			if name := ResolvePerson(hint, in.Directory.People); name != "" {
				draft.PersonName = name
			}
		}
	}
	if draft.ServiceName == "" {
		if hint := ExtractServiceHint(in.Text); hint != "" {
			if name := ResolveService(hint, in.Directory.Services); name != "" {
				draft.ServiceName = name
			}
		}
	}
	if draft.Date == "" {
		if date := ExtractDate(in.Text, in.Now); date != "" {
			draft.Date = date
		}
	}
	if draft.Time == "" {
		if clock := ExtractTime(in.Text); clock != "" {
			draft.Time = clock
		}
	}
}

func (e *DefaultDialogueEngine) onAwaitingAll(ctx context.Context, in models.TurnInput, state *models.DialogueState) (models.TurnResult, error) {
	e.fillDraft(&state.Draft, in)
	return e.advanceDraft(ctx, in, state)
}

func (e *DefaultDialogueEngine) onAwaitingDatetime(ctx context.Context, in models.TurnInput, state *models.DialogueState) (models.TurnResult, error) {
	date := ExtractDate(in.Text, in.Now)
	clock := ExtractTime(in.Text)
	if date == "" && clock == "" {
		if err := e.States.Save(ctx, in.ConversationID, state); err != nil {
			return models.TurnResult{}, fmt.Errorf("failed to save dialogue state: %w", err)
		}
		return handled(models.TextDirective(msgAskNewDatetime)), nil
	}
	if date != "" {
		state.Draft.Date = date
	}
	if clock != "" {
		state.Draft.Time = clock
	}
	return e.advanceDraft(ctx, in, state)
}

// advanceDraft either re-prompts for the missing pieces or, once the draft
// is complete, runs the availability lookup.
func (e *DefaultDialogueEngine) advanceDraft(ctx context.Context, in models.TurnInput, state *models.DialogueState) (models.TurnResult, error) {
	if state.Draft.PersonName == "" || state.Draft.Date == "" || state.Draft.Time == "" {
		// Keep awaiting_datetime when only the date/time is in question;
		// fall back to awaiting_all otherwise.
		if state.Draft.PersonName == "" || state.Step != models.StepAwaitingDatetime {
			state.Step = models.StepAwaitingAll
		}
		state.Proposal = nil
		state.Suggestions = nil
		if err := e.States.Save(ctx, in.ConversationID, state); err != nil {
			return models.TurnResult{}, fmt.Errorf("failed to save dialogue state: %w", err)
		}
		return handled(models.TextDirective(e.promptMissing(state.Draft))), nil
	}

	requested, err := ToUTC(state.Draft.Date, state.Draft.Time, e.TZOffsetMinutes)
	if err != nil {
		// The draft held something unparsable; drop it and re-prompt rather
		// than fail the turn.
		e.Logger.Warn("dropping unparsable draft datetime",
			zap.String("date", state.Draft.Date), zap.String("time", state.Draft.Time))
		state.Draft.Date = ""
		state.Draft.Time = ""
		state.Step = models.StepAwaitingAll
		if err := e.States.Save(ctx, in.ConversationID, state); err != nil {
			return models.TurnResult{}, fmt.Errorf("failed to save dialogue state: %w", err)
		}
		return handled(models.TextDirective(e.promptMissing(state.Draft))), nil
	}

	return e.lookupAndPropose(ctx, in, state, requested)
}

// bookingParams derives the slot duration and required skill from the
// resolved draft: the service duration wins, then the person's default,
// then a 30 minute fallback.
func (e *DefaultDialogueEngine) bookingParams(dir models.Directory, draft models.BookingDraft) (int, string) {
	duration := 30
	skill := ""
	for _, p := range dir.People {
		if p.Name == draft.PersonName && p.DefaultSlotMinutes > 0 {
			duration = p.DefaultSlotMinutes
		}
	}
	for _, s := range dir.Services {
		if s.Name == draft.ServiceName {
			if s.DurationMinutes > 0 {
				duration = s.DurationMinutes
			}
			skill = s.DefaultSkill
		}
	}
	return duration, skill
}

// lookupAndPropose queries the calendar for candidates starting at the
// requested instant. Among the candidates the one whose start exactly equals
// the request wins; otherwise the earliest is offered. Transport failures
// degrade to "no availability".
func (e *DefaultDialogueEngine) lookupAndPropose(ctx context.Context, in models.TurnInput, state *models.DialogueState, requested time.Time) (models.TurnResult, error) {
	duration, skill := e.bookingParams(in.Directory, state.Draft)
	slots, err := e.Calendar.SuggestSlots(ctx, state.Draft.PersonName, skill, requested, duration)
	if err != nil {
		e.Logger.Warn("slot suggestion failed, treating as no availability",
			zap.String("conversationId", in.ConversationID), zap.Error(err))
		slots = nil
	}

	if len(slots) == 0 {
		state.Step = models.StepAwaitingDatetime
		state.Proposal = nil
		state.Suggestions = nil
		if err := e.States.Save(ctx, in.ConversationID, state); err != nil {
			return models.TurnResult{}, fmt.Errorf("failed to save dialogue state: %w", err)
		}
		return handled(models.TextDirective(msgAskNewDatetime)), nil
	}

	chosen := slots[0]
	for _, s := range slots {
		if s.Start.Equal(requested) {
			chosen = s
			break
		}
	}
	state.Step = models.StepConfirm
	state.Proposal = &chosen
	state.Suggestions = nil
	if err := e.States.Save(ctx, in.ConversationID, state); err != nil {
		return models.TurnResult{}, fmt.Errorf("failed to save dialogue state: %w", err)
	}
	return handled(models.TextDirective(e.promptProposal(state.Draft, chosen))), nil
}

func (e *DefaultDialogueEngine) onConfirm(ctx context.Context, in models.TurnInput, state *models.DialogueState) (models.TurnResult, error) {
	proposal := *state.Proposal

	switch {
	case IsConfirmation(in.Text):
		return e.bookProposal(ctx, in, state, proposal)

	case IsDenial(in.Text):
		state.Step = models.StepAwaitingDatetime
		state.Proposal = nil
		state.Draft.Date = ""
		state.Draft.Time = ""
		if err := e.States.Save(ctx, in.ConversationID, state); err != nil {
			return models.TurnResult{}, fmt.Errorf("failed to save dialogue state: %w", err)
		}
		return handled(models.TextDirective(msgAskOtherDatetime)), nil

	case DetectIntent(in.Text) == IntentCancel:
		// The user walked away from the in-flight proposal: start over.
		if err := e.States.Save(ctx, in.ConversationID, nil); err != nil {
			return models.TurnResult{}, fmt.Errorf("failed to clear dialogue state: %w", err)
		}
		return handled(models.TextDirective(msgFlowAbandoned)), nil
	}

	if err := e.States.Save(ctx, in.ConversationID, state); err != nil {
		return models.TurnResult{}, fmt.Errorf("failed to save dialogue state: %w", err)
	}
	return handled(models.TextDirective(msgAskYesNo)), nil
}

// bookProposal is the confirm-step booking attempt. On conflict it issues
// one fresh lookup anchored at the failed slot's start and hands the results
// to pick_slot; the pick_slot step itself never re-queries.
func (e *DefaultDialogueEngine) bookProposal(ctx context.Context, in models.TurnInput, state *models.DialogueState, slot models.CandidateSlot) (models.TurnResult, error) {
	status, err := e.bookSlot(ctx, in, state.Draft, slot)
	if err != nil {
		return handled(models.TextDirective(msgBookingFailed)), nil
	}

	switch status {
	case BookStatusCreated:
		if err := e.States.Save(ctx, in.ConversationID, nil); err != nil {
			return models.TurnResult{}, fmt.Errorf("failed to clear dialogue state: %w", err)
		}
		return handled(models.TextDirective(e.promptBooked(state.Draft, slot))), nil

	default: // conflict
		duration, skill := e.bookingParams(in.Directory, state.Draft)
		alternatives, err := e.Calendar.SuggestSlots(ctx, state.Draft.PersonName, skill, slot.Start, duration)
		if err != nil {
			e.Logger.Warn("slot suggestion failed after conflict, treating as no availability",
				zap.String("conversationId", in.ConversationID), zap.Error(err))
			alternatives = nil
		}
		state.Proposal = nil
		if len(alternatives) == 0 {
			state.Step = models.StepAwaitingDatetime
			state.Suggestions = nil
			if err := e.States.Save(ctx, in.ConversationID, state); err != nil {
				return models.TurnResult{}, fmt.Errorf("failed to save dialogue state: %w", err)
			}
			return handled(models.TextDirective(msgSlotJustTakenNone)), nil
		}
		state.Step = models.StepPickSlot
		state.Suggestions = alternatives
		if err := e.States.Save(ctx, in.ConversationID, state); err != nil {
			return models.TurnResult{}, fmt.Errorf("failed to save dialogue state: %w", err)
		}
		return handled(
			models.TextDirective(e.promptPickSlot(len(alternatives))),
			models.OptionsDirective(e.slotOptions(alternatives)),
		), nil
	}
}

func (e *DefaultDialogueEngine) onPickSlot(ctx context.Context, in models.TurnInput, state *models.DialogueState) (models.TurnResult, error) {
	n := parseSelection(in.Text)
	if n < 1 || n > len(state.Suggestions) {
		if IsDenial(in.Text) || DetectIntent(in.Text) == IntentCancel {
			if err := e.States.Save(ctx, in.ConversationID, nil); err != nil {
				return models.TurnResult{}, fmt.Errorf("failed to clear dialogue state: %w", err)
			}
			return handled(models.TextDirective(msgFlowAbandoned)), nil
		}
		if err := e.States.Save(ctx, in.ConversationID, state); err != nil {
			return models.TurnResult{}, fmt.Errorf("failed to save dialogue state: %w", err)
		}
		return handled(
			models.TextDirective(e.promptPickAgain(len(state.Suggestions))),
			models.OptionsDirective(e.slotOptions(state.Suggestions)),
		), nil
	}

	slot := state.Suggestions[n-1]
	status, err := e.bookSlot(ctx, in, state.Draft, slot)
	if err != nil {
		return handled(models.TextDirective(msgBookingFailed)), nil
	}

	switch status {
	case BookStatusCreated:
		if err := e.States.Save(ctx, in.ConversationID, nil); err != nil {
			return models.TurnResult{}, fmt.Errorf("failed to clear dialogue state: %w", err)
		}
		return handled(models.TextDirective(e.promptBooked(state.Draft, slot))), nil

	default: // conflict: advance to the next cached candidate, no fresh lookup
		if n < len(state.Suggestions) {
			next := state.Suggestions[n]
			state.Step = models.StepConfirm
			state.Proposal = &next
			state.Suggestions = nil
			if err := e.States.Save(ctx, in.ConversationID, state); err != nil {
				return models.TurnResult{}, fmt.Errorf("failed to save dialogue state: %w", err)
			}
			return handled(models.TextDirective(e.promptNextProposal(next))), nil
		}
		state.Step = models.StepAwaitingDatetime
		state.Suggestions = nil
		if err := e.States.Save(ctx, in.ConversationID, state); err != nil {
			return models.TurnResult{}, fmt.Errorf("failed to save dialogue state: %w", err)
		}
		return handled(models.TextDirective(msgSlotJustTakenNone)), nil
	}
}

// bookSlot issues the single booking attempt a turn is allowed. A returned
// error means a hard (non-conflict) failure; the caller must not persist
// state so the same confirmation can be retried verbatim.
func (e *DefaultDialogueEngine) bookSlot(ctx context.Context, in models.TurnInput, draft models.BookingDraft, slot models.CandidateSlot) (BookStatus, error) {
	status, err := e.Calendar.BookEvent(ctx, models.BookEventRequest{
		PersonName:     draft.PersonName,
		ServiceName:    draft.ServiceName,
		Contact:        in.Contact,
		Start:          slot.Start,
		End:            slot.End,
		ConversationID: in.ConversationID,
	})
	if err != nil {
		e.Logger.Error("booking attempt failed",
			zap.String("conversationId", in.ConversationID),
			zap.Time("start", slot.Start), zap.Error(err))
		return "", err
	}
	return status, nil
}

// onHandoff closes the stub cancel/reschedule sub-flows: acknowledge the
// details and clear the state so the next message starts fresh.
func (e *DefaultDialogueEngine) onHandoff(ctx context.Context, in models.TurnInput) (models.TurnResult, error) {
	if err := e.States.Save(ctx, in.ConversationID, nil); err != nil {
		return models.TurnResult{}, fmt.Errorf("failed to clear dialogue state: %w", err)
	}
	return handled(models.TextDirective(msgHandedOff)), nil
}

// parseSelection reads a bare 1-based option number, returning 0 when the
// message is not one.
func parseSelection(text string) int {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "."))
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0
	}
	return n
}
