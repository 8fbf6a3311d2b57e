package dialogue

import (
	"context"
	"errors"
	"testing"
	"time"

	"agendly/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryStateStore struct {
	states map[string]*models.DialogueState
	saves  int
}

func newMemoryStateStore() *memoryStateStore {
	return &memoryStateStore{states: make(map[string]*models.DialogueState)}
}

func cloneState(s *models.DialogueState) *models.DialogueState {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Proposal != nil {
		p := *s.Proposal
		clone.Proposal = &p
	}
	clone.Suggestions = append([]models.CandidateSlot(nil), s.Suggestions...)
	return &clone
}

func (m *memoryStateStore) Load(_ context.Context, conversationID string) (*models.DialogueState, error) {
	return cloneState(m.states[conversationID]), nil
}

func (m *memoryStateStore) Save(_ context.Context, conversationID string, state *models.DialogueState) error {
	m.saves++
	if state == nil {
		delete(m.states, conversationID)
		return nil
	}
	m.states[conversationID] = cloneState(state)
	return nil
}

type fakeCalendar struct {
	slots        []models.CandidateSlot
	suggestErr   error
	suggestCalls int
	suggestFrom  []time.Time

	bookStatus BookStatus
	bookErr    error
	bookCalls  int
	lastBook   models.BookEventRequest
}

func (f *fakeCalendar) SuggestSlots(_ context.Context, _, _ string, from time.Time, _ int) ([]models.CandidateSlot, error) {
	f.suggestCalls++
	f.suggestFrom = append(f.suggestFrom, from)
	if f.suggestErr != nil {
		return nil, f.suggestErr
	}
	return f.slots, nil
}

func (f *fakeCalendar) BookEvent(_ context.Context, req models.BookEventRequest) (BookStatus, error) {
	f.bookCalls++
	f.lastBook = req
	if f.bookErr != nil {
		return "", f.bookErr
	}
	return f.bookStatus, nil
}

const convID = "conv-1"

func testDirectory() models.Directory {
	return models.Directory{
		People: []models.ResolvedPerson{
			{Name: "Ana", Aliases: []string{"aninha"}, DefaultSlotMinutes: 30},
		},
		Services: []models.ResolvedService{
			{Name: "Consulta", DurationMinutes: 60},
		},
	}
}

func newTestEngine(store StateStore, cal CalendarClient) *DefaultDialogueEngine {
	return NewDefaultDialogueEngine(store, cal, zap.NewNop(), -180)
}

func turn(text string) models.TurnInput {
	return models.TurnInput{
		ConversationID: convID,
		Text:           text,
		Contact:        models.Contact{ID: "c-9", DisplayName: "Paula"},
		Now:            referenceNow,
		Directory:      testDirectory(),
	}
}

// slotAt builds a one-hour candidate starting at the given UTC instant.
func slotAt(start time.Time) models.CandidateSlot {
	return models.CandidateSlot{Start: start, End: start.Add(time.Hour)}
}

// requestedInstant is "dia 23 as 14h30" at UTC-3: 2025-03-23T17:30Z.
var requestedInstant = time.Date(2025, time.March, 23, 17, 30, 0, 0, time.UTC)

func TestFullRequestReachesConfirmWithExactSlot(t *testing.T) {
	store := newMemoryStateStore()
	cal := &fakeCalendar{slots: []models.CandidateSlot{
		slotAt(requestedInstant.Add(-30 * time.Minute)),
		slotAt(requestedInstant),
	}}
	engine := newTestEngine(store, cal)

	res, err := engine.HandleTurn(context.Background(), turn("quero agendar consulta com ana dia 23 as 14h30"))
	require.NoError(t, err)
	require.True(t, res.Handled)
	require.NotEmpty(t, res.Messages)

	state := store.states[convID]
	require.NotNil(t, state)
	assert.Equal(t, models.StepConfirm, state.Step)
	require.NotNil(t, state.Proposal)
	// The candidate whose start exactly equals the request wins over the
	// earlier first candidate.
	assert.True(t, state.Proposal.Start.Equal(requestedInstant))
	assert.Equal(t, "Ana", state.Draft.PersonName)
	assert.Equal(t, "Consulta", state.Draft.ServiceName)
	assert.Equal(t, "2025-03-23", state.Draft.Date)
	assert.Equal(t, "14:30", state.Draft.Time)
	assert.Equal(t, 1, cal.suggestCalls)
	assert.True(t, cal.suggestFrom[0].Equal(requestedInstant))
}

func TestNoAvailabilityMovesToAwaitingDatetime(t *testing.T) {
	store := newMemoryStateStore()
	cal := &fakeCalendar{}
	engine := newTestEngine(store, cal)

	res, err := engine.HandleTurn(context.Background(), turn("quero agendar consulta com ana dia 23 as 14h30"))
	require.NoError(t, err)
	require.True(t, res.Handled)

	state := store.states[convID]
	require.NotNil(t, state)
	assert.Equal(t, models.StepAwaitingDatetime, state.Step)
	assert.Nil(t, state.Proposal)
	assert.Equal(t, msgAskNewDatetime, res.Messages[0].Text)
}

func TestSuggestErrorDegradesToNoAvailability(t *testing.T) {
	store := newMemoryStateStore()
	cal := &fakeCalendar{suggestErr: errors.New("calendar down")}
	engine := newTestEngine(store, cal)

	res, err := engine.HandleTurn(context.Background(), turn("quero agendar consulta com ana dia 23 as 14h30"))
	require.NoError(t, err)
	require.True(t, res.Handled)
	assert.Equal(t, models.StepAwaitingDatetime, store.states[convID].Step)
	assert.Equal(t, msgAskNewDatetime, res.Messages[0].Text)
}

func TestIncompleteDraftRepromptIsIdempotent(t *testing.T) {
	store := newMemoryStateStore()
	cal := &fakeCalendar{}
	engine := newTestEngine(store, cal)

	first, err := engine.HandleTurn(context.Background(), turn("quero agendar com ana"))
	require.NoError(t, err)
	stateAfterFirst := cloneState(store.states[convID])

	second, err := engine.HandleTurn(context.Background(), turn("quero agendar com ana"))
	require.NoError(t, err)

	assert.Equal(t, stateAfterFirst, store.states[convID])
	assert.Equal(t, first.Messages, second.Messages)
	assert.Equal(t, models.StepAwaitingAll, store.states[convID].Step)
	assert.Equal(t, "Ana", store.states[convID].Draft.PersonName)
	assert.Zero(t, cal.suggestCalls)
}

func TestArticleBeforeNameResolvesNamedPerson(t *testing.T) {
	store := newMemoryStateStore()
	cal := &fakeCalendar{slots: []models.CandidateSlot{slotAt(requestedInstant)}}
	engine := newTestEngine(store, cal)

	// With "com a maria" the draft must carry Maria, not whichever entry
	// happens to sort before her.
	in := turn("quero agendar consulta com a maria dia 23 as 14h30")
	in.Directory = models.Directory{
		People: []models.ResolvedPerson{
			{Name: "Amanda", DefaultSlotMinutes: 30},
			{Name: "Maria", DefaultSlotMinutes: 30},
		},
		Services: []models.ResolvedService{{Name: "Consulta", DurationMinutes: 60}},
	}

	res, err := engine.HandleTurn(context.Background(), in)
	require.NoError(t, err)
	require.True(t, res.Handled)

	state := store.states[convID]
	require.NotNil(t, state)
	assert.Equal(t, "Maria", state.Draft.PersonName)
	assert.Equal(t, models.StepConfirm, state.Step)
}

func TestUnresolvedHintLeavesDraftEmpty(t *testing.T) {
	store := newMemoryStateStore()
	engine := newTestEngine(store, &fakeCalendar{})

	res, err := engine.HandleTurn(context.Background(), turn("quero agendar com roberto"))
	require.NoError(t, err)
	require.True(t, res.Handled)
	// Raw user text never lands in the draft; only resolved names do.
	assert.Equal(t, "", store.states[convID].Draft.PersonName)
}

func TestNonSchedulingMessageIsUnhandled(t *testing.T) {
	store := newMemoryStateStore()
	engine := newTestEngine(store, &fakeCalendar{})

	res, err := engine.HandleTurn(context.Background(), turn("bom dia, tudo bem?"))
	require.NoError(t, err)
	assert.False(t, res.Handled)
	assert.Empty(t, res.Messages)
	assert.Zero(t, store.saves)
}

func TestCancelIntentOpensCancelSubflow(t *testing.T) {
	store := newMemoryStateStore()
	engine := newTestEngine(store, &fakeCalendar{})

	res, err := engine.HandleTurn(context.Background(), turn("cancelar"))
	require.NoError(t, err)
	require.True(t, res.Handled)
	require.Len(t, res.Messages, 1)

	state := store.states[convID]
	require.NotNil(t, state)
	assert.Equal(t, models.FlowSchedule, state.Flow)
	assert.Equal(t, models.StepCancelAwait, state.Step)
	assert.Equal(t, models.BookingDraft{}, state.Draft)
}

func TestHandoffClearsState(t *testing.T) {
	store := newMemoryStateStore()
	store.states[convID] = &models.DialogueState{Flow: models.FlowSchedule, Step: models.StepCancelAwait}
	engine := newTestEngine(store, &fakeCalendar{})

	res, err := engine.HandleTurn(context.Background(), turn("o horário de quinta com a Ana"))
	require.NoError(t, err)
	require.True(t, res.Handled)
	assert.Equal(t, msgHandedOff, res.Messages[0].Text)
	assert.Nil(t, store.states[convID])
}

func confirmState() *models.DialogueState {
	p := slotAt(requestedInstant)
	return &models.DialogueState{
		Flow: models.FlowSchedule,
		Step: models.StepConfirm,
		Draft: models.BookingDraft{
			PersonName:  "Ana",
			ServiceName: "Consulta",
			Date:        "2025-03-23",
			Time:        "14:30",
		},
		Proposal: &p,
	}
}

func TestConfirmBookingSuccessClearsState(t *testing.T) {
	store := newMemoryStateStore()
	store.states[convID] = confirmState()
	cal := &fakeCalendar{bookStatus: BookStatusCreated}
	engine := newTestEngine(store, cal)

	res, err := engine.HandleTurn(context.Background(), turn("confirmar"))
	require.NoError(t, err)
	require.True(t, res.Handled)
	assert.Contains(t, res.Messages[0].Text, "confirmado")
	assert.Nil(t, store.states[convID])
	assert.Equal(t, 1, cal.bookCalls)
	assert.Equal(t, "Ana", cal.lastBook.PersonName)
	assert.Equal(t, convID, cal.lastBook.ConversationID)
	assert.True(t, cal.lastBook.Start.Equal(requestedInstant))
}

func TestConfirmConflictOffersAlternatives(t *testing.T) {
	store := newMemoryStateStore()
	store.states[convID] = confirmState()
	alternatives := []models.CandidateSlot{
		slotAt(requestedInstant.Add(time.Hour)),
		slotAt(requestedInstant.Add(2 * time.Hour)),
	}
	cal := &fakeCalendar{bookStatus: BookStatusConflict, slots: alternatives}
	engine := newTestEngine(store, cal)

	res, err := engine.HandleTurn(context.Background(), turn("confirmar"))
	require.NoError(t, err)
	require.True(t, res.Handled)

	// The re-query is anchored at the failed proposal's start.
	require.Equal(t, 1, cal.suggestCalls)
	assert.True(t, cal.suggestFrom[0].Equal(requestedInstant))

	state := store.states[convID]
	require.NotNil(t, state)
	assert.Equal(t, models.StepPickSlot, state.Step)
	assert.Nil(t, state.Proposal)
	require.Len(t, state.Suggestions, 2)

	require.Len(t, res.Messages, 2)
	assert.Equal(t, models.DirectiveOptions, res.Messages[1].Type)
	assert.Len(t, res.Messages[1].Options, 2)
}

func TestConfirmConflictWithoutAlternatives(t *testing.T) {
	store := newMemoryStateStore()
	store.states[convID] = confirmState()
	cal := &fakeCalendar{bookStatus: BookStatusConflict}
	engine := newTestEngine(store, cal)

	res, err := engine.HandleTurn(context.Background(), turn("sim"))
	require.NoError(t, err)
	assert.Equal(t, msgSlotJustTakenNone, res.Messages[0].Text)
	assert.Equal(t, models.StepAwaitingDatetime, store.states[convID].Step)
}

func TestConfirmHardFailureLeavesStateUntouched(t *testing.T) {
	store := newMemoryStateStore()
	store.states[convID] = confirmState()
	cal := &fakeCalendar{bookErr: errors.New("backend exploded")}
	engine := newTestEngine(store, cal)

	savesBefore := store.saves
	res, err := engine.HandleTurn(context.Background(), turn("confirmar"))
	require.NoError(t, err)
	assert.Equal(t, msgBookingFailed, res.Messages[0].Text)
	// No write happened: the next message re-enters the same confirm step.
	assert.Equal(t, savesBefore, store.saves)
	state := store.states[convID]
	assert.Equal(t, models.StepConfirm, state.Step)
	require.NotNil(t, state.Proposal)
}

func TestConfirmDenialAsksForAnotherDatetime(t *testing.T) {
	store := newMemoryStateStore()
	store.states[convID] = confirmState()
	engine := newTestEngine(store, &fakeCalendar{})

	res, err := engine.HandleTurn(context.Background(), turn("não"))
	require.NoError(t, err)
	assert.Equal(t, msgAskOtherDatetime, res.Messages[0].Text)

	state := store.states[convID]
	assert.Equal(t, models.StepAwaitingDatetime, state.Step)
	assert.Nil(t, state.Proposal)
	assert.Equal(t, "Ana", state.Draft.PersonName)
	assert.Equal(t, "", state.Draft.Date)
	assert.Equal(t, "", state.Draft.Time)
}

func TestConfirmUnclearReplyReprompts(t *testing.T) {
	store := newMemoryStateStore()
	store.states[convID] = confirmState()
	engine := newTestEngine(store, &fakeCalendar{})

	res, err := engine.HandleTurn(context.Background(), turn("hmm talvez"))
	require.NoError(t, err)
	assert.Equal(t, msgAskYesNo, res.Messages[0].Text)
	assert.Equal(t, models.StepConfirm, store.states[convID].Step)
	require.NotNil(t, store.states[convID].Proposal)
}

func TestConfirmAbandonedOnCancelIntent(t *testing.T) {
	store := newMemoryStateStore()
	store.states[convID] = confirmState()
	engine := newTestEngine(store, &fakeCalendar{})

	res, err := engine.HandleTurn(context.Background(), turn("deixa pra lá, quero cancelar isso"))
	require.NoError(t, err)
	assert.Equal(t, msgFlowAbandoned, res.Messages[0].Text)
	assert.Nil(t, store.states[convID])
}

func pickSlotState() *models.DialogueState {
	return &models.DialogueState{
		Flow: models.FlowSchedule,
		Step: models.StepPickSlot,
		Draft: models.BookingDraft{
			PersonName:  "Ana",
			ServiceName: "Consulta",
			Date:        "2025-03-23",
			Time:        "14:30",
		},
		Suggestions: []models.CandidateSlot{
			slotAt(requestedInstant.Add(time.Hour)),
			slotAt(requestedInstant.Add(2 * time.Hour)),
		},
	}
}

func TestPickSlotSelectionBooksChosenSlot(t *testing.T) {
	store := newMemoryStateStore()
	store.states[convID] = pickSlotState()
	cal := &fakeCalendar{bookStatus: BookStatusCreated}
	engine := newTestEngine(store, cal)

	res, err := engine.HandleTurn(context.Background(), turn("2"))
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Text, "confirmado")
	assert.Nil(t, store.states[convID])
	assert.Equal(t, 1, cal.bookCalls)
	assert.True(t, cal.lastBook.Start.Equal(requestedInstant.Add(2*time.Hour)))
}

func TestPickSlotConflictAdvancesToNextCachedCandidate(t *testing.T) {
	store := newMemoryStateStore()
	store.states[convID] = pickSlotState()
	cal := &fakeCalendar{bookStatus: BookStatusConflict}
	engine := newTestEngine(store, cal)

	res, err := engine.HandleTurn(context.Background(), turn("1"))
	require.NoError(t, err)

	// The fallback comes from the cached suggestion list, not a new lookup.
	assert.Zero(t, cal.suggestCalls)

	state := store.states[convID]
	require.NotNil(t, state)
	assert.Equal(t, models.StepConfirm, state.Step)
	require.NotNil(t, state.Proposal)
	assert.True(t, state.Proposal.Start.Equal(requestedInstant.Add(2*time.Hour)))
	assert.Nil(t, state.Suggestions)
	assert.Contains(t, res.Messages[0].Text, "Posso confirmar")
}

func TestPickSlotConflictWithNoNextCandidate(t *testing.T) {
	store := newMemoryStateStore()
	store.states[convID] = pickSlotState()
	cal := &fakeCalendar{bookStatus: BookStatusConflict}
	engine := newTestEngine(store, cal)

	res, err := engine.HandleTurn(context.Background(), turn("2"))
	require.NoError(t, err)
	assert.Zero(t, cal.suggestCalls)
	assert.Equal(t, models.StepAwaitingDatetime, store.states[convID].Step)
	assert.Equal(t, msgSlotJustTakenNone, res.Messages[0].Text)
}

func TestPickSlotRejectsOutOfRangeSelection(t *testing.T) {
	store := newMemoryStateStore()
	store.states[convID] = pickSlotState()
	cal := &fakeCalendar{}
	engine := newTestEngine(store, cal)

	res, err := engine.HandleTurn(context.Background(), turn("5"))
	require.NoError(t, err)
	assert.Zero(t, cal.bookCalls)
	assert.Equal(t, models.StepPickSlot, store.states[convID].Step)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, models.DirectiveOptions, res.Messages[1].Type)
}

func TestAwaitingDatetimeMergesNewDateAndRetries(t *testing.T) {
	store := newMemoryStateStore()
	store.states[convID] = &models.DialogueState{
		Flow: models.FlowSchedule,
		Step: models.StepAwaitingDatetime,
		Draft: models.BookingDraft{
			PersonName: "Ana",
			Date:       "2025-03-23",
			Time:       "14:30",
		},
	}
	newInstant := time.Date(2025, time.March, 24, 13, 0, 0, 0, time.UTC) // 24/03 10h at UTC-3
	cal := &fakeCalendar{slots: []models.CandidateSlot{slotAt(newInstant)}}
	engine := newTestEngine(store, cal)

	_, err := engine.HandleTurn(context.Background(), turn("pode ser 24/03 as 10h"))
	require.NoError(t, err)

	require.Equal(t, 1, cal.suggestCalls)
	assert.True(t, cal.suggestFrom[0].Equal(newInstant))
	state := store.states[convID]
	assert.Equal(t, models.StepConfirm, state.Step)
	require.NotNil(t, state.Proposal)
}

func TestAwaitingDatetimeRepromptsOnExtractionMiss(t *testing.T) {
	store := newMemoryStateStore()
	store.states[convID] = &models.DialogueState{
		Flow:  models.FlowSchedule,
		Step:  models.StepAwaitingDatetime,
		Draft: models.BookingDraft{PersonName: "Ana"},
	}
	cal := &fakeCalendar{}
	engine := newTestEngine(store, cal)

	res, err := engine.HandleTurn(context.Background(), turn("tanto faz"))
	require.NoError(t, err)
	assert.Equal(t, msgAskNewDatetime, res.Messages[0].Text)
	assert.Equal(t, models.StepAwaitingDatetime, store.states[convID].Step)
	assert.Zero(t, cal.suggestCalls)
}

func TestInvalidPersistedStateResetsFlow(t *testing.T) {
	store := newMemoryStateStore()
	// confirm without a proposal violates the step invariant.
	store.states[convID] = &models.DialogueState{
		Flow:  models.FlowSchedule,
		Step:  models.StepConfirm,
		Draft: models.BookingDraft{PersonName: "Ana"},
	}
	engine := newTestEngine(store, &fakeCalendar{})

	res, err := engine.HandleTurn(context.Background(), turn("sim"))
	require.NoError(t, err)
	require.True(t, res.Handled)
	assert.Equal(t, msgFlowReset, res.Messages[0].Text)
	assert.Nil(t, store.states[convID])
}

func TestRescheduleIntentOpensReschedSubflow(t *testing.T) {
	store := newMemoryStateStore()
	engine := newTestEngine(store, &fakeCalendar{})

	res, err := engine.HandleTurn(context.Background(), turn("quero remarcar minha consulta"))
	require.NoError(t, err)
	require.True(t, res.Handled)
	assert.Equal(t, models.StepReschedAwait, store.states[convID].Step)
	assert.Equal(t, msgAskReschedDetails, res.Messages[0].Text)
}

func TestHandledTurnsAlwaysProduceMessages(t *testing.T) {
	inputs := []string{
		"quero agendar",
		"quero agendar com ana",
		"cancelar",
		"quero remarcar",
	}
	for _, text := range inputs {
		store := newMemoryStateStore()
		engine := newTestEngine(store, &fakeCalendar{})
		res, err := engine.HandleTurn(context.Background(), turn(text))
		require.NoError(t, err)
		require.True(t, res.Handled, "input %q", text)
		assert.NotEmpty(t, res.Messages, "input %q", text)
	}
}
