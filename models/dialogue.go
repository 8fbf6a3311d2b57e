package models

// Step identifies where a scheduling conversation currently stands.
type Step string

const (
	StepAwaitingAll      Step = "awaiting_all"
	StepAwaitingDatetime Step = "awaiting_datetime"
	StepConfirm          Step = "confirm"
	StepPickSlot         Step = "pick_slot"
	StepCancelAwait      Step = "cancel_await"
	StepReschedAwait     Step = "resched_await"
)

// FlowSchedule is the only dialogue flow currently defined. A conversation
// with no persisted state (or a nil *DialogueState) has no active flow.
const FlowSchedule = "schedule"

// BookingDraft is the partially filled booking request accumulated across
// turns. PersonName and ServiceName always hold directory-resolved canonical
// names, never raw user text.
type BookingDraft struct {
	PersonName  string `json:"personName,omitempty"`
	ServiceName string `json:"serviceName,omitempty"`
	Date        string `json:"date,omitempty"` // ISO date, e.g. "2025-03-23"
	Time        string `json:"time,omitempty"` // wall clock, e.g. "14:30"
}

// DialogueState is the blob persisted per conversation. It is read once at
// the start of a turn and fully replaced (never merged) at the end.
type DialogueState struct {
	Flow        string          `json:"flow"`
	Step        Step            `json:"step"`
	Draft       BookingDraft    `json:"draft"`
	Proposal    *CandidateSlot  `json:"proposal,omitempty"`
	Suggestions []CandidateSlot `json:"suggestions,omitempty"`
}

// Valid reports whether the state satisfies the step invariants: a proposal
// exists if and only if the step is confirm, and suggestions exist (and are
// non-empty) if and only if the step is pick_slot. A state failing this check
// is a data-integrity anomaly; the engine resets the flow rather than crash.
func (s *DialogueState) Valid() bool {
	if s == nil {
		return true
	}
	if s.Flow != FlowSchedule {
		return false
	}
	if (s.Step == StepConfirm) != (s.Proposal != nil) {
		return false
	}
	if (s.Step == StepPickSlot) != (len(s.Suggestions) > 0) {
		return false
	}
	switch s.Step {
	case StepAwaitingAll, StepAwaitingDatetime, StepConfirm, StepPickSlot, StepCancelAwait, StepReschedAwait:
		return true
	}
	return false
}
