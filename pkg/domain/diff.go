package domain

import "slices"

// StateDiff represents the changes between two run states.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	// Plan is set when the remaining plan was replaced.
	Plan []string `json:"plan,omitempty"`

	// PlanCleared is true when the plan was replaced with an empty one.
	// An empty Plan alone would be dropped by omitempty.
	PlanCleared bool `json:"plan_cleared,omitempty"`

	// HistoryAppended contains only the entries added since the old state.
	HistoryAppended []PastStep `json:"history_appended,omitempty"`

	// FinalAnswer is set when the answer appeared in the new state.
	FinalAnswer *string `json:"final_answer,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState.
// It returns nil when nothing changed.
func Diff(oldState *RunState, newState RunState) *StateDiff {
	diff := &StateDiff{}

	if oldState == nil || !slices.Equal(oldState.Plan, newState.Plan) {
		if len(newState.Plan) == 0 {
			diff.PlanCleared = oldState != nil
		} else {
			diff.Plan = slices.Clone(newState.Plan)
		}
	}

	diff.HistoryAppended = diffHistory(oldState, newState)

	if newState.FinalAnswer != nil && (oldState == nil || oldState.FinalAnswer == nil) {
		answer := *newState.FinalAnswer
		diff.FinalAnswer = &answer
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// diffHistory relies on History being append-only.
func diffHistory(old *RunState, new RunState) []PastStep {
	oldLen := 0
	if old != nil {
		oldLen = len(old.History)
	}
	if len(new.History) <= oldLen {
		return nil
	}
	return slices.Clone(new.History[oldLen:])
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return len(d.Plan) == 0 &&
		!d.PlanCleared &&
		len(d.HistoryAppended) == 0 &&
		d.FinalAnswer == nil
}
