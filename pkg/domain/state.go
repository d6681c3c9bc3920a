package domain

import "slices"

// PastStep is one completed step of a run: the task that was executed and
// the result text the execution oracle produced for it.
type PastStep struct {
	Task   string `json:"task"`
	Result string `json:"result"`
}

// RunState represents the snapshot threaded through a single run.
//
// A RunState is only ever changed by merging node output into it (see Merge);
// every merge returns a fresh value whose slices are not shared with the
// previous snapshot, so snapshots handed to observers stay stable.
type RunState struct {
	// Objective is the user's original request. Set once at run start.
	Objective string `json:"objective"`

	// Plan holds the remaining steps in execution order; Plan[0] is next.
	Plan []string `json:"plan"`

	// History is the append-only log of completed steps.
	History []PastStep `json:"history"`

	// FinalAnswer is nil until the run decides it is done.
	FinalAnswer *string `json:"final_answer,omitempty"`
}

// NewRunState creates the initial state of a run: only the objective is set.
func NewRunState(objective string) RunState {
	return RunState{
		Objective: objective,
		Plan:      []string{},
		History:   []PastStep{},
	}
}

// Done reports whether a final answer has been set.
func (s RunState) Done() bool {
	return s.FinalAnswer != nil
}

// Answer returns the final answer, or "" when the run is not done.
func (s RunState) Answer() string {
	if s.FinalAnswer == nil {
		return ""
	}
	return *s.FinalAnswer
}

// Clone returns a deep copy of the state.
func (s RunState) Clone() RunState {
	out := RunState{
		Objective: s.Objective,
		Plan:      slices.Clone(s.Plan),
		History:   slices.Clone(s.History),
	}
	if out.Plan == nil {
		out.Plan = []string{}
	}
	if out.History == nil {
		out.History = []PastStep{}
	}
	if s.FinalAnswer != nil {
		answer := *s.FinalAnswer
		out.FinalAnswer = &answer
	}
	return out
}

// Patch is the partial state update produced by a node handler.
// A nil field means "not present"; the per-field merge policy decides what a
// present field does to the current state.
type Patch struct {
	Objective   *string
	Plan        *[]string
	History     []PastStep
	FinalAnswer *string
}

// PlanPatch returns a patch that replaces the remaining plan with steps.
func PlanPatch(steps []string) Patch {
	plan := slices.Clone(steps)
	if plan == nil {
		plan = []string{}
	}
	return Patch{Plan: &plan}
}

// AnswerPatch returns a patch that sets the final answer.
func AnswerPatch(text string) Patch {
	return Patch{FinalAnswer: &text}
}

// IsEmpty reports whether the patch carries no field at all.
func (p Patch) IsEmpty() bool {
	return p.Objective == nil && p.Plan == nil && len(p.History) == 0 && p.FinalAnswer == nil
}
