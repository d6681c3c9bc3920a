package domain

import "slices"

// MergePolicy declares how a present patch field combines with the current
// value of the same field.
type MergePolicy string

const (
	// PolicyLastValue takes the patch value when present. Used for scalars.
	PolicyLastValue MergePolicy = "last_value"
	// PolicyReplace swaps a whole collection for the patch value.
	PolicyReplace MergePolicy = "replace"
	// PolicyAppend concatenates patch entries after the existing ones.
	PolicyAppend MergePolicy = "append"
	// PolicyLatest takes the patch value when present and never clears it.
	PolicyLatest MergePolicy = "latest"
)

// Field names of RunState, as used by the schema and by StateDiff.
const (
	FieldObjective   = "objective"
	FieldPlan        = "plan"
	FieldHistory     = "history"
	FieldFinalAnswer = "final_answer"
)

// FieldSpec is one entry of the state schema.
type FieldSpec struct {
	Name   string
	Policy MergePolicy
	apply  func(dst *RunState, p Patch)
}

// stateSchema is the declared merge policy of every RunState field, in
// declaration order. Merge applies it verbatim.
var stateSchema = []FieldSpec{
	{
		Name:   FieldObjective,
		Policy: PolicyLastValue,
		apply: func(dst *RunState, p Patch) {
			if p.Objective != nil {
				dst.Objective = *p.Objective
			}
		},
	},
	{
		Name:   FieldPlan,
		Policy: PolicyReplace,
		apply: func(dst *RunState, p Patch) {
			if p.Plan != nil {
				dst.Plan = slices.Clone(*p.Plan)
				if dst.Plan == nil {
					dst.Plan = []string{}
				}
			}
		},
	},
	{
		Name:   FieldHistory,
		Policy: PolicyAppend,
		apply: func(dst *RunState, p Patch) {
			if len(p.History) > 0 {
				dst.History = append(dst.History, p.History...)
			}
		},
	},
	{
		Name:   FieldFinalAnswer,
		Policy: PolicyLatest,
		apply: func(dst *RunState, p Patch) {
			if p.FinalAnswer != nil {
				answer := *p.FinalAnswer
				dst.FinalAnswer = &answer
			}
		},
	},
}

// Schema returns the declared field schema of RunState.
func Schema() []FieldSpec {
	return slices.Clone(stateSchema)
}

// Merge folds a node's patch into the current state and returns the result.
// It never fails and never mutates current.
func Merge(current RunState, patch Patch) RunState {
	next := current.Clone()
	for _, field := range stateSchema {
		field.apply(&next, patch)
	}
	return next
}
