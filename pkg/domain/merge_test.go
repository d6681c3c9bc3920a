package domain_test

import (
	"testing"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_HistoryAppends(t *testing.T) {
	s := domain.NewRunState("obj")
	s.History = []domain.PastStep{{Task: "t0", Result: "r0"}}

	p1 := domain.Patch{History: []domain.PastStep{{Task: "t1", Result: "r1"}}}
	p2 := domain.Patch{History: []domain.PastStep{{Task: "t2", Result: "r2"}, {Task: "t3", Result: "r3"}}}

	got := domain.Merge(domain.Merge(s, p1), p2)

	require.Len(t, got.History, len(s.History)+len(p1.History)+len(p2.History))
	assert.Equal(t, []string{"t0", "t1", "t2", "t3"}, tasks(got.History))
}

func TestMerge_PlanIsReplacedNotConcatenated(t *testing.T) {
	cases := map[string][]string{
		"shorter": {"x"},
		"longer":  {"x", "y", "z", "w"},
		"empty":   {},
	}

	for name, plan := range cases {
		t.Run(name, func(t *testing.T) {
			s := domain.NewRunState("obj")
			s.Plan = []string{"a", "b", "c"}

			got := domain.Merge(s, domain.PlanPatch(plan))

			assert.Equal(t, plan, got.Plan)
			assert.Equal(t, []string{"a", "b", "c"}, s.Plan, "input state must not be mutated")
		})
	}
}

func TestMerge_AbsentFieldsAreUnchanged(t *testing.T) {
	s := domain.NewRunState("obj")
	s.Plan = []string{"a"}
	s.History = []domain.PastStep{{Task: "t", Result: "r"}}

	got := domain.Merge(s, domain.Patch{})

	assert.Equal(t, s, got)
}

func TestMerge_FinalAnswerTakesLatestValue(t *testing.T) {
	s := domain.NewRunState("obj")

	s = domain.Merge(s, domain.AnswerPatch("first"))
	require.True(t, s.Done())

	s = domain.Merge(s, domain.AnswerPatch("second"))
	assert.Equal(t, "second", s.Answer())

	s = domain.Merge(s, domain.Patch{})
	assert.Equal(t, "second", s.Answer(), "absent answer never clears it")
}

func TestMerge_ObjectiveTakesPatchValue(t *testing.T) {
	s := domain.NewRunState("original")
	objective := "rewritten"

	got := domain.Merge(s, domain.Patch{Objective: &objective})

	assert.Equal(t, "rewritten", got.Objective)
	assert.Equal(t, "original", domain.Merge(s, domain.Patch{}).Objective)
}

func TestMerge_SnapshotsDoNotShareStorage(t *testing.T) {
	s := domain.NewRunState("obj")
	s1 := domain.Merge(s, domain.Patch{History: []domain.PastStep{{Task: "a", Result: "1"}}})
	s2 := domain.Merge(s1, domain.Patch{History: []domain.PastStep{{Task: "b", Result: "2"}}})
	s3 := domain.Merge(s1, domain.Patch{History: []domain.PastStep{{Task: "c", Result: "3"}}})

	assert.Equal(t, []string{"a"}, tasks(s1.History))
	assert.Equal(t, []string{"a", "b"}, tasks(s2.History))
	assert.Equal(t, []string{"a", "c"}, tasks(s3.History))
}

func TestSchema_DeclaresEveryField(t *testing.T) {
	want := map[string]domain.MergePolicy{
		domain.FieldObjective:   domain.PolicyLastValue,
		domain.FieldPlan:        domain.PolicyReplace,
		domain.FieldHistory:     domain.PolicyAppend,
		domain.FieldFinalAnswer: domain.PolicyLatest,
	}

	got := make(map[string]domain.MergePolicy)
	for _, f := range domain.Schema() {
		got[f.Name] = f.Policy
	}
	assert.Equal(t, want, got)
}

func tasks(history []domain.PastStep) []string {
	out := make([]string, 0, len(history))
	for _, h := range history {
		out = append(out, h.Task)
	}
	return out
}
