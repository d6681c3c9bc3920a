package ports_test

import (
	"context"
	"testing"

	"github.com/aretw0/replan/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuncAdapters(t *testing.T) {
	ctx := context.Background()

	var p ports.Planner = ports.PlannerFunc(func(_ context.Context, objective string) ([]string, error) {
		return []string{"look up " + objective}, nil
	})
	steps, err := p.Plan(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"look up x"}, steps)

	var e ports.Executor = ports.ExecutorFunc(func(_ context.Context, task string) (string, error) {
		return "did " + task, nil
	})
	out, err := e.Execute(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, "did y", out)

	var r ports.Replanner = ports.ReplannerFunc(func(_ context.Context, req ports.ReplanRequest) (ports.Decision, error) {
		if req.PlanText == "" {
			return ports.Respond{Text: req.HistoryText}, nil
		}
		return ports.Continue{Steps: []string{req.PlanText}}, nil
	})

	d, err := r.Replan(ctx, ports.ReplanRequest{Objective: "o", HistoryText: "a: b"})
	require.NoError(t, err)
	assert.Equal(t, ports.Respond{Text: "a: b"}, d)

	d, err = r.Replan(ctx, ports.ReplanRequest{Objective: "o", PlanText: "next"})
	require.NoError(t, err)
	assert.Equal(t, ports.Continue{Steps: []string{"next"}}, d)
}
