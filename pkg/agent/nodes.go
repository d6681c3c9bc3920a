package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/graph"
	"github.com/aretw0/replan/pkg/ports"
)

// PlanNode asks the planner for the initial plan.
func PlanNode(planner ports.Planner) graph.Handler {
	return func(ctx context.Context, state domain.RunState, _ domain.RunConfig) (domain.Patch, error) {
		steps, err := planner.Plan(ctx, state.Objective)
		if err != nil {
			return domain.Patch{}, err
		}
		if err := validSteps("plan", steps); err != nil {
			return domain.Patch{}, err
		}
		return domain.PlanPatch(steps), nil
	}
}

// ExecuteNode runs the head of the plan and drops it from the plan.
func ExecuteNode(executor ports.Executor) graph.Handler {
	return func(ctx context.Context, state domain.RunState, _ domain.RunConfig) (domain.Patch, error) {
		if len(state.Plan) == 0 {
			return domain.Patch{}, domain.ErrEmptyPlan
		}
		task := state.Plan[0]

		result, err := executor.Execute(ctx, task)
		if err != nil {
			return domain.Patch{}, err
		}

		patch := domain.PlanPatch(state.Plan[1:])
		patch.History = []domain.PastStep{{Task: task, Result: result}}
		return patch, nil
	}
}

// ReplanNode lets the replanner either revise the remaining plan or answer.
func ReplanNode(replanner ports.Replanner) graph.Handler {
	return func(ctx context.Context, state domain.RunState, _ domain.RunConfig) (domain.Patch, error) {
		decision, err := replanner.Replan(ctx, ports.ReplanRequest{
			Objective:   state.Objective,
			PlanText:    RenderPlan(state.Plan),
			HistoryText: RenderHistory(state.History),
		})
		if err != nil {
			return domain.Patch{}, err
		}

		switch d := decision.(type) {
		case ports.Respond:
			return domain.AnswerPatch(d.Text), nil
		case *ports.Respond:
			if d != nil {
				return domain.AnswerPatch(d.Text), nil
			}
		case ports.Continue:
			return continuePatch(d.Steps)
		case *ports.Continue:
			if d != nil {
				return continuePatch(d.Steps)
			}
		}
		return domain.Patch{}, domain.InvalidOracleOutput("replan", "expected Continue or Respond, got %T", decision)
	}
}

// continuePatch accepts an empty step list; the router sends such a state
// back to the replan node instead of executing nothing.
func continuePatch(steps []string) (domain.Patch, error) {
	if len(steps) > 0 {
		if err := validSteps("replan", steps); err != nil {
			return domain.Patch{}, err
		}
	}
	return domain.PlanPatch(steps), nil
}

func validSteps(oracle string, steps []string) error {
	if len(steps) == 0 {
		return domain.InvalidOracleOutput(oracle, "no steps")
	}
	for i, s := range steps {
		if strings.TrimSpace(s) == "" {
			return domain.InvalidOracleOutput(oracle, "step %d is blank", i+1)
		}
	}
	return nil
}

// RenderPlan formats the remaining plan for the replanner, one step per line.
func RenderPlan(plan []string) string {
	return strings.Join(plan, "\n")
}

// RenderHistory formats completed steps as "task: result" lines.
func RenderHistory(history []domain.PastStep) string {
	lines := make([]string, len(history))
	for i, h := range history {
		lines[i] = fmt.Sprintf("%s: %s", h.Task, h.Result)
	}
	return strings.Join(lines, "\n")
}
