package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/replan/pkg/agent"
	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/graph"
	"github.com/aretw0/replan/pkg/oracle/scripted"
	"github.com/aretw0/replan/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflow_EndToEnd(t *testing.T) {
	planner, executor, replanner := scripted.Demo()
	g, err := agent.NewWorkflow(agent.Oracles{Planner: planner, Executor: executor, Replanner: replanner})
	require.NoError(t, err)

	var steps []domain.Step
	for step, err := range g.Stream(context.Background(), domain.NewRunState(scripted.DemoObjective), domain.NewRunConfig()) {
		require.NoError(t, err)
		steps = append(steps, step)
	}

	require.Len(t, steps, 5)
	nodes := make([]string, len(steps))
	for i, s := range steps {
		nodes[i] = s.Node
	}
	assert.Equal(t, []string{"planner", "agent", "replan", "agent", "replan"}, nodes)

	// After the first execution.
	assert.Len(t, steps[1].State.History, 1)
	assert.Equal(t, []string{"Find that person's hometown"}, steps[1].State.Plan)

	// After the second execution.
	assert.Len(t, steps[3].State.History, 2)
	assert.Empty(t, steps[3].State.Plan)
	assert.False(t, steps[3].State.Done())

	final := steps[4].State
	require.True(t, final.Done())
	assert.Contains(t, final.Answer(), "Stephen Curry")
	assert.Equal(t, scripted.DemoObjective, final.Objective)
	assert.Equal(t, []string{"Find the 2022 NBA Finals MVP", "Find that person's hometown"}, executor.Tasks())

	requests := replanner.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, "Find that person's hometown", requests[0].PlanText)
	assert.Equal(t, "Find the 2022 NBA Finals MVP: Stephen Curry was named the 2022 NBA Finals MVP.", requests[0].HistoryText)
}

func TestWorkflow_RunawayLoop(t *testing.T) {
	replanner := scripted.NewReplanner(ports.Continue{Steps: []string{"again"}})
	replanner.Loop = true
	executor := scripted.NewExecutor(nil)
	executor.Fallback = "did %s"

	g, err := agent.NewWorkflow(agent.Oracles{
		Planner:   scripted.NewPlanner("start"),
		Executor:  executor,
		Replanner: replanner,
	})
	require.NoError(t, err)

	const limit = 7
	final, err := g.Invoke(context.Background(), domain.NewRunState("never ends"), domain.RunConfig{RecursionLimit: limit})
	require.ErrorIs(t, err, domain.ErrRecursionLimit)
	assert.False(t, final.Done())

	// planner + 3 x (agent, replan) = 7 steps.
	assert.Len(t, final.History, 3)
	assert.Len(t, executor.Tasks(), 3)
	assert.Len(t, replanner.Requests(), 3)
}

func TestWorkflow_EmptyContinueReplans(t *testing.T) {
	replanner := scripted.NewReplanner(
		ports.Continue{Steps: []string{}},
		ports.Respond{Text: "ok"},
	)
	executor := scripted.NewExecutor(map[string]string{"a": "1"})

	g, err := agent.NewWorkflow(agent.Oracles{
		Planner:   scripted.NewPlanner("a"),
		Executor:  executor,
		Replanner: replanner,
	})
	require.NoError(t, err)

	var nodes []string
	for step, err := range g.Stream(context.Background(), domain.NewRunState("obj"), domain.NewRunConfig()) {
		require.NoError(t, err)
		nodes = append(nodes, step.Node)
	}
	assert.Equal(t, []string{"planner", "agent", "replan", "replan"}, nodes)
	assert.Len(t, executor.Tasks(), 1, "executor never runs against an empty plan")
}

func TestWorkflow_InvalidReplan(t *testing.T) {
	g, err := agent.NewWorkflow(agent.Oracles{
		Planner:  scripted.NewPlanner("a"),
		Executor: scripted.NewExecutor(map[string]string{"a": "1"}),
		Replanner: ports.ReplannerFunc(func(context.Context, ports.ReplanRequest) (ports.Decision, error) {
			return nil, nil
		}),
	})
	require.NoError(t, err)

	final, err := g.Invoke(context.Background(), domain.NewRunState("obj"), domain.NewRunConfig())
	assert.ErrorIs(t, err, domain.ErrInvalidOracleOutput)
	assert.ErrorIs(t, err, domain.ErrNodeExecution)

	var nodeErr *domain.NodeExecutionError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, agent.NodeReplan, nodeErr.Node)
	assert.Len(t, final.History, 1)
}

func TestWorkflow_PlannerFailure(t *testing.T) {
	planner := scripted.NewPlanner()
	planner.Err = errors.New("rate limited")

	g, err := agent.NewWorkflow(agent.Oracles{
		Planner:   planner,
		Executor:  scripted.NewExecutor(nil),
		Replanner: scripted.NewReplanner(),
	})
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), domain.NewRunState("obj"), domain.NewRunConfig())
	assert.ErrorIs(t, err, planner.Err)
}

func TestNewWorkflow_MissingOracle(t *testing.T) {
	_, err := agent.NewWorkflow(agent.Oracles{Planner: scripted.NewPlanner("a")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executor")
	assert.Contains(t, err.Error(), "replanner")
}

func TestWorkflow_Topology(t *testing.T) {
	planner, executor, replanner := scripted.Demo()
	g, err := agent.NewWorkflow(agent.Oracles{Planner: planner, Executor: executor, Replanner: replanner})
	require.NoError(t, err)

	topo := g.Describe()
	assert.Equal(t, agent.NodePlanner, topo.Entry)
	assert.Equal(t, []string{"planner", "agent", "replan"}, topo.Nodes)
	assert.Equal(t, []graph.Edge{
		{From: "planner", To: "agent"},
		{From: "agent", To: "replan"},
		{From: "replan", To: "agent", Branch: agent.BranchContinue},
		{From: "replan", To: graph.End, Branch: agent.BranchDone},
		{From: "replan", To: "replan", Branch: agent.BranchReplan},
	}, topo.Edges)
}
