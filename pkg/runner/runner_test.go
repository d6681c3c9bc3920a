package runner_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/replan/pkg/adapters/memory"
	"github.com/aretw0/replan/pkg/agent"
	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/graph"
	"github.com/aretw0/replan/pkg/oracle/scripted"
	"github.com/aretw0/replan/pkg/ports"
	"github.com/aretw0/replan/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demoGraph(t *testing.T) *graph.Graph {
	t.Helper()
	planner, executor, replanner := scripted.Demo()
	g, err := agent.NewWorkflow(agent.Oracles{Planner: planner, Executor: executor, Replanner: replanner})
	require.NoError(t, err)
	return g
}

func loopingGraph(t *testing.T) *graph.Graph {
	t.Helper()
	replanner := scripted.NewReplanner(ports.Continue{Steps: []string{"again"}})
	replanner.Loop = true
	executor := scripted.NewExecutor(nil)
	executor.Fallback = "did %s"
	g, err := agent.NewWorkflow(agent.Oracles{
		Planner:   scripted.NewPlanner("again"),
		Executor:  executor,
		Replanner: replanner,
	})
	require.NoError(t, err)
	return g
}

func decodeEvents(t *testing.T, data []byte) []runner.Event {
	t.Helper()
	var events []runner.Event
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var e runner.Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e), "line: %s", scanner.Text())
		events = append(events, e)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestRunner_Run_Demo(t *testing.T) {
	var out bytes.Buffer
	store := memory.NewStore()
	r := runner.New(
		runner.WithHandler(runner.NewJSONHandler(&out)),
		runner.WithStore(store),
	)

	cfg := domain.NewRunConfig()
	cfg.RunID = "nba"
	cfg.Metadata = map[string]any{"source": "test"}

	record, err := r.Run(context.Background(), demoGraph(t), "  "+scripted.DemoObjective+"\n", cfg)
	require.NoError(t, err)

	assert.Equal(t, "nba", record.ID)
	assert.Equal(t, domain.StatusCompleted, record.Status)
	assert.Equal(t, scripted.DemoObjective, record.Objective, "objective is sanitised")
	assert.Len(t, record.Steps, 5)
	assert.Contains(t, record.State.Answer(), "Stephen Curry")
	assert.Empty(t, record.Error)
	assert.Equal(t, "test", record.Metadata["source"])
	assert.False(t, record.FinishedAt.Before(record.StartedAt))

	archived, err := store.Load(context.Background(), "nba")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, archived.Status)
	assert.Equal(t, record.State, archived.State)

	events := decodeEvents(t, out.Bytes())
	require.Len(t, events, 7)
	assert.Equal(t, runner.EventStart, events[0].Type)
	assert.Equal(t, "nba", events[0].RunID)

	nodes := make([]string, 0, 5)
	for i, e := range events[1:6] {
		assert.Equal(t, runner.EventStep, e.Type)
		assert.Equal(t, i+1, e.Step)
		require.NotNil(t, e.State)
		nodes = append(nodes, e.Node)
	}
	assert.Equal(t, []string{"planner", "agent", "replan", "agent", "replan"}, nodes)
	require.NotNil(t, events[2].Diff)
	require.Len(t, events[2].Diff.HistoryAppended, 1, "agent step reports the executed task")

	result := events[6]
	assert.Equal(t, runner.EventResult, result.Type)
	assert.Equal(t, domain.StatusCompleted, result.Status)
	assert.Contains(t, result.Answer, "Stephen Curry")
}

func TestRunner_Run_GeneratesRunID(t *testing.T) {
	r := runner.New()
	record, err := r.Run(context.Background(), demoGraph(t), scripted.DemoObjective, domain.NewRunConfig())
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
}

func TestRunner_Run_RecursionLimit(t *testing.T) {
	store := memory.NewStore()
	r := runner.New(runner.WithStore(store))

	cfg := domain.NewRunConfig()
	cfg.RunID = "runaway"
	cfg.RecursionLimit = 4

	record, err := r.Run(context.Background(), loopingGraph(t), "loop forever", cfg)
	require.ErrorIs(t, err, domain.ErrRecursionLimit)
	require.NotNil(t, record)
	assert.Equal(t, domain.StatusAborted, record.Status)
	assert.Len(t, record.Steps, 4)
	assert.Contains(t, record.Error, "recursion limit")

	archived, err := store.Load(context.Background(), "runaway")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAborted, archived.Status)
}

func TestRunner_Run_InvalidObjective(t *testing.T) {
	store := memory.NewStore()
	r := runner.New(runner.WithStore(store))

	record, err := r.Run(context.Background(), demoGraph(t), " \n\t", domain.NewRunConfig())
	assert.ErrorIs(t, err, runner.ErrEmptyInput)
	assert.Nil(t, record)

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids, "nothing is archived for a rejected objective")
}

func TestRunner_Run_Cancelled(t *testing.T) {
	store := memory.NewStore()
	r := runner.New(runner.WithStore(store))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := domain.NewRunConfig()
	cfg.RunID = "cancelled"
	record, err := r.Run(ctx, demoGraph(t), scripted.DemoObjective, cfg)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.StatusCancelled, record.Status)

	archived, err := store.Load(context.Background(), "cancelled")
	require.NoError(t, err, "cancelled runs are still archived")
	assert.Equal(t, domain.StatusCancelled, archived.Status)
}

func TestRunner_Run_LockHeld(t *testing.T) {
	locker := memory.NewLocker()
	unlock, err := locker.Lock(context.Background(), "run:busy", time.Minute)
	require.NoError(t, err)
	defer unlock(context.Background())

	r := runner.New(runner.WithLocker(locker, time.Minute))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	cfg := domain.NewRunConfig()
	cfg.RunID = "busy"
	record, err := r.Run(ctx, demoGraph(t), scripted.DemoObjective, cfg)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, record)
}

func TestRunner_Run_ReleasesLock(t *testing.T) {
	locker := memory.NewLocker()
	r := runner.New(runner.WithLocker(locker, time.Minute))

	cfg := domain.NewRunConfig()
	cfg.RunID = "again"
	_, err := r.Run(context.Background(), demoGraph(t), scripted.DemoObjective, cfg)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), demoGraph(t), scripted.DemoObjective, cfg)
	require.NoError(t, err, "the second run gets the lock back")
}

type failingHandler struct {
	steps    int
	finished *domain.RunRecord
}

var errBrokenPipe = errors.New("broken pipe")

func (h *failingHandler) Start(context.Context, string, string) error { return nil }

func (h *failingHandler) Step(context.Context, domain.Step, *domain.StateDiff) error {
	h.steps++
	if h.steps == 2 {
		return errBrokenPipe
	}
	return nil
}

func (h *failingHandler) Finish(_ context.Context, record *domain.RunRecord) error {
	h.finished = record
	return nil
}

func TestRunner_Run_HandlerErrorStopsRun(t *testing.T) {
	h := &failingHandler{}
	r := runner.New(runner.WithHandler(h))

	record, err := r.Run(context.Background(), demoGraph(t), scripted.DemoObjective, domain.NewRunConfig())
	require.ErrorIs(t, err, errBrokenPipe)
	assert.Equal(t, domain.StatusFailed, record.Status)
	assert.Len(t, record.Steps, 2)
	assert.Same(t, record, h.finished, "Finish still sees the failed run")
}

type failingStore struct {
	ports.RunStore
}

func (failingStore) Save(context.Context, *domain.RunRecord) error {
	return errors.New("disk full")
}

func TestRunner_Run_ArchiveFailure(t *testing.T) {
	r := runner.New(runner.WithStore(failingStore{}))

	record, err := r.Run(context.Background(), demoGraph(t), scripted.DemoObjective, domain.NewRunConfig())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "disk full"))
	assert.Equal(t, domain.StatusCompleted, record.Status, "the run itself completed")
}
