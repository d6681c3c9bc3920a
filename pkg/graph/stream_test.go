package graph_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counter appends one history entry per invocation.
func counter(task string) graph.Handler {
	return func(_ context.Context, s domain.RunState, _ domain.RunConfig) (domain.Patch, error) {
		return domain.Patch{History: []domain.PastStep{{Task: task, Result: fmt.Sprint(len(s.History))}}}, nil
	}
}

func loopGraph(t *testing.T, opts ...graph.Option) *graph.Graph {
	t.Helper()
	b := graph.New()
	b.AddNode("a", counter("a")).Entry().Go("b")
	b.AddNode("b", counter("b")).Go("a")
	g, err := b.Compile(opts...)
	require.NoError(t, err)
	return g
}

func collect(seq func(func(domain.Step, error) bool)) ([]domain.Step, error) {
	var steps []domain.Step
	for step, err := range seq {
		if err != nil {
			return steps, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func TestStream_LinearRun(t *testing.T) {
	b := graph.New()
	b.AddNode("plan", func(context.Context, domain.RunState, domain.RunConfig) (domain.Patch, error) {
		return domain.PlanPatch([]string{"x", "y"}), nil
	}).Entry().Go("answer")
	b.AddNode("answer", func(context.Context, domain.RunState, domain.RunConfig) (domain.Patch, error) {
		return domain.AnswerPatch("42"), nil
	}).Go(graph.End)

	g, err := b.Compile()
	require.NoError(t, err)

	steps, err := collect(g.Stream(context.Background(), domain.NewRunState("q"), domain.NewRunConfig()))
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, 1, steps[0].Index)
	assert.Equal(t, "plan", steps[0].Node)
	assert.Equal(t, []string{"x", "y"}, steps[0].State.Plan)
	assert.False(t, steps[0].State.Done())

	assert.Equal(t, 2, steps[1].Index)
	assert.Equal(t, "answer", steps[1].Node)
	assert.Equal(t, "42", steps[1].State.Answer())
	assert.Equal(t, []string{"x", "y"}, steps[1].State.Plan, "absent fields keep their value")
}

func TestStream_IsLazy(t *testing.T) {
	calls := 0
	b := graph.New()
	b.AddNode("a", func(context.Context, domain.RunState, domain.RunConfig) (domain.Patch, error) {
		calls++
		return domain.Patch{}, nil
	}).Entry().Go(graph.End)
	g, err := b.Compile()
	require.NoError(t, err)

	seq := g.Stream(context.Background(), domain.NewRunState("q"), domain.NewRunConfig())
	assert.Zero(t, calls, "nothing runs before iteration")

	_, err = collect(seq)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestStream_SinglePass(t *testing.T) {
	g := loopGraph(t)
	cfg := domain.NewRunConfig()
	cfg.RecursionLimit = 3
	seq := g.Stream(context.Background(), domain.NewRunState("q"), cfg)

	_, err := collect(seq)
	require.ErrorIs(t, err, domain.ErrRecursionLimit)

	steps, err := collect(seq)
	assert.Empty(t, steps)
	assert.ErrorIs(t, err, domain.ErrStreamConsumed)
}

func TestStream_RecursionLimit(t *testing.T) {
	for _, limit := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			g := loopGraph(t)
			cfg := domain.RunConfig{RecursionLimit: limit}

			steps, err := collect(g.Stream(context.Background(), domain.NewRunState("q"), cfg))
			require.Len(t, steps, limit, "exactly limit steps are emitted before the guard fires")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrRecursionLimit)

			var limitErr *domain.RecursionLimitError
			require.ErrorAs(t, err, &limitErr)
			assert.Equal(t, limit, limitErr.Limit)
			assert.Len(t, steps[limit-1].State.History, limit)
		})
	}
}

func TestStream_InvalidConfig(t *testing.T) {
	g := loopGraph(t)
	steps, err := collect(g.Stream(context.Background(), domain.NewRunState("q"), domain.RunConfig{RecursionLimit: 0}))
	assert.Empty(t, steps)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestStream_UnknownBranchKey(t *testing.T) {
	b := graph.New()
	b.AddNode("a", counter("a")).Entry().Branch(always("nowhere"), graph.Branches{"stop": graph.End})
	g, err := b.Compile()
	require.NoError(t, err)

	steps, err := collect(g.Stream(context.Background(), domain.NewRunState("q"), domain.NewRunConfig()))
	assert.Empty(t, steps, "the failing step is not emitted")
	require.ErrorIs(t, err, domain.ErrRoutingKey)

	var keyErr *domain.RoutingKeyError
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, "a", keyErr.Node)
	assert.Equal(t, "nowhere", keyErr.Key)
}

func TestStream_HandlerError(t *testing.T) {
	boom := errors.New("boom")
	b := graph.New()
	b.AddNode("a", counter("a")).Entry().Go("b")
	b.AddNode("b", func(context.Context, domain.RunState, domain.RunConfig) (domain.Patch, error) {
		return domain.Patch{}, boom
	}).Go(graph.End)
	g, err := b.Compile()
	require.NoError(t, err)

	steps, err := collect(g.Stream(context.Background(), domain.NewRunState("q"), domain.NewRunConfig()))
	require.Len(t, steps, 1)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, domain.ErrNodeExecution)

	var nodeErr *domain.NodeExecutionError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "b", nodeErr.Node)
}

func TestStream_FinalAnswerForcesEnd(t *testing.T) {
	b := graph.New()
	b.AddNode("a", func(context.Context, domain.RunState, domain.RunConfig) (domain.Patch, error) {
		return domain.AnswerPatch("done"), nil
	}).Entry().Go("b")
	b.AddNode("b", counter("b")).Go(graph.End)
	g, err := b.Compile()
	require.NoError(t, err)

	steps, err := collect(g.Stream(context.Background(), domain.NewRunState("q"), domain.NewRunConfig()))
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "done", steps[0].State.Answer())
}

func TestStream_EarlyBreak(t *testing.T) {
	var leaves []string
	g := loopGraph(t, graph.WithLifecycleHooks(domain.LifecycleHooks{
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) { leaves = append(leaves, e.Node) },
	}))

	seen := 0
	for _, err := range g.Stream(context.Background(), domain.NewRunState("q"), domain.NewRunConfig()) {
		require.NoError(t, err)
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, leaves, "no further node runs after the consumer stops")
}

func TestStream_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := loopGraph(t)
	var steps int
	var got error
	for _, err := range g.Stream(ctx, domain.NewRunState("q"), domain.NewRunConfig()) {
		if err != nil {
			got = err
			break
		}
		steps++
		cancel()
	}
	assert.Equal(t, 1, steps)
	assert.ErrorIs(t, got, context.Canceled)
}

func TestStream_SnapshotsAreIndependent(t *testing.T) {
	g := loopGraph(t)
	cfg := domain.RunConfig{RecursionLimit: 3}

	var steps []domain.Step
	for step, err := range g.Stream(context.Background(), domain.NewRunState("q"), cfg) {
		if err != nil {
			break
		}
		if step.Index == 1 {
			step.State.History[0].Result = "mutated"
		}
		steps = append(steps, step)
	}
	require.Len(t, steps, 3)
	assert.Equal(t, "mutated", steps[0].State.History[0].Result)
	assert.Equal(t, "0", steps[2].State.History[0].Result, "consumer mutation does not leak into the run")
}

func TestStream_Hooks(t *testing.T) {
	var events []string
	hooks := domain.LifecycleHooks{
		OnRunStart:  func(_ context.Context, e *domain.RunEvent) { events = append(events, "start:"+e.Objective) },
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) { events = append(events, fmt.Sprintf("enter:%s:%d", e.Node, e.Step)) },
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) { events = append(events, "leave:"+e.Node+"->"+e.Next) },
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			events = append(events, fmt.Sprintf("end:%d:%v", e.Steps, e.Err == nil))
		},
	}

	b := graph.New()
	b.AddNode("a", counter("a")).Entry().Go("b")
	b.AddNode("b", counter("b")).Go(graph.End)
	g, err := b.Compile(graph.WithLifecycleHooks(hooks))
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), domain.NewRunState("obj"), domain.NewRunConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"start:obj",
		"enter:a:1", "leave:a->b",
		"enter:b:2", "leave:b->" + graph.End,
		"end:2:true",
	}, events)
}

func TestInvoke(t *testing.T) {
	g := loopGraph(t)

	final, err := g.Invoke(context.Background(), domain.NewRunState("q"), domain.RunConfig{RecursionLimit: 4})
	require.ErrorIs(t, err, domain.ErrRecursionLimit)
	assert.Len(t, final.History, 4, "last merged state is returned with the error")
	assert.Equal(t, "q", final.Objective)
}

func TestGraph_ConcurrentRuns(t *testing.T) {
	g := loopGraph(t)
	errs := make(chan error, 8)
	for range 8 {
		go func() {
			final, err := g.Invoke(context.Background(), domain.NewRunState("q"), domain.RunConfig{RecursionLimit: 10})
			if len(final.History) != 10 {
				errs <- fmt.Errorf("history length %d", len(final.History))
				return
			}
			errs <- func() error {
				if errors.Is(err, domain.ErrRecursionLimit) {
					return nil
				}
				return err
			}()
		}()
	}
	for range 8 {
		assert.NoError(t, <-errs)
	}
}
