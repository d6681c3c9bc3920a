package graph

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
	"time"

	"github.com/aretw0/replan/pkg/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stream starts a run lazily: nothing executes until the returned sequence
// is ranged over. Each element is one super-step with the state after its
// merge. The sequence ends after the last step before End, or with a single
// non-nil error that terminates the run.
//
// The sequence is single-pass: ranging over it a second time yields
// domain.ErrStreamConsumed. Breaking out of the loop stops the run before
// the next super-step is scheduled.
func (g *Graph) Stream(ctx context.Context, initial domain.RunState, cfg domain.RunConfig) iter.Seq2[domain.Step, error] {
	var consumed atomic.Bool
	return func(yield func(domain.Step, error) bool) {
		if consumed.Swap(true) {
			yield(domain.Step{}, domain.ErrStreamConsumed)
			return
		}
		g.run(ctx, initial, cfg, yield)
	}
}

// Invoke drains a run and returns its terminal state.
// On error, the last successfully merged state is returned with it.
func (g *Graph) Invoke(ctx context.Context, initial domain.RunState, cfg domain.RunConfig) (domain.RunState, error) {
	final := initial.Clone()
	for step, err := range g.Stream(ctx, initial, cfg) {
		if err != nil {
			return final, err
		}
		final = step.State
	}
	return final, nil
}

func (g *Graph) run(ctx context.Context, initial domain.RunState, cfg domain.RunConfig, yield func(domain.Step, error) bool) {
	if err := cfg.Validate(); err != nil {
		yield(domain.Step{}, err)
		return
	}

	ctx, span := g.tracer.Start(ctx, "graph.run",
		trace.WithAttributes(
			attribute.String("run.id", cfg.RunID),
			attribute.Int("run.recursion_limit", cfg.RecursionLimit),
		),
	)
	defer span.End()

	started := time.Now()
	logger := g.logger.With("run_id", cfg.RunID)
	if g.hooks.OnRunStart != nil {
		g.hooks.OnRunStart(ctx, &domain.RunEvent{
			EventBase: domain.EventBase{Timestamp: started, Type: domain.EventRunStart, RunID: cfg.RunID},
			Objective: initial.Objective,
		})
	}
	logger.Info("run started", "entry", g.entry, "recursion_limit", cfg.RecursionLimit)

	var (
		state   = initial.Clone()
		current = g.entry
		steps   int
		runErr  error
	)

	defer func() {
		span.SetAttributes(attribute.Int("run.steps", steps))
		if runErr != nil && !errors.Is(runErr, domain.ErrStreamAbandoned) {
			span.RecordError(runErr)
			span.SetStatus(codes.Error, runErr.Error())
			logger.Error("run failed", "steps", steps, "err", runErr)
		} else {
			logger.Info("run finished", "steps", steps, "done", state.Done(), "duration", time.Since(started))
		}
		if g.hooks.OnRunEnd != nil {
			g.hooks.OnRunEnd(ctx, &domain.RunEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRunEnd, RunID: cfg.RunID},
				Objective: initial.Objective,
				Steps:     steps,
				Duration:  time.Since(started),
				Err:       runErr,
			})
		}
	}()

	fail := func(err error) {
		runErr = err
		yield(domain.Step{}, err)
	}

	for current != End {
		if err := ctx.Err(); err != nil {
			fail(err)
			return
		}
		// Run guard: the step about to start would exceed the budget.
		if steps >= cfg.RecursionLimit {
			fail(&domain.RecursionLimitError{Limit: cfg.RecursionLimit, Node: current})
			return
		}

		node := g.nodes[current]
		next, merged, err := g.superStep(ctx, node, steps+1, state, cfg)
		if err != nil {
			fail(err)
			return
		}

		steps++
		state = merged
		logger.Debug("super-step", "step", steps, "node", current, "next", next)

		if !yield(domain.Step{Index: steps, Node: current, State: state.Clone()}, nil) {
			runErr = domain.ErrStreamAbandoned
			return
		}
		current = next
	}
}
