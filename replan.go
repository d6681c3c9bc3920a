package replan

import (
	"context"
	"io"
	"iter"
	"log/slog"

	"github.com/aretw0/replan/pkg/agent"
	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/graph"
	"github.com/aretw0/replan/pkg/oracle"
	"github.com/aretw0/replan/pkg/ports"
	"go.opentelemetry.io/otel/trace"
)

// Version is the library and CLI version.
const Version = "v0.1.0"

// Engine is the high-level entry point for the replan library.
// It wraps the compiled plan-and-execute graph and provides a simplified API
// for consumers. An Engine is safe for concurrent runs.
type Engine struct {
	graph   *graph.Graph
	oracles agent.Oracles
	policy  *oracle.Policy
	hooks   domain.LifecycleHooks
	tracer  trace.TracerProvider
	logger  *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithOracles sets all three oracles at once.
func WithOracles(planner ports.Planner, executor ports.Executor, replanner ports.Replanner) Option {
	return func(e *Engine) {
		e.oracles = agent.Oracles{Planner: planner, Executor: executor, Replanner: replanner}
	}
}

// WithPlanner sets the planning oracle.
func WithPlanner(p ports.Planner) Option {
	return func(e *Engine) {
		e.oracles.Planner = p
	}
}

// WithExecutor sets the execution oracle.
func WithExecutor(x ports.Executor) Option {
	return func(e *Engine) {
		e.oracles.Executor = x
	}
}

// WithReplanner sets the replanning oracle.
func WithReplanner(r ports.Replanner) Option {
	return func(e *Engine) {
		e.oracles.Replanner = r
	}
}

// WithPolicy wraps every oracle with retries and rate limiting.
func WithPolicy(p oracle.Policy) Option {
	return func(e *Engine) {
		e.policy = &p
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithTracerProvider routes the engine's spans to tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracer = tp
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New assembles the plan -> execute -> replan workflow over the configured
// oracles. All three oracles are required.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	oracles := eng.oracles
	if eng.policy != nil && oracles.Validate() == nil {
		if eng.policy.Logger == nil {
			eng.policy.Logger = eng.logger
		}
		oracles = agent.Oracles{
			Planner:   eng.policy.Planner(oracles.Planner),
			Executor:  eng.policy.Executor(oracles.Executor),
			Replanner: eng.policy.Replanner(oracles.Replanner),
		}
	}

	graphOpts := []graph.Option{
		graph.WithLogger(eng.logger),
		graph.WithLifecycleHooks(eng.hooks),
	}
	if eng.tracer != nil {
		graphOpts = append(graphOpts, graph.WithTracerProvider(eng.tracer))
	}

	g, err := agent.NewWorkflow(oracles, graphOpts...)
	if err != nil {
		return nil, err
	}
	eng.graph = g
	return eng, nil
}

// Stream runs the workflow from initial, yielding every super-step lazily.
// See graph.Graph.Stream.
func (e *Engine) Stream(ctx context.Context, initial domain.RunState, cfg domain.RunConfig) iter.Seq2[domain.Step, error] {
	return e.graph.Stream(ctx, initial, cfg)
}

// Run starts a fresh run for objective. It is Stream over
// domain.NewRunState(objective).
func (e *Engine) Run(ctx context.Context, objective string, cfg domain.RunConfig) iter.Seq2[domain.Step, error] {
	return e.graph.Stream(ctx, domain.NewRunState(objective), cfg)
}

// Invoke drains a run for objective and returns its terminal state.
func (e *Engine) Invoke(ctx context.Context, objective string, cfg domain.RunConfig) (domain.RunState, error) {
	return e.graph.Invoke(ctx, domain.NewRunState(objective), cfg)
}

// Describe returns the nodes and edges of the workflow for visualization.
func (e *Engine) Describe() graph.Topology {
	return e.graph.Describe()
}

// Graph exposes the compiled workflow.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}
