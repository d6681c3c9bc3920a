package graph

import (
	"log/slog"

	"github.com/aretw0/replan/pkg/domain"
	"go.opentelemetry.io/otel/trace"
)

// Option defines a functional option for configuring a compiled Graph.
type Option func(*Graph)

// WithLogger sets the structured logger used by runs of the graph.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(g *Graph) {
		g.hooks = hooks
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(g *Graph) {
		if tp != nil {
			g.tracer = tp.Tracer(tracerName)
		}
	}
}
