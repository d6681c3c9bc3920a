/*
Package observability provides tools for monitoring runs of the workflow engine.

Everything here plugs into the engine through domain.LifecycleHooks or
graph.WithTracerProvider, so the engine itself stays free of exporters:

  - Metrics: Prometheus collectors for runs and node visits (Metrics.Hooks).
  - LoggingHooks: an slog audit trail of run and node transitions.
  - SetupTracing: an OpenTelemetry tracer provider exporting the engine's
    "graph.run" and "graph.node" spans.

Hooks compose with domain.ChainHooks.
*/
package observability
