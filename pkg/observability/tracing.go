package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Trace exporters understood by SetupTracing.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// ErrUnknownExporter is returned for an exporter name SetupTracing does not know.
var ErrUnknownExporter = errors.New("unknown trace exporter")

// TracingConfig selects where spans go.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Exporter       string    // "none" (default) or "stdout"
	Writer         io.Writer // stdout exporter target; os.Stderr when nil
	PrettyPrint    bool
}

// ShutdownFunc flushes and stops a tracer provider.
type ShutdownFunc func(context.Context) error

// SetupTracing builds a tracer provider for cfg. The caller passes it to the
// graph (graph.WithTracerProvider) and must call shutdown before exit.
func SetupTracing(cfg TracingConfig) (trace.TracerProvider, ShutdownFunc, error) {
	switch cfg.Exporter {
	case "", ExporterNone:
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	case ExporterStdout:
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownExporter, cfg.Exporter)
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if cfg.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	return tp, tp.Shutdown, nil
}
