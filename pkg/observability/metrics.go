package observability

import (
	"context"
	"errors"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "replan"

// Metrics holds the Prometheus collectors fed by Hooks.
type Metrics struct {
	RunsTotal    *prometheus.CounterVec
	RunDuration  prometheus.Histogram
	RunSteps     prometheus.Histogram
	ActiveRuns   prometheus.Gauge
	NodeVisits   *prometheus.CounterVec
	NodeDuration *prometheus.HistogramVec
	NodeErrors   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_total",
			Help:      "Finished runs by outcome.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of finished runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		RunSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "run_steps",
			Help:      "Super-steps taken by finished runs.",
			Buckets:   prometheus.LinearBuckets(1, 5, 10),
		}),
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_runs",
			Help:      "Runs currently in progress.",
		}),
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "node_visits_total",
			Help:      "Total number of node visits.",
		}, []string{"node"}),
		NodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "node_duration_seconds",
			Help:      "Duration of node handlers, oracle calls included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node"}),
		NodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "node_errors_total",
			Help:      "Super-steps that failed in a node.",
		}, []string{"node"}),
	}

	collectors := []prometheus.Collector{
		m.RunsTotal, m.RunDuration, m.RunSteps, m.ActiveRuns,
		m.NodeVisits, m.NodeDuration, m.NodeErrors,
	}
	var errs []error
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(context.Context, *domain.RunEvent) {
			m.ActiveRuns.Inc()
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			m.ActiveRuns.Dec()
			m.RunsTotal.WithLabelValues(string(domain.StatusFor(e.Err))).Inc()
			m.RunDuration.Observe(e.Duration.Seconds())
			m.RunSteps.Observe(float64(e.Steps))
		},
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.Node).Inc()
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeDuration.WithLabelValues(e.Node).Observe(e.Duration.Seconds())
			if e.Err != nil {
				m.NodeErrors.WithLabelValues(e.Node).Inc()
			}
		},
	}
}
