package runner

import (
	"log/slog"
	"time"

	"github.com/aretw0/replan/pkg/ports"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithStore configures the RunStore that archives finished runs.
func WithStore(store ports.RunStore) Option {
	return func(r *Runner) {
		r.Store = store
	}
}

// WithLocker configures the RunLocker guarding run IDs.
func WithLocker(locker ports.RunLocker, ttl time.Duration) Option {
	return func(r *Runner) {
		r.Locker = locker
		r.LockTTL = ttl
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.Logger = logger
		}
	}
}

// WithHandler configures the IOHandler presenting the run.
func WithHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}
