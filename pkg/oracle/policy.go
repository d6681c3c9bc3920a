package oracle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/ports"
	"golang.org/x/time/rate"
)

// Policy wraps oracles with error-only retries and client-side rate limiting.
// The zero value calls straight through.
type Policy struct {
	// MaxAttempts bounds calls per request. Values below 1 mean a single attempt.
	MaxAttempts int

	// Backoff is the wait before the second attempt; it grows linearly.
	Backoff time.Duration

	// ShouldRetry overrides the default classification. By default context
	// errors and invalid oracle output are never retried.
	ShouldRetry func(error) bool

	// Limiter, when set, is waited on before every attempt. It may be shared
	// across oracles that hit the same provider.
	Limiter *rate.Limiter

	Logger *slog.Logger
}

// Planner wraps p with the policy.
func (pol Policy) Planner(p ports.Planner) ports.Planner {
	return ports.PlannerFunc(func(ctx context.Context, objective string) ([]string, error) {
		return do(ctx, pol, "plan", func(ctx context.Context) ([]string, error) {
			return p.Plan(ctx, objective)
		})
	})
}

// Executor wraps e with the policy.
func (pol Policy) Executor(e ports.Executor) ports.Executor {
	return ports.ExecutorFunc(func(ctx context.Context, task string) (string, error) {
		return do(ctx, pol, "execute", func(ctx context.Context) (string, error) {
			return e.Execute(ctx, task)
		})
	})
}

// Replanner wraps r with the policy.
func (pol Policy) Replanner(r ports.Replanner) ports.Replanner {
	return ports.ReplannerFunc(func(ctx context.Context, req ports.ReplanRequest) (ports.Decision, error) {
		return do(ctx, pol, "replan", func(ctx context.Context) (ports.Decision, error) {
			return r.Replan(ctx, req)
		})
	})
}

func do[T any](ctx context.Context, pol Policy, oracle string, call func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	logger := pol.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	attempts := max(pol.MaxAttempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if pol.Limiter != nil {
			if err := pol.Limiter.Wait(ctx); err != nil {
				return zero, err
			}
		}

		out, err := call(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == attempts || !pol.retryable(ctx, err) {
			break
		}

		wait := pol.Backoff * time.Duration(attempt)
		logger.Warn("oracle call failed, retrying", "oracle", oracle, "attempt", attempt, "wait", wait, "err", err)
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

func (pol Policy) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if pol.ShouldRetry != nil {
		return pol.ShouldRetry(err)
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, domain.ErrInvalidOracleOutput):
		return false
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
