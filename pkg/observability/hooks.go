package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/replan/pkg/domain"
)

// LoggingHooks returns hooks that write an audit trail of every run to
// logger: run boundaries at Info, node transitions at Debug, failing nodes
// at Warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_start", "run_id", e.RunID, "objective", e.Objective)
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			attrs := []any{
				"run_id", e.RunID,
				"status", domain.StatusFor(e.Err),
				"steps", e.Steps,
				"duration", e.Duration,
			}
			if e.Err != nil {
				attrs = append(attrs, "err", e.Err)
			}
			logger.InfoContext(ctx, "run_end", attrs...)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "run_id", e.RunID, "node", e.Node, "step", e.Step)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "node_leave", "run_id", e.RunID, "node", e.Node, "step", e.Step, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "node_leave",
				"run_id", e.RunID,
				"node", e.Node,
				"step", e.Step,
				"next", e.Next,
				"duration", e.Duration,
			)
		},
	}
}
