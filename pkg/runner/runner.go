package runner

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"time"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a crashed runner can keep a run ID locked.
const DefaultLockTTL = 10 * time.Minute

// Streamer produces the super-step stream of one run. *graph.Graph and
// *replan.Engine implement it.
type Streamer interface {
	Stream(ctx context.Context, initial domain.RunState, cfg domain.RunConfig) iter.Seq2[domain.Step, error]
}

// Runner drives a run stream to completion: it presents every super-step
// through an IOHandler and archives the outcome as a RunRecord.
type Runner struct {
	// Handler is the strategy for IO. If nil, the run is not presented.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// Store archives run records. If nil, records are only returned.
	Store ports.RunStore

	// Locker keeps two runners from driving the same run ID at once.
	Locker ports.RunLocker

	// LockTTL is the lifetime of a run lock. Zero means DefaultLockTTL.
	LockTTL time.Duration
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one run for objective and returns its record.
//
// Invalid objectives and lock failures return an error without a record.
// Otherwise the record is always returned, and the error is the one the run
// ended with (nil on completion). The record is archived even when ctx was
// cancelled.
func (r *Runner) Run(ctx context.Context, streamer Streamer, objective string, cfg domain.RunConfig) (*domain.RunRecord, error) {
	objective, err := SanitizeObjective(objective)
	if err != nil {
		return nil, err
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	handler := r.resolveHandler()
	logger := r.resolveLogger().With("run_id", cfg.RunID)

	if r.Locker != nil {
		unlock, err := r.Locker.Lock(ctx, "run:"+cfg.RunID, r.lockTTL())
		if err != nil {
			return nil, fmt.Errorf("lock run %s: %w", cfg.RunID, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("Failed to release run lock", "err", err)
			}
		}()
	}

	initial := domain.NewRunState(objective)
	record := &domain.RunRecord{
		ID:        cfg.RunID,
		Objective: objective,
		Status:    domain.StatusRunning,
		Steps:     []domain.Step{},
		State:     initial,
		Metadata:  maps.Clone(cfg.Metadata),
		StartedAt: time.Now(),
	}
	if err := r.save(ctx, record); err != nil {
		logger.Warn("Failed to archive started run", "err", err)
	}

	runErr := r.drive(ctx, streamer, handler, record, cfg)

	record.Status = domain.StatusFor(runErr)
	if runErr != nil {
		record.Error = runErr.Error()
	}
	record.FinishedAt = time.Now()

	finishCtx := context.WithoutCancel(ctx)
	if err := handler.Finish(finishCtx, record); err != nil {
		logger.Warn("Failed to present run result", "err", err)
	}
	saveErr := r.save(finishCtx, record)
	if saveErr != nil {
		logger.Error("Failed to archive run", "err", saveErr)
	}

	logger.Info("Run finished",
		"status", record.Status,
		"steps", len(record.Steps),
		"duration", record.FinishedAt.Sub(record.StartedAt),
	)

	if runErr != nil {
		return record, runErr
	}
	return record, saveErr
}

// drive consumes the stream into record. A handler failure stops the run.
func (r *Runner) drive(ctx context.Context, streamer Streamer, handler IOHandler, record *domain.RunRecord, cfg domain.RunConfig) error {
	if err := handler.Start(ctx, cfg.RunID, record.Objective); err != nil {
		return fmt.Errorf("present run start: %w", err)
	}

	prev := &record.State
	for step, err := range streamer.Stream(ctx, record.State, cfg) {
		if err != nil {
			return err
		}
		diff := domain.Diff(prev, step.State)
		record.Steps = append(record.Steps, step)
		record.State = step.State
		prev = &step.State

		if err := handler.Step(ctx, step, diff); err != nil {
			return fmt.Errorf("present step %d: %w", step.Index, err)
		}
	}
	return nil
}

func (r *Runner) save(ctx context.Context, record *domain.RunRecord) error {
	if r.Store == nil {
		return nil
	}
	if err := r.Store.Save(ctx, record); err != nil {
		return fmt.Errorf("archive run %s: %w", record.ID, err)
	}
	return nil
}

func (r *Runner) resolveHandler() IOHandler {
	if r.Handler != nil {
		return r.Handler
	}
	return discardHandler{}
}

func (r *Runner) resolveLogger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (r *Runner) lockTTL() time.Duration {
	if r.LockTTL > 0 {
		return r.LockTTL
	}
	return DefaultLockTTL
}
