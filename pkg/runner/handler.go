package runner

import (
	"context"

	"github.com/aretw0/replan/pkg/domain"
)

// IOHandler defines the strategy for presenting a run.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Start announces a new run before its first super-step.
	Start(ctx context.Context, runID, objective string) error

	// Step presents one emitted super-step. diff holds what changed since
	// the previous step and is nil when the node changed nothing.
	Step(ctx context.Context, step domain.Step, diff *domain.StateDiff) error

	// Finish presents the outcome of the run, successful or not.
	Finish(ctx context.Context, record *domain.RunRecord) error
}

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// discardHandler presents nothing.
type discardHandler struct{}

func (discardHandler) Start(context.Context, string, string) error { return nil }
func (discardHandler) Step(context.Context, domain.Step, *domain.StateDiff) error { return nil }
func (discardHandler) Finish(context.Context, *domain.RunRecord) error { return nil }

// MultiHandler presents a run through several handlers in order.
// The first error stops the fan-out and is returned.
func MultiHandler(handlers ...IOHandler) IOHandler {
	return multiHandler(handlers)
}

type multiHandler []IOHandler

func (m multiHandler) Start(ctx context.Context, runID, objective string) error {
	for _, h := range m {
		if err := h.Start(ctx, runID, objective); err != nil {
			return err
		}
	}
	return nil
}

func (m multiHandler) Step(ctx context.Context, step domain.Step, diff *domain.StateDiff) error {
	for _, h := range m {
		if err := h.Step(ctx, step, diff); err != nil {
			return err
		}
	}
	return nil
}

func (m multiHandler) Finish(ctx context.Context, record *domain.RunRecord) error {
	for _, h := range m {
		if err := h.Finish(ctx, record); err != nil {
			return err
		}
	}
	return nil
}
