package domain

import (
	"context"
	"errors"
	"maps"
	"time"
)

// RunStatus is the outcome of an archived run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusAborted   RunStatus = "aborted"   // stopped by the run guard
	StatusCancelled RunStatus = "cancelled" // context cancelled or consumer went away
)

// RunRecord is the archived summary of one run.
// Runs are never resumed from a record; it exists for auditing and replay in UIs.
type RunRecord struct {
	ID         string         `json:"id"`
	Objective  string         `json:"objective"`
	Status     RunStatus      `json:"status"`
	Steps      []Step         `json:"steps"`
	State      RunState       `json:"state"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// StatusFor classifies the error a run ended with.
func StatusFor(err error) RunStatus {
	switch {
	case err == nil:
		return StatusCompleted
	case errors.Is(err, ErrRecursionLimit):
		return StatusAborted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrStreamAbandoned):
		return StatusCancelled
	default:
		return StatusFailed
	}
}

// Clone returns a deep copy of the record. Metadata values are copied
// shallowly.
func (r *RunRecord) Clone() *RunRecord {
	out := *r
	out.State = r.State.Clone()
	out.Steps = make([]Step, len(r.Steps))
	for i, s := range r.Steps {
		out.Steps[i] = Step{Index: s.Index, Node: s.Node, State: s.State.Clone()}
	}
	out.Metadata = maps.Clone(r.Metadata)
	return &out
}
