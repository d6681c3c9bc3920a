package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRunStart  EventType = "run_start"
	EventRunEnd    EventType = "run_end"
	EventNodeEnter EventType = "node_enter"
	EventNodeLeave EventType = "node_leave"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
}

// RunEvent marks the beginning or the end of a run.
type RunEvent struct {
	EventBase
	Objective string        `json:"objective"`
	Steps     int           `json:"steps"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
}

// NodeEvent represents entry into or exit from a node during one super-step.
type NodeEvent struct {
	EventBase
	Node     string        `json:"node"`
	Step     int           `json:"step"`
	Next     string        `json:"next,omitempty"` // set on leave when routing succeeded
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Any of them may be nil.
type LifecycleHooks struct {
	OnRunStart  func(context.Context, *RunEvent)
	OnRunEnd    func(context.Context, *RunEvent)
	OnNodeEnter func(context.Context, *NodeEvent)
	OnNodeLeave func(context.Context, *NodeEvent)
}

// ChainHooks combines several hook sets; callbacks fire in argument order.
func ChainHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range hooks {
		out.OnRunStart = chain(out.OnRunStart, h.OnRunStart)
		out.OnRunEnd = chain(out.OnRunEnd, h.OnRunEnd)
		out.OnNodeEnter = chain(out.OnNodeEnter, h.OnNodeEnter)
		out.OnNodeLeave = chain(out.OnNodeLeave, h.OnNodeLeave)
	}
	return out
}

func chain[E any](first, second func(context.Context, E)) func(context.Context, E) {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	}
	return func(ctx context.Context, e E) {
		first(ctx, e)
		second(ctx, e)
	}
}
