package runner

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/aretw0/replan/pkg/domain"
)

// Event types written by JSONHandler, one JSON object per line.
const (
	EventStart  = "start"
	EventStep   = "step"
	EventResult = "result"
)

// Event is one line of the NDJSON run stream.
type Event struct {
	Type string `json:"type"`

	// start and result
	RunID string `json:"run_id,omitempty"`

	// start
	Objective string `json:"objective,omitempty"`

	// step
	Step  int               `json:"step,omitempty"`
	Node  string            `json:"node,omitempty"`
	State *domain.RunState  `json:"state,omitempty"`
	Diff  *domain.StateDiff `json:"diff,omitempty"`

	// result
	Status   domain.RunStatus `json:"status,omitempty"`
	Answer   string           `json:"answer,omitempty"`
	Error    string           `json:"error,omitempty"`
	Duration time.Duration    `json:"duration_ns,omitempty"`
}

// flusher is implemented by writers that buffer, such as http.ResponseWriter.
type flusher interface {
	Flush()
}

// JSONHandler implements IOHandler as a JSON-Lines stream.
type JSONHandler struct {
	Writer  io.Writer
	Encoder *json.Encoder

	mu sync.Mutex
}

var _ IOHandler = (*JSONHandler)(nil)

// NewJSONHandler creates a handler writing to w (stdout when nil).
func NewJSONHandler(w io.Writer) *JSONHandler {
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Start(_ context.Context, runID, objective string) error {
	return h.emit(Event{Type: EventStart, RunID: runID, Objective: objective})
}

func (h *JSONHandler) Step(_ context.Context, step domain.Step, diff *domain.StateDiff) error {
	state := step.State
	return h.emit(Event{
		Type:  EventStep,
		Step:  step.Index,
		Node:  step.Node,
		State: &state,
		Diff:  diff,
	})
}

func (h *JSONHandler) Finish(_ context.Context, record *domain.RunRecord) error {
	return h.emit(Event{
		Type:     EventResult,
		RunID:    record.ID,
		Status:   record.Status,
		Answer:   record.State.Answer(),
		Error:    record.Error,
		Duration: record.FinishedAt.Sub(record.StartedAt),
	})
}

func (h *JSONHandler) emit(event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Encoder.Encode(event); err != nil {
		return err
	}
	if f, ok := h.Writer.(flusher); ok {
		f.Flush()
	}
	return nil
}
