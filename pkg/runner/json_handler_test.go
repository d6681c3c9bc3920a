package runner_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flushRecorder struct {
	bytes.Buffer
	flushes int
}

func (f *flushRecorder) Flush() { f.flushes++ }

func TestJSONHandler_FlushesEveryLine(t *testing.T) {
	w := &flushRecorder{}
	h := runner.NewJSONHandler(w)
	ctx := context.Background()

	require.NoError(t, h.Start(ctx, "r1", "objective"))
	require.NoError(t, h.Step(ctx, domain.Step{Index: 1, Node: "planner", State: domain.NewRunState("objective")}, nil))
	assert.Equal(t, 2, w.flushes)
}

func TestJSONHandler_FailedResult(t *testing.T) {
	var out bytes.Buffer
	h := runner.NewJSONHandler(&out)

	started := time.Now()
	record := &domain.RunRecord{
		ID:         "r2",
		Status:     domain.StatusFailed,
		Error:      `node "agent": boom`,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}
	require.NoError(t, h.Finish(context.Background(), record))

	events := decodeEvents(t, out.Bytes())
	require.Len(t, events, 1)
	assert.Equal(t, runner.Event{
		Type:     runner.EventResult,
		RunID:    "r2",
		Status:   domain.StatusFailed,
		Error:    `node "agent": boom`,
		Duration: time.Second,
	}, events[0])
}
