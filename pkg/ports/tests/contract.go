// Package tests holds reusable contract suites for port implementations.
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewRecord builds a finished run record suitable for store tests.
func NewRecord(id string, startedAt time.Time) *domain.RunRecord {
	state := domain.NewRunState("Who won?")
	state.Plan = []string{"check the score"}
	state.History = []domain.PastStep{{Task: "find the game", Result: "found"}}
	answer := "the home team"
	state.FinalAnswer = &answer

	return &domain.RunRecord{
		ID:        id,
		Objective: state.Objective,
		Status:    domain.StatusCompleted,
		Steps: []domain.Step{
			{Index: 1, Node: "planner", State: state},
		},
		State:      state,
		Metadata:   map[string]any{"source": "contract"},
		StartedAt:  startedAt.UTC().Truncate(time.Millisecond),
		FinishedAt: startedAt.Add(time.Second).UTC().Truncate(time.Millisecond),
	}
}

// RunStoreContract verifies that a RunStore implementation adheres to the
// interface contract.
func RunStoreContract(t *testing.T, store ports.RunStore) {
	t.Helper()
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		record := NewRecord(runID, time.Now())

		require.NoError(t, store.Save(ctx, record))

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, record.ID, loaded.ID)
		assert.Equal(t, record.Status, loaded.Status)
		assert.Equal(t, record.State, loaded.State)
		assert.Equal(t, record.Steps, loaded.Steps)
		assert.Equal(t, "contract", loaded.Metadata["source"])
		assert.True(t, record.StartedAt.Equal(loaded.StartedAt))
	})

	t.Run("Load Returns A Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		loaded.State.History[0].Result = "tampered"

		again, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, "found", again.State.History[0].Result)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, NewRecord(runID, time.Now())))
		require.NoError(t, store.Delete(ctx, runID))

		_, err := store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")

		assert.NoError(t, store.Delete(ctx, runID), "deleting twice is not an error")
	})

	t.Run("List Most Recent First", func(t *testing.T) {
		older := runID + "-older"
		newer := runID + "-newer"
		now := time.Now()
		require.NoError(t, store.Save(ctx, NewRecord(older, now.Add(-time.Hour))))
		require.NoError(t, store.Save(ctx, NewRecord(newer, now)))
		defer func() {
			_ = store.Delete(ctx, older)
			_ = store.Delete(ctx, newer)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		require.Contains(t, ids, older)
		require.Contains(t, ids, newer)

		pos := map[string]int{}
		for i, id := range ids {
			pos[id] = i
		}
		assert.Less(t, pos[newer], pos[older])
	})
}

// RunLockerContract verifies mutual exclusion and release of a RunLocker.
func RunLockerContract(t *testing.T, locker ports.RunLocker) {
	t.Helper()
	ctx := context.Background()

	t.Run("Exclusive", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "run-a", time.Minute)
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, "run-a", time.Minute)
		assert.ErrorIs(t, err, context.DeadlineExceeded, "second holder must wait")

		require.NoError(t, unlock(ctx))

		unlock2, err := locker.Lock(ctx, "run-a", time.Minute)
		require.NoError(t, err, "lock is free after release")
		require.NoError(t, unlock2(ctx))
	})

	t.Run("Independent Keys", func(t *testing.T) {
		unlockA, err := locker.Lock(ctx, "run-x", time.Minute)
		require.NoError(t, err)
		defer func() { _ = unlockA(ctx) }()

		unlockB, err := locker.Lock(ctx, "run-y", time.Minute)
		require.NoError(t, err)
		require.NoError(t, unlockB(ctx))
	})
}
