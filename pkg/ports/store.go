package ports

import (
	"context"

	"github.com/aretw0/replan/pkg/domain"
)

// RunStore defines the interface for archiving finished runs.
// Records are written once a run ends; they are never used to resume a run.
type RunStore interface {
	// Save persists the record under record.ID, replacing any previous one.
	Save(ctx context.Context, record *domain.RunRecord) error

	// Load retrieves a record by run ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.RunRecord, error)

	// List returns the IDs of archived runs, most recent first.
	List(ctx context.Context) ([]string, error)

	// Delete removes a record. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, runID string) error
}
