package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/aretw0/replan/pkg/domain"
)

// Store implements ports.RunStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.RunRecord
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.RunRecord),
	}
}

// Save persists a copy of the record.
func (s *Store) Save(_ context.Context, record *domain.RunRecord) error {
	copied := record.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[record.ID] = copied
	return nil
}

// Load returns a copy so callers can't mutate the stored record.
func (s *Store) Load(_ context.Context, runID string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return record.Clone(), nil
}

// Delete removes the record.
func (s *Store) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

// List returns archived run IDs, most recently started first.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*domain.RunRecord, 0, len(s.data))
	for _, r := range s.data {
		records = append(records, r)
	}
	slices.SortFunc(records, func(a, b *domain.RunRecord) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids, nil
}
