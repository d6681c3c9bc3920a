package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/replan/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const DefaultPrefix = "replan:run:"

// Store implements ports.RunStore on Redis.
// Each record is a JSON string under prefix+id; a sorted set at
// prefix+"index" orders run IDs by start time.
type Store struct {
	client backend.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL expires archived records after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New connects to addr and verifies the connection.
func New(ctx context.Context, addr, password string, db int, opts ...Option) (*Store, error) {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: connect %s: %w", addr, err)
	}
	return NewFromClient(client, opts...), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() backend.UniversalClient {
	return s.client
}

func (s *Store) key(runID string) string {
	return s.prefix + runID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save writes the record and indexes it by start time.
func (s *Store) Save(ctx context.Context, record *domain.RunRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("redis: encode run %s: %w", record.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(record.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(record.StartedAt.UnixMilli()),
		Member: record.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: save run %s: %w", record.ID, err)
	}
	return nil
}

// Load reads a record.
func (s *Store) Load(ctx context.Context, runID string) (*domain.RunRecord, error) {
	data, err := s.client.Get(ctx, s.key(runID)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: load run %s: %w", runID, err)
	}

	var record domain.RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("redis: decode run %s: %w", runID, err)
	}
	return &record, nil
}

// Delete removes a record and its index entry.
func (s *Store) Delete(ctx context.Context, runID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(runID))
	pipe.ZRem(ctx, s.indexKey(), runID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete run %s: %w", runID, err)
	}
	return nil
}

// List returns run IDs newest first. Index entries whose record expired are
// pruned on the way.
func (s *Store) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list runs: %w", err)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	pipe := s.client.Pipeline()
	checks := make([]*backend.IntCmd, len(ids))
	for i, id := range ids {
		checks[i] = pipe.Exists(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis: list runs: %w", err)
	}

	live := make([]string, 0, len(ids))
	var stale []any
	for i, id := range ids {
		if checks[i].Val() > 0 {
			live = append(live, id)
		} else {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, s.indexKey(), stale...).Err(); err != nil {
			return nil, fmt.Errorf("redis: prune index: %w", err)
		}
	}
	return live, nil
}
