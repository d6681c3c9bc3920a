package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/replan/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if we still own it.
var releaseScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Locker implements ports.RunLocker using Redis SET NX PX.
type Locker struct {
	client backend.UniversalClient
	prefix string
	poll   time.Duration
}

// NewLocker creates a new Redis locker.
func NewLocker(client backend.UniversalClient, prefix string) *Locker {
	return &Locker{
		client: client,
		prefix: prefix,
		poll:   50 * time.Millisecond,
	}
}

// Lock polls until the lock is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	owner := uuid.NewString()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, owner, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
		}
		if ok {
			return func(ctx context.Context) error {
				return releaseScript.Run(ctx, l.client, []string{lockKey}, owner).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
