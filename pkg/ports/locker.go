package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a lock.
type UnlockFunc func(ctx context.Context) error

// RunLocker guards a run ID so that two hosts sharing a RunStore never drive
// the same run at the same time.
type RunLocker interface {
	// Lock blocks until the lock for key is acquired or ctx is done.
	// The lock expires after ttl even if never released.
	// Returns an UnlockFunc that MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
