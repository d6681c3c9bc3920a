package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/replan/pkg/ports"
)

type hold struct {
	token  uint64
	expiry time.Time
}

// Locker implements ports.RunLocker within a single process.
type Locker struct {
	mu    sync.Mutex
	seq   uint64
	held  map[string]hold
	freed chan struct{} // closed and replaced on every release
}

// NewLocker creates a new in-process locker.
func NewLocker() *Locker {
	return &Locker{
		held:  make(map[string]hold),
		freed: make(chan struct{}),
	}
}

// Lock blocks until key is free (or its holder's ttl expired).
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	for {
		l.mu.Lock()
		h, busy := l.held[key]
		if !busy || time.Now().After(h.expiry) {
			l.seq++
			token := l.seq
			l.held[key] = hold{token: token, expiry: time.Now().Add(ttl)}
			l.mu.Unlock()
			return l.unlocker(key, token), nil
		}
		freed := l.freed
		l.mu.Unlock()

		timer := time.NewTimer(time.Until(h.expiry))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-freed:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// unlocker releases key only while token still identifies our hold.
func (l *Locker) unlocker(key string, token uint64) ports.UnlockFunc {
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if h, ok := l.held[key]; ok && h.token == token {
			delete(l.held, key)
			close(l.freed)
			l.freed = make(chan struct{})
		}
		return nil
	}
}
