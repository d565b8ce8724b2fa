// Package lock serialises work on a single key across requests. The Redis
// implementation works across server instances; the local one is for a
// single process (development, tests).
package lock

import (
	"context"
	"errors"
	"sync"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Locker runs fn while holding the lock for key. It never waits for a held
// lock: contention returns ErrNotAcquired immediately.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type localLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker returns an in-process Locker.
func NewLocalLocker() Locker {
	return &localLocker{held: make(map[string]struct{})}
}

func (l *localLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if _, busy := l.held[key]; busy {
		l.mu.Unlock()
		return ErrNotAcquired
	}
	l.held[key] = struct{}{}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()

	return fn(ctx)
}
