// Package lock serializes mutations of a single ledger. Local works within
// one process; Redis coordinates several server replicas through redsync.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrNotAcquired is returned when a lock could not be taken before the
// configured tries ran out.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker runs fn while holding the lock named key. The lock is released
// when fn returns, whatever it returns.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// LedgerKey is the lock name guarding one ledger.
func LedgerKey(ledgerID string) string {
	return "ledger:" + ledgerID
}

// Local is an in-process Locker. Each key gets a one-slot semaphore,
// created on first use and kept for the life of the process.
type Local struct {
	mapMu sync.Mutex
	muMap map[string]chan struct{}
}

// NewLocal returns an empty Local.
func NewLocal() *Local {
	return &Local{muMap: make(map[string]chan struct{})}
}

// getLock returns the one-slot semaphore for key, creating it if needed.
func (l *Local) getLock(key string) chan struct{} {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.muMap[key]; !exists {
		l.muMap[key] = make(chan struct{}, 1)
	}
	return l.muMap[key]
}

// WithLock blocks until key is free or ctx is done.
func (l *Local) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	sem := l.getLock(key)
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-sem }()

	return fn(ctx)
}
