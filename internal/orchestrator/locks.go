package orchestrator

import (
	"context"
	"fmt"
	"sync"
)

// LockArena is the in-process InfrastructureLocker: one logical mutex per
// infrastructure id, acquired in FIFO-ish channel order. Suitable whenever a
// single process owns all operation execution.
type LockArena struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLockArena creates an empty lock arena
func NewLockArena() *LockArena {
	return &LockArena{locks: make(map[string]chan struct{})}
}

// Lock blocks until the infrastructure's lock is held or the context expires.
// The returned release function must be called exactly once.
func (a *LockArena) Lock(ctx context.Context, infrastructureID string) (func(), error) {
	a.mu.Lock()
	ch, ok := a.locks[infrastructureID]
	if !ok {
		ch = make(chan struct{}, 1)
		a.locks[infrastructureID] = ch
	}
	a.mu.Unlock()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-ch })
		}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for infrastructure %s lock: %w", infrastructureID, ctx.Err())
	}
}
