// Package state provides durable snapshots of infrastructure and operation
// records plus a distributed infrastructure lock. The embedded store remains
// the source of truth at runtime; snapshots exist so a restarted or replaced
// process can reconstruct history.
package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/overcast-io/overcast/internal/interfaces"
)

// ErrSnapshotNotFound is returned when no snapshot exists for an id
var ErrSnapshotNotFound = fmt.Errorf("snapshot not found")

// SnapshotStore persists point-in-time copies of orchestrator records
type SnapshotStore interface {
	SaveInfrastructure(ctx context.Context, infra *interfaces.Infrastructure) error
	LoadInfrastructure(ctx context.Context, id string) (*interfaces.Infrastructure, error)
	ListInfrastructureIDs(ctx context.Context) ([]string, error)

	SaveOperation(ctx context.Context, op *interfaces.Operation) error
	LoadOperation(ctx context.Context, id string) (*interfaces.Operation, error)
}

// MemorySnapshotStore keeps snapshots in process memory. Used in tests and in
// deployments that accept losing history on restart.
type MemorySnapshotStore struct {
	mu    sync.RWMutex
	infra map[string][]byte
	ops   map[string][]byte
}

// NewMemorySnapshotStore creates an empty in-memory snapshot store
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{
		infra: make(map[string][]byte),
		ops:   make(map[string][]byte),
	}
}

// SaveInfrastructure implements SnapshotStore
func (m *MemorySnapshotStore) SaveInfrastructure(_ context.Context, infra *interfaces.Infrastructure) error {
	payload, err := encodeInfrastructure(infra)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infra[infra.ID] = payload
	return nil
}

// LoadInfrastructure implements SnapshotStore
func (m *MemorySnapshotStore) LoadInfrastructure(_ context.Context, id string) (*interfaces.Infrastructure, error) {
	m.mu.RLock()
	payload, ok := m.infra[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: infrastructure %s", ErrSnapshotNotFound, id)
	}
	return decodeInfrastructure(payload)
}

// ListInfrastructureIDs implements SnapshotStore
func (m *MemorySnapshotStore) ListInfrastructureIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.infra))
	for id := range m.infra {
		ids = append(ids, id)
	}
	return ids, nil
}

// SaveOperation implements SnapshotStore
func (m *MemorySnapshotStore) SaveOperation(_ context.Context, op *interfaces.Operation) error {
	payload, err := encodeOperation(op)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[op.ID] = payload
	return nil
}

// LoadOperation implements SnapshotStore
func (m *MemorySnapshotStore) LoadOperation(_ context.Context, id string) (*interfaces.Operation, error) {
	m.mu.RLock()
	payload, ok := m.ops[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: operation %s", ErrSnapshotNotFound, id)
	}
	return decodeOperation(payload)
}
