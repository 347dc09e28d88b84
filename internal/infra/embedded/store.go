// Package embedded provides the in-process infrastructure backends: a
// mutex-guarded record store, a channel-backed operation queue, and a worker
// pool that drains it. Everything here runs inside a single process with no
// external dependencies.
package embedded

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/overcast-io/overcast/internal/interfaces"
)

// Store is an in-memory implementation of interfaces.Store. All reads return
// deep copies and all writes store deep copies, so callers never share state
// with the store. Writes to terminal operations are rejected.
type Store struct {
	mu      sync.RWMutex
	infra   map[string]*interfaces.Infrastructure
	ops     map[string]*interfaces.Operation
	opOrder []string // insertion order, for stable same-timestamp listings
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		infra: make(map[string]*interfaces.Infrastructure),
		ops:   make(map[string]*interfaces.Operation),
	}
}

// PutInfrastructure inserts or replaces an infrastructure record
func (s *Store) PutInfrastructure(infra *interfaces.Infrastructure) error {
	if infra == nil || infra.ID == "" {
		return fmt.Errorf("infrastructure record requires an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infra[infra.ID] = copyInfrastructure(infra)
	return nil
}

// GetInfrastructure returns a copy of the infrastructure record
func (s *Store) GetInfrastructure(id string) (*interfaces.Infrastructure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.infra[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrInfrastructureNotFound, id)
	}
	return copyInfrastructure(stored), nil
}

// ListInfrastructure returns the workspace's infrastructure records, most
// recently created first. An empty workspace id lists everything.
func (s *Store) ListInfrastructure(workspaceID string) ([]*interfaces.Infrastructure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*interfaces.Infrastructure, 0, len(s.infra))
	for _, stored := range s.infra {
		if workspaceID != "" && stored.WorkspaceID != workspaceID {
			continue
		}
		out = append(out, copyInfrastructure(stored))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// PutOperation inserts or replaces an operation record. Once a stored
// operation is terminal it can never be replaced.
func (s *Store) PutOperation(op *interfaces.Operation) error {
	if op == nil || op.ID == "" {
		return fmt.Errorf("operation record requires an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.ops[op.ID]; ok {
		if stored.Status.Terminal() {
			return fmt.Errorf("operation %s is terminal and cannot be modified", op.ID)
		}
	} else {
		s.opOrder = append(s.opOrder, op.ID)
	}
	s.ops[op.ID] = copyOperation(op)
	return nil
}

// GetOperation returns a copy of the operation record
func (s *Store) GetOperation(id string) (*interfaces.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.ops[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrOperationNotFound, id)
	}
	return copyOperation(stored), nil
}

// ListOperations returns the infrastructure's operations ordered by StartedAt
// descending. An empty infrastructure id lists everything.
func (s *Store) ListOperations(infrastructureID string) ([]*interfaces.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*interfaces.Operation, 0, len(s.ops))
	for _, id := range s.opOrder {
		stored := s.ops[id]
		if infrastructureID != "" && stored.InfrastructureID != infrastructureID {
			continue
		}
		out = append(out, copyOperation(stored))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

func copyInfrastructure(in *interfaces.Infrastructure) *interfaces.Infrastructure {
	out := *in
	out.Tags = copyStringMap(in.Tags)
	out.Config = interfaces.InfrastructureConfig{
		AutoScaling: copyAnyMap(in.Config.AutoScaling),
		Backup:      copyAnyMap(in.Config.Backup),
		Security:    copyAnyMap(in.Config.Security),
		Networking:  copyAnyMap(in.Config.Networking),
		Monitoring:  copyAnyMap(in.Config.Monitoring),
		CostControl: copyAnyMap(in.Config.CostControl),
	}
	if in.ActualCost != nil {
		cost := *in.ActualCost
		out.ActualCost = &cost
	}
	out.DeployedAt = copyTime(in.DeployedAt)
	out.DestroyedAt = copyTime(in.DestroyedAt)

	if in.Resources != nil {
		out.Resources = make([]interfaces.Resource, len(in.Resources))
		for i := range in.Resources {
			out.Resources[i] = copyResource(&in.Resources[i])
		}
	}
	return &out
}

func copyResource(in *interfaces.Resource) interfaces.Resource {
	out := *in
	out.Spec = copyAnyMap(in.Spec)
	out.DependsOn = copyStrings(in.DependsOn)
	out.Dependents = copyStrings(in.Dependents)
	return out
}

func copyOperation(in *interfaces.Operation) *interfaces.Operation {
	out := *in
	out.CreatedResources = copyStrings(in.CreatedResources)
	out.UpdatedResources = copyStrings(in.UpdatedResources)
	out.DeletedResources = copyStrings(in.DeletedResources)
	out.CompletedAt = copyTime(in.CompletedAt)
	return &out
}

func copyTime(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	t := *in
	return &t
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// copyAnyMap copies one level deep; nested values stay shared. Specification
// and configuration blocks are treated as immutable once stored, so a
// top-level copy is enough to keep callers from aliasing the store's maps.
func copyAnyMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
