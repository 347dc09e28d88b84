// Package mocks provides hand-rolled test doubles for the orchestrator's
// collaborator interfaces. The doubles are deterministic and scriptable so
// failure-path tests can target an exact provider call.
package mocks

import "sync"

// CallTracker records calls to a mock, keyed by method name, preserving
// argument snapshots in call order. Safe for concurrent use.
type CallTracker struct {
	mu    sync.Mutex
	calls map[string][]interface{}
}

// NewCallTracker creates an empty tracker
func NewCallTracker() *CallTracker {
	return &CallTracker{calls: make(map[string][]interface{})}
}

// Record appends one call's arguments under the given method name
func (t *CallTracker) Record(method string, args interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls[method] = append(t.calls[method], args)
}

// Count returns how many times the method was called
func (t *CallTracker) Count(method string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls[method])
}

// Calls returns the recorded argument snapshots for a method, in call order
func (t *CallTracker) Calls(method string) []interface{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]interface{}, len(t.calls[method]))
	copy(out, t.calls[method])
	return out
}
