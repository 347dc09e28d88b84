package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/overcast-io/overcast/internal/interfaces"
)

// CreateCall captures the arguments of one CreateResource invocation
type CreateCall struct {
	Type interfaces.ResourceType
	Spec map[string]interface{}
}

// MockCloudProvider is a scriptable in-memory CloudProvider. By default every
// call succeeds; tests script failures per resource name or per call index.
type MockCloudProvider struct {
	Tracker *CallTracker

	mu      sync.Mutex
	serial  int
	entries map[string]map[string]interface{} // providerID -> attributes

	failCreateNames map[string]error // resource name (spec["name"]) -> error
	failCreateNth   map[int]error    // 1-based create call index -> error
	failDeleteIDs   map[string]error // providerID -> error
	authErr         error

	deleteOrder []string

	hourly  decimal.Decimal
	monthly decimal.Decimal
}

// NewMockCloudProvider creates a provider where every call succeeds and every
// resource costs 0.01/hour, 7.20/month.
func NewMockCloudProvider() *MockCloudProvider {
	return &MockCloudProvider{
		Tracker:         NewCallTracker(),
		entries:         make(map[string]map[string]interface{}),
		failCreateNames: make(map[string]error),
		failCreateNth:   make(map[int]error),
		failDeleteIDs:   make(map[string]error),
		hourly:          decimal.RequireFromString("0.01"),
		monthly:         decimal.RequireFromString("7.20"),
	}
}

// WithCosts overrides the per-resource cost every create and estimate reports
func (m *MockCloudProvider) WithCosts(hourly, monthly string) *MockCloudProvider {
	m.hourly = decimal.RequireFromString(hourly)
	m.monthly = decimal.RequireFromString(monthly)
	return m
}

// FailCreateNamed scripts CreateResource to fail when the spec's "name" field
// matches
func (m *MockCloudProvider) FailCreateNamed(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCreateNames[name] = err
}

// FailCreateNth scripts the nth (1-based) CreateResource call to fail
func (m *MockCloudProvider) FailCreateNth(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCreateNth[n] = err
}

// FailDelete scripts DeleteResource to fail for the given provider id
func (m *MockCloudProvider) FailDelete(providerID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDeleteIDs[providerID] = err
}

// FailAuthenticate scripts Authenticate to fail
func (m *MockCloudProvider) FailAuthenticate(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authErr = err
}

// DeleteOrder returns the provider ids passed to DeleteResource, in call order
func (m *MockCloudProvider) DeleteOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.deleteOrder))
	copy(out, m.deleteOrder)
	return out
}

// Live reports whether the provider still holds an entry for the given id
func (m *MockCloudProvider) Live(providerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[providerID]
	return ok
}

// LiveCount returns how many provider-side entries currently exist
func (m *MockCloudProvider) LiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// CreateResource implements interfaces.CloudProvider
func (m *MockCloudProvider) CreateResource(_ context.Context, resourceType interfaces.ResourceType, spec map[string]interface{}) (*interfaces.CreatedResource, error) {
	m.Tracker.Record("CreateResource", CreateCall{Type: resourceType, Spec: spec})

	m.mu.Lock()
	defer m.mu.Unlock()

	m.serial++
	if err, ok := m.failCreateNth[m.serial]; ok {
		return nil, err
	}
	if name, ok := spec["name"].(string); ok {
		if err, scripted := m.failCreateNames[name]; scripted {
			return nil, err
		}
	}

	providerID := fmt.Sprintf("mock-%s-%d", resourceType, m.serial)
	attrs := map[string]interface{}{"type": string(resourceType)}
	for k, v := range spec {
		attrs[k] = v
	}
	m.entries[providerID] = attrs

	return &interfaces.CreatedResource{
		ProviderID:  providerID,
		HourlyCost:  m.hourly,
		MonthlyCost: m.monthly,
		Attributes:  attrs,
	}, nil
}

// UpdateResource implements interfaces.CloudProvider
func (m *MockCloudProvider) UpdateResource(_ context.Context, providerID string, _ interfaces.ResourceType, spec map[string]interface{}) error {
	m.Tracker.Record("UpdateResource", providerID)

	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[providerID]
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrResourceNotFound, providerID)
	}
	for k, v := range spec {
		entry[k] = v
	}
	return nil
}

// DeleteResource implements interfaces.CloudProvider
func (m *MockCloudProvider) DeleteResource(_ context.Context, providerID string) error {
	m.Tracker.Record("DeleteResource", providerID)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteOrder = append(m.deleteOrder, providerID)
	if err, ok := m.failDeleteIDs[providerID]; ok {
		return err
	}
	delete(m.entries, providerID)
	return nil
}

// GetResource implements interfaces.CloudProvider
func (m *MockCloudProvider) GetResource(_ context.Context, providerID string) (map[string]interface{}, error) {
	m.Tracker.Record("GetResource", providerID)

	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrResourceNotFound, providerID)
	}
	out := make(map[string]interface{}, len(entry))
	for k, v := range entry {
		out[k] = v
	}
	return out, nil
}

// ListResources implements interfaces.CloudProvider
func (m *MockCloudProvider) ListResources(_ context.Context, resourceType interfaces.ResourceType) ([]map[string]interface{}, error) {
	m.Tracker.Record("ListResources", resourceType)

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []map[string]interface{}
	for _, entry := range m.entries {
		if entry["type"] == string(resourceType) {
			out = append(out, entry)
		}
	}
	return out, nil
}

// EstimateCost implements interfaces.CloudProvider
func (m *MockCloudProvider) EstimateCost(_ context.Context, resourceType interfaces.ResourceType, _ map[string]interface{}) (*interfaces.CostEstimate, error) {
	m.Tracker.Record("EstimateCost", resourceType)
	return &interfaces.CostEstimate{Hourly: m.hourly, Monthly: m.monthly}, nil
}

// Authenticate implements interfaces.CloudProvider
func (m *MockCloudProvider) Authenticate(_ context.Context) error {
	m.Tracker.Record("Authenticate", nil)

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authErr
}
