package mocks

import (
	"context"
	"sync"

	"github.com/overcast-io/overcast/internal/interfaces"
)

// MockCredentialResolver returns scripted credentials per workspace/user/provider
type MockCredentialResolver struct {
	Tracker *CallTracker

	mu    sync.Mutex
	creds map[string]*interfaces.Credentials
	errs  map[string]error
}

// NewMockCredentialResolver creates a resolver that knows no credentials;
// every lookup returns interfaces.ErrNoCredentials until scripted.
func NewMockCredentialResolver() *MockCredentialResolver {
	return &MockCredentialResolver{
		Tracker: NewCallTracker(),
		creds:   make(map[string]*interfaces.Credentials),
		errs:    make(map[string]error),
	}
}

func resolverKey(workspaceID, userID, providerName string) string {
	return workspaceID + "/" + userID + "/" + providerName
}

// Grant scripts credentials for an identity/provider pair
func (m *MockCredentialResolver) Grant(workspaceID, userID, providerName string, creds *interfaces.Credentials) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[resolverKey(workspaceID, userID, providerName)] = creds
}

// FailWith scripts a hard resolver error for an identity/provider pair
func (m *MockCredentialResolver) FailWith(workspaceID, userID, providerName string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[resolverKey(workspaceID, userID, providerName)] = err
}

// ResolveCredentials implements interfaces.CredentialResolver
func (m *MockCredentialResolver) ResolveCredentials(_ context.Context, workspaceID, userID, providerName string) (*interfaces.Credentials, error) {
	m.Tracker.Record("ResolveCredentials", resolverKey(workspaceID, userID, providerName))

	m.mu.Lock()
	defer m.mu.Unlock()

	key := resolverKey(workspaceID, userID, providerName)
	if err, ok := m.errs[key]; ok {
		return nil, err
	}
	if creds, ok := m.creds[key]; ok {
		return creds, nil
	}
	return nil, interfaces.ErrNoCredentials
}
