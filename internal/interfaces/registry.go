package interfaces

import (
	"context"
	"errors"
)

// ErrProviderNotConfigured is returned when neither an identity-scoped nor a
// fallback provider entry exists for a provider name. It is a configuration
// error, surfaced to the caller before any resource mutation; it never
// triggers rollback and is never retried.
var ErrProviderNotConfigured = errors.New("provider not configured")

// ErrNoCredentials is returned by a CredentialResolver when no credentials
// exist for the given identity and provider. Callers must treat it as a
// configuration error, not a retryable fault.
var ErrNoCredentials = errors.New("no credentials")

// CallerIdentity scopes provider resolution to a workspace/user pair
type CallerIdentity struct {
	WorkspaceID string
	UserID      string
}

// Credentials holds provider credentials returned by a CredentialResolver
type Credentials struct {
	Token     string
	AccessKey string
	SecretKey string
	Extra     map[string]string
}

// CredentialResolver retrieves provider credentials for a caller identity.
// It is an external collaborator; absence of credentials is signaled with
// ErrNoCredentials.
type CredentialResolver interface {
	ResolveCredentials(ctx context.Context, workspaceID, userID, providerName string) (*Credentials, error)
}

// ProviderFactory builds a live CloudProvider from resolved credentials
type ProviderFactory func(providerName string, creds *Credentials) (CloudProvider, error)

// ProviderRegistry maps a provider name, optionally scoped by caller
// identity, to a live CloudProvider. Identity-scoped entries take priority
// over the fallback entry; binding an identity-scoped entry never evicts the
// fallback.
type ProviderRegistry interface {
	Resolve(ctx context.Context, providerName string, identity *CallerIdentity) (CloudProvider, error)
	Bind(providerName string, identity CallerIdentity, provider CloudProvider)
	BindFallback(providerName string, provider CloudProvider)
}
