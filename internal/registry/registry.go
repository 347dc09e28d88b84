// Package registry maps provider names to live CloudProvider instances,
// with optional per-caller scoping backed by a credential resolver.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/pkg/logging"
)

// Registry is a two-level provider registry. Identity-scoped bindings take
// priority over fallback bindings; when a credential resolver and factory are
// configured, missing scoped entries are built on demand and cached.
type Registry struct {
	mu       sync.RWMutex
	scoped   map[string]interfaces.CloudProvider
	fallback map[string]interfaces.CloudProvider

	resolver interfaces.CredentialResolver
	factory  interfaces.ProviderFactory

	logger *logging.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithCredentialResolver enables on-demand identity-scoped provider
// construction from resolved credentials
func WithCredentialResolver(resolver interfaces.CredentialResolver, factory interfaces.ProviderFactory) Option {
	return func(r *Registry) {
		r.resolver = resolver
		r.factory = factory
	}
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{
		scoped:   make(map[string]interfaces.CloudProvider),
		fallback: make(map[string]interfaces.CloudProvider),
		logger:   logging.NewLogger("provider-registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func scopedKey(providerName string, identity interfaces.CallerIdentity) string {
	return providerName + "/" + identity.WorkspaceID + "/" + identity.UserID
}

// Bind registers an identity-scoped provider. It never evicts the fallback
// entry for the same provider name.
func (r *Registry) Bind(providerName string, identity interfaces.CallerIdentity, provider interfaces.CloudProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scoped[scopedKey(providerName, identity)] = provider
}

// BindFallback registers the provider used when no identity-scoped entry matches
func (r *Registry) BindFallback(providerName string, provider interfaces.CloudProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback[providerName] = provider
}

// Resolve returns the provider for the given name and caller identity.
// Resolution order: identity-scoped entry, then on-demand construction via the
// credential resolver, then the fallback entry. A nil identity skips straight
// to the fallback. ErrProviderNotConfigured means nothing matched; it is a
// configuration error, not a provider fault.
func (r *Registry) Resolve(ctx context.Context, providerName string, identity *interfaces.CallerIdentity) (interfaces.CloudProvider, error) {
	if identity != nil {
		key := scopedKey(providerName, *identity)

		r.mu.RLock()
		provider, ok := r.scoped[key]
		r.mu.RUnlock()
		if ok {
			return provider, nil
		}

		if provider, err := r.buildScoped(ctx, providerName, *identity); err != nil {
			return nil, err
		} else if provider != nil {
			return provider, nil
		}
	}

	r.mu.RLock()
	provider, ok := r.fallback[providerName]
	r.mu.RUnlock()
	if ok {
		return provider, nil
	}

	return nil, fmt.Errorf("%w: %s", interfaces.ErrProviderNotConfigured, providerName)
}

// buildScoped attempts on-demand construction of an identity-scoped provider.
// It returns (nil, nil) when construction is not possible and resolution
// should fall through to the fallback entry.
func (r *Registry) buildScoped(ctx context.Context, providerName string, identity interfaces.CallerIdentity) (interfaces.CloudProvider, error) {
	if r.resolver == nil || r.factory == nil {
		return nil, nil
	}

	creds, err := r.resolver.ResolveCredentials(ctx, identity.WorkspaceID, identity.UserID, providerName)
	if err != nil {
		if errors.Is(err, interfaces.ErrNoCredentials) {
			r.logger.Debugf("No %s credentials for workspace %s, falling back to shared provider",
				providerName, identity.WorkspaceID)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve %s credentials: %w", providerName, err)
	}

	provider, err := r.factory(providerName, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s provider: %w", providerName, err)
	}

	r.mu.Lock()
	r.scoped[scopedKey(providerName, identity)] = provider
	r.mu.Unlock()

	r.logger.Infof("Bound %s provider for workspace %s user %s", providerName, identity.WorkspaceID, identity.UserID)
	return provider, nil
}
