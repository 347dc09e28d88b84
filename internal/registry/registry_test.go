package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/internal/mocks"
)

func TestResolveFallback(t *testing.T) {
	t.Parallel()

	reg := New()
	shared := mocks.NewMockCloudProvider()
	reg.BindFallback("digitalocean", shared)

	got, err := reg.Resolve(context.Background(), "digitalocean", nil)
	require.NoError(t, err)
	assert.Same(t, interfaces.CloudProvider(shared), got)

	// An identity with no scoped binding also lands on the fallback.
	got, err = reg.Resolve(context.Background(), "digitalocean", &interfaces.CallerIdentity{WorkspaceID: "ws-1", UserID: "u-1"})
	require.NoError(t, err)
	assert.Same(t, interfaces.CloudProvider(shared), got)
}

func TestScopedBindingTakesPriority(t *testing.T) {
	t.Parallel()

	reg := New()
	shared := mocks.NewMockCloudProvider()
	scoped := mocks.NewMockCloudProvider()
	identity := interfaces.CallerIdentity{WorkspaceID: "ws-1", UserID: "u-1"}

	reg.BindFallback("digitalocean", shared)
	reg.Bind("digitalocean", identity, scoped)

	got, err := reg.Resolve(context.Background(), "digitalocean", &identity)
	require.NoError(t, err)
	assert.Same(t, interfaces.CloudProvider(scoped), got)

	// Binding scoped must not have evicted the fallback.
	other := interfaces.CallerIdentity{WorkspaceID: "ws-2", UserID: "u-9"}
	got, err = reg.Resolve(context.Background(), "digitalocean", &other)
	require.NoError(t, err)
	assert.Same(t, interfaces.CloudProvider(shared), got)
}

func TestResolveUnknownProvider(t *testing.T) {
	t.Parallel()

	reg := New()
	_, err := reg.Resolve(context.Background(), "nimbus", nil)
	assert.ErrorIs(t, err, interfaces.ErrProviderNotConfigured)
}

func TestOnDemandBindFromResolver(t *testing.T) {
	t.Parallel()

	resolver := mocks.NewMockCredentialResolver()
	resolver.Grant("ws-1", "u-1", "digitalocean", &interfaces.Credentials{Token: "dop_v1_abc"})

	built := mocks.NewMockCloudProvider()
	factoryCalls := 0
	factory := func(providerName string, creds *interfaces.Credentials) (interfaces.CloudProvider, error) {
		factoryCalls++
		assert.Equal(t, "digitalocean", providerName)
		assert.Equal(t, "dop_v1_abc", creds.Token)
		return built, nil
	}

	reg := New(WithCredentialResolver(resolver, factory))
	identity := interfaces.CallerIdentity{WorkspaceID: "ws-1", UserID: "u-1"}

	got, err := reg.Resolve(context.Background(), "digitalocean", &identity)
	require.NoError(t, err)
	assert.Same(t, interfaces.CloudProvider(built), got)

	// Second resolution hits the cached binding, not the factory.
	_, err = reg.Resolve(context.Background(), "digitalocean", &identity)
	require.NoError(t, err)
	assert.Equal(t, 1, factoryCalls)
	assert.Equal(t, 1, resolver.Tracker.Count("ResolveCredentials"))
}

func TestNoCredentialsFallsThroughToFallback(t *testing.T) {
	t.Parallel()

	resolver := mocks.NewMockCredentialResolver()
	factory := func(string, *interfaces.Credentials) (interfaces.CloudProvider, error) {
		t.Fatal("factory must not run without credentials")
		return nil, nil
	}

	shared := mocks.NewMockCloudProvider()
	reg := New(WithCredentialResolver(resolver, factory))
	reg.BindFallback("digitalocean", shared)

	got, err := reg.Resolve(context.Background(), "digitalocean", &interfaces.CallerIdentity{WorkspaceID: "ws-1", UserID: "u-1"})
	require.NoError(t, err)
	assert.Same(t, interfaces.CloudProvider(shared), got)
}

func TestResolverHardErrorSurfaces(t *testing.T) {
	t.Parallel()

	resolver := mocks.NewMockCredentialResolver()
	vaultDown := errors.New("credential store unreachable")
	resolver.FailWith("ws-1", "u-1", "digitalocean", vaultDown)

	reg := New(WithCredentialResolver(resolver, func(string, *interfaces.Credentials) (interfaces.CloudProvider, error) {
		return mocks.NewMockCloudProvider(), nil
	}))
	reg.BindFallback("digitalocean", mocks.NewMockCloudProvider())

	_, err := reg.Resolve(context.Background(), "digitalocean", &interfaces.CallerIdentity{WorkspaceID: "ws-1", UserID: "u-1"})
	assert.ErrorIs(t, err, vaultDown, "hard resolver errors must not silently fall back")
}
