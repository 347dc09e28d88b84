package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overcast-io/overcast/internal/events"
	"github.com/overcast-io/overcast/internal/infra/embedded"
	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/internal/mocks"
	"github.com/overcast-io/overcast/internal/registry"
)

type capturedFailure struct {
	infraID string
	opID    string
	cause   error
}

type captureTrigger struct {
	ch chan capturedFailure
}

func (c *captureTrigger) OnCreateFailure(_ context.Context, infra *interfaces.Infrastructure, op *interfaces.Operation, cause error) {
	c.ch <- capturedFailure{infraID: infra.ID, opID: op.ID, cause: cause}
}

func TestRemediationTriggerFiresOnCreateFailure(t *testing.T) {
	t.Parallel()

	provider := mocks.NewMockCloudProvider()
	provider.FailCreateNamed("data-1", errors.New("volume quota exceeded"))

	reg := registry.New()
	reg.BindFallback("digitalocean", provider)

	trigger := &captureTrigger{ch: make(chan capturedFailure, 1)}
	queue := embedded.NewQueue(4)
	t.Cleanup(func() { _ = queue.Close() })

	svc, err := NewService(ServiceConfig{
		Store:       embedded.NewStore(),
		Registry:    reg,
		Queue:       queue,
		Events:      events.NewSynchronousBus(),
		Remediation: trigger,
	})
	require.NoError(t, err)

	infra, op, err := svc.OpenCreate(context.Background(), createRequest(threeResources()...))
	require.NoError(t, err)
	require.Equal(t, interfaces.OperationStatusFailed, op.Status)

	select {
	case got := <-trigger.ch:
		assert.Equal(t, infra.ID, got.infraID)
		assert.Equal(t, op.ID, got.opID)
		assert.Contains(t, got.cause.Error(), "volume quota exceeded")
	case <-time.After(2 * time.Second):
		t.Fatal("remediation trigger never fired")
	}
}

func TestRemediationTriggerDoesNotFireOnSuccess(t *testing.T) {
	t.Parallel()

	provider := mocks.NewMockCloudProvider()
	reg := registry.New()
	reg.BindFallback("digitalocean", provider)

	trigger := &captureTrigger{ch: make(chan capturedFailure, 1)}
	queue := embedded.NewQueue(4)
	t.Cleanup(func() { _ = queue.Close() })

	svc, err := NewService(ServiceConfig{
		Store:       embedded.NewStore(),
		Registry:    reg,
		Queue:       queue,
		Events:      events.NewSynchronousBus(),
		Remediation: trigger,
	})
	require.NoError(t, err)

	_, op, err := svc.OpenCreate(context.Background(), createRequest(threeResources()...))
	require.NoError(t, err)
	require.Equal(t, interfaces.OperationStatusCompleted, op.Status)

	select {
	case <-trigger.ch:
		t.Fatal("remediation must only fire on failure")
	case <-time.After(100 * time.Millisecond):
	}
}
