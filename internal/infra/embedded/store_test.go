package embedded

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/internal/operation"
)

func newTestInfra(id, workspaceID string, createdAt time.Time) *interfaces.Infrastructure {
	return &interfaces.Infrastructure{
		ID:          id,
		WorkspaceID: workspaceID,
		UserID:      "u-1",
		Name:        "web-stack",
		Provider:    "digitalocean",
		Region:      "nyc3",
		Tags:        map[string]string{"env": "prod"},
		Status:      interfaces.InfrastructureStatusActive,
		Resources: []interfaces.Resource{
			{
				ID:          "res-1",
				ProviderID:  "do-111",
				Type:        interfaces.ResourceTypeDroplet,
				Name:        "web-1",
				Spec:        map[string]interface{}{"size": "s-1vcpu-1gb"},
				Status:      interfaces.ResourceStatusActive,
				MonthlyCost: decimal.RequireFromString("7.20"),
			},
		},
		EstimatedMonthlyCost: decimal.RequireFromString("7.20"),
		CreatedAt:            createdAt,
		UpdatedAt:            createdAt,
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	t.Parallel()

	store := NewStore()
	original := newTestInfra("infra-1", "ws-1", time.Now())
	require.NoError(t, store.PutInfrastructure(original))

	// Mutating the caller's record after Put must not affect the store.
	original.Name = "mutated"
	original.Tags["env"] = "mutated"
	original.Resources[0].Spec["size"] = "mutated"

	got, err := store.GetInfrastructure("infra-1")
	require.NoError(t, err)
	assert.Equal(t, "web-stack", got.Name)
	assert.Equal(t, "prod", got.Tags["env"])
	assert.Equal(t, "s-1vcpu-1gb", got.Resources[0].Spec["size"])

	// Mutating a read result must not affect subsequent reads.
	got.Status = interfaces.InfrastructureStatusError
	got.Resources[0].ProviderID = "mutated"

	again, err := store.GetInfrastructure("infra-1")
	require.NoError(t, err)
	assert.Equal(t, interfaces.InfrastructureStatusActive, again.Status)
	assert.Equal(t, "do-111", again.Resources[0].ProviderID)
}

func TestStoreGetMissing(t *testing.T) {
	t.Parallel()

	store := NewStore()

	_, err := store.GetInfrastructure("infra-missing")
	assert.ErrorIs(t, err, interfaces.ErrInfrastructureNotFound)

	_, err = store.GetOperation("op-missing")
	assert.ErrorIs(t, err, interfaces.ErrOperationNotFound)
}

func TestStoreRejectsTerminalOperationOverwrite(t *testing.T) {
	t.Parallel()

	store := NewStore()
	op := operation.New("infra-1", interfaces.OperationTypeCreate, 1)
	require.NoError(t, operation.Begin(op))
	require.NoError(t, operation.Complete(op, decimal.Zero))
	require.NoError(t, store.PutOperation(op))

	// Any further write against the terminal record is refused.
	tampered := *op
	tampered.ErrorMessage = "rewritten history"
	err := store.PutOperation(&tampered)
	require.Error(t, err)

	got, err := store.GetOperation(op.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ErrorMessage)
	assert.Equal(t, interfaces.OperationStatusCompleted, got.Status)
}

func TestListInfrastructureOrdersByCreatedAtDesc(t *testing.T) {
	t.Parallel()

	store := NewStore()
	base := time.Now()
	require.NoError(t, store.PutInfrastructure(newTestInfra("infra-old", "ws-1", base.Add(-2*time.Hour))))
	require.NoError(t, store.PutInfrastructure(newTestInfra("infra-new", "ws-1", base)))
	require.NoError(t, store.PutInfrastructure(newTestInfra("infra-mid", "ws-1", base.Add(-time.Hour))))
	require.NoError(t, store.PutInfrastructure(newTestInfra("infra-other", "ws-2", base)))

	got, err := store.ListInfrastructure("ws-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "infra-new", got[0].ID)
	assert.Equal(t, "infra-mid", got[1].ID)
	assert.Equal(t, "infra-old", got[2].ID)
}

func TestListOperationsOrdersByStartedAtDesc(t *testing.T) {
	t.Parallel()

	store := NewStore()
	base := time.Now()

	older := operation.New("infra-1", interfaces.OperationTypeCreate, 1)
	older.StartedAt = base.Add(-time.Minute)
	newer := operation.New("infra-1", interfaces.OperationTypeUpdate, 1)
	newer.StartedAt = base
	foreign := operation.New("infra-2", interfaces.OperationTypeDestroy, 1)
	foreign.StartedAt = base

	require.NoError(t, store.PutOperation(older))
	require.NoError(t, store.PutOperation(newer))
	require.NoError(t, store.PutOperation(foreign))

	got, err := store.ListOperations("infra-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)
}
