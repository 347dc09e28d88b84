package operation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overcast-io/overcast/internal/interfaces"
)

func TestNewOperationStartsPending(t *testing.T) {
	t.Parallel()

	op := New("infra-1", interfaces.OperationTypeCreate, 3)

	assert.NotEmpty(t, op.ID)
	assert.Equal(t, "infra-1", op.InfrastructureID)
	assert.Equal(t, interfaces.OperationStatusPending, op.Status)
	assert.Equal(t, 3, op.TotalSteps)
	assert.Zero(t, op.CompletedSteps)
	assert.False(t, op.StartedAt.IsZero(), "StartedAt is set at creation so listings can order by it")
	assert.Nil(t, op.CompletedAt)
}

func TestFullLifecycle(t *testing.T) {
	t.Parallel()

	op := New("infra-1", interfaces.OperationTypeCreate, 2)

	require.NoError(t, Begin(op))
	assert.Equal(t, interfaces.OperationStatusInProgress, op.Status)

	require.NoError(t, Step(op, "Creating droplet web-1"))
	assert.Equal(t, "Creating droplet web-1", op.CurrentStep)
	require.NoError(t, CompleteStep(op))
	require.NoError(t, CompleteStep(op))

	cost := decimal.RequireFromString("24.00")
	require.NoError(t, Complete(op, cost))
	assert.Equal(t, interfaces.OperationStatusCompleted, op.Status)
	assert.Empty(t, op.CurrentStep)
	assert.True(t, op.CostChange.Equal(cost))
	require.NotNil(t, op.CompletedAt)
}

func TestTerminalOperationRejectsAllMutation(t *testing.T) {
	t.Parallel()

	op := New("infra-1", interfaces.OperationTypeDestroy, 1)
	require.NoError(t, Begin(op))
	require.NoError(t, Fail(op, "provider rejected delete"))

	completedAt := *op.CompletedAt

	assert.ErrorIs(t, Begin(op), ErrTerminal)
	assert.ErrorIs(t, Step(op, "anything"), ErrTerminal)
	assert.ErrorIs(t, CompleteStep(op), ErrTerminal)
	assert.ErrorIs(t, Complete(op, decimal.Zero), ErrTerminal)
	assert.ErrorIs(t, Fail(op, "second failure"), ErrTerminal)

	// Nothing moved.
	assert.Equal(t, interfaces.OperationStatusFailed, op.Status)
	assert.Equal(t, "provider rejected delete", op.ErrorMessage)
	assert.Equal(t, completedAt, *op.CompletedAt, "CompletedAt is set exactly once")
}

func TestCompleteStepNeverExceedsTotal(t *testing.T) {
	t.Parallel()

	op := New("infra-1", interfaces.OperationTypeCreate, 1)
	require.NoError(t, Begin(op))
	require.NoError(t, CompleteStep(op))

	err := CompleteStep(op)
	assert.ErrorIs(t, err, ErrStepOverflow)
	assert.Equal(t, 1, op.CompletedSteps)
}

func TestBeginRequiresPending(t *testing.T) {
	t.Parallel()

	op := New("infra-1", interfaces.OperationTypeUpdate, 1)
	require.NoError(t, Begin(op))

	assert.ErrorIs(t, Begin(op), ErrInvalidTransition)
}

func TestFailAlwaysCarriesMessage(t *testing.T) {
	t.Parallel()

	op := New("infra-1", interfaces.OperationTypeCreate, 1)
	require.NoError(t, Begin(op))
	require.NoError(t, Fail(op, ""))

	assert.NotEmpty(t, op.ErrorMessage)
}
