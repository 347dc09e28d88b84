// Package operation implements the state machine of a single deployment
// operation: pending -> in_progress -> {completed, failed}. Every mutation of
// an Operation record goes through this package so terminal immutability and
// step monotonicity hold everywhere.
package operation

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/overcast-io/overcast/internal/interfaces"
)

var (
	// ErrTerminal is returned when a mutation targets an operation that has
	// already completed or failed
	ErrTerminal = errors.New("operation is terminal")

	// ErrStepOverflow is returned when a step completion would exceed the
	// operation's declared total
	ErrStepOverflow = errors.New("completed steps would exceed total steps")

	// ErrInvalidTransition is returned for status transitions outside the
	// pending -> in_progress -> terminal machine
	ErrInvalidTransition = errors.New("invalid operation status transition")
)

// New builds a pending operation record. StartedAt is set here, exactly once;
// listings order by it, so it must exist from the moment the record does.
func New(infrastructureID string, opType interfaces.OperationType, totalSteps int) *interfaces.Operation {
	return &interfaces.Operation{
		ID:               interfaces.NewID("op"),
		InfrastructureID: infrastructureID,
		Type:             opType,
		Status:           interfaces.OperationStatusPending,
		TotalSteps:       totalSteps,
		CostChange:       decimal.Zero,
		StartedAt:        time.Now(),
	}
}

// Begin moves a pending operation to in_progress
func Begin(op *interfaces.Operation) error {
	if op.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, op.ID)
	}
	if op.Status != interfaces.OperationStatusPending {
		return fmt.Errorf("%w: %s -> in_progress", ErrInvalidTransition, op.Status)
	}
	op.Status = interfaces.OperationStatusInProgress
	return nil
}

// Step records the step the operation is currently working on
func Step(op *interfaces.Operation, description string) error {
	if op.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, op.ID)
	}
	op.CurrentStep = description
	return nil
}

// CompleteStep advances the completed-step counter by one. The counter only
// moves forward and never passes TotalSteps.
func CompleteStep(op *interfaces.Operation) error {
	if op.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, op.ID)
	}
	if op.CompletedSteps+1 > op.TotalSteps {
		return fmt.Errorf("%w: %d/%d", ErrStepOverflow, op.CompletedSteps+1, op.TotalSteps)
	}
	op.CompletedSteps++
	return nil
}

// Complete moves the operation to its successful terminal state and records
// the net monthly cost change it produced. CompletedAt is set exactly once.
func Complete(op *interfaces.Operation, costChange decimal.Decimal) error {
	if op.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, op.ID)
	}
	now := time.Now()
	op.Status = interfaces.OperationStatusCompleted
	op.CurrentStep = ""
	op.CostChange = costChange
	op.CompletedAt = &now
	return nil
}

// Fail moves the operation to its failed terminal state. A failed operation
// always carries a non-empty error message.
func Fail(op *interfaces.Operation, message string) error {
	if op.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, op.ID)
	}
	if message == "" {
		message = "operation failed"
	}
	now := time.Now()
	op.Status = interfaces.OperationStatusFailed
	op.ErrorMessage = message
	op.CompletedAt = &now
	return nil
}
