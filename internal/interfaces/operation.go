package interfaces

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationType identifies what an operation does to its infrastructure
type OperationType string

// OperationType constants represent the three operation kinds
const (
	OperationTypeCreate  OperationType = "create"
	OperationTypeUpdate  OperationType = "update"
	OperationTypeDestroy OperationType = "destroy"
)

// OperationStatus represents the progress status of an operation
type OperationStatus string

// OperationStatus constants represent the operation state machine:
// pending -> in_progress -> {completed, failed}
const (
	OperationStatusPending    OperationStatus = "pending"
	OperationStatusInProgress OperationStatus = "in_progress"
	OperationStatusCompleted  OperationStatus = "completed"
	OperationStatusFailed     OperationStatus = "failed"
)

// Terminal reports whether the status is a terminal state
func (s OperationStatus) Terminal() bool {
	return s == OperationStatusCompleted || s == OperationStatusFailed
}

// Operation is the audit and progress record for exactly one create, update,
// or destroy action against exactly one Infrastructure. Once the status is
// terminal, no field may change.
type Operation struct {
	ID               string        `json:"id"`
	InfrastructureID string        `json:"infrastructure_id"`
	Type             OperationType `json:"operation_type"`

	Status         OperationStatus `json:"status"`
	TotalSteps     int             `json:"total_steps"`
	CompletedSteps int             `json:"completed_steps"`
	CurrentStep    string          `json:"current_step,omitempty"`

	// Result lists are disjoint: a resource id appears in at most one,
	// reflecting what this specific operation accomplished.
	CreatedResources []string `json:"created_resources,omitempty"`
	UpdatedResources []string `json:"updated_resources,omitempty"`
	DeletedResources []string `json:"deleted_resources,omitempty"`

	ErrorMessage string          `json:"error_message,omitempty"`
	CostChange   decimal.Decimal `json:"cost_change"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
