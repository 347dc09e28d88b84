// Package interfaces defines the shared contracts and core types of the orchestrator.
package interfaces

import (
	"time"

	"github.com/shopspring/decimal"
)

// InfrastructureStatus represents the lifecycle status of an infrastructure aggregate
type InfrastructureStatus string

// InfrastructureStatus constants represent the various states of an infrastructure
const (
	InfrastructureStatusPending      InfrastructureStatus = "pending"
	InfrastructureStatusProvisioning InfrastructureStatus = "provisioning"
	InfrastructureStatusActive       InfrastructureStatus = "active"
	InfrastructureStatusUpdating     InfrastructureStatus = "updating"
	InfrastructureStatusDestroying   InfrastructureStatus = "destroying"
	InfrastructureStatusDestroyed    InfrastructureStatus = "destroyed"
	InfrastructureStatusError        InfrastructureStatus = "error"
)

// InfrastructureConfig carries nested configuration blocks. The orchestrator
// treats every block as opaque and passes it through to callers unchanged.
type InfrastructureConfig struct {
	AutoScaling map[string]interface{} `json:"auto_scaling,omitempty"`
	Backup      map[string]interface{} `json:"backup,omitempty"`
	Security    map[string]interface{} `json:"security,omitempty"`
	Networking  map[string]interface{} `json:"networking,omitempty"`
	Monitoring  map[string]interface{} `json:"monitoring,omitempty"`
	CostControl map[string]interface{} `json:"cost_control,omitempty"`
}

// Infrastructure is the aggregate root for one deployed topology.
// The resource list is ordered: insertion order is creation order and is
// authoritative for teardown ordering.
type Infrastructure struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`

	Provider string               `json:"provider"`
	Region   string               `json:"region"`
	Tags     map[string]string    `json:"tags,omitempty"`
	Config   InfrastructureConfig `json:"config"`

	Resources []Resource           `json:"resources"`
	Status    InfrastructureStatus `json:"status"`

	EstimatedMonthlyCost decimal.Decimal  `json:"estimated_monthly_cost"`
	ActualCost           *decimal.Decimal `json:"actual_cost,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeployedAt  *time.Time `json:"deployed_at,omitempty"`
	DestroyedAt *time.Time `json:"destroyed_at,omitempty"`
}

// FindResource returns a pointer to the resource with the given internal ID,
// or nil if the infrastructure has no such resource.
func (inf *Infrastructure) FindResource(resourceID string) *Resource {
	for i := range inf.Resources {
		if inf.Resources[i].ID == resourceID {
			return &inf.Resources[i]
		}
	}
	return nil
}
