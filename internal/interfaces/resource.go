package interfaces

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResourceType is the closed enumeration of provisionable resource kinds
type ResourceType string

// ResourceType constants enumerate every resource kind the orchestrator accepts
const (
	ResourceTypeDroplet      ResourceType = "droplet"
	ResourceTypeVolume       ResourceType = "volume"
	ResourceTypeDatabase     ResourceType = "database"
	ResourceTypeLoadBalancer ResourceType = "load_balancer"
	ResourceTypeFirewall     ResourceType = "firewall"
	ResourceTypeVPC          ResourceType = "vpc"
	ResourceTypeDomain       ResourceType = "domain"
	ResourceTypeCDN          ResourceType = "cdn"
	ResourceTypeCluster      ResourceType = "cluster"
	ResourceTypeRegistry     ResourceType = "registry"
)

// KnownResourceTypes lists every valid resource type in a stable order
var KnownResourceTypes = []ResourceType{
	ResourceTypeDroplet,
	ResourceTypeVolume,
	ResourceTypeDatabase,
	ResourceTypeLoadBalancer,
	ResourceTypeFirewall,
	ResourceTypeVPC,
	ResourceTypeDomain,
	ResourceTypeCDN,
	ResourceTypeCluster,
	ResourceTypeRegistry,
}

// ValidResourceType reports whether t is one of the known resource types
func ValidResourceType(t ResourceType) bool {
	for _, known := range KnownResourceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ResourceStatus represents the lifecycle status of a single resource
type ResourceStatus string

// ResourceStatus constants represent the various states of a resource
const (
	ResourceStatusPending  ResourceStatus = "pending"
	ResourceStatusCreating ResourceStatus = "creating"
	ResourceStatusActive   ResourceStatus = "active"
	ResourceStatusUpdating ResourceStatus = "updating"
	ResourceStatusError    ResourceStatus = "error"
	ResourceStatusDeleting ResourceStatus = "deleting"
	ResourceStatusDeleted  ResourceStatus = "deleted"
)

// Resource is one provider-side entity belonging to an Infrastructure.
// ProviderID is set if and only if the provider confirmed creation; a
// resource without a ProviderID must never be passed to a delete call.
type Resource struct {
	ID         string `json:"id"`
	ProviderID string `json:"provider_id,omitempty"`

	Type ResourceType           `json:"type"`
	Name string                 `json:"name"`
	Spec map[string]interface{} `json:"spec,omitempty"`

	Status ResourceStatus `json:"status"`

	HourlyCost  decimal.Decimal `json:"hourly_cost"`
	MonthlyCost decimal.Decimal `json:"monthly_cost"`

	// Dependency links are stored for callers but not consulted for
	// ordering; list position is the only ordering input.
	DependsOn  []string `json:"depends_on,omitempty"`
	Dependents []string `json:"dependents,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResourceRequest describes one resource a caller wants created
type ResourceRequest struct {
	Type ResourceType           `json:"type"`
	Name string                 `json:"name"`
	Spec map[string]interface{} `json:"spec,omitempty"`

	DependsOn []string `json:"depends_on,omitempty"`
}
