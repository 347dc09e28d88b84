package interfaces

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrResourceNotFound is returned by provider inspection calls when the
// provider-side entity does not exist. Providers must return it (wrapped or
// bare) so callers can distinguish absence from call failure.
var ErrResourceNotFound = errors.New("resource not found")

// CreatedResource is what a provider reports after confirming a create call
type CreatedResource struct {
	ProviderID  string
	HourlyCost  decimal.Decimal
	MonthlyCost decimal.Decimal
	Attributes  map[string]interface{}
}

// CostEstimate is a provider's cost projection for a single resource spec
type CostEstimate struct {
	Hourly  decimal.Decimal
	Monthly decimal.Decimal
}

// CloudProvider is the pluggable capability object that performs actual
// cloud-API calls for one vendor. The orchestrator never sees provider wire
// formats; specs cross this boundary as opaque maps.
type CloudProvider interface {
	CreateResource(ctx context.Context, resourceType ResourceType, spec map[string]interface{}) (*CreatedResource, error)
	UpdateResource(ctx context.Context, providerID string, resourceType ResourceType, spec map[string]interface{}) error
	DeleteResource(ctx context.Context, providerID string) error
	GetResource(ctx context.Context, providerID string) (map[string]interface{}, error)
	ListResources(ctx context.Context, resourceType ResourceType) ([]map[string]interface{}, error)
	EstimateCost(ctx context.Context, resourceType ResourceType, spec map[string]interface{}) (*CostEstimate, error)
	Authenticate(ctx context.Context) error
}
