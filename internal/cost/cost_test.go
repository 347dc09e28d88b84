package cost

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/overcast-io/overcast/internal/interfaces"
)

func res(status interfaces.ResourceStatus, hourly, monthly string) interfaces.Resource {
	return interfaces.Resource{
		ID:          interfaces.NewID("res"),
		Type:        interfaces.ResourceTypeDroplet,
		Status:      status,
		HourlyCost:  decimal.RequireFromString(hourly),
		MonthlyCost: decimal.RequireFromString(monthly),
	}
}

func TestMonthlySkipsDeletedResources(t *testing.T) {
	t.Parallel()

	resources := []interfaces.Resource{
		res(interfaces.ResourceStatusActive, "0.012", "8.00"),
		res(interfaces.ResourceStatusDeleted, "0.5", "360.00"),
		res(interfaces.ResourceStatusActive, "0.036", "24.00"),
	}

	assert.True(t, Monthly(resources).Equal(decimal.RequireFromString("32.00")),
		"deleted resources must not count toward the total")
	assert.True(t, Hourly(resources).Equal(decimal.RequireFromString("0.048")))
}

func TestMonthlyEmptyListIsZero(t *testing.T) {
	t.Parallel()

	assert.True(t, Monthly(nil).IsZero())
	assert.True(t, Hourly(nil).IsZero())
}

func TestMonthlyExactDecimalAccumulation(t *testing.T) {
	t.Parallel()

	// 0.1 added ten times is exactly 1 in decimal arithmetic; the same sum
	// drifts under binary floats.
	resources := make([]interfaces.Resource, 10)
	for i := range resources {
		resources[i] = res(interfaces.ResourceStatusActive, "0.1", "0.1")
	}

	assert.True(t, Monthly(resources).Equal(decimal.NewFromInt(1)))
}

func TestRecalculateUpdatesEstimate(t *testing.T) {
	t.Parallel()

	infra := &interfaces.Infrastructure{
		EstimatedMonthlyCost: decimal.RequireFromString("999"),
		Resources: []interfaces.Resource{
			res(interfaces.ResourceStatusActive, "0.01", "7.20"),
			res(interfaces.ResourceStatusError, "0.02", "14.40"),
		},
	}

	got := Recalculate(infra)
	assert.True(t, got.Equal(decimal.RequireFromString("21.60")),
		"error-status resources still exist on the provider and keep costing")
	assert.True(t, infra.EstimatedMonthlyCost.Equal(got))
}

func TestDelta(t *testing.T) {
	t.Parallel()

	before := []interfaces.Resource{res(interfaces.ResourceStatusActive, "0.01", "10.00")}
	after := []interfaces.Resource{
		res(interfaces.ResourceStatusActive, "0.01", "10.00"),
		res(interfaces.ResourceStatusActive, "0.02", "15.50"),
	}

	assert.True(t, Delta(before, after).Equal(decimal.RequireFromString("15.50")))
	assert.True(t, Delta(after, before).Equal(decimal.RequireFromString("-15.50")))
}
