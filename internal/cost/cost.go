// Package cost computes infrastructure cost aggregates from per-resource
// provider estimates. All arithmetic uses exact decimals; nothing here ever
// rounds or goes through binary floats.
package cost

import (
	"github.com/shopspring/decimal"

	"github.com/overcast-io/overcast/internal/interfaces"
)

// Monthly sums the monthly cost of every resource that still exists on the
// provider. Deleted resources contribute nothing.
func Monthly(resources []interfaces.Resource) decimal.Decimal {
	total := decimal.Zero
	for i := range resources {
		if resources[i].Status == interfaces.ResourceStatusDeleted {
			continue
		}
		total = total.Add(resources[i].MonthlyCost)
	}
	return total
}

// Hourly sums the hourly cost of every non-deleted resource
func Hourly(resources []interfaces.Resource) decimal.Decimal {
	total := decimal.Zero
	for i := range resources {
		if resources[i].Status == interfaces.ResourceStatusDeleted {
			continue
		}
		total = total.Add(resources[i].HourlyCost)
	}
	return total
}

// Recalculate refreshes the infrastructure's estimated monthly cost from its
// current resource list. It returns the new estimate for convenience.
func Recalculate(infra *interfaces.Infrastructure) decimal.Decimal {
	infra.EstimatedMonthlyCost = Monthly(infra.Resources)
	return infra.EstimatedMonthlyCost
}

// Delta returns the monthly cost difference between two resource lists,
// after minus before.
func Delta(before, after []interfaces.Resource) decimal.Decimal {
	return Monthly(after).Sub(Monthly(before))
}
