package insights

import (
	"slices"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
)

// selectGroupMessage is returned with zeroed metrics when no group is given.
const selectGroupMessage = "Please select a product group to view metrics"

// ProductGroupMetrics describes the customers with at least one visit to
// group. A group no customer carries visits for is not found.
func ProductGroupMetrics(customers []domain.Customer, group string) (domain.ProductGroupMetrics, error) {
	if group == "" {
		return domain.ProductGroupMetrics{Message: selectGroupMessage}, nil
	}

	everyone := all(customers)
	if !slices.Contains(discover(everyone, visitsOf), group) {
		return domain.ProductGroupMetrics{}, &domain.ErrNotFound{Resource: "product group", ID: group}
	}

	visitors := where(everyone, func(c *domain.Customer) bool {
		_, ok := c.ProductVisits.Positive(group)
		return ok
	})

	m := domain.ProductGroupMetrics{Group: group, CustomerCount: len(visitors)}
	var visits, units, recency, revenue float64
	var recencyCount int
	for _, c := range visitors {
		v, _ := c.ProductVisits.Value(group)
		visits += v
		r, _ := c.ProductRevenue.Value(group)
		revenue += r
		u, _ := c.ProductUnits.Value(group)
		units += u
		if rec, ok := c.ProductRecency.Value(group); ok {
			recency += rec
			recencyCount++
		}
		m.TotalCLTV += c.CLTV

		switch c.CLTVSegment {
		case domain.CLTVHigh:
			m.HighCLTVCount++
		case domain.CLTVMedium:
			m.MediumCLTVCount++
		case domain.CLTVLow:
			m.LowCLTVCount++
		}
	}

	m.TotalVisits = int(visits)
	m.TotalUnits = int(units)
	m.TotalRevenue = round(revenue, 2)
	m.AvgRecency = round(mean(recency, recencyCount), 1)
	m.AvgCLTV = round(mean(m.TotalCLTV, len(visitors)), 2)
	m.TotalCLTV = round(m.TotalCLTV, 2)
	return m, nil
}
