package insights

import (
	"sort"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
)

// CategoryRevenue totals each product group's revenue across all customers.
// Groups without positive revenue are dropped; the rest are sorted by revenue
// descending and cut to limit (no cut when limit <= 0).
func CategoryRevenue(customers []domain.Customer, limit int) []domain.CategoryRevenue {
	out := make([]domain.CategoryRevenue, 0)
	for _, group := range DiscoverProductGroups(customers) {
		var revenue float64
		var buyers int
		for i := range customers {
			if v, ok := customers[i].ProductRevenue.Positive(group); ok {
				revenue += v
				buyers++
			}
		}
		if revenue <= 0 {
			continue
		}
		out = append(out, domain.CategoryRevenue{
			Category:   group,
			Revenue:    round(revenue, 2),
			Customers:  buyers,
			AvgRevenue: round(mean(revenue, buyers), 2),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Revenue > out[j].Revenue })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TopCustomers ranks customers by metric descending and keeps the first
// limit. Unknown metrics fall back to CLTV.
func TopCustomers(customers []domain.Customer, metric string, limit int) []domain.TopCustomer {
	value := func(c *domain.Customer) float64 { return c.CLTV }
	switch metric {
	case domain.TopMetricRevenue:
		value = func(c *domain.Customer) float64 { return c.OverallRevenue }
	case domain.TopMetricVisits:
		value = func(c *domain.Customer) float64 { return c.OverallVisits }
	default:
		metric = domain.TopMetricCLTV
	}

	ranked := all(customers)
	sort.SliceStable(ranked, func(i, j int) bool { return value(ranked[i]) > value(ranked[j]) })
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]domain.TopCustomer, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, domain.TopCustomer{
			CustomerID:       c.CustomerID,
			Metric:           metric,
			Value:            value(c),
			Segment:          c.Segment,
			ChurnRisk:        c.ChurnRisk,
			ChurnProbability: c.ChurnProbability,
		})
	}
	return out
}
