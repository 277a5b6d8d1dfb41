package insights

import (
	"sort"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
)

// BrandContributions reports every product group's share of the customers
// matching filter, sorted by revenue share descending. Figures are rounded to
// two decimals.
//
// For a filter fixing one category, Revenue and TotalRevenue are the
// numerator and denominator AnalyzeSingle uses for that category.
func BrandContributions(customers []domain.Customer, filter domain.BrandFilter) domain.BrandContributionsReport {
	members := where(all(customers), filter.Matches)

	var totalRevenue float64
	for _, c := range members {
		totalRevenue += c.OverallRevenue
	}

	contributions := make([]domain.BrandContribution, 0)
	for _, group := range DiscoverProductGroups(customers) {
		var revenue, visits, units float64
		var buyers int
		for _, c := range members {
			if v, ok := c.ProductRevenue.Positive(group); ok {
				revenue += v
			}
			if v, ok := c.ProductVisits.Positive(group); ok {
				visits += v
				buyers++
			}
			if v, ok := c.ProductUnits.Value(group); ok {
				units += v
			}
		}

		contributions = append(contributions, domain.BrandContribution{
			Category:              group,
			Revenue:               round(revenue, 2),
			RevenuePercentage:     round(Percentage(revenue, totalRevenue), 2),
			Customers:             buyers,
			CustomerPercentage:    round(Percentage(float64(buyers), float64(len(members))), 2),
			Visits:                int(visits),
			Units:                 int(units),
			AvgRevenuePerCustomer: round(mean(revenue, buyers), 2),
		})
	}

	sort.SliceStable(contributions, func(i, j int) bool {
		return contributions[i].RevenuePercentage > contributions[j].RevenuePercentage
	})

	return domain.BrandContributionsReport{
		Contributions:  contributions,
		TotalRevenue:   round(totalRevenue, 2),
		TotalCustomers: len(members),
		FiltersApplied: filter,
	}
}
