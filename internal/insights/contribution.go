package insights

import (
	"github.com/boddenberg/customer-insights-bfa/internal/domain"
)

// cohort is a named customer subset a contribution analysis is run against.
type cohort struct {
	label string
	match func(*domain.Customer) bool
}

// AnalyzeSingle ranks each product group's share of revenue within every
// category of dim. Customers whose dim value is not in categories are ignored.
func AnalyzeSingle(customers []domain.Customer, dim domain.Dimension, categories []string) []domain.ContributionRow {
	cohorts := make([]cohort, 0, len(categories))
	for _, category := range categories {
		category := category // per-iteration copy for go < 1.22 loop semantics
		cohorts = append(cohorts, cohort{
			label: category,
			match: func(c *domain.Customer) bool { return dim.ValueOf(c) == category },
		})
	}
	return contributions(customers, cohorts)
}

// AnalyzeMulti ranks each product group's share of revenue within every
// churn × segment × CLTV combination of the resolved selections.
func AnalyzeMulti(customers []domain.Customer, churn []domain.ChurnRisk, segments []domain.Segment, cltv []domain.CLTVSegment) []domain.ContributionRow {
	combos := Combinations(churn, segments, cltv)
	cohorts := make([]cohort, 0, len(combos))
	for _, combo := range combos {
		cohorts = append(cohorts, cohort{label: combo.Label(), match: combo.Matches})
	}
	return contributions(customers, cohorts)
}

func contributions(customers []domain.Customer, cohorts []cohort) []domain.ContributionRow {
	if len(customers) == 0 || len(cohorts) == 0 {
		return []domain.ContributionRow{}
	}

	everyone := all(customers)
	groups := DiscoverProductGroups(customers)

	rows := make([]domain.ContributionRow, 0)
	for _, co := range cohorts {
		members := where(everyone, co.match)
		if len(members) == 0 {
			continue
		}

		var total float64
		for _, c := range members {
			total += c.OverallRevenue
		}

		for _, group := range groups {
			var revenue float64
			var count int
			for _, c := range members {
				if v, ok := c.ProductRevenue.Positive(group); ok {
					revenue += v
					count++
				}
			}
			if revenue <= 0 {
				continue
			}
			rows = append(rows, domain.ContributionRow{
				ProductGroup:  group,
				CategoryName:  co.label,
				Revenue:       revenue,
				CustomerCount: count,
				Percentage:    Percentage(revenue, total),
			})
		}
	}

	return TopBottom(rows, rankLimit, func(r domain.ContributionRow) float64 { return r.Percentage })
}
