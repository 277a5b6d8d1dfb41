package insights

import (
	"github.com/boddenberg/customer-insights-bfa/internal/domain"
)

// CompareChurnGroups partitions customers into retained (churn=0) and churned
// (churn=1) and summarises each side. Customers without an exact 0 or 1
// flag belong to neither.
func CompareChurnGroups(customers []domain.Customer) domain.ChurnComparison {
	everyone := all(customers)
	return domain.ChurnComparison{
		Retained: groupStats(where(everyone, (*domain.Customer).Retained)),
		Churned:  groupStats(where(everyone, (*domain.Customer).Churned)),
	}
}

func groupStats(members []*domain.Customer) domain.GroupStats {
	var prob, revenue, cltv float64
	for _, c := range members {
		prob += c.ChurnProbability
		revenue += c.OverallRevenue
		cltv += c.CLTV
	}

	top, bottom := SplitTopBottom(groupShares(members, revenue))
	return domain.GroupStats{
		Count:               len(members),
		AvgChurnProbability: mean(prob, len(members)),
		AvgRevenue:          mean(revenue, len(members)),
		AvgCLTV:             mean(cltv, len(members)),
		TopGroups:           top,
		BottomGroups:        bottom,
	}
}

// groupShares ranks each product group's positive revenue within members as a
// share of total.
func groupShares(members []*domain.Customer, total float64) []domain.ContributionEntry {
	entries := make([]domain.ContributionEntry, 0)
	for _, group := range discover(members, revenueOf) {
		var revenue float64
		for _, c := range members {
			if v, ok := c.ProductRevenue.Value(group); ok {
				revenue += v
			}
		}
		if revenue <= 0 {
			continue
		}
		entries = append(entries, domain.ContributionEntry{
			ProductGroup: group,
			Revenue:      revenue,
			Percentage:   Percentage(revenue, total),
		})
	}
	return TopBottom(entries, rankLimit, func(e domain.ContributionEntry) float64 { return e.Percentage })
}
