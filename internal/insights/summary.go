package insights

import (
	"sort"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
)

// Summarize computes the dashboard headline figures, rounded to two decimals.
func Summarize(customers []domain.Customer) domain.Summary {
	var prob, revenue, cltv float64
	var highRisk int
	for i := range customers {
		c := &customers[i]
		prob += c.ChurnProbability
		revenue += c.OverallRevenue
		cltv += c.CLTV
		if c.ChurnRisk == domain.ChurnRiskHigh {
			highRisk++
		}
	}

	return domain.Summary{
		TotalCustomers:    len(customers),
		AvgChurnRate:      round(mean(prob, len(customers))*100, 2),
		HighRiskCustomers: highRisk,
		TotalRevenue:      round(revenue, 2),
		AvgCLTV:           round(mean(cltv, len(customers)), 2),
	}
}

// BuildFilterOptions lists the product groups and the distinct category
// values present in the dataset, each sorted.
func BuildFilterOptions(customers []domain.Customer) domain.FilterOptions {
	segments := make(map[string]struct{})
	risks := make(map[string]struct{})
	cltv := make(map[string]struct{})
	for i := range customers {
		c := &customers[i]
		addValue(segments, string(c.Segment))
		addValue(risks, string(c.ChurnRisk))
		addValue(cltv, string(c.CLTVSegment))
	}

	return domain.FilterOptions{
		ProductCategories: DiscoverProductGroups(customers),
		Segments:          sortedKeys(segments),
		ChurnRisks:        sortedKeys(risks),
		CLTVSegments:      sortedKeys(cltv),
	}
}

func addValue(set map[string]struct{}, v string) {
	if v != "" {
		set[v] = struct{}{}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
