// Package insights is the customer aggregation engine: pure functions that
// turn a customer list into the contribution rankings, cohort buckets and
// churn comparisons shown on the dashboard.
//
// Nothing here performs I/O or keeps state. Every function tolerates an
// empty input and returns an empty (non-nil) result for it.
package insights

import (
	"sort"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
)

func revenueOf(c *domain.Customer) domain.ProductValues { return c.ProductRevenue }
func visitsOf(c *domain.Customer) domain.ProductValues  { return c.ProductVisits }

// DiscoverProductGroups returns the product groups that carry a revenue field
// on at least one customer, sorted lexicographically.
func DiscoverProductGroups(customers []domain.Customer) []string {
	return discover(all(customers), revenueOf)
}

func discover(members []*domain.Customer, values func(*domain.Customer) domain.ProductValues) []string {
	seen := make(map[string]struct{})
	for _, c := range members {
		for group := range values(c) {
			seen[group] = struct{}{}
		}
	}

	groups := make([]string, 0, len(seen))
	for group := range seen {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	return groups
}

// all returns pointers to every customer so cohorts can share records
// without copying them.
func all(customers []domain.Customer) []*domain.Customer {
	members := make([]*domain.Customer, len(customers))
	for i := range customers {
		members[i] = &customers[i]
	}
	return members
}

// where returns the customers that satisfy match.
func where(members []*domain.Customer, match func(*domain.Customer) bool) []*domain.Customer {
	out := make([]*domain.Customer, 0)
	for _, c := range members {
		if match(c) {
			out = append(out, c)
		}
	}
	return out
}
