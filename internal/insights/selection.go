package insights

import (
	"fmt"
	"slices"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
)

// ResolveSingle turns a single-filter selection into the categories to
// analyse: "all" is the whole domain, "none" is empty, and a specific value is
// a singleton. Values outside the dimension's domain are rejected.
func ResolveSingle(dim domain.Dimension, selected string) ([]string, error) {
	switch selected {
	case domain.SelectAll:
		return dim.Values(), nil
	case domain.SelectNone:
		return []string{}, nil
	}
	if !dim.Contains(selected) {
		return nil, &domain.ErrValidation{
			Field:   "filter",
			Message: fmt.Sprintf("%q is not a %s value", selected, dim.Field()),
		}
	}
	return []string{selected}, nil
}

// ResolveSelection turns a multi-select set into category values of one
// dimension. "none" wins over everything (empty result), then "all" yields the
// whole domain; otherwise only legal values are kept, first occurrence order.
func ResolveSelection[T ~string](values []T, selection []string) []T {
	if slices.Contains(selection, domain.SelectNone) {
		return []T{}
	}
	if slices.Contains(selection, domain.SelectAll) {
		return slices.Clone(values)
	}

	resolved := make([]T, 0, len(selection))
	for _, s := range selection {
		v := T(s)
		if !slices.Contains(values, v) || slices.Contains(resolved, v) {
			continue
		}
		resolved = append(resolved, v)
	}
	return resolved
}

// Combination is one (churn risk, segment, CLTV segment) cohort.
type Combination struct {
	ChurnRisk   domain.ChurnRisk
	Segment     domain.Segment
	CLTVSegment domain.CLTVSegment
}

// Label names the combination for display.
func (c Combination) Label() string {
	return fmt.Sprintf("%s churn + %s CLTV + %s", c.ChurnRisk, c.CLTVSegment, c.Segment)
}

// Matches reports whether the customer belongs to the combination.
func (c Combination) Matches(cu *domain.Customer) bool {
	return cu.ChurnRisk == c.ChurnRisk && cu.Segment == c.Segment && cu.CLTVSegment == c.CLTVSegment
}

// Combinations returns the cartesian product churn × segment × CLTV, churn
// varying slowest. Any empty input yields no combinations.
func Combinations(churn []domain.ChurnRisk, segments []domain.Segment, cltv []domain.CLTVSegment) []Combination {
	if len(churn) == 0 || len(segments) == 0 || len(cltv) == 0 {
		return []Combination{}
	}

	combos := make([]Combination, 0, len(churn)*len(segments)*len(cltv))
	for _, r := range churn {
		for _, s := range segments {
			for _, v := range cltv {
				combos = append(combos, Combination{ChurnRisk: r, Segment: s, CLTVSegment: v})
			}
		}
	}
	return combos
}
