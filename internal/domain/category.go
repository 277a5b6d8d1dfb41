package domain

import (
	"fmt"
	"slices"
)

// ============================================================
// Category domains
// ============================================================

// Selection tokens accepted next to (or instead of) specific category values.
const (
	SelectAll  = "all"
	SelectNone = "none"
)

// ChurnRisk is the bucketed churn likelihood of a customer.
type ChurnRisk string

const (
	ChurnRiskHigh   ChurnRisk = "high"
	ChurnRiskMedium ChurnRisk = "medium"
	ChurnRiskLow    ChurnRisk = "low"
)

// ChurnRisks lists every churn-risk level in display order.
var ChurnRisks = []ChurnRisk{ChurnRiskHigh, ChurnRiskMedium, ChurnRiskLow}

// Valid reports whether r belongs to the churn-risk domain.
func (r ChurnRisk) Valid() bool { return slices.Contains(ChurnRisks, r) }

// Segment is a named customer cohort.
type Segment string

const (
	SegmentAtRiskLowSpenders Segment = "At-Risk Low Spenders"
	SegmentHighRollers       Segment = "High Rollers"
	SegmentNewOrPassive      Segment = "New or Passive"
	SegmentValueLoyalists    Segment = "Value Loyalists"
)

// Segments lists every customer segment in display order.
var Segments = []Segment{
	SegmentAtRiskLowSpenders,
	SegmentHighRollers,
	SegmentNewOrPassive,
	SegmentValueLoyalists,
}

// Valid reports whether s belongs to the segment domain.
func (s Segment) Valid() bool { return slices.Contains(Segments, s) }

// CLTVSegment is the bucketed customer lifetime value.
type CLTVSegment string

const (
	CLTVHigh   CLTVSegment = "high"
	CLTVMedium CLTVSegment = "medium"
	CLTVLow    CLTVSegment = "low"
)

// CLTVSegments lists every CLTV bucket in display order.
var CLTVSegments = []CLTVSegment{CLTVHigh, CLTVMedium, CLTVLow}

// Valid reports whether s belongs to the CLTV-segment domain.
func (s CLTVSegment) Valid() bool { return slices.Contains(CLTVSegments, s) }

// ============================================================
// Dimensions
// ============================================================

// Dimension names the categorical field a single-filter analysis groups by.
type Dimension string

const (
	DimensionChurnRisk Dimension = "churn"
	DimensionSegment   Dimension = "segment"
	DimensionCLTV      Dimension = "cltv"
)

// Dimensions lists the supported dimensions.
var Dimensions = []Dimension{DimensionChurnRisk, DimensionSegment, DimensionCLTV}

// ParseDimension validates a dimension name coming from a caller.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(s)
	if !slices.Contains(Dimensions, d) {
		return "", &ErrValidation{Field: "dimension", Message: fmt.Sprintf("unknown dimension %q", s)}
	}
	return d, nil
}

// Field returns the customer field name the dimension reads.
func (d Dimension) Field() string {
	switch d {
	case DimensionChurnRisk:
		return "churn_risk"
	case DimensionSegment:
		return "segment"
	case DimensionCLTV:
		return "cltv_segment"
	}
	return ""
}

// Values returns the legal category values of the dimension in display order.
func (d Dimension) Values() []string {
	switch d {
	case DimensionChurnRisk:
		return toStrings(ChurnRisks)
	case DimensionSegment:
		return toStrings(Segments)
	case DimensionCLTV:
		return toStrings(CLTVSegments)
	}
	return nil
}

// Contains reports whether v is a legal value of the dimension.
func (d Dimension) Contains(v string) bool {
	return slices.Contains(d.Values(), v)
}

// ValueOf returns the customer's value for the dimension.
func (d Dimension) ValueOf(c *Customer) string {
	switch d {
	case DimensionChurnRisk:
		return string(c.ChurnRisk)
	case DimensionSegment:
		return string(c.Segment)
	case DimensionCLTV:
		return string(c.CLTVSegment)
	}
	return ""
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
