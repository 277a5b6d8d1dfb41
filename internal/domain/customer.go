package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// ============================================================
// Customer
// ============================================================

// Field name suffixes that carry per-product-group values.
const (
	RevenueSuffix = "_revenue"
	VisitsSuffix  = "_visits"
	UnitsSuffix   = "_units"
	RecencySuffix = "_recency"

	overallPrefix = "overall"
)

// ProductValues maps a product group to one numeric measure of a customer.
// A group that is present with a nil value had a non-numeric field.
type ProductValues map[string]*float64

// Value returns the numeric value for group, if any.
func (p ProductValues) Value(group string) (float64, bool) {
	v, ok := p[group]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// Positive returns the value for group when it is numeric and > 0.
func (p ProductValues) Positive(group string) (float64, bool) {
	v, ok := p.Value(group)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// Customer is one row of the customer dataset.
// Records are treated as immutable once ingested.
type Customer struct {
	CustomerID       string
	OverallRevenue   float64
	OverallVisits    float64
	OverallUnits     float64
	AvgDayGap        float64
	Recency          float64
	Churn            int
	ChurnKnown       bool
	ChurnProbability float64
	ChurnRisk        ChurnRisk
	Segment          Segment
	CLTV             float64
	CLTVSegment      CLTVSegment

	ProductRevenue ProductValues
	ProductVisits  ProductValues
	ProductUnits   ProductValues
	ProductRecency ProductValues
}

// NewCustomer builds a Customer from a flat field map, as served by the
// analytics API or read from a table row. Every "<group>_revenue" field other
// than overall_revenue lands in ProductRevenue; visits, units and recency
// fields are split the same way.
func NewCustomer(fields map[string]any) Customer {
	c := Customer{
		ProductRevenue: ProductValues{},
		ProductVisits:  ProductValues{},
		ProductUnits:   ProductValues{},
		ProductRecency: ProductValues{},
	}

	for key, raw := range fields {
		switch key {
		case "customer_id":
			c.CustomerID = toText(raw)
		case "overall_revenue":
			c.OverallRevenue, _ = toNumber(raw)
		case "overall_visits":
			c.OverallVisits, _ = toNumber(raw)
		case "overall_units":
			c.OverallUnits, _ = toNumber(raw)
		case "avg_day_gap":
			c.AvgDayGap, _ = toNumber(raw)
		case "recency":
			c.Recency, _ = toNumber(raw)
		case "churn":
			c.Churn, c.ChurnKnown = toChurnFlag(raw)
		case "churn_probability":
			c.ChurnProbability, _ = toNumber(raw)
		case "churn_risk":
			c.ChurnRisk = ChurnRisk(toText(raw))
		case "segment":
			c.Segment = Segment(toText(raw))
		case "cltv":
			c.CLTV, _ = toNumber(raw)
		case "cltv_segment":
			c.CLTVSegment = CLTVSegment(toText(raw))
		default:
			c.setProductField(key, raw)
		}
	}
	return c
}

func (c *Customer) setProductField(key string, raw any) {
	targets := []struct {
		suffix string
		values ProductValues
	}{
		{RevenueSuffix, c.ProductRevenue},
		{VisitsSuffix, c.ProductVisits},
		{UnitsSuffix, c.ProductUnits},
		{RecencySuffix, c.ProductRecency},
	}
	for _, t := range targets {
		group, ok := ProductGroupFromField(key, t.suffix)
		if !ok {
			continue
		}
		if v, ok := toNumber(raw); ok {
			t.values[group] = &v
		} else {
			t.values[group] = nil
		}
		return
	}
}

// Retained reports whether the customer carries a churn flag of exactly 0.
func (c *Customer) Retained() bool { return c.ChurnKnown && c.Churn == 0 }

// Churned reports whether the customer carries a churn flag of exactly 1.
func (c *Customer) Churned() bool { return c.ChurnKnown && c.Churn == 1 }

// ProductGroupFromField strips suffix from a field name and returns the
// product group it names. The reserved "overall" fields are not groups.
func ProductGroupFromField(field, suffix string) (string, bool) {
	if !strings.HasSuffix(field, suffix) || field == overallPrefix+suffix {
		return "", false
	}
	group := strings.TrimSuffix(field, suffix)
	if group == "" {
		return "", false
	}
	return group, true
}

// UnknownCategories returns the categorical fields holding values outside
// their closed domain. Such customers never match a category filter.
func (c *Customer) UnknownCategories() []string {
	var fields []string
	if !c.ChurnRisk.Valid() {
		fields = append(fields, "churn_risk")
	}
	if !c.Segment.Valid() {
		fields = append(fields, "segment")
	}
	if !c.CLTVSegment.Valid() {
		fields = append(fields, "cltv_segment")
	}
	return fields
}

// Fields flattens the customer back into the wire shape.
func (c Customer) Fields() map[string]any {
	fields := map[string]any{
		"customer_id":       c.CustomerID,
		"overall_revenue":   c.OverallRevenue,
		"overall_visits":    c.OverallVisits,
		"overall_units":     c.OverallUnits,
		"avg_day_gap":       c.AvgDayGap,
		"recency":           c.Recency,
		"churn":             nil,
		"churn_probability": c.ChurnProbability,
		"churn_risk":        string(c.ChurnRisk),
		"segment":           string(c.Segment),
		"cltv":              c.CLTV,
		"cltv_segment":      string(c.CLTVSegment),
	}
	if c.ChurnKnown {
		fields["churn"] = c.Churn
	}
	put := func(values ProductValues, suffix string) {
		for group, v := range values {
			if v == nil {
				fields[group+suffix] = nil
				continue
			}
			fields[group+suffix] = *v
		}
	}
	put(c.ProductRevenue, RevenueSuffix)
	put(c.ProductVisits, VisitsSuffix)
	put(c.ProductUnits, UnitsSuffix)
	put(c.ProductRecency, RecencySuffix)
	return fields
}

// MarshalJSON writes the flat wire shape.
func (c Customer) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Fields())
}

// UnmarshalJSON reads the flat wire shape through NewCustomer.
func (c *Customer) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*c = NewCustomer(fields)
	return nil
}

func toNumber(raw any) (float64, bool) {
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int32:
		v = float64(n)
	case int64:
		v = float64(n)
	case uint64:
		v = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// toChurnFlag accepts only an exact 0 or 1, as a number or as text.
// Missing, fractional and other values are not a flag.
func toChurnFlag(raw any) (int, bool) {
	if s, ok := raw.(string); ok {
		switch strings.TrimSpace(s) {
		case "0":
			return 0, true
		case "1":
			return 1, true
		}
		return 0, false
	}
	switch v, ok := toNumber(raw); {
	case ok && v == 0:
		return 0, true
	case ok && v == 1:
		return 1, true
	}
	return 0, false
}

func toText(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == math.Trunc(v) {
			return fmt.Sprintf("%.0f", v)
		}
		return fmt.Sprint(v)
	default:
		return fmt.Sprint(v)
	}
}

// ============================================================
// Snapshot
// ============================================================

// CustomerQuery selects customers from a source. Empty filters (or "all")
// match everything; Category keeps customers with visits in that group.
type CustomerQuery struct {
	Segment     string
	ChurnRisk   string
	CLTVSegment string
	Category    string
	Limit       int
}

// CustomerPage is one response of a customer source.
type CustomerPage struct {
	Customers      []Customer `json:"customers"`
	TotalCount     int        `json:"total_count"`
	TotalAvailable int        `json:"total_available"`
}

// CustomerSnapshot is the immutable dataset every analysis runs against.
type CustomerSnapshot struct {
	ID             string     `json:"id"`
	Source         string     `json:"source"`
	FetchedAt      time.Time  `json:"fetched_at"`
	TotalAvailable int        `json:"total_available"`
	Customers      []Customer `json:"customers"`
	ProductGroups  []string   `json:"product_groups"`
}

// SnapshotInfo describes a snapshot without its rows.
type SnapshotInfo struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	FetchedAt      time.Time `json:"fetchedAt"`
	Customers      int       `json:"customers"`
	TotalAvailable int       `json:"totalAvailable"`
	ProductGroups  []string  `json:"productGroups"`
}

// Info returns the snapshot metadata.
func (s *CustomerSnapshot) Info() SnapshotInfo {
	return SnapshotInfo{
		ID:             s.ID,
		Source:         s.Source,
		FetchedAt:      s.FetchedAt,
		Customers:      len(s.Customers),
		TotalAvailable: s.TotalAvailable,
		ProductGroups:  s.ProductGroups,
	}
}
