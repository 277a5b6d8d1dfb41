package domain_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
)

func TestNewCustomer_SplitsProductFields(t *testing.T) {
	c := domain.NewCustomer(map[string]any{
		"customer_id":     "C-1",
		"overall_revenue": 120.5,
		"overall_visits":  7,
		"churn":           1.0,
		"churn_risk":      "high",
		"segment":         "High Rollers",
		"cltv_segment":    "low",
		"toys_revenue":    20.0,
		"toys_visits":     2.0,
		"books_revenue":   "unknown",
		"garden_units":    json.Number("3"),
		"garden_recency":  12,
	})

	if c.CustomerID != "C-1" || c.OverallRevenue != 120.5 || c.OverallVisits != 7 || !c.Churned() {
		t.Errorf("unexpected fixed fields %+v", c)
	}
	if v, ok := c.ProductRevenue.Value("toys"); !ok || v != 20 {
		t.Errorf("expected toys revenue 20, got %v (%v)", v, ok)
	}
	if _, ok := c.ProductRevenue["overall"]; ok {
		t.Error("overall_revenue must not become a product group")
	}
	if _, present := c.ProductRevenue["books"]; !present {
		t.Error("expected non-numeric books revenue to be present")
	}
	if _, ok := c.ProductRevenue.Value("books"); ok {
		t.Error("expected non-numeric books revenue to have no value")
	}
	if v, ok := c.ProductUnits.Value("garden"); !ok || v != 3 {
		t.Errorf("expected garden units 3, got %v", v)
	}
	if v, ok := c.ProductRecency.Value("garden"); !ok || v != 12 {
		t.Errorf("expected garden recency 12, got %v", v)
	}
}

func TestProductValues_Positive(t *testing.T) {
	zero, neg, pos := 0.0, -1.0, 2.0
	values := domain.ProductValues{"zero": &zero, "neg": &neg, "pos": &pos, "nil": nil}

	for _, group := range []string{"zero", "neg", "nil", "missing"} {
		if _, ok := values.Positive(group); ok {
			t.Errorf("%s: expected not positive", group)
		}
	}
	if v, ok := values.Positive("pos"); !ok || v != 2 {
		t.Errorf("expected 2, got %v", v)
	}
}

func TestCustomer_JSONRoundTrip(t *testing.T) {
	raw := `{"customer_id":"C-9","overall_revenue":50,"segment":"Value Loyalists","toys_revenue":10,"toys_visits":1}`

	var c domain.Customer
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if fields["toys_revenue"] != 10.0 || fields["segment"] != "Value Loyalists" {
		t.Errorf("unexpected flat shape %v", fields)
	}
}

func TestCustomer_UnknownCategories(t *testing.T) {
	c := domain.NewCustomer(map[string]any{"churn_risk": "extreme", "segment": "High Rollers", "cltv_segment": ""})

	want := []string{"churn_risk", "cltv_segment"}
	if got := c.UnknownCategories(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNewCustomer_ChurnFlag(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]any
		retained bool
		churned  bool
	}{
		{"zero", map[string]any{"churn": 0.0}, true, false},
		{"one", map[string]any{"churn": 1}, false, true},
		{"text one", map[string]any{"churn": " 1 "}, false, true},
		{"json number", map[string]any{"churn": json.Number("0")}, true, false},
		{"missing", map[string]any{}, false, false},
		{"fractional", map[string]any{"churn": 0.7}, false, false},
		{"out of range", map[string]any{"churn": 2.0}, false, false},
		{"text", map[string]any{"churn": "unknown"}, false, false},
		{"null", map[string]any{"churn": nil}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := domain.NewCustomer(tt.fields)
			if c.Retained() != tt.retained || c.Churned() != tt.churned {
				t.Errorf("expected retained=%v churned=%v, got %v/%v", tt.retained, tt.churned, c.Retained(), c.Churned())
			}
		})
	}
}

func TestCustomer_FieldsOmitInvalidChurn(t *testing.T) {
	if got := domain.NewCustomer(map[string]any{"churn": 0.7}).Fields()["churn"]; got != nil {
		t.Errorf("expected nil churn, got %v", got)
	}
	if got := domain.NewCustomer(map[string]any{"churn": 0}).Fields()["churn"]; got != 0 {
		t.Errorf("expected churn 0, got %v", got)
	}
}

func TestParseDimension(t *testing.T) {
	for _, name := range []string{"churn", "segment", "cltv"} {
		if _, err := domain.ParseDimension(name); err != nil {
			t.Errorf("%s: expected no error, got %v", name, err)
		}
	}

	_, err := domain.ParseDimension("region")
	var valErr *domain.ErrValidation
	if !errors.As(err, &valErr) || valErr.Field != "dimension" {
		t.Errorf("expected dimension validation error, got %v", err)
	}
}

func TestBrandFilter_Matches(t *testing.T) {
	c := domain.NewCustomer(map[string]any{"segment": "High Rollers", "churn_risk": "low", "cltv_segment": "high"})

	tests := []struct {
		name   string
		filter domain.BrandFilter
		want   bool
	}{
		{"empty", domain.BrandFilter{}, true},
		{"all", domain.BrandFilter{Segment: "all", ChurnRisk: "all"}, true},
		{"exact", domain.BrandFilter{Segment: "High Rollers", CLTVSegment: "high"}, true},
		{"mismatch", domain.BrandFilter{ChurnRisk: "high"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(&c); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
