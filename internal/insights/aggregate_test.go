package insights_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
	"github.com/boddenberg/customer-insights-bfa/internal/insights"
)

func dashboardCustomers() []domain.Customer {
	return []domain.Customer{
		customer(map[string]any{
			"customer_id": "c1", "segment": "Value Loyalists", "churn_risk": "low", "cltv_segment": "high",
			"churn_probability": 0.1, "overall_revenue": 300.0, "overall_visits": 12.0, "cltv": 900.0,
			"toys_revenue": 200.0, "toys_visits": 4.0, "toys_units": 6.0, "toys_recency": 10.0,
			"books_revenue": 100.0, "books_visits": 2.0, "books_units": 3.0, "books_recency": 30.0,
		}),
		customer(map[string]any{
			"customer_id": "c2", "segment": "High Rollers", "churn_risk": "high", "cltv_segment": "medium",
			"churn_probability": 0.7, "overall_revenue": 100.0, "overall_visits": 3.0, "cltv": 300.0,
			"toys_revenue": 0.0, "toys_visits": 0.0, "toys_units": 0.0,
			"books_revenue": 100.0, "books_visits": 1.0, "books_units": 1.0, "books_recency": 20.0,
		}),
		customer(map[string]any{
			"customer_id": "c3", "segment": "High Rollers", "churn_risk": "high", "cltv_segment": "medium",
			"churn_probability": 0.4, "overall_revenue": 100.0, "overall_visits": 8.0, "cltv": 100.0,
			"toys_revenue": 50.0, "toys_visits": 1.0, "toys_units": 2.0, "toys_recency": 5.0,
		}),
		customer(map[string]any{
			"customer_id": "c4", "segment": "Whales", "churn_risk": "low", "cltv_segment": "low",
			"churn_probability": 0.2, "overall_revenue": 0.0, "cltv": 100.0,
		}),
	}
}

func TestSummarize(t *testing.T) {
	s := insights.Summarize(dashboardCustomers())

	want := domain.Summary{TotalCustomers: 4, AvgChurnRate: 35, HighRiskCustomers: 2, TotalRevenue: 500, AvgCLTV: 350}
	if s != want {
		t.Errorf("expected %+v, got %+v", want, s)
	}
	if empty := insights.Summarize(nil); empty != (domain.Summary{}) {
		t.Errorf("expected zero summary, got %+v", empty)
	}
}

func TestBuildFilterOptions(t *testing.T) {
	opts := insights.BuildFilterOptions(dashboardCustomers())

	want := domain.FilterOptions{
		ProductCategories: []string{"books", "toys"},
		Segments:          []string{"High Rollers", "Value Loyalists", "Whales"},
		ChurnRisks:        []string{"high", "low"},
		CLTVSegments:      []string{"high", "low", "medium"},
	}
	if !reflect.DeepEqual(opts, want) {
		t.Errorf("expected %+v, got %+v", want, opts)
	}
}

func TestSegmentBuckets(t *testing.T) {
	buckets := insights.SegmentBuckets(dashboardCustomers())

	if len(buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(buckets))
	}
	order := []domain.Segment{domain.SegmentHighRollers, domain.SegmentValueLoyalists, "Whales"}
	for i, seg := range order {
		if buckets[i].Segment != seg {
			t.Errorf("bucket %d: expected segment %s, got %s", i, seg, buckets[i].Segment)
		}
	}

	hr := buckets[0]
	if hr.Count != 2 || hr.TotalRevenue != 200 || hr.TotalCLTV != 400 || hr.AvgRevenue != 100 {
		t.Errorf("unexpected High Rollers bucket %+v", hr)
	}
	if hr.CustomerPercentage != 50 || hr.RevenuePercentage != 40 || hr.CLTVPercentage != insights.Percentage(400, 1400) {
		t.Errorf("unexpected High Rollers shares %+v", hr)
	}

	if empty := insights.SegmentBuckets(nil); empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil buckets, got %#v", empty)
	}
}

func TestChurnRiskBreakdown(t *testing.T) {
	stats := insights.ChurnRiskBreakdown(dashboardCustomers())

	if len(stats) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(stats))
	}
	if stats[0].RiskLevel != domain.ChurnRiskHigh || stats[1].RiskLevel != domain.ChurnRiskLow {
		t.Errorf("expected high before low, got %s, %s", stats[0].RiskLevel, stats[1].RiskLevel)
	}
	if stats[0].CustomerCount != 2 || stats[0].AvgProbability != 55 || stats[0].AvgCLTV != 200 || stats[0].AvgRevenue != 100 {
		t.Errorf("unexpected high stats %+v", stats[0])
	}
}

func TestSegmentStats(t *testing.T) {
	stats := insights.SegmentStats(dashboardCustomers())

	var names []domain.Segment
	for _, s := range stats {
		names = append(names, s.Segment)
	}
	want := []domain.Segment{"High Rollers", "Value Loyalists", "Whales"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}

	hr := stats[0]
	if hr.Count != 2 || hr.TotalRevenue != 200 || hr.AvgVisits != 5.5 || hr.AvgChurnProbability != 55 || hr.AvgCLTV != 200 {
		t.Errorf("unexpected High Rollers stats %+v", hr)
	}
	if w := stats[2]; w.Count != 1 || w.AvgVisits != 0 || w.AvgChurnProbability != 20 {
		t.Errorf("unexpected Whales stats %+v", w)
	}
}

func TestSegmentStats_Empty(t *testing.T) {
	if stats := insights.SegmentStats(nil); len(stats) != 0 {
		t.Errorf("expected no stats, got %+v", stats)
	}
}

func TestCategoryRevenue(t *testing.T) {
	revenue := insights.CategoryRevenue(dashboardCustomers(), 10)

	want := []domain.CategoryRevenue{
		{Category: "toys", Revenue: 250, Customers: 2, AvgRevenue: 125},
		{Category: "books", Revenue: 200, Customers: 2, AvgRevenue: 100},
	}
	if !reflect.DeepEqual(revenue, want) {
		t.Errorf("expected %+v, got %+v", want, revenue)
	}

	if limited := insights.CategoryRevenue(dashboardCustomers(), 1); len(limited) != 1 || limited[0].Category != "toys" {
		t.Errorf("expected only toys, got %+v", limited)
	}
}

func TestTopCustomers(t *testing.T) {
	top := insights.TopCustomers(dashboardCustomers(), domain.TopMetricVisits, 2)

	if len(top) != 2 || top[0].CustomerID != "c1" || top[1].CustomerID != "c3" {
		t.Fatalf("unexpected ranking %+v", top)
	}
	if top[0].Value != 12 || top[0].Metric != domain.TopMetricVisits {
		t.Errorf("unexpected entry %+v", top[0])
	}

	fallback := insights.TopCustomers(dashboardCustomers(), "shoe_size", 1)
	if len(fallback) != 1 || fallback[0].Metric != domain.TopMetricCLTV || fallback[0].CustomerID != "c1" {
		t.Errorf("expected cltv fallback, got %+v", fallback)
	}
}

func TestProductGroupMetrics(t *testing.T) {
	m, err := insights.ProductGroupMetrics(dashboardCustomers(), "toys")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := domain.ProductGroupMetrics{
		Group:           "toys",
		TotalVisits:     5,
		TotalRevenue:    250,
		TotalUnits:      8,
		AvgRecency:      7.5,
		TotalCLTV:       1000,
		AvgCLTV:         500,
		HighCLTVCount:   1,
		MediumCLTVCount: 1,
		CustomerCount:   2,
	}
	if m != want {
		t.Errorf("expected %+v, got %+v", want, m)
	}
}

func TestProductGroupMetrics_NoGroup(t *testing.T) {
	m, err := insights.ProductGroupMetrics(dashboardCustomers(), "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if m.Message == "" || m.CustomerCount != 0 {
		t.Errorf("expected a prompt with zero metrics, got %+v", m)
	}
}

func TestProductGroupMetrics_UnknownGroup(t *testing.T) {
	_, err := insights.ProductGroupMetrics(dashboardCustomers(), "garden")

	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBrandContributions(t *testing.T) {
	report := insights.BrandContributions(dashboardCustomers(), domain.BrandFilter{ChurnRisk: "high"})

	if report.TotalCustomers != 2 || report.TotalRevenue != 200 {
		t.Fatalf("unexpected totals %+v", report)
	}
	if len(report.Contributions) != 2 {
		t.Fatalf("expected 2 contributions, got %d", len(report.Contributions))
	}

	books := report.Contributions[0]
	want := domain.BrandContribution{
		Category: "books", Revenue: 100, RevenuePercentage: 50, Customers: 1,
		CustomerPercentage: 50, Visits: 1, Units: 1, AvgRevenuePerCustomer: 100,
	}
	if books != want {
		t.Errorf("expected %+v, got %+v", want, books)
	}
}

func TestBrandContributions_ConsistentWithAnalyzeSingle(t *testing.T) {
	customers := dashboardCustomers()
	report := insights.BrandContributions(customers, domain.BrandFilter{ChurnRisk: "high"})
	rows := insights.AnalyzeSingle(customers, domain.DimensionChurnRisk, []string{"high"})

	for _, row := range rows {
		for _, c := range report.Contributions {
			if c.Category == row.ProductGroup && (c.Revenue != row.Revenue || c.RevenuePercentage != row.Percentage) {
				t.Errorf("%s: brand %v (%v%%) disagrees with analysis %v (%v%%)",
					c.Category, c.Revenue, c.RevenuePercentage, row.Revenue, row.Percentage)
			}
		}
	}
}

func TestBrandContributions_AllFilterMatchesEveryone(t *testing.T) {
	report := insights.BrandContributions(dashboardCustomers(), domain.BrandFilter{Segment: "all"})
	if report.TotalCustomers != 4 {
		t.Errorf("expected 4 customers, got %d", report.TotalCustomers)
	}
}
