package domain

// ============================================================
// Contribution analysis
// ============================================================

// Analysis modes of a contribution report.
const (
	ModeSingle = "single"
	ModeMulti  = "multi"
)

// ContributionRow is one product group's share of a cohort's revenue.
type ContributionRow struct {
	ProductGroup  string  `json:"productGroup"`
	CategoryName  string  `json:"categoryName"`
	Revenue       float64 `json:"revenue"`
	CustomerCount int     `json:"customerCount"`
	Percentage    float64 `json:"percentage"`
}

// ContributionReport wraps the ranked rows of one analysis call.
// Rows is the top-2 followed by the bottom-2; Top and Bottom are its halves.
type ContributionReport struct {
	SnapshotID string            `json:"snapshotId"`
	Mode       string            `json:"mode"`
	Dimension  Dimension         `json:"dimension,omitempty"`
	Categories []string          `json:"categories"`
	Rows       []ContributionRow `json:"rows"`
	Top        []ContributionRow `json:"top"`
	Bottom     []ContributionRow `json:"bottom"`
}

// ContributionEntry is a product group's share of a churn partition's revenue.
type ContributionEntry struct {
	ProductGroup string  `json:"productGroup"`
	Revenue      float64 `json:"revenue"`
	Percentage   float64 `json:"percentage"`
}

// GroupStats summarises one side of the churned / retained split.
type GroupStats struct {
	Count               int                 `json:"count"`
	AvgChurnProbability float64             `json:"avgChurnProbability"`
	AvgRevenue          float64             `json:"avgRevenue"`
	AvgCLTV             float64             `json:"avgCltv"`
	TopGroups           []ContributionEntry `json:"topGroups"`
	BottomGroups        []ContributionEntry `json:"bottomGroups"`
}

// ChurnComparison compares retained (churn=0) and churned (churn=1) customers.
type ChurnComparison struct {
	Retained GroupStats `json:"retained"`
	Churned  GroupStats `json:"churned"`
}

// ============================================================
// Aggregates
// ============================================================

// AggregationBucket holds the totals of one (segment, churn risk, CLTV
// segment) cohort and its share of the whole dataset.
type AggregationBucket struct {
	Segment            Segment     `json:"segment"`
	ChurnRisk          ChurnRisk   `json:"churnRisk"`
	CLTVSegment        CLTVSegment `json:"cltvSegment"`
	Count              int         `json:"count"`
	TotalRevenue       float64     `json:"totalRevenue"`
	TotalCLTV          float64     `json:"totalCltv"`
	AvgRevenue         float64     `json:"avgRevenue"`
	AvgCLTV            float64     `json:"avgCltv"`
	CustomerPercentage float64     `json:"customerPercentage"`
	RevenuePercentage  float64     `json:"revenuePercentage"`
	CLTVPercentage     float64     `json:"cltvPercentage"`
}

// Summary is the headline figures of the dashboard.
type Summary struct {
	TotalCustomers    int     `json:"total_customers"`
	AvgChurnRate      float64 `json:"avg_churn_rate"`
	HighRiskCustomers int     `json:"high_risk_customers"`
	TotalRevenue      float64 `json:"total_revenue"`
	AvgCLTV           float64 `json:"avg_cltv"`
}

// FilterOptions lists the values the dashboard offers in its filter panels.
type FilterOptions struct {
	ProductCategories []string `json:"product_categories"`
	Segments          []string `json:"segments"`
	ChurnRisks        []string `json:"churn_risks"`
	CLTVSegments      []string `json:"cltv_segments"`
}

// ChurnRiskStats aggregates customers of one churn-risk level.
type ChurnRiskStats struct {
	RiskLevel      ChurnRisk `json:"risk_level"`
	CustomerCount  int       `json:"customer_count"`
	AvgProbability float64   `json:"avg_probability"`
	AvgCLTV        float64   `json:"avg_cltv"`
	AvgRevenue     float64   `json:"avg_revenue"`
}

// SegmentStats aggregates customers of one segment. AvgChurnProbability is a
// percentage.
type SegmentStats struct {
	Segment             Segment `json:"segment"`
	Count               int     `json:"count"`
	TotalRevenue        float64 `json:"total_revenue"`
	AvgVisits           float64 `json:"avg_visits"`
	AvgChurnProbability float64 `json:"avg_churn_probability"`
	AvgCLTV             float64 `json:"avg_cltv"`
}

// CategoryRevenue is the revenue of one product group across all customers.
type CategoryRevenue struct {
	Category   string  `json:"category"`
	Revenue    float64 `json:"revenue"`
	Customers  int     `json:"customers"`
	AvgRevenue float64 `json:"avgRevenue"`
}

// ProductGroupMetrics describes the customers who visited one product group.
type ProductGroupMetrics struct {
	Group           string  `json:"group"`
	Message         string  `json:"message,omitempty"`
	TotalVisits     int     `json:"total_visits"`
	TotalRevenue    float64 `json:"total_revenue"`
	TotalUnits      int     `json:"total_units"`
	AvgRecency      float64 `json:"avg_recency"`
	TotalCLTV       float64 `json:"total_cltv"`
	AvgCLTV         float64 `json:"avg_cltv"`
	HighCLTVCount   int     `json:"high_cltv_count"`
	MediumCLTVCount int     `json:"medium_cltv_count"`
	LowCLTVCount    int     `json:"low_cltv_count"`
	CustomerCount   int     `json:"customer_count"`
}

// ============================================================
// Brand contributions
// ============================================================

// BrandFilter narrows brand contributions to exact category values.
// Empty fields and "all" do not filter.
type BrandFilter struct {
	Segment     string `json:"segment,omitempty"`
	ChurnRisk   string `json:"churn_risk,omitempty"`
	CLTVSegment string `json:"cltv_segment,omitempty"`
}

// Matches reports whether the customer passes every set filter.
func (f BrandFilter) Matches(c *Customer) bool {
	return matchFilter(f.Segment, string(c.Segment)) &&
		matchFilter(f.ChurnRisk, string(c.ChurnRisk)) &&
		matchFilter(f.CLTVSegment, string(c.CLTVSegment))
}

func matchFilter(filter, value string) bool {
	return filter == "" || filter == SelectAll || filter == value
}

// BrandContribution is one product group's share of the filtered dataset.
type BrandContribution struct {
	Category              string  `json:"category"`
	Revenue               float64 `json:"revenue"`
	RevenuePercentage     float64 `json:"revenue_percentage"`
	Customers             int     `json:"customers"`
	CustomerPercentage    float64 `json:"customer_percentage"`
	Visits                int     `json:"visits"`
	Units                 int     `json:"units"`
	AvgRevenuePerCustomer float64 `json:"avg_revenue_per_customer"`
}

// BrandContributionsReport lists contributions sorted by revenue share.
type BrandContributionsReport struct {
	Contributions  []BrandContribution `json:"contributions"`
	TotalRevenue   float64             `json:"total_revenue"`
	TotalCustomers int                 `json:"total_customers"`
	FiltersApplied BrandFilter         `json:"filters_applied"`
}

// ============================================================
// Overview
// ============================================================

// Overview bundles the default dashboard panels computed over one snapshot.
type Overview struct {
	Snapshot        SnapshotInfo        `json:"snapshot"`
	Summary         Summary             `json:"summary"`
	Segments        []AggregationBucket `json:"segments"`
	ChurnComparison ChurnComparison     `json:"churnComparison"`
	Single          ContributionReport  `json:"single"`
	Multi           ContributionReport  `json:"multi"`
}

// ============================================================
// Top customers
// ============================================================

// Ranking metrics accepted by the top-customers panel.
const (
	TopMetricCLTV    = "cltv"
	TopMetricRevenue = "overall_revenue"
	TopMetricVisits  = "overall_visits"
)

// TopCustomer is one customer ranked by a metric.
type TopCustomer struct {
	CustomerID       string    `json:"customer_id"`
	Metric           string    `json:"metric"`
	Value            float64   `json:"value"`
	Segment          Segment   `json:"segment"`
	ChurnRisk        ChurnRisk `json:"churn_risk"`
	ChurnProbability float64   `json:"churn_probability"`
}
