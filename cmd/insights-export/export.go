package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
	"github.com/boddenberg/customer-insights-bfa/internal/service"

	"github.com/schollz/progressbar/v3"
)

// report is the file written by one export run.
type report struct {
	GeneratedAt        time.Time                             `json:"generatedAt"`
	Snapshot           domain.SnapshotInfo                   `json:"snapshot"`
	Summary            domain.Summary                        `json:"summary"`
	Filters            domain.FilterOptions                  `json:"filters"`
	Segments           []domain.AggregationBucket            `json:"segments"`
	SegmentStats       []domain.SegmentStats                 `json:"segmentStats"`
	ChurnRisk          []domain.ChurnRiskStats               `json:"churnRisk"`
	Single             map[string]domain.ContributionReport  `json:"single"`
	Multi              domain.ContributionReport             `json:"multi"`
	ChurnComparison    domain.ChurnComparison                `json:"churnComparison"`
	CategoryRevenue    []domain.CategoryRevenue              `json:"categoryRevenue"`
	TopCustomers       []domain.TopCustomer                  `json:"topCustomers"`
	BrandContributions domain.BrandContributionsReport       `json:"brandContributions"`
	ProductGroups      map[string]domain.ProductGroupMetrics `json:"productGroups"`
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// buildReport loads one snapshot and runs every analysis over it, advancing
// bar once per step.
func buildReport(ctx context.Context, svc *service.InsightsService, newBar func(total int) *progressbar.ProgressBar) (*report, error) {
	snap, err := svc.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	out := &report{
		GeneratedAt:   time.Now().UTC(),
		Snapshot:      snap.Info(),
		Single:        make(map[string]domain.ContributionReport, len(domain.Dimensions)),
		ProductGroups: make(map[string]domain.ProductGroupMetrics, len(snap.ProductGroups)),
	}

	steps := []step{
		{"summary", func(ctx context.Context) (err error) { out.Summary, err = svc.Summary(ctx); return }},
		{"filters", func(ctx context.Context) (err error) { out.Filters, err = svc.FilterOptions(ctx); return }},
		{"segments", func(ctx context.Context) (err error) { out.Segments, err = svc.Segments(ctx); return }},
		{"segment-stats", func(ctx context.Context) (err error) { out.SegmentStats, err = svc.SegmentStats(ctx); return }},
		{"churn-risk", func(ctx context.Context) (err error) { out.ChurnRisk, err = svc.ChurnRiskStats(ctx); return }},
		{"churn-comparison", func(ctx context.Context) (err error) { out.ChurnComparison, err = svc.ChurnComparison(ctx); return }},
		{"category-revenue", func(ctx context.Context) (err error) { out.CategoryRevenue, err = svc.CategoryRevenue(ctx); return }},
		{"top-customers", func(ctx context.Context) (err error) {
			out.TopCustomers, err = svc.TopCustomers(ctx, domain.TopMetricCLTV, 0)
			return
		}},
		{"brand-contributions", func(ctx context.Context) (err error) {
			out.BrandContributions, err = svc.BrandContributions(ctx, domain.BrandFilter{})
			return
		}},
		{"multi", func(ctx context.Context) error {
			r, err := svc.MultiContributions(ctx, nil, nil, nil)
			if err != nil {
				return err
			}
			out.Multi = *r
			return nil
		}},
	}
	for _, dim := range domain.Dimensions {
		dim := dim // per-iteration copy for go < 1.22 loop semantics
		steps = append(steps, step{"single/" + string(dim), func(ctx context.Context) error {
			r, err := svc.SingleContributions(ctx, string(dim), domain.SelectAll)
			if err != nil {
				return err
			}
			out.Single[string(dim)] = *r
			return nil
		}})
	}
	for _, group := range snap.ProductGroups {
		group := group // per-iteration copy for go < 1.22 loop semantics
		steps = append(steps, step{"product-group/" + group, func(ctx context.Context) error {
			m, err := svc.ProductGroupMetrics(ctx, group)
			var notFound *domain.ErrNotFound
			if errors.As(err, &notFound) {
				// revenue-only group: nothing was visited
				return nil
			}
			if err != nil {
				return err
			}
			out.ProductGroups[group] = m
			return nil
		}})
	}

	bar := newBar(len(steps))
	for _, s := range steps {
		bar.Describe(s.name)
		if err := s.run(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	return out, nil
}

// writeReport writes r as indented JSON to dir/insights_<timestamp>.json and
// returns the file path.
func writeReport(dir string, r *report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("insights_%s.json", r.GeneratedAt.Format("20060102_150405")))
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
