package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
	"github.com/boddenberg/customer-insights-bfa/internal/infra/cache"
	"github.com/boddenberg/customer-insights-bfa/internal/infra/observability"
	"github.com/boddenberg/customer-insights-bfa/internal/service"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

type stubSource struct {
	customers []domain.Customer
	err       error
}

func (s *stubSource) ListCustomers(_ context.Context, _ domain.CustomerQuery) (*domain.CustomerPage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.CustomerPage{Customers: s.customers, TotalCount: len(s.customers), TotalAvailable: len(s.customers)}, nil
}

func (s *stubSource) Ping(_ context.Context) error { return s.err }

func (s *stubSource) Name() string { return "stub" }

func newService(src *stubSource) *service.InsightsService {
	return service.NewInsightsService(src, cache.New[*domain.CustomerSnapshot](time.Minute), observability.NewMetrics(), zap.NewNop(), 100)
}

func quietBar(steps *int) func(int) *progressbar.ProgressBar {
	return func(total int) *progressbar.ProgressBar {
		*steps = total
		return progressbar.NewOptions(total, progressbar.OptionSetWriter(io.Discard))
	}
}

func TestBuildReport(t *testing.T) {
	src := &stubSource{customers: []domain.Customer{
		domain.NewCustomer(map[string]any{"customer_id": "a", "churn_risk": "high", "segment": "High Rollers", "cltv_segment": "high", "overall_revenue": 100.0, "toys_revenue": 40.0, "toys_visits": 2.0}),
		domain.NewCustomer(map[string]any{"customer_id": "b", "churn_risk": "low", "segment": "New or Passive", "cltv_segment": "low", "overall_revenue": 50.0, "books_revenue": 10.0}),
	}}

	var steps int
	r, err := buildReport(context.Background(), newService(src), quietBar(&steps))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// 10 fixed steps, 3 dimensions, 2 product groups.
	if steps != 15 {
		t.Errorf("expected 15 steps, got %d", steps)
	}
	if len(r.Single) != 3 {
		t.Errorf("expected one single report per dimension, got %d", len(r.Single))
	}
	if len(r.SegmentStats) != 2 {
		t.Errorf("expected 2 segment stats, got %d", len(r.SegmentStats))
	}
	if _, ok := r.ProductGroups["toys"]; !ok {
		t.Errorf("expected toys metrics, got %v", r.ProductGroups)
	}
	if _, ok := r.ProductGroups["books"]; ok {
		t.Errorf("expected books (never visited) to be skipped")
	}
	if r.Summary.TotalCustomers != 2 || r.Snapshot.Source != "stub" {
		t.Errorf("unexpected report header %+v / %+v", r.Summary, r.Snapshot)
	}
}

func TestBuildReport_SourceFailure(t *testing.T) {
	var steps int
	_, err := buildReport(context.Background(), newService(&stubSource{err: errors.New("down")}), quietBar(&steps))

	var noSnap *domain.ErrNoSnapshot
	if !errors.As(err, &noSnap) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	r := &report{
		GeneratedAt: time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC),
		Summary:     domain.Summary{TotalCustomers: 7},
	}

	path, err := writeReport(dir, r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if filepath.Base(path) != "insights_20240309_140506.json" {
		t.Errorf("unexpected file name %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"total_customers": 7`) {
		t.Errorf("expected summary in report, got %s", data)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Errorf("expected valid JSON, got %v", err)
	}
}
