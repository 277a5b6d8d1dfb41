package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
	"github.com/boddenberg/customer-insights-bfa/internal/infra/observability"
	"github.com/boddenberg/customer-insights-bfa/internal/insights"
	"github.com/boddenberg/customer-insights-bfa/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("service/insights")

const (
	snapshotKey = "snapshot:customers"

	// snapshotLoadTimeout bounds a shared load once it is detached from the
	// caller that started it.
	snapshotLoadTimeout = 60 * time.Second

	defaultCategoryLimit = 10
	defaultTopLimit      = 10
)

// InsightsService owns the customer snapshot and runs the analyses over it.
type InsightsService struct {
	source  port.CustomerSource
	cache   port.Cache[*domain.CustomerSnapshot]
	metrics *observability.Metrics
	logger  *zap.Logger
	limit   int

	loads singleflight.Group

	mu       sync.RWMutex
	lastGood *domain.CustomerSnapshot
}

// NewInsightsService creates the insights service with all dependencies injected.
func NewInsightsService(
	source port.CustomerSource,
	cache port.Cache[*domain.CustomerSnapshot],
	metrics *observability.Metrics,
	logger *zap.Logger,
	limit int,
) *InsightsService {
	return &InsightsService{
		source:  source,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		limit:   limit,
	}
}

// Ping checks the customer source.
func (s *InsightsService) Ping(ctx context.Context) error {
	return s.source.Ping(ctx)
}

// SourceName returns the name of the configured customer source.
func (s *InsightsService) SourceName() string {
	return s.source.Name()
}

// ============================================================
// Snapshot lifecycle
// ============================================================

// Snapshot returns the cached snapshot, loading it on a miss. When the load
// fails the last good snapshot is served instead, if there is one.
func (s *InsightsService) Snapshot(ctx context.Context) (*domain.CustomerSnapshot, error) {
	ctx, span := tracer.Start(ctx, "InsightsService.Snapshot")
	defer span.End()

	if snap, ok := s.cache.Get(snapshotKey); ok && snap != nil {
		s.metrics.IncrCacheHit("snapshot")
		span.SetAttributes(attribute.Bool("cache.hit", true))
		observability.SetSnapshotID(ctx, snap.ID)
		return snap, nil
	}
	s.metrics.IncrCacheMiss("snapshot")

	snap, err := s.load(ctx)
	if err == nil {
		observability.SetSnapshotID(ctx, snap.ID)
		return snap, nil
	}
	if ctx.Err() != nil {
		span.RecordError(err)
		return nil, err
	}

	if stale := s.last(); stale != nil {
		s.logger.Warn("serving stale snapshot",
			zap.String("snapshot_id", stale.ID),
			zap.Time("fetched_at", stale.FetchedAt),
			zap.Error(err),
		)
		s.metrics.IncrStaleSnapshot()
		observability.SetSnapshotID(ctx, stale.ID)
		return stale, nil
	}
	span.RecordError(err)
	return nil, err
}

// Refresh always fetches a new snapshot and replaces the cached one.
func (s *InsightsService) Refresh(ctx context.Context) (*domain.SnapshotInfo, error) {
	ctx, span := tracer.Start(ctx, "InsightsService.Refresh")
	defer span.End()

	snap, err := s.load(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	observability.SetSnapshotID(ctx, snap.ID)
	info := snap.Info()
	return &info, nil
}

// load fetches one snapshot from the source. Concurrent callers share a
// single fetch that runs detached from any one caller's cancellation; each
// caller stops waiting when its own context is done.
func (s *InsightsService) load(ctx context.Context) (*domain.CustomerSnapshot, error) {
	ch := s.loads.DoChan(snapshotKey, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotLoadTimeout)
		defer cancel()
		return s.fetch(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.CustomerSnapshot), nil
	}
}

func (s *InsightsService) fetch(ctx context.Context) (*domain.CustomerSnapshot, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("snapshot_load", time.Since(start))
	}()

	page, err := s.source.ListCustomers(ctx, domain.CustomerQuery{Limit: s.limit})
	if err != nil {
		s.logger.Error("failed to fetch customers",
			zap.String("source", s.source.Name()),
			zap.Error(err),
		)
		s.metrics.IncrExternalError(s.source.Name())
		s.metrics.IncrSnapshotFailure()
		return nil, &domain.ErrNoSnapshot{Source: s.source.Name(), Err: fmt.Errorf("list customers: %w", err)}
	}

	for i := range page.Customers {
		if unknown := page.Customers[i].UnknownCategories(); len(unknown) > 0 {
			s.logger.Warn("customer has unknown category values",
				zap.String("customer_id", page.Customers[i].CustomerID),
				zap.Strings("values", unknown),
			)
		}
	}

	snap := &domain.CustomerSnapshot{
		ID:             uuid.New().String(),
		Source:         s.source.Name(),
		FetchedAt:      time.Now().UTC(),
		TotalAvailable: page.TotalAvailable,
		Customers:      page.Customers,
		ProductGroups:  insights.DiscoverProductGroups(page.Customers),
	}

	s.cache.Set(snapshotKey, snap)
	s.mu.Lock()
	s.lastGood = snap
	s.mu.Unlock()

	s.metrics.RecordSnapshot(len(snap.Customers))
	s.logger.Info("customer snapshot loaded",
		zap.String("snapshot_id", snap.ID),
		zap.String("source", snap.Source),
		zap.Int("customers", len(snap.Customers)),
		zap.Int("total_available", snap.TotalAvailable),
		zap.Int("product_groups", len(snap.ProductGroups)),
	)
	return snap, nil
}

func (s *InsightsService) last() *domain.CustomerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastGood
}

// observe opens a span for an analysis and returns the function that ends it.
func (s *InsightsService) observe(ctx context.Context, name string) (context.Context, func()) {
	ctx, span := tracer.Start(ctx, "InsightsService."+name)
	start := time.Now()
	return ctx, func() {
		s.metrics.RecordRequestDuration(name, time.Since(start))
		span.End()
	}
}

// ============================================================
// Headline panels
// ============================================================

// Summary returns the headline figures.
func (s *InsightsService) Summary(ctx context.Context) (domain.Summary, error) {
	ctx, done := s.observe(ctx, "Summary")
	defer done()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	return insights.Summarize(snap.Customers), nil
}

// FilterOptions returns the values offered by the dashboard filters.
func (s *InsightsService) FilterOptions(ctx context.Context) (domain.FilterOptions, error) {
	ctx, done := s.observe(ctx, "FilterOptions")
	defer done()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return domain.FilterOptions{}, err
	}
	return insights.BuildFilterOptions(snap.Customers), nil
}

// Segments returns one bucket per (segment, churn risk, CLTV segment) cohort.
func (s *InsightsService) Segments(ctx context.Context) ([]domain.AggregationBucket, error) {
	ctx, done := s.observe(ctx, "Segments")
	defer done()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return insights.SegmentBuckets(snap.Customers), nil
}

// ChurnRiskStats returns the per churn-risk level aggregates.
func (s *InsightsService) ChurnRiskStats(ctx context.Context) ([]domain.ChurnRiskStats, error) {
	ctx, done := s.observe(ctx, "ChurnRiskStats")
	defer done()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return insights.ChurnRiskBreakdown(snap.Customers), nil
}

// SegmentStats reports per-segment totals and averages.
func (s *InsightsService) SegmentStats(ctx context.Context) ([]domain.SegmentStats, error) {
	ctx, done := s.observe(ctx, "SegmentStats")
	defer done()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return insights.SegmentStats(snap.Customers), nil
}

// ============================================================
// Contribution analysis
// ============================================================

// SingleContributions ranks product groups for the categories of one
// dimension. Empty arguments default to the churn-risk dimension and "all".
func (s *InsightsService) SingleContributions(ctx context.Context, dimension, filter string) (*domain.ContributionReport, error) {
	ctx, done := s.observe(ctx, "SingleContributions")
	defer done()

	if dimension == "" {
		dimension = string(domain.DimensionChurnRisk)
	}
	if filter == "" {
		filter = domain.SelectAll
	}
	dim, err := domain.ParseDimension(dimension)
	if err != nil {
		return nil, err
	}
	categories, err := insights.ResolveSingle(dim, filter)
	if err != nil {
		return nil, err
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.singleReport(snap, dim, categories), nil
}

func (s *InsightsService) singleReport(snap *domain.CustomerSnapshot, dim domain.Dimension, categories []string) *domain.ContributionReport {
	rows := insights.AnalyzeSingle(snap.Customers, dim, categories)
	return s.report(snap, domain.ModeSingle, dim, categories, rows)
}

// MultiContributions ranks product groups over every combination of the
// three selections. A nil or empty selection means "all".
func (s *InsightsService) MultiContributions(ctx context.Context, churn, segment, cltv []string) (*domain.ContributionReport, error) {
	ctx, done := s.observe(ctx, "MultiContributions")
	defer done()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.multiReport(snap, churn, segment, cltv), nil
}

func (s *InsightsService) multiReport(snap *domain.CustomerSnapshot, churn, segment, cltv []string) *domain.ContributionReport {
	risks := insights.ResolveSelection(domain.ChurnRisks, orAll(churn))
	segments := insights.ResolveSelection(domain.Segments, orAll(segment))
	values := insights.ResolveSelection(domain.CLTVSegments, orAll(cltv))

	combos := insights.Combinations(risks, segments, values)
	labels := make([]string, 0, len(combos))
	for _, c := range combos {
		labels = append(labels, c.Label())
	}

	rows := insights.AnalyzeMulti(snap.Customers, risks, segments, values)
	return s.report(snap, domain.ModeMulti, "", labels, rows)
}

func (s *InsightsService) report(snap *domain.CustomerSnapshot, mode string, dim domain.Dimension, categories []string, rows []domain.ContributionRow) *domain.ContributionReport {
	top, bottom := insights.SplitTopBottom(rows)
	s.metrics.AddRows(mode, len(rows))
	return &domain.ContributionReport{
		SnapshotID: snap.ID,
		Mode:       mode,
		Dimension:  dim,
		Categories: categories,
		Rows:       rows,
		Top:        top,
		Bottom:     bottom,
	}
}

func orAll(selection []string) []string {
	if len(selection) == 0 {
		return []string{domain.SelectAll}
	}
	return selection
}

// ChurnComparison compares retained and churned customers.
func (s *InsightsService) ChurnComparison(ctx context.Context) (domain.ChurnComparison, error) {
	ctx, done := s.observe(ctx, "ChurnComparison")
	defer done()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return domain.ChurnComparison{}, err
	}
	return insights.CompareChurnGroups(snap.Customers), nil
}

// ============================================================
// Product groups
// ============================================================

// CategoryRevenue returns the ten product groups with the most revenue.
func (s *InsightsService) CategoryRevenue(ctx context.Context) ([]domain.CategoryRevenue, error) {
	ctx, done := s.observe(ctx, "CategoryRevenue")
	defer done()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return insights.CategoryRevenue(snap.Customers, defaultCategoryLimit), nil
}

// TopCustomers ranks customers by metric. A non-positive limit means 10.
func (s *InsightsService) TopCustomers(ctx context.Context, metric string, limit int) ([]domain.TopCustomer, error) {
	ctx, done := s.observe(ctx, "TopCustomers")
	defer done()

	if limit <= 0 {
		limit = defaultTopLimit
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return insights.TopCustomers(snap.Customers, metric, limit), nil
}

// ProductGroupMetrics describes the visitors of one product group.
func (s *InsightsService) ProductGroupMetrics(ctx context.Context, group string) (domain.ProductGroupMetrics, error) {
	ctx, done := s.observe(ctx, "ProductGroupMetrics")
	defer done()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return domain.ProductGroupMetrics{}, err
	}
	return insights.ProductGroupMetrics(snap.Customers, group)
}

// BrandContributions returns each product group's share of the filtered customers.
func (s *InsightsService) BrandContributions(ctx context.Context, filter domain.BrandFilter) (domain.BrandContributionsReport, error) {
	ctx, done := s.observe(ctx, "BrandContributions")
	defer done()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return domain.BrandContributionsReport{}, err
	}
	return insights.BrandContributions(snap.Customers, filter), nil
}

// ============================================================
// Overview
// ============================================================

// Overview computes the default dashboard panels concurrently over one snapshot.
func (s *InsightsService) Overview(ctx context.Context) (*domain.Overview, error) {
	ctx, done := s.observe(ctx, "Overview")
	defer done()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	out := &domain.Overview{Snapshot: snap.Info()}
	var g errgroup.Group

	g.Go(func() error {
		out.Summary = insights.Summarize(snap.Customers)
		return nil
	})
	g.Go(func() error {
		out.Segments = insights.SegmentBuckets(snap.Customers)
		return nil
	})
	g.Go(func() error {
		out.ChurnComparison = insights.CompareChurnGroups(snap.Customers)
		return nil
	})
	g.Go(func() error {
		categories, err := insights.ResolveSingle(domain.DimensionChurnRisk, domain.SelectAll)
		if err != nil {
			return err
		}
		out.Single = *s.singleReport(snap, domain.DimensionChurnRisk, categories)
		return nil
	})
	g.Go(func() error {
		out.Multi = *s.multiReport(snap, nil, nil, nil)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
