package handler

import (
	"net/http"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
	"github.com/boddenberg/customer-insights-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Headline panels
// ============================================================

func summaryHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/insights/summary")
		defer span.End()

		summary, err := svc.Summary(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func filtersHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/insights/filters")
		defer span.End()

		options, err := svc.FilterOptions(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, options)
	}
}

func segmentsHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/insights/segments")
		defer span.End()

		buckets, err := svc.Segments(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, buckets)
	}
}

func churnRiskHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/insights/churn-risk")
		defer span.End()

		stats, err := svc.ChurnRiskStats(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func segmentStatsHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/insights/segment-stats")
		defer span.End()

		stats, err := svc.SegmentStats(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func overviewHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/insights/overview")
		defer span.End()

		overview, err := svc.Overview(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, overview)
	}
}

// ============================================================
// Contribution analysis
// ============================================================

func singleContributionsHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/insights/contributions/single")
		defer span.End()

		q := singleQuery{
			Dimension: r.URL.Query().Get("dimension"),
			Filter:    r.URL.Query().Get("filter"),
		}
		if err := validateQuery(q); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.String("insights.dimension", q.Dimension),
			attribute.String("insights.filter", q.Filter),
		)

		report, err := svc.SingleContributions(ctx, q.Dimension, q.Filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func multiContributionsHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/insights/contributions/multi")
		defer span.End()

		churn := queryList(r, "churn")
		segment := queryList(r, "segment")
		cltv := queryList(r, "cltv")
		span.SetAttributes(
			attribute.StringSlice("insights.churn", churn),
			attribute.StringSlice("insights.segment", segment),
			attribute.StringSlice("insights.cltv", cltv),
		)

		report, err := svc.MultiContributions(ctx, churn, segment, cltv)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func churnComparisonHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/insights/churn-comparison")
		defer span.End()

		comparison, err := svc.ChurnComparison(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, comparison)
	}
}

// ============================================================
// Product groups
// ============================================================

func categoryRevenueHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/insights/category-revenue")
		defer span.End()

		revenue, err := svc.CategoryRevenue(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, revenue)
	}
}

func productGroupMetricsHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/insights/product-groups/{group}/metrics")
		defer span.End()

		group := chi.URLParam(r, "group")
		span.SetAttributes(attribute.String("insights.product_group", group))

		metrics, err := svc.ProductGroupMetrics(ctx, group)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, metrics)
	}
}

func brandContributionsHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/insights/brand-contributions")
		defer span.End()

		q := brandQuery{
			Segment:     r.URL.Query().Get("segment"),
			ChurnRisk:   r.URL.Query().Get("churn_risk"),
			CLTVSegment: r.URL.Query().Get("cltv_segment"),
		}
		if err := validateQuery(q); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		report, err := svc.BrandContributions(ctx, domain.BrandFilter{
			Segment:     q.Segment,
			ChurnRisk:   q.ChurnRisk,
			CLTVSegment: q.CLTVSegment,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func topCustomersHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/insights/top-customers")
		defer span.End()

		q, err := parseTopCustomersQuery(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		top, err := svc.TopCustomers(ctx, q.Metric, q.Limit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, top)
	}
}

// ============================================================
// Snapshot
// ============================================================

func refreshHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/insights/refresh")
		defer span.End()

		info, err := svc.Refresh(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		logger.Info("snapshot refreshed on request",
			zap.String("snapshot_id", info.ID),
			zap.Int("customers", info.Customers),
		)
		writeJSON(w, http.StatusOK, info)
	}
}
