package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
	"github.com/boddenberg/customer-insights-bfa/internal/infra/observability"
	"github.com/boddenberg/customer-insights-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

const healthCheckTimeout = 2 * time.Second

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract of the customer insights dashboard.
// A nil svc keeps the operational endpoints up and answers 503 on /v1/insights.
func NewRouter(svc *service.InsightsService, metrics *observability.Metrics, logger *zap.Logger, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/insights", insightsMetricsHandler(metrics))

		r.Route("/insights", func(r chi.Router) {
			if svc == nil {
				r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusServiceUnavailable, "insights service unavailable: no customer source configured")
				}))
				return
			}

			// Headline panels
			r.Get("/summary", summaryHandler(svc, logger))
			r.Get("/filters", filtersHandler(svc, logger))
			r.Get("/segments", segmentsHandler(svc, logger))
			r.Get("/segment-stats", segmentStatsHandler(svc, logger))
			r.Get("/churn-risk", churnRiskHandler(svc, logger))
			r.Get("/overview", overviewHandler(svc, logger))

			// Contribution analysis
			r.Get("/contributions/single", singleContributionsHandler(svc, logger))
			r.Get("/contributions/multi", multiContributionsHandler(svc, logger))
			r.Get("/churn-comparison", churnComparisonHandler(svc, logger))

			// Product groups
			r.Get("/category-revenue", categoryRevenueHandler(svc, logger))
			r.Get("/product-groups/{group}/metrics", productGroupMetricsHandler(svc, logger))
			r.Get("/brand-contributions", brandContributionsHandler(svc, logger))
			r.Get("/top-customers", topCustomersHandler(svc, logger))

			// Snapshot
			r.Post("/refresh", refreshHandler(svc, logger))
		})
	})

	return r
}

// ============================================================
// Health & Metrics
// ============================================================

func healthzHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LastChecked: now},
		}

		if svc != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()

			start := time.Now()
			err := svc.Ping(ctx)
			check := domain.ServiceHealth{
				Name:        svc.SourceName(),
				Status:      "healthy",
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			}
			if err != nil {
				logger.Warn("customer source health check failed", zap.Error(err))
				check.Status = "degraded"
				check.Error = err.Error()
			}
			services = append(services, check)
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func insightsMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetInsightsSnapshot())
	}
}
