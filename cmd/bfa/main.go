package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/customer-insights-bfa/internal/bootstrap"
	"github.com/boddenberg/customer-insights-bfa/internal/config"
	"github.com/boddenberg/customer-insights-bfa/internal/handler"
	"github.com/boddenberg/customer-insights-bfa/internal/infra/observability"
	"github.com/boddenberg/customer-insights-bfa/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("data_backend", cfg.DataBackend),
		zap.Int("snapshot_limit", cfg.SnapshotLimit),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("refresh_interval", cfg.RefreshInterval),
		zap.Strings("cors_origins", cfg.CORSOrigins),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "customer-insights-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	snapshotCache, closeCache := bootstrap.NewSnapshotCache(context.Background(), cfg, logger)
	defer closeCache()

	// --- Customer source ---
	source, closeSource, err := bootstrap.NewCustomerSource(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create customer source", zap.Error(err))
	}
	defer closeSource()

	// --- Services ---
	insightsSvc := service.NewInsightsService(source, snapshotCache, metrics, logger, cfg.SnapshotLimit)

	if cfg.RefreshInterval > 0 {
		refresher, err := service.NewRefresher(insightsSvc, cfg.RefreshInterval, cfg.HTTPTimeout*time.Duration(cfg.MaxRetries+1), logger)
		if err != nil {
			logger.Fatal("failed to schedule snapshot refresh", zap.Error(err))
		}
		refresher.Start()
		defer func() {
			if err := refresher.Shutdown(); err != nil {
				logger.Warn("refresher shutdown", zap.Error(err))
			}
		}()
	} else {
		logger.Info("scheduled snapshot refresh disabled, snapshots load on demand")
	}

	// --- Router ---
	router := handler.NewRouter(insightsSvc, metrics, logger, cfg.CORSOrigins)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
