// Command insights-export loads one customer snapshot, runs every analysis
// over it and writes the results to a timestamped JSON file.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/boddenberg/customer-insights-bfa/internal/bootstrap"
	"github.com/boddenberg/customer-insights-bfa/internal/config"
	"github.com/boddenberg/customer-insights-bfa/internal/domain"
	"github.com/boddenberg/customer-insights-bfa/internal/infra/cache"
	"github.com/boddenberg/customer-insights-bfa/internal/infra/observability"
	"github.com/boddenberg/customer-insights-bfa/internal/service"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

func main() {
	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	output := flag.String("output", "reports", "directory the report is written to")
	source := flag.String("source", cfg.DataBackend, "customer source: api or mysql")
	flag.Parse()
	cfg.DataBackend = *source

	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeSource, err := bootstrap.NewCustomerSource(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create customer source", zap.Error(err))
	}
	defer closeSource()

	snapshots := cache.New[*domain.CustomerSnapshot](cfg.CacheTTL)
	defer snapshots.Close()

	svc := service.NewInsightsService(src, snapshots, observability.NewMetrics(), logger, cfg.SnapshotLimit)

	r, err := buildReport(ctx, svc, func(total int) *progressbar.ProgressBar {
		return progressbar.Default(int64(total), "analysing")
	})
	if err != nil {
		logger.Fatal("export failed", zap.Error(err))
	}

	path, err := writeReport(*output, r)
	if err != nil {
		logger.Fatal("failed to write report", zap.Error(err))
	}
	logger.Info("report written",
		zap.String("path", path),
		zap.String("snapshot_id", r.Snapshot.ID),
		zap.Int("customers", r.Snapshot.Customers),
	)
}
