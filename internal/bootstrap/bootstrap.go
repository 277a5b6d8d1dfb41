// Package bootstrap builds the infrastructure shared by the service and the
// export CLI from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/boddenberg/customer-insights-bfa/internal/config"
	"github.com/boddenberg/customer-insights-bfa/internal/domain"
	"github.com/boddenberg/customer-insights-bfa/internal/infra/cache"
	"github.com/boddenberg/customer-insights-bfa/internal/infra/client"
	"github.com/boddenberg/customer-insights-bfa/internal/infra/mysql"
	"github.com/boddenberg/customer-insights-bfa/internal/infra/resilience"
	"github.com/boddenberg/customer-insights-bfa/internal/port"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ResilienceConfig extracts the retry and bulkhead settings.
func ResilienceConfig(cfg *config.Config) resilience.Config {
	return resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
}

// NewCustomerSource returns the source selected by cfg.DataBackend and a
// function releasing its resources.
func NewCustomerSource(cfg *config.Config, logger *zap.Logger) (port.CustomerSource, func(), error) {
	rcfg := ResilienceConfig(cfg)

	switch cfg.DataBackend {
	case config.BackendMySQL:
		if cfg.MySQLDSN == "" {
			return nil, nil, fmt.Errorf("MYSQL_DSN is required for the %s backend", config.BackendMySQL)
		}
		store, err := mysql.Open(cfg.MySQLDSN, cfg.MySQLTable, resilience.NewCircuitBreaker(mysql.SourceName, logger), rcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		logger.Info("using MySQL as customer source", zap.String("table", cfg.MySQLTable))
		return store, func() { store.Close() }, nil

	case config.BackendAPI:
		logger.Info("using analytics API as customer source", zap.String("url", cfg.CustomersAPIURL))
		api := client.NewAnalyticsClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.CustomersAPIURL,
			resilience.NewCircuitBreaker(client.SourceName, logger),
			rcfg,
		)
		return api, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
}

// NewSnapshotCache returns a Redis cache when cfg.RedisAddr is set, else an
// in-memory one, and a function releasing it.
func NewSnapshotCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.Cache[*domain.CustomerSnapshot], func()) {
	if cfg.RedisAddr == "" {
		mem := cache.New[*domain.CustomerSnapshot](cfg.CacheTTL)
		return mem, mem.Close
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	shared := cache.NewRedis[*domain.CustomerSnapshot](rdb, "insights:", cfg.CacheTTL, logger)
	if err := shared.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, snapshot loads will fall through to the source",
			zap.String("addr", cfg.RedisAddr),
			zap.Error(err),
		)
	} else {
		logger.Info("using Redis snapshot cache", zap.String("addr", cfg.RedisAddr))
	}
	return shared, func() { rdb.Close() }
}
