package bootstrap_test

import (
	"context"
	"testing"
	"time"

	"github.com/boddenberg/customer-insights-bfa/internal/bootstrap"
	"github.com/boddenberg/customer-insights-bfa/internal/config"
	"github.com/boddenberg/customer-insights-bfa/internal/domain"
	"github.com/boddenberg/customer-insights-bfa/internal/infra/cache"
	"github.com/boddenberg/customer-insights-bfa/internal/infra/client"

	"go.uber.org/zap"
)

func TestNewCustomerSource_API(t *testing.T) {
	cfg := &config.Config{DataBackend: config.BackendAPI, CustomersAPIURL: "http://localhost:5000", HTTPTimeout: time.Second}

	source, closeFn, err := bootstrap.NewCustomerSource(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer closeFn()

	if source.Name() != client.SourceName {
		t.Errorf("expected %s, got %s", client.SourceName, source.Name())
	}
}

func TestNewCustomerSource_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"mysql without dsn", &config.Config{DataBackend: config.BackendMySQL, MySQLTable: "customers"}},
		{"mysql with bad table", &config.Config{DataBackend: config.BackendMySQL, MySQLDSN: "u:p@tcp(localhost:3306)/db", MySQLTable: "x; DROP"}},
		{"unknown backend", &config.Config{DataBackend: "csv"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := bootstrap.NewCustomerSource(tt.cfg, zap.NewNop()); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestNewSnapshotCache_InMemoryByDefault(t *testing.T) {
	c, closeFn := bootstrap.NewSnapshotCache(context.Background(), &config.Config{CacheTTL: time.Minute}, zap.NewNop())
	defer closeFn()

	if _, ok := c.(*cache.InMemory[*domain.CustomerSnapshot]); !ok {
		t.Errorf("expected an in-memory cache, got %T", c)
	}
}
