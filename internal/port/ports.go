// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
)

// CustomerSource lists customer records from a backing system.
// Implemented by the analytics API client and the MySQL store.
type CustomerSource interface {
	ListCustomers(ctx context.Context, q domain.CustomerQuery) (*domain.CustomerPage, error)
	Ping(ctx context.Context) error
	Name() string
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
