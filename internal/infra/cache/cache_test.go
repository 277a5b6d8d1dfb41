package cache_test

import (
	"testing"
	"time"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
	"github.com/boddenberg/customer-insights-bfa/internal/infra/cache"
	"github.com/boddenberg/customer-insights-bfa/internal/port"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	_ port.Cache[*domain.CustomerSnapshot] = (*cache.InMemory[*domain.CustomerSnapshot])(nil)
	_ port.Cache[*domain.CustomerSnapshot] = (*cache.Redis[*domain.CustomerSnapshot])(nil)
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[*domain.CustomerSnapshot](5 * time.Minute)
	defer c.Close()

	snap := &domain.CustomerSnapshot{ID: "snap-1", Source: "analytics-api"}
	c.Set("snapshot:customers", snap)

	got, ok := c.Get("snapshot:customers")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if got.ID != "snap-1" {
		t.Errorf("expected 'snap-1', got '%s'", got.ID)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_CloseTwice(t *testing.T) {
	c := cache.New[string](time.Minute)
	c.Close()
	c.Close()

	c.Set("key1", "value1")
	if _, ok := c.Get("key1"); !ok {
		t.Fatal("expected cache to stay usable after Close")
	}
}

func TestRedis_UnreachableIsMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := cache.NewRedis[*domain.CustomerSnapshot](client, "insights:", time.Minute, zap.NewNop())

	c.Set("snapshot:customers", &domain.CustomerSnapshot{ID: "snap-1"})
	if _, ok := c.Get("snapshot:customers"); ok {
		t.Fatal("expected miss when redis is unreachable")
	}
	c.Delete("snapshot:customers")
}
