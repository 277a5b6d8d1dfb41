package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
	"github.com/boddenberg/customer-insights-bfa/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("client")

// SourceName identifies the analytics API in errors, logs and metrics.
const SourceName = "analytics-api"

// AnalyticsClient reads customer records from the analytics API.
type AnalyticsClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
}

// NewAnalyticsClient creates a new AnalyticsClient.
func NewAnalyticsClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *AnalyticsClient {
	return &AnalyticsClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
	}
}

// Name implements port.CustomerSource.
func (c *AnalyticsClient) Name() string { return SourceName }

// ListCustomers fetches customers matching q with retry, circuit breaker, and tracing.
func (c *AnalyticsClient) ListCustomers(ctx context.Context, q domain.CustomerQuery) (*domain.CustomerPage, error) {
	ctx, span := tracer.Start(ctx, "AnalyticsClient.ListCustomers")
	defer span.End()
	span.SetAttributes(
		attribute.String("query.segment", q.Segment),
		attribute.String("query.churn_risk", q.ChurnRisk),
		attribute.String("query.cltv_segment", q.CLTVSegment),
		attribute.String("query.category", q.Category),
		attribute.Int("query.limit", q.Limit),
	)

	var page domain.CustomerPage
	if err := c.get(ctx, "/api/customers", customerParams(q), "customers", &page); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list customers failed")
		return nil, err
	}
	if page.Customers == nil {
		page.Customers = []domain.Customer{}
	}

	span.SetAttributes(attribute.Int("customers.count", len(page.Customers)))
	return &page, nil
}

// Ping checks the analytics API health endpoint.
func (c *AnalyticsClient) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "AnalyticsClient.Ping")
	defer span.End()

	var status struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/api/health", nil, "health", &status); err != nil {
		span.RecordError(err)
		return err
	}
	if status.Status != "healthy" {
		return &domain.ErrExternalService{Service: SourceName, Err: fmt.Errorf("reported status %q", status.Status)}
	}
	return nil
}

// get performs one GET through the bulkhead, breaker and retry loop and
// decodes the JSON body into out.
func (c *AnalyticsClient) get(ctx context.Context, path string, params url.Values, resource string, out any) error {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return c.wrap(ctx, err)
	}
	defer c.bulkhead.Release()

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return resilience.Permanent(err)
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return resilience.Permanent(&domain.ErrNotFound{Resource: resource, ID: path})
			case resp.StatusCode >= 400 && resp.StatusCode < 500:
				return resilience.Permanent(fmt.Errorf("analytics API returned status %d", resp.StatusCode))
			case resp.StatusCode != http.StatusOK:
				return fmt.Errorf("analytics API returned status %d", resp.StatusCode)
			}

			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return resilience.Permanent(fmt.Errorf("decode %s: %w", resource, err))
			}
			return nil
		})
	})
	if err != nil {
		return c.wrap(ctx, err)
	}
	return nil
}

func (c *AnalyticsClient) wrap(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: SourceName}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: SourceName}
	}
	return &domain.ErrExternalService{Service: SourceName, Err: err}
}

// customerParams encodes q, leaving out empty and "all" filters.
func customerParams(q domain.CustomerQuery) url.Values {
	params := url.Values{}
	set := func(key, value string) {
		if value != "" && value != domain.SelectAll {
			params.Set(key, value)
		}
	}
	set("segment", q.Segment)
	set("churn_risk", q.ChurnRisk)
	set("cltv_segment", q.CLTVSegment)
	set("category", q.Category)
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return params
}
