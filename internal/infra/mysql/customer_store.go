// Package mysql reads customer records from a MySQL/MariaDB table.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
	"github.com/boddenberg/customer-insights-bfa/internal/infra/resilience"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("mysql")

// SourceName identifies the MySQL source in errors, logs and metrics.
const SourceName = "mysql"

var identifier = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// CustomerStore lists customers from one table with one column per field,
// including the dynamic "<group>_revenue" style columns.
type CustomerStore struct {
	db    *sql.DB
	table string
	cb    *gobreaker.CircuitBreaker
	cfg   resilience.Config
}

// Open connects to dsn, which may be a mysql:// or mariadb:// URL or a
// native driver DSN.
func Open(dsn, table string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) (*CustomerStore, error) {
	native, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", native)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(max(cfg.MaxConcurrency, 1))
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	store, err := New(db, table, cb, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an open database handle.
func New(db *sql.DB, table string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) (*CustomerStore, error) {
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &CustomerStore{db: db, table: table, cb: cb, cfg: cfg}, nil
}

// Name implements port.CustomerSource.
func (s *CustomerStore) Name() string { return SourceName }

// Close closes the database handle.
func (s *CustomerStore) Close() error { return s.db.Close() }

// Ping checks the database connection.
func (s *CustomerStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &domain.ErrExternalService{Service: SourceName, Err: err}
	}
	return nil
}

// ListCustomers selects the customers matching q. A category filter keeps rows
// with "<category>_visits" > 0 and is ignored when the table has no such
// column.
func (s *CustomerStore) ListCustomers(ctx context.Context, q domain.CustomerQuery) (*domain.CustomerPage, error) {
	ctx, span := tracer.Start(ctx, "CustomerStore.ListCustomers")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", s.table), attribute.Int("query.limit", q.Limit))

	result, err := s.cb.Execute(func() (any, error) {
		var page *domain.CustomerPage
		err := resilience.RetryWithBackoff(ctx, s.cfg, func() error {
			var err error
			page, err = s.list(ctx, q)
			return err
		})
		return page, err
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.ErrCircuitOpen{Service: SourceName}
		}
		return nil, &domain.ErrExternalService{Service: SourceName, Err: err}
	}

	page := result.(*domain.CustomerPage)
	span.SetAttributes(attribute.Int("customers.count", len(page.Customers)))
	return page, nil
}

func (s *CustomerStore) list(ctx context.Context, q domain.CustomerQuery) (*domain.CustomerPage, error) {
	columns, err := s.columns(ctx)
	if err != nil {
		return nil, err
	}

	where, args := buildFilter(q, columns)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM `%s`%s", s.table, where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}

	query := fmt.Sprintf("SELECT * FROM `%s`%s", s.table, where)
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select customers: %w", err)
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0)
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, domain.NewCustomer(rowFields(columns, values)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read customers: %w", err)
	}

	return &domain.CustomerPage{
		Customers:      customers,
		TotalCount:     len(customers),
		TotalAvailable: total,
	}, nil
}

func (s *CustomerStore) columns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM `%s` LIMIT 0", s.table))
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	defer rows.Close()
	return rows.Columns()
}

// buildFilter returns the WHERE clause and arguments for q. Only columns
// present in the table are filtered on.
func buildFilter(q domain.CustomerQuery, columns []string) (string, []any) {
	has := make(map[string]bool, len(columns))
	for _, c := range columns {
		has[c] = true
	}

	var clauses []string
	var args []any
	exact := func(column, value string) {
		if value == "" || value == domain.SelectAll || !has[column] {
			return
		}
		clauses = append(clauses, fmt.Sprintf("`%s` = ?", column))
		args = append(args, value)
	}
	exact("segment", q.Segment)
	exact("churn_risk", q.ChurnRisk)
	exact("cltv_segment", q.CLTVSegment)

	if q.Category != "" && q.Category != domain.SelectAll {
		visits := q.Category + domain.VisitsSuffix
		if identifier.MatchString(visits) && has[visits] {
			clauses = append(clauses, fmt.Sprintf("`%s` > 0", visits))
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// textColumns are kept verbatim even when they look numeric.
var textColumns = map[string]bool{
	"customer_id":  true,
	"segment":      true,
	"churn_risk":   true,
	"cltv_segment": true,
}

// rowFields maps scanned column values to the flat field shape NewCustomer
// reads. Text that parses as a number becomes float64.
func rowFields(columns []string, values []any) map[string]any {
	fields := make(map[string]any, len(columns))
	for i, col := range columns {
		switch v := values[i].(type) {
		case []byte:
			fields[col] = textValue(col, string(v))
		case string:
			fields[col] = textValue(col, v)
		case time.Time:
			fields[col] = v.Format(time.RFC3339)
		default:
			fields[col] = v
		}
	}
	return fields
}

func textValue(col, s string) any {
	if textColumns[col] {
		return s
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f
	}
	return s
}

// toMySQLDSN converts mysql:// and mariadb:// URLs to the driver's DSN
// format. Anything else is passed through unchanged.
func toMySQLDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "mariadb://") && !strings.HasPrefix(dsn, "mysql://") {
		return dsn, nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}

	cfg := gomysql.NewConfig()
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if cfg.User == "" || cfg.Addr == "" || cfg.DBName == "" {
		return "", fmt.Errorf("incomplete dsn: user, host and database are required")
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.InterpolateParams = true

	return cfg.FormatDSN(), nil
}
