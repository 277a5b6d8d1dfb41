package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"

	"github.com/go-playground/validator/v10"
)

var (
	queryValidator *validator.Validate
	validatorOnce  sync.Once
)

// getValidator returns the shared validator with the category rules
// registered. Category rules also accept "all".
func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name, _, _ := strings.Cut(f.Tag.Get("query"), ","); name != "" {
				return name
			}
			return f.Name
		})

		_ = v.RegisterValidation("dimension", func(fl validator.FieldLevel) bool {
			_, err := domain.ParseDimension(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("churnrisk", selection(func(s string) bool { return domain.ChurnRisk(s).Valid() }))
		_ = v.RegisterValidation("segment", selection(func(s string) bool { return domain.Segment(s).Valid() }))
		_ = v.RegisterValidation("cltvsegment", selection(func(s string) bool { return domain.CLTVSegment(s).Valid() }))

		queryValidator = v
	})
	return queryValidator
}

func selection(valid func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		return v == domain.SelectAll || valid(v)
	}
}

// validateQuery runs the struct's validate tags and reports the first
// failure as a domain validation error.
func validateQuery(q any) error {
	err := getValidator().Struct(q)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &domain.ErrValidation{
			Field:   fe.Field(),
			Message: fmt.Sprintf("value %v fails %q", fe.Value(), ruleName(fe)),
		}
	}
	return &domain.ErrValidation{Field: "query", Message: err.Error()}
}

func ruleName(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fe.Tag() + "=" + fe.Param()
	}
	return fe.Tag()
}

// ============================================================
// Query shapes
// ============================================================

type singleQuery struct {
	Dimension string `query:"dimension" validate:"omitempty,dimension"`
	Filter    string `query:"filter" validate:"omitempty,max=64"`
}

type brandQuery struct {
	Segment     string `query:"segment" validate:"omitempty,segment"`
	ChurnRisk   string `query:"churn_risk" validate:"omitempty,churnrisk"`
	CLTVSegment string `query:"cltv_segment" validate:"omitempty,cltvsegment"`
}

type topCustomersQuery struct {
	Metric string `query:"metric" validate:"omitempty,max=64"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=5000"`
}

func parseTopCustomersQuery(r *http.Request) (topCustomersQuery, error) {
	q := topCustomersQuery{Metric: r.URL.Query().Get("metric")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return q, &domain.ErrValidation{Field: "limit", Message: "must be an integer"}
		}
		q.Limit = limit
	}
	return q, validateQuery(q)
}
