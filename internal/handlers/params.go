package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/services"
)

const (
	defaultOrderLimit = 100
	maxOrderLimit     = 5000
	defaultGeoLimit   = 2000
	maxGeoLimit       = 50000
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// rangeQuery is the date filter shared by the API, export and SSE
// endpoints. Empty bounds fall back to the loaded data's min and max.
type rangeQuery struct {
	Start string `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End   string `json:"end" validate:"omitempty,datetime=2006-01-02"`
}

func (q rangeQuery) dateRange() (services.DateRange, error) {
	if err := validate.Struct(q); err != nil {
		return services.DateRange{}, errors.ValidationWrap(err, "Dates must use the YYYY-MM-DD format")
	}

	var r services.DateRange
	var err error
	if q.Start != "" {
		if r.Start, err = time.Parse(dataset.DateLayout, q.Start); err != nil {
			return r, errors.ValidationWrap(err, "Invalid start date")
		}
	}
	if q.End != "" {
		if r.End, err = time.Parse(dataset.DateLayout, q.End); err != nil {
			return r, errors.ValidationWrap(err, "Invalid end date")
		}
	}
	return r, nil
}

func parseRange(r *http.Request) (services.DateRange, error) {
	q := r.URL.Query()
	return rangeQuery{Start: q.Get("start"), End: q.Get("end")}.dateRange()
}

// parseLimit reads the limit query parameter, defaulting to def and
// rejecting anything outside 1..maxLimit.
func parseLimit(r *http.Request, def, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.ValidationWrap(err, "limit must be an integer")
	}
	if err := validate.Var(limit, "min=1,max="+strconv.Itoa(maxLimit)); err != nil {
		return 0, errors.ValidationWrap(err, "limit must be between 1 and "+strconv.Itoa(maxLimit))
	}
	return limit, nil
}
