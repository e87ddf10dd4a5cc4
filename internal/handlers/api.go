package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/metrics"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
)

const cacheControl = "private, max-age=60"

type APIHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewAPIHandlers(dashboard *services.Dashboard, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, r, h.logger, err, observability.GetRequestID(r.Context()))
}

// serveReport computes the report for the request's date range and writes
// the part selected by pick.
func (h *APIHandlers) serveReport(w http.ResponseWriter, r *http.Request, pick func(*metrics.Report) any) {
	rng, err := parseRange(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	report, err := h.dashboard.Report(r.Context(), rng)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, pick(report), map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, func(rep *metrics.Report) any { return rep })
}

func (h *APIHandlers) HandleDailyOrders(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, func(rep *metrics.Report) any { return rep.DailyOrders })
}

func (h *APIHandlers) HandleDailySpending(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, func(rep *metrics.Report) any { return rep.DailySpending })
}

func (h *APIHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, func(rep *metrics.Report) any {
		return map[string]any{
			"categories": rep.Categories,
			"top":        rep.TopCategories,
			"bottom":     rep.BottomCategories,
		}
	})
}

func (h *APIHandlers) HandleReviews(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, func(rep *metrics.Report) any { return rep.Reviews })
}

func (h *APIHandlers) HandleRFM(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, func(rep *metrics.Report) any {
		return map[string]any{
			"customers": rep.RFM,
			"averages":  rep.RFMAverages,
		}
	})
}

func (h *APIHandlers) HandleStates(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, func(rep *metrics.Report) any { return rep.States })
}

func (h *APIHandlers) HandleCustomers(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, func(rep *metrics.Report) any { return rep.CustomerDistribution })
}

type ordersPage struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Total   int        `json:"total"`
}

// HandleOrders returns the filtered rows themselves, limited to the first
// limit in approval order.
func (h *APIHandlers) HandleOrders(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := parseLimit(r, defaultOrderLimit, maxOrderLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	filtered, _, err := h.dashboard.Filter(rng)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page := ordersPage{Columns: dataset.OrderColumns(), Rows: [][]string{}, Total: filtered.Len()}
	if filtered.Len() > 0 {
		df := filtered.DataFrame(limit)
		if df.Err != nil {
			h.fail(w, r, df.Err)
			return
		}
		records := df.Records()
		page.Columns, page.Rows = records[0], records[1:]
	}

	errors.WriteSuccessWithHeaders(w, page, map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleGeolocation(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultGeoLimit, maxGeoLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, h.dashboard.Geolocation(limit), map[string]string{
		"Cache-Control": "public, max-age=300",
	})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if _, ok := h.dashboard.Bounds(); !ok {
		status = "degraded"
	}

	errors.WriteSuccess(w, map[string]string{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.dashboard.Stats())
}
