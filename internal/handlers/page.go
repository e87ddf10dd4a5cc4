package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
	"ecommerce-dashboard/internal/ui/templates"
)

const renderTimeout = 10 * time.Second

type PageHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewPageHandlers(dashboard *services.Dashboard, logger *slog.Logger) *PageHandlers {
	return &PageHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

// HandleDashboard renders the page with the report for the full loaded
// range; the date picker then refreshes it over SSE.
func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	report, err := h.dashboard.Report(ctx, services.DateRange{})
	if err != nil {
		errors.WriteError(w, r, h.logger, err, observability.GetRequestID(ctx))
		return
	}

	page := templates.PageData{Report: report}
	if bounds, ok := h.dashboard.Bounds(); ok {
		page.Min = templates.Date(bounds.Start)
		page.Max = templates.Date(bounds.End)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if err := templates.Dashboard(page).Render(ctx, w); err != nil {
		h.logger.ErrorContext(ctx, "render dashboard", "error", err)
	}
}
