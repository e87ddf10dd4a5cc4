package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/services"
	"ecommerce-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard *services.Dashboard, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

func renderHTML(r *http.Request, c templ.Component) (string, error) {
	var buf strings.Builder
	err := c.Render(r.Context(), &buf)
	return buf.String(), err
}

// HandleRefreshAll recomputes the report for the page's start/end signals
// and patches every fragment plus the chart signals in one stream.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	var q rangeQuery
	if err := datastar.ReadSignals(r, &q); err != nil {
		h.logger.WarnContext(r.Context(), "read signals", "error", err)
	}

	sse := datastar.NewSSE(w, r)

	rng, err := q.dateRange()
	if err == nil {
		err = h.refresh(r, sse, rng)
	}
	if err != nil {
		h.patchStatus(r, sse, errors.FromError(err).Message)
	}
}

func (h *SSEHandlers) refresh(r *http.Request, sse *datastar.ServerSentEventGenerator, rng services.DateRange) error {
	report, err := h.dashboard.Report(r.Context(), rng)
	if err != nil {
		h.logger.WarnContext(r.Context(), "refresh rejected", "error", err)
		return err
	}

	for _, c := range templates.Fragments(report) {
		html, err := renderHTML(r, c)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "render fragment", "error", err)
			return err
		}
		if err := sse.PatchElements(html); err != nil {
			return err
		}
	}

	signals := templates.ChartSignals(report)
	signals["start"] = templates.Date(report.Start)
	signals["end"] = templates.Date(report.End)
	payload, err := json.Marshal(signals)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "marshal chart signals", "error", err)
		return err
	}
	return sse.PatchSignals(payload)
}

func (h *SSEHandlers) patchStatus(r *http.Request, sse *datastar.ServerSentEventGenerator, message string) {
	html, err := renderHTML(r, templates.Status(message))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "render status", "error", err)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.WarnContext(r.Context(), "patch status", "error", err)
	}
}
