package server

import (
	"log/slog"
	"net/http"

	"ecommerce-dashboard/internal/handlers"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
)

type Server struct {
	dashboard      *services.Dashboard
	mux            *http.ServeMux
	logger         *slog.Logger
	metrics        *observability.Metrics
	apiHandlers    *handlers.APIHandlers
	sseHandlers    *handlers.SSEHandlers
	exportHandlers *handlers.ExportHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(dashboard *services.Dashboard, logger *slog.Logger, m *observability.Metrics, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		dashboard:      dashboard,
		mux:            http.NewServeMux(),
		logger:         logger,
		metrics:        m,
		apiHandlers:    handlers.NewAPIHandlers(dashboard, logger),
		sseHandlers:    handlers.NewSSEHandlers(dashboard, logger),
		exportHandlers: handlers.NewExportHandlers(dashboard, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	// REST API endpoints, all filtered by ?start=&end=
	s.mux.HandleFunc("GET /api/summary", s.apiHandlers.HandleSummary)
	s.mux.HandleFunc("GET /api/daily-orders", s.apiHandlers.HandleDailyOrders)
	s.mux.HandleFunc("GET /api/daily-spending", s.apiHandlers.HandleDailySpending)
	s.mux.HandleFunc("GET /api/categories", s.apiHandlers.HandleCategories)
	s.mux.HandleFunc("GET /api/reviews", s.apiHandlers.HandleReviews)
	s.mux.HandleFunc("GET /api/rfm", s.apiHandlers.HandleRFM)
	s.mux.HandleFunc("GET /api/states", s.apiHandlers.HandleStates)
	s.mux.HandleFunc("GET /api/customers", s.apiHandlers.HandleCustomers)
	s.mux.HandleFunc("GET /api/orders", s.apiHandlers.HandleOrders)
	s.mux.HandleFunc("GET /api/geolocation", s.apiHandlers.HandleGeolocation)
	s.mux.HandleFunc("GET /api/export.xlsx", s.exportHandlers.HandleXLSX)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
