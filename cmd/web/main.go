package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/handlers"
	"ecommerce-dashboard/internal/middleware"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/server"
	"ecommerce-dashboard/internal/services"
)

const limiterSweepInterval = time.Minute

// newHandler wires the routes behind the middleware chain.
func newHandler(cfg *config.Config, dashboard *services.Dashboard, logger *slog.Logger, m *observability.Metrics, limiter *middleware.RateLimiter) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: handlers.NewPageHandlers(dashboard, logger).HandleDashboard,
	}
	srv := server.NewServer(dashboard, logger, m, templateHandlers)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.Metrics(m),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(limiter, logger),
	)
	return middlewareChain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"addr", cfg.Address(),
		"orders_source", cfg.Data.OrdersSource,
	)

	shutdownTracing, err := observability.InitTracing(cfg.Tracing, logger)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	m := observability.NewMetrics()
	dashboard := services.NewDashboard(
		services.WithLogger(logger),
		services.WithMetrics(m),
		services.WithZeroFill(cfg.Data.ZeroFill),
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
	start := time.Now()
	err = dashboard.Load(ctx, cfg.Data)
	cancel()
	if err != nil {
		logger.Error("failed to load dataset", "error", err)
		os.Exit(1)
	}
	logger.Info("dataset loaded successfully", "duration", time.Since(start))

	limiter := middleware.NewRateLimiter(cfg.Security)
	stopSweeper := make(chan struct{})
	go limiter.Run(limiterSweepInterval, stopSweeper)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, dashboard, logger, m, limiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)
	gracefulServer.RegisterShutdownHook("rate-limiter", func(ctx context.Context) error {
		close(stopSweeper)
		return nil
	})
	gracefulServer.RegisterShutdownHook("tracing", shutdownTracing)

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
