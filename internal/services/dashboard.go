package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/metrics"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
)

// DateRange is an inclusive range of calendar days. A zero bound means the
// corresponding edge of the loaded data.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Dashboard owns the loaded tables for the lifetime of the process and
// recomputes every report from them on demand.
type Dashboard struct {
	mu       sync.RWMutex
	orders   *dataset.OrderTable
	geo      []models.GeoPoint
	loadedAt time.Time
	source   string

	zeroFill bool
	logger   *slog.Logger
	metrics  *observability.Metrics
}

type Option func(*Dashboard)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dashboard) { d.logger = logger }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(d *Dashboard) { d.metrics = m }
}

// WithZeroFill makes reports include zero rows for days without orders.
func WithZeroFill(enabled bool) Option {
	return func(d *Dashboard) { d.zeroFill = enabled }
}

func NewDashboard(opts ...Option) *Dashboard {
	d := &Dashboard{
		orders: dataset.NewOrderTable(nil),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = observability.NewMetrics()
	}
	return d
}

// SetData replaces the loaded tables.
func (d *Dashboard) SetData(orders []models.OrderRecord, geo []models.GeoPoint) {
	table := dataset.NewOrderTable(orders)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.orders = table
	d.geo = geo
	d.loadedAt = time.Now()
	d.metrics.DatasetRows.WithLabelValues("orders").Set(float64(table.Len()))
	d.metrics.DatasetRows.WithLabelValues("geolocation").Set(float64(len(geo)))
}

// Load reads the orders and, when configured, the geolocation source in
// parallel. Either failing fails the whole load.
func (d *Dashboard) Load(ctx context.Context, cfg config.DataConfig) error {
	ctx, span := observability.StartSpan(ctx, "dashboard.load",
		attribute.String("orders.source", cfg.OrdersSource))
	var err error
	defer func() { observability.FinishSpan(span, err) }()

	opts := dataset.Options{
		FetchTimeout: cfg.FetchTimeout,
		Retries:      cfg.FetchRetries,
		CacheDir:     cfg.CacheDir,
		Logger:       d.logger,
	}

	var (
		orders *dataset.OrderTable
		geo    []models.GeoPoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		table, loadErr := dataset.Load(gctx, cfg.OrdersSource, opts)
		d.recordLoad("orders", loadErr)
		if loadErr != nil {
			return fmt.Errorf("load orders: %w", loadErr)
		}
		orders = table
		return nil
	})
	if cfg.GeoSource != "" {
		g.Go(func() error {
			// the geolocation file is never cached
			geoOpts := opts
			geoOpts.CacheDir = ""
			points, loadErr := dataset.LoadGeolocation(gctx, cfg.GeoSource, geoOpts)
			d.recordLoad("geolocation", loadErr)
			if loadErr != nil {
				return fmt.Errorf("load geolocation: %w", loadErr)
			}
			geo = points
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return err
	}

	d.mu.Lock()
	d.orders = orders
	d.geo = geo
	d.loadedAt = time.Now()
	d.source = cfg.OrdersSource
	d.mu.Unlock()

	d.metrics.DatasetRows.WithLabelValues("orders").Set(float64(orders.Len()))
	d.metrics.DatasetRows.WithLabelValues("geolocation").Set(float64(len(geo)))
	d.logger.InfoContext(ctx, "dataset loaded",
		"orders", orders.Len(),
		"geolocation_points", len(geo),
		"source", cfg.OrdersSource,
	)
	return nil
}

func (d *Dashboard) recordLoad(name string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	d.metrics.DatasetLoads.WithLabelValues(name, status).Inc()
}

func (d *Dashboard) table() *dataset.OrderTable {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.orders
}

// Bounds is the default date range: the first and last approved days.
func (d *Dashboard) Bounds() (DateRange, bool) {
	minDay, maxDay, ok := d.table().Bounds()
	return DateRange{Start: minDay, End: maxDay}, ok
}

// resolve fills zero bounds from the data and validates the result against
// the loaded dates.
func (d *Dashboard) resolve(t *dataset.OrderTable, r DateRange) (DateRange, error) {
	minDay, maxDay, ok := t.Bounds()
	if !ok {
		return r, nil
	}
	if r.Start.IsZero() {
		r.Start = minDay
	}
	if r.End.IsZero() {
		r.End = maxDay
	}
	if err := dataset.ValidateRange(t, r.Start, r.End); err != nil {
		d.metrics.RangeRejections.Inc()
		return r, err
	}
	return r, nil
}

// Filter returns the orders approved within r. Nothing loaded behaves like
// an empty table.
func (d *Dashboard) Filter(r DateRange) (*dataset.OrderTable, DateRange, error) {
	t := d.table()
	r, err := d.resolve(t, r)
	if err != nil {
		return nil, r, err
	}
	if _, _, ok := t.Bounds(); !ok {
		return dataset.NewOrderTable(nil), r, nil
	}

	filtered, err := dataset.FilterByDate(t, r.Start, r.End)
	if err != nil {
		return nil, r, err
	}
	return filtered, r, nil
}

// Report filters the orders to r and computes every dashboard metric from
// scratch. A range without orders yields an empty report, not an error.
func (d *Dashboard) Report(ctx context.Context, r DateRange) (*metrics.Report, error) {
	ctx, span := observability.StartSpan(ctx, "dashboard.report")
	var err error
	defer func() { observability.FinishSpan(span, err) }()

	start := time.Now()

	filtered, resolved, err := d.Filter(r)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("range.start", resolved.Start.Format(dataset.DateLayout)),
		attribute.String("range.end", resolved.End.Format(dataset.DateLayout)),
		attribute.Int("rows", filtered.Len()),
	)

	report, err := metrics.Compute(ctx, filtered)
	if err != nil {
		return nil, fmt.Errorf("compute report: %w", err)
	}
	if !resolved.Start.IsZero() {
		report.Start, report.End = resolved.Start, resolved.End
	}
	if d.zeroFill && !report.Empty {
		report.DailyOrders = metrics.FillMissingDays(report.DailyOrders, report.Start, report.End)
	}

	d.metrics.ReportDuration.Observe(time.Since(start).Seconds())
	d.metrics.ReportRows.Observe(float64(report.Rows))
	if report.Empty {
		d.metrics.EmptyReports.Inc()
		d.logger.WarnContext(ctx, "date range matched no orders",
			"start", report.Start.Format(dataset.DateLayout),
			"end", report.End.Format(dataset.DateLayout),
		)
	}
	return report, nil
}

// Geolocation returns at most limit points, evenly sampled across the
// loaded set. limit <= 0 returns everything.
func (d *Dashboard) Geolocation(limit int) []models.GeoPoint {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if limit <= 0 || len(d.geo) <= limit {
		return append([]models.GeoPoint(nil), d.geo...)
	}

	step := float64(len(d.geo)) / float64(limit)
	sample := make([]models.GeoPoint, 0, limit)
	for i := 0; i < limit; i++ {
		sample = append(sample, d.geo[int(float64(i)*step)])
	}
	return sample
}

func (d *Dashboard) Stats() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := map[string]any{
		"record_count":       d.orders.Len(),
		"geolocation_points": len(d.geo),
		"source":             d.source,
		"loaded_at":          d.loadedAt,
	}
	if minDay, maxDay, ok := d.orders.Bounds(); ok {
		stats["min_date"] = minDay.Format(dataset.DateLayout)
		stats["max_date"] = maxDay.Format(dataset.DateLayout)
	}
	return stats
}
