package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the dashboard's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	DatasetLoads    *prometheus.CounterVec
	DatasetRows     *prometheus.GaugeVec
	ReportDuration  prometheus.Histogram
	ReportRows      prometheus.Histogram
	EmptyReports    prometheus.Counter
	RangeRejections prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_http_requests_total",
				Help: "HTTP requests by route pattern and status code",
			},
			[]string{"route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		DatasetLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_dataset_loads_total",
				Help: "Dataset load attempts by dataset and outcome",
			},
			[]string{"dataset", "status"},
		),
		DatasetRows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dashboard_dataset_rows",
				Help: "Rows held in memory per dataset",
			},
			[]string{"dataset"},
		),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_report_duration_seconds",
			Help:    "Time spent filtering and computing a report",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		}),
		ReportRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_report_rows",
			Help:    "Rows in the filtered table a report was computed from",
			Buckets: prometheus.ExponentialBuckets(1, 10, 7),
		}),
		EmptyReports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_empty_reports_total",
			Help: "Reports whose date range matched no orders",
		}),
		RangeRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_range_rejections_total",
			Help: "Requests rejected for an invalid date range",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.DatasetLoads,
		m.DatasetRows,
		m.ReportDuration,
		m.ReportRows,
		m.EmptyReports,
		m.RangeRejections,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
