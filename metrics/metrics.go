// Package metrics provides Prometheus metrics collection for the dispensing API.
// It exports HTTP request metrics:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// and load metrics for the source tables:
//   - dispensing_load_total: Counter with kind and result labels
//   - dispensing_load_rows: Gauge of rows loaded per kind
//   - dispensing_load_dropped_rows: Gauge of rows dropped per kind and reason
//   - dispensing_load_duration_seconds: Histogram per kind
//   - dispensing_load_last_success_timestamp_seconds: Gauge per kind
//
// All metrics are automatically registered with the Prometheus default registry
// during package initialization.
package metrics

import (
	"github.com/giygas/dispensacao-api/dispensingparser/entities"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	LoadTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispensing_load_total",
			Help: "Load attempts of the source tables",
		},
		[]string{"kind", "result"},
	)

	LoadRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispensing_load_rows",
			Help: "Rows loaded by the last successful load",
		},
		[]string{"kind"},
	)

	LoadDroppedRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispensing_load_dropped_rows",
			Help: "Rows removed or skipped by the last successful load",
		},
		[]string{"kind", "reason"},
	)

	LoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispensing_load_duration_seconds",
			Help:    "Duration of table loads",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)

	LoadLastSuccess = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispensing_load_last_success_timestamp_seconds",
			Help: "Unix time of the last successful load",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(LoadTotals)
	prometheus.MustRegister(LoadRows)
	prometheus.MustRegister(LoadDroppedRows)
	prometheus.MustRegister(LoadDuration)
	prometheus.MustRegister(LoadLastSuccess)
}

// ObserveLoad records the outcome of one load. report may be nil.
func ObserveLoad(kind string, report *entities.LoadReport, err error) {
	if err != nil {
		LoadTotals.WithLabelValues(kind, "error").Inc()
		return
	}
	LoadTotals.WithLabelValues(kind, "success").Inc()

	if report == nil {
		return
	}

	LoadRows.WithLabelValues(kind).Set(float64(report.RowsLoaded))
	LoadDroppedRows.WithLabelValues(kind, "malformed_line").Set(float64(report.SkippedLines))
	LoadDroppedRows.WithLabelValues(kind, "blank_interested").Set(float64(report.BlankInterested))
	LoadDroppedRows.WithLabelValues(kind, "supplement").Set(float64(report.ExcludedSupplements))
	LoadDuration.WithLabelValues(kind).Observe(report.Duration.Seconds())
	LoadLastSuccess.WithLabelValues(kind).Set(float64(report.StartedAt.Add(report.Duration).Unix()))
}
