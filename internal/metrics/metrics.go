// Package metrics holds the prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviestats_http_requests_total",
			Help: "HTTP requests by route pattern, method and status code",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moviestats_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// ReportCacheLookups counts overview report cache lookups by result (hit, miss, error)
	ReportCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviestats_report_cache_lookups_total",
			Help: "Analytics overview cache lookups by result",
		},
		[]string{"result"},
	)

	ReportComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moviestats_report_compute_duration_seconds",
			Help:    "Time spent loading the catalogue and computing an analytics report",
			Buckets: prometheus.DefBuckets,
		},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moviestats_rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	// ImportedRows counts CSV import rows by outcome (accepted, rejected)
	ImportedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviestats_import_rows_total",
			Help: "Movie CSV import rows by outcome",
		},
		[]string{"outcome"},
	)
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
