// Package metrics exposes Prometheus instrumentation for the license server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the license server
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Licensing Metrics
	LicensesIssued   prometheus.Counter
	ValidationsTotal *prometheus.CounterVec // result: valid/invalid, reason
	LookupsTotal     *prometheus.CounterVec // result: found/not_found
	WebhookEvents    *prometheus.CounterVec // type, status

	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	r := &Registry{registry: reg}

	r.HTTPRequestsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcrusher_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	r.HTTPRequestDuration = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adcrusher_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	r.HTTPRequestsInFlight = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "adcrusher_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	r.LicensesIssued = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "adcrusher_licenses_issued_total",
			Help: "Total number of licenses issued",
		},
	)

	r.ValidationsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcrusher_license_validations_total",
			Help: "License validation verdicts by result and reason",
		},
		[]string{"result", "reason"},
	)

	r.LookupsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcrusher_license_lookups_total",
			Help: "License lookups by result",
		},
		[]string{"result"},
	)

	r.WebhookEvents = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcrusher_webhook_events_total",
			Help: "Payment webhook events by type and handling status",
		},
		[]string{"type", "status"},
	)

	return r
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns the /metrics scrape handler for this registry
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
