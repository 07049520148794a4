// Package metrics provides Prometheus metrics for the rotation service.
//
// HTTP metrics:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//   - rate_limiter_buckets_total: Gauge of tracked client buckets
//
// Rotation metrics:
//   - rotation_group_merges_total: Counter of fragmented groups merged
//   - rotation_patches_total: Counter of patches persisted
//   - rotation_violations: Gauge of open violations by kind
//   - rotation_day_statuses: Gauge of today's medicines by status
//   - rotation_refresh_duration_seconds: Histogram of refresh runs by result
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import (
	"github.com/giygas/medicament-rotations/entities"
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

	GroupMergesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rotation_group_merges_total",
			Help: "Fragmented groups merged into a canonical group",
		},
	)

	PatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rotation_patches_total",
			Help: "Normalization patches persisted to the record store",
		},
	)

	Violations = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rotation_violations",
			Help: "Structural violations found by the last refresh",
		},
		[]string{"kind"},
	)

	DayStatuses = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rotation_day_statuses",
			Help: "Medicines per status for the current day",
		},
		[]string{"status"},
	)

	RefreshDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rotation_refresh_duration_seconds",
			Help:    "Duration of refresh pipeline runs",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(GroupMergesTotal)
	prometheus.MustRegister(PatchesTotal)
	prometheus.MustRegister(Violations)
	prometheus.MustRegister(DayStatuses)
	prometheus.MustRegister(RefreshDuration)
}

// SetViolations publishes the violation counts of a refresh. Kinds without
// violations are reset to zero.
func SetViolations(byKind map[entities.ViolationKind]int) {
	for _, kind := range entities.ViolationKinds {
		Violations.WithLabelValues(string(kind)).Set(float64(byKind[kind]))
	}
}

// SetDayStatuses publishes today's status counts
func SetDayStatuses(counts map[entities.Status]int) {
	for _, s := range entities.Statuses {
		DayStatuses.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}
