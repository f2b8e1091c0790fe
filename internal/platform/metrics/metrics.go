// Package metrics holds the Prometheus collectors shared by the planner,
// its provider adapters and the HTTP layer.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// GeocodeRequests counts geocoding lookups by outcome
	// (found, not_found, error, cache_hit).
	GeocodeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "geocode_requests_total", Help: "Geocoding lookups by outcome."},
		[]string{"outcome"},
	)
	// GeocodeThrottleWait records how long lookups waited on the rate limiter.
	GeocodeThrottleWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "geocode_throttle_wait_seconds", Help: "Time spent waiting for the geocoding rate limit.", Buckets: []float64{0, 0.1, 0.25, 0.5, 1, 2, 5}},
	)
	// RoutingRequests counts road routing calls by outcome (ok, unavailable, cache_hit).
	RoutingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "routing_requests_total", Help: "Road routing calls by outcome."},
		[]string{"outcome"},
	)
	// PlanningRuns counts finished planning runs by outcome.
	PlanningRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planning_runs_total", Help: "Planning runs by outcome."},
		[]string{"outcome"},
	)
	// StageDuration records how long each pipeline stage took.
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "planning_stage_duration_seconds", Help: "Planning stage duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"stage"},
	)
	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path"},
	)
)

var regOnce sync.Once

// Register adds every collector, plus Go/process collectors, to Registry.
// It is safe to call more than once.
func Register() {
	regOnce.Do(func() {
		Registry.MustRegister(
			GeocodeRequests,
			GeocodeThrottleWait,
			RoutingRequests,
			PlanningRuns,
			StageDuration,
			HTTPRequests,
			HTTPDuration,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}
