package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency across all routes.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "fleetbeacon",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// OutboxDeliveryAttempts counts webhook delivery attempts by outcome.
var OutboxDeliveryAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "fleetbeacon",
		Subsystem: "webhook",
		Name:      "delivery_attempts_total",
		Help:      "Webhook delivery attempts by outcome (success, failure, skipped_circuit_open).",
	},
	[]string{"outcome"},
)

// CircuitBreakerTrips counts the number of times an endpoint's circuit opened.
var CircuitBreakerTrips = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "fleetbeacon",
		Subsystem: "webhook",
		Name:      "circuit_breaker_trips_total",
		Help:      "Number of times a webhook endpoint's circuit breaker opened.",
	},
)

// JobDuration tracks how long each scheduled job execution takes.
var JobDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "fleetbeacon",
		Subsystem: "scheduler",
		Name:      "job_duration_seconds",
		Help:      "Duration of a single job execution.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"job", "outcome"},
)

// EnrollmentOutcomes counts enrollment attempts by outcome.
var EnrollmentOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "fleetbeacon",
		Subsystem: "enrollment",
		Name:      "attempts_total",
		Help:      "Device enrollment attempts by outcome (created, conflict, gone, not_found, error).",
	},
	[]string{"outcome"},
)

// All returns the service-specific collectors to register alongside the
// default Go/process collectors.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestDuration,
		OutboxDeliveryAttempts,
		CircuitBreakerTrips,
		JobDuration,
		EnrollmentOutcomes,
	}
}

// NewMetricsRegistry creates a Prometheus registry with Go/process collectors
// and any additional service-specific collectors passed as arguments.
func NewMetricsRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}
