package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	evaluationsTotal      *prometheus.CounterVec
	backendLatencySeconds *prometheus.HistogramVec
	schemaDriftTotal      prometheus.Counter
	staleResultsTotal     prometheus.Counter
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the grader and the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_evaluations_total",
			Help: "Total number of grading attempts by backend, verdict and failure kind.",
		}, []string{"backend", "verdict", "failure"})

		backendLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grader_backend_latency_seconds",
			Help:    "Latency of a single LLM backend call.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"backend"})

		schemaDriftTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grader_reply_schema_drift_total",
			Help: "Replies that normalized successfully but did not match the current reply schema.",
		})

		staleResultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grader_stale_results_total",
			Help: "Grading results discarded because a newer review attempt superseded them.",
		})

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		prometheus.MustRegister(
			evaluationsTotal,
			backendLatencySeconds,
			schemaDriftTotal,
			staleResultsTotal,
			httpRequestsTotal,
			httpLatencySeconds,
		)
	})
}

// Evaluations exposes the counter for grading attempts.
func Evaluations() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsTotal
}

// BackendLatency exposes the backend call latency histogram.
func BackendLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return backendLatencySeconds
}

// SchemaDrift exposes the schema drift counter.
func SchemaDrift() prometheus.Counter {
	RegisterMetrics()
	return schemaDriftTotal
}

// StaleResults exposes the counter for discarded stale results.
func StaleResults() prometheus.Counter {
	RegisterMetrics()
	return staleResultsTotal
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}
