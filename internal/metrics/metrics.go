// Package metrics provides Prometheus metrics for the API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for operation latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Metrics holds all Prometheus metric collectors for the API.
// Operation labels come from declared operation names, so cardinality is
// bounded by the route table.
type Metrics struct {
	Registry *prometheus.Registry

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	RequestsInFlight  prometheus.Gauge

	PipelineFailures *prometheus.CounterVec
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petstore_api_operations_total",
			Help: "Total operation invocations by operation and final status code.",
		}, []string{"operation", "status_code"}),

		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "petstore_api_operation_duration_seconds",
			Help:    "Operation invocation latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"operation"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "petstore_api_requests_in_flight",
			Help: "Number of invocations currently being processed.",
		}),

		PipelineFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petstore_api_pipeline_failures_total",
			Help: "Total pipeline failures by operation and stage.",
		}, []string{"operation", "stage"}),
	}

	reg.MustRegister(
		m.OperationsTotal,
		m.OperationDuration,
		m.RequestsInFlight,
		m.PipelineFailures,
	)

	return m
}
