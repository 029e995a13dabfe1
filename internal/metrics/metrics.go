package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// AllocationRuns counts allocator executions by algorithm and outcome
	AllocationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "allocation_runs_total", Help: "Allocator runs by algorithm and status."},
		[]string{"algorithm", "status"},
	)
	// SolveDuration tracks allocator wall-clock time in seconds
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "allocation_solve_duration_seconds", Help: "Allocator solve time in seconds.", Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 60, 300}},
		[]string{"algorithm"},
	)
	// AllocatedPounds tracks total pounds placed per run
	AllocatedPounds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "allocation_pounds", Help: "Pounds allocated per run.", Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000}},
		[]string{"algorithm"},
	)
	// ModelVariables and ModelConstraints expose the size of the last
	// optimization model built
	ModelVariables = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "allocation_model_variables", Help: "Decision variables in the last optimization model."},
	)
	ModelConstraints = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "allocation_model_constraints", Help: "Constraints in the last optimization model."},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(AllocationRuns)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(AllocatedPounds)
		Registry.MustRegister(ModelVariables)
		Registry.MustRegister(ModelConstraints)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
