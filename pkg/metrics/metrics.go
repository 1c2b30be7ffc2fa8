package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Task metrics
	TasksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fasttq_tasks_total",
			Help: "Total number of tasks by status",
		},
		[]string{"status"},
	)

	TasksSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fasttq_tasks_submitted_total",
			Help: "Total number of task submissions accepted by kind",
		},
		[]string{"kind"},
	)

	TasksDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fasttq_tasks_dispatched_total",
			Help: "Total number of tasks published to a worker queue",
		},
	)

	DispatchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fasttq_dispatch_failures_total",
			Help: "Total number of dispatch failures by reason",
		},
		[]string{"reason"},
	)

	ResultsUploaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fasttq_task_results_total",
			Help: "Total number of uploaded task results by outcome",
		},
		[]string{"outcome"},
	)

	// Worker metrics
	WorkersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fasttq_workers_total",
			Help: "Total number of known workers by state",
		},
		[]string{"state"},
	)

	RegistrySize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fasttq_worker_registry_size",
			Help: "Number of workers currently registered for dispatch",
		},
	)

	HeartbeatsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fasttq_worker_heartbeats_total",
			Help: "Total number of recorded worker heartbeats",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fasttq_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fasttq_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Dispatch metrics
	DispatchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fasttq_dispatch_latency_seconds",
			Help:    "Time from accepted submission to broker confirmation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(TasksTotal)
	prometheus.MustRegister(TasksSubmitted)
	prometheus.MustRegister(TasksDispatched)
	prometheus.MustRegister(DispatchFailures)
	prometheus.MustRegister(ResultsUploaded)
	prometheus.MustRegister(WorkersTotal)
	prometheus.MustRegister(RegistrySize)
	prometheus.MustRegister(HeartbeatsTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(DispatchLatency)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
