/*
Package metrics provides Prometheus metrics and health checking for FastTQ.

The package exports three groups of instruments:

Task metrics:
  - fasttq_tasks_total (gauge by status, sampled from the store)
  - fasttq_tasks_submitted_total (counter by kind)
  - fasttq_tasks_dispatched_total (counter)
  - fasttq_dispatch_failures_total (counter by reason)
  - fasttq_task_results_total (counter by outcome)
  - fasttq_dispatch_latency_seconds (histogram)

Worker metrics:
  - fasttq_workers_total (gauge by state, sampled from the store)
  - fasttq_worker_registry_size (gauge, sampled from the coordinator)
  - fasttq_worker_heartbeats_total (counter)

API metrics:
  - fasttq_api_requests_total (counter by method and status)
  - fasttq_api_request_duration_seconds (histogram by method)

Counters and histograms are incremented inline by pkg/manager and pkg/api.
Gauges are sampled every 15 seconds by the Collector, which polls the store
and the dispatch registry. All instruments register themselves at package
init; the HTTP exposition handler comes from Handler().

The package also carries the component health registry behind /health,
/ready and /healthz. Components report their state with RegisterComponent
and UpdateComponent; readiness requires every critical component (database,
broker, api) to be healthy.

Usage:

	metrics.RegisterComponent("database", true, "")
	metrics.UpdateComponent("broker", false, "connection lost")

	collector := metrics.NewCollector(store, coordinator)
	collector.Start()
	defer collector.Stop()

	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /ready", metrics.ReadyHandler())
*/
package metrics
