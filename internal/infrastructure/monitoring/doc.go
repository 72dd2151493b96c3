/*
Package monitoring provides Prometheus metrics for the view lifecycle
core: active/pooled view gauges, switch and eviction counters, pool
hit/miss ratios, probe latencies, reconnect outcomes, HTTP request
metrics, and WebSocket connection counts.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))

	metrics.SetViewsActive(3)
	metrics.RecordSwitch("pool_hit", duration)

A JSON snapshot for the host UI is available via Snapshot(); the full
exposition format is served by promhttp on /metrics.
*/
package monitoring
