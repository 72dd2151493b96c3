package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// View lifecycle metrics
	ViewsActive    prometheus.Gauge
	ViewsPooled    prometheus.Gauge
	ViewsCreated   prometheus.Counter
	ViewsDestroyed prometheus.Counter
	SwitchesTotal  *prometheus.CounterVec
	SwitchDuration *prometheus.HistogramVec
	EvictionsTotal *prometheus.CounterVec
	PoolSweeps     prometheus.Counter

	// Status monitoring metrics
	ProbeDuration     *prometheus.HistogramVec
	StatusTransitions *prometheus.CounterVec

	// Recovery metrics
	ReconnectsTotal *prometheus.CounterVec
	SessionResets   prometheus.Counter
	SessionBackups  *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSEvents      prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for the JSON API
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for the JSON API
type Snapshot struct {
	TotalRequests   int64   `json:"total_requests"`
	TotalErrors     int64   `json:"total_errors"`
	ActiveViews     int64   `json:"active_views"`
	PooledViews     int64   `json:"pooled_views"`
	TotalSwitches   int64   `json:"total_switches"`
	TotalEvictions  int64   `json:"total_evictions"`
	TotalReconnects int64   `json:"total_reconnects"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatdeck_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatdeck_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		ViewsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "chatdeck_views_active",
				Help: "Number of active rendering units",
			},
		),
		ViewsPooled: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "chatdeck_views_pooled",
				Help: "Number of rendering units kept warm in the pool",
			},
		),
		ViewsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "chatdeck_views_created_total",
				Help: "Total number of rendering units created",
			},
		),
		ViewsDestroyed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "chatdeck_views_destroyed_total",
				Help: "Total number of rendering units destroyed",
			},
		),
		SwitchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatdeck_view_switches_total",
				Help: "Total number of view switches by source",
			},
			[]string{"source"}, // pool_hit, cold_create, already_active
		),
		SwitchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatdeck_view_switch_duration_seconds",
				Help:    "View switch duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10},
			},
			[]string{"source"},
		),
		EvictionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatdeck_view_evictions_total",
				Help: "Total number of evictions by outcome",
			},
			[]string{"outcome"}, // pooled, destroyed
		),
		PoolSweeps: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "chatdeck_pool_sweeps_total",
				Help: "Total number of stale pool sweep passes",
			},
		),

		ProbeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatdeck_probe_duration_seconds",
				Help:    "Status probe duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"kind"}, // connection, login
		),
		StatusTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatdeck_status_transitions_total",
				Help: "Total number of observed status transitions",
			},
			[]string{"field", "to"},
		),

		ReconnectsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatdeck_reconnects_total",
				Help: "Total number of reconnect attempts by result",
			},
			[]string{"result"}, // success, failure, noop
		),
		SessionResets: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "chatdeck_session_resets_total",
				Help: "Total number of session data resets",
			},
		),
		SessionBackups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatdeck_session_backups_total",
				Help: "Total number of session backups by result",
			},
			[]string{"result"},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "chatdeck_ws_connections",
				Help: "Number of active WebSocket event subscribers",
			},
		),
		WSEvents: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "chatdeck_ws_events_total",
				Help: "Total number of status events delivered over WebSocket",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "chatdeck_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordSwitch records a view switch and its latency
func (m *Metrics) RecordSwitch(source string, duration time.Duration) {
	m.SwitchesTotal.WithLabelValues(source).Inc()
	m.SwitchDuration.WithLabelValues(source).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalSwitches++
	m.mu.Unlock()
}

// RecordEviction records an eviction outcome
func (m *Metrics) RecordEviction(outcome string) {
	m.EvictionsTotal.WithLabelValues(outcome).Inc()

	m.mu.Lock()
	m.snapshot.TotalEvictions++
	m.mu.Unlock()
}

// RecordProbe records a status probe duration
func (m *Metrics) RecordProbe(kind string, duration time.Duration) {
	m.ProbeDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordStatusTransition records an observed status change
func (m *Metrics) RecordStatusTransition(field, to string) {
	m.StatusTransitions.WithLabelValues(field, to).Inc()
}

// RecordReconnect records a reconnect attempt result
func (m *Metrics) RecordReconnect(result string) {
	m.ReconnectsTotal.WithLabelValues(result).Inc()

	m.mu.Lock()
	m.snapshot.TotalReconnects++
	m.mu.Unlock()
}

// SetViewsActive sets the active view gauge
func (m *Metrics) SetViewsActive(count int) {
	m.ViewsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveViews = int64(count)
	m.mu.Unlock()
}

// SetViewsPooled sets the pooled view gauge
func (m *Metrics) SetViewsPooled(count int) {
	m.ViewsPooled.Set(float64(count))
	m.mu.Lock()
	m.snapshot.PooledViews = int64(count)
	m.mu.Unlock()
}

// IncViewsCreated increments the created counter
func (m *Metrics) IncViewsCreated() { m.ViewsCreated.Inc() }

// IncViewsDestroyed increments the destroyed counter
func (m *Metrics) IncViewsDestroyed() { m.ViewsDestroyed.Inc() }

// IncPoolSweeps increments the sweep counter
func (m *Metrics) IncPoolSweeps() { m.PoolSweeps.Inc() }

// IncSessionResets increments the session reset counter
func (m *Metrics) IncSessionResets() { m.SessionResets.Inc() }

// RecordSessionBackup records a backup attempt result
func (m *Metrics) RecordSessionBackup(result string) {
	m.SessionBackups.WithLabelValues(result).Inc()
}

// IncWSConnections increments WebSocket subscriber count
func (m *Metrics) IncWSConnections() { m.WSConnections.Inc() }

// DecWSConnections decrements WebSocket subscriber count
func (m *Metrics) DecWSConnections() { m.WSConnections.Dec() }

// IncWSEvents increments the delivered event counter
func (m *Metrics) IncWSEvents() { m.WSEvents.Inc() }

// GetSnapshot returns current metric values for the JSON API
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := m.snapshot
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}
