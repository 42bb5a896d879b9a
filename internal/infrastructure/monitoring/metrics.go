package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the desktop daemon. All record
// methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ItemsTotal        *prometheus.CounterVec
	ConflictDecisions *prometheus.CounterVec
	UndoTotal         *prometheus.CounterVec

	// Remote filesystem metrics
	RemoteCalls    *prometheus.CounterVec
	RemoteDuration *prometheus.HistogramVec
	BreakerState   *prometheus.GaugeVec

	// Realtime metrics
	RealtimeEvents     *prometheus.CounterVec
	RealtimeReconnects prometheus.Counter
	RealtimeConnected  prometheus.Gauge

	// Session metrics
	SessionsActive prometheus.Gauge

	// UI WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. Passing
// prometheus.DefaultRegisterer exposes them on the default /metrics handler;
// tests pass a fresh prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desktop_http_requests_total",
				Help: "Total number of local API requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "desktop_http_request_duration_seconds",
				Help:    "Local API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desktop_operations_total",
				Help: "Total number of batch operations by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "desktop_operation_duration_seconds",
				Help:    "Batch operation duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30, 60, 300},
			},
			[]string{"kind"},
		),
		ItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desktop_operation_items_total",
				Help: "Items processed by batch operations by result",
			},
			[]string{"kind", "result"},
		),
		ConflictDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desktop_conflict_decisions_total",
				Help: "Conflict decisions taken, including automatic replace-all",
			},
			[]string{"decision"},
		),
		UndoTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desktop_undo_total",
				Help: "Undo executions by record kind and outcome",
			},
			[]string{"kind", "outcome"},
		),

		RemoteCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desktop_remote_calls_total",
				Help: "Remote filesystem API calls by verb and status",
			},
			[]string{"verb", "status"},
		),
		RemoteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "desktop_remote_call_duration_seconds",
				Help:    "Remote filesystem API call duration in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"verb"},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "desktop_breaker_state",
				Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),

		RealtimeEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desktop_realtime_events_total",
				Help: "Realtime events received by event name and disposition",
			},
			[]string{"event", "disposition"},
		),
		RealtimeReconnects: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "desktop_realtime_reconnect_attempts_total",
				Help: "Realtime channel reconnect attempts",
			},
		),
		RealtimeConnected: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "desktop_realtime_connected",
				Help: "Number of connected realtime channels",
			},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "desktop_sessions_active",
				Help: "Number of logged-in desktop sessions",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "desktop_ui_ws_connections",
				Help: "Number of active browser WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desktop_ui_ws_messages_total",
				Help: "Browser WebSocket messages by direction and type",
			},
			[]string{"direction", "type"},
		),
	}
}

// RecordHTTPRequest records a local API request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOperation records a finished batch operation
func (m *Metrics) RecordOperation(kind, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(kind, outcome).Inc()
	m.OperationDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordItem records the result of one item of a batch
func (m *Metrics) RecordItem(kind, result string) {
	if m == nil {
		return
	}
	m.ItemsTotal.WithLabelValues(kind, result).Inc()
}

// RecordConflictDecision records a conflict decision
func (m *Metrics) RecordConflictDecision(decision string) {
	if m == nil {
		return
	}
	m.ConflictDecisions.WithLabelValues(decision).Inc()
}

// RecordUndo records an undo execution
func (m *Metrics) RecordUndo(kind, outcome string) {
	if m == nil {
		return
	}
	m.UndoTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordRemoteCall records a remote filesystem API call
func (m *Metrics) RecordRemoteCall(verb, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RemoteCalls.WithLabelValues(verb, status).Inc()
	m.RemoteDuration.WithLabelValues(verb).Observe(duration.Seconds())
}

// SetBreakerState records a circuit breaker state
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordRealtimeEvent records an inbound realtime event
func (m *Metrics) RecordRealtimeEvent(event, disposition string) {
	if m == nil {
		return
	}
	m.RealtimeEvents.WithLabelValues(event, disposition).Inc()
}

// IncReconnects increments the realtime reconnect attempts counter
func (m *Metrics) IncReconnects() {
	if m == nil {
		return
	}
	m.RealtimeReconnects.Inc()
}

// SetRealtimeConnected adjusts the connected realtime channel gauge
func (m *Metrics) SetRealtimeConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.RealtimeConnected.Inc()
	} else {
		m.RealtimeConnected.Dec()
	}
}

// SetSessionsActive sets the number of active sessions
func (m *Metrics) SetSessionsActive(count int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(count))
}

// RecordWSMessage records a browser WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments browser WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements browser WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}
