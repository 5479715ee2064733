package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
// Each instance owns its registry so tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP Request Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// WebSocket Metrics
	websocketConnections   prometheus.Gauge
	websocketMessagesTotal *prometheus.CounterVec
	websocketRejectedTotal *prometheus.CounterVec

	// Signaling Metrics
	callsTotal       *prometheus.CounterVec
	callsActive      prometheus.Gauge
	usersRegistered  prometheus.Gauge
	eventsDropped    *prometheus.CounterVec
	callRingDuration prometheus.Histogram

	// TURN Credential Metrics
	turnProviderRequests *prometheus.CounterVec
	turnProviderDuration *prometheus.HistogramVec
	turnFallbackTotal    prometheus.Counter
	turnCircuitState     *prometheus.GaugeVec

	// Redis Metrics
	redisDegraded       prometheus.Gauge
	presenceMirrorDrops prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: labels,
			},
		),

		websocketConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "websocket_connections",
				Help:        "Number of open signaling WebSocket connections",
				ConstLabels: labels,
			},
		),
		websocketMessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "websocket_messages_total",
				Help:        "Total number of signaling events by name and direction",
				ConstLabels: labels,
			},
			[]string{"event", "direction"},
		),
		websocketRejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "websocket_rejected_total",
				Help:        "Total number of refused WebSocket connection attempts",
				ConstLabels: labels,
			},
			[]string{"reason"},
		),

		callsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calls_total",
				Help:        "Total number of call lifecycle transitions by outcome",
				ConstLabels: labels,
			},
			[]string{"call_type", "outcome"},
		),
		callsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "calls_active",
				Help:        "Number of call sessions currently in progress",
				ConstLabels: labels,
			},
		),
		usersRegistered: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "users_registered",
				Help:        "Number of users currently registered in presence",
				ConstLabels: labels,
			},
		),
		eventsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "signaling_events_dropped_total",
				Help:        "Inbound or outbound events that were discarded",
				ConstLabels: labels,
			},
			[]string{"event", "reason"},
		),
		callRingDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "call_ring_duration_seconds",
				Help:        "Time between call initiation and answer",
				ConstLabels: labels,
				Buckets:     []float64{1, 2, 5, 10, 20, 30, 60},
			},
		),

		turnProviderRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "turn_provider_requests_total",
				Help:        "TURN provider attempts by provider and result",
				ConstLabels: labels,
			},
			[]string{"provider", "result"},
		),
		turnProviderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "turn_provider_request_duration_seconds",
				Help:        "Latency of TURN provider requests",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		turnFallbackTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "turn_stun_fallback_total",
				Help:        "Credential requests answered with the static STUN list only",
				ConstLabels: labels,
			},
		),
		turnCircuitState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "turn_provider_circuit_state",
				Help:        "Circuit breaker state per TURN provider (0=closed, 1=half_open, 2=open)",
				ConstLabels: labels,
			},
			[]string{"provider"},
		),

		redisDegraded: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "redis_degraded_mode",
				Help:        "Indicates if Redis is in degraded mode (1 = degraded, 0 = healthy)",
				ConstLabels: labels,
			},
		),
		presenceMirrorDrops: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "presence_mirror_dropped_total",
				Help:        "Presence updates dropped because the mirror queue was full",
				ConstLabels: labels,
			},
		),
	}
}

// GetRegistry returns the registry served on /metrics
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// HTTP Metrics Methods

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the number of in-flight HTTP requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the number of in-flight HTTP requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// WebSocket Metrics Methods

// SetWebSocketConnections sets the number of active WebSocket connections
func (m *Metrics) SetWebSocketConnections(count int) {
	m.websocketConnections.Set(float64(count))
}

// RecordWebSocketMessage records a WebSocket message
func (m *Metrics) RecordWebSocketMessage(event, direction string) {
	m.websocketMessagesTotal.WithLabelValues(event, direction).Inc()
}

// RecordWebSocketRejected records a refused connection attempt
func (m *Metrics) RecordWebSocketRejected(reason string) {
	m.websocketRejectedTotal.WithLabelValues(reason).Inc()
}

// Signaling Metrics Methods

// RecordCall records a call lifecycle transition
func (m *Metrics) RecordCall(callType, outcome string) {
	if callType == "" {
		callType = "unknown"
	}
	m.callsTotal.WithLabelValues(callType, outcome).Inc()
}

// SetActiveCalls sets the number of active calls
func (m *Metrics) SetActiveCalls(count int) {
	m.callsActive.Set(float64(count))
}

// SetRegisteredUsers sets the number of registered users
func (m *Metrics) SetRegisteredUsers(count int) {
	m.usersRegistered.Set(float64(count))
}

// RecordDroppedEvent records a discarded signaling event
func (m *Metrics) RecordDroppedEvent(event, reason string) {
	m.eventsDropped.WithLabelValues(event, reason).Inc()
}

// RecordRingDuration records how long a call rang before being answered
func (m *Metrics) RecordRingDuration(duration time.Duration) {
	m.callRingDuration.Observe(duration.Seconds())
}

// TURN Metrics Methods

// RecordTURNProvider records one provider attempt
func (m *Metrics) RecordTURNProvider(provider, result string, duration time.Duration) {
	m.turnProviderRequests.WithLabelValues(provider, result).Inc()
	m.turnProviderDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordTURNSkipped records a provider skipped by its open circuit
func (m *Metrics) RecordTURNSkipped(provider string) {
	m.turnProviderRequests.WithLabelValues(provider, "circuit_open").Inc()
}

// SetTURNCircuitState sets the breaker gauge for provider
func (m *Metrics) SetTURNCircuitState(provider string, state float64) {
	m.turnCircuitState.WithLabelValues(provider).Set(state)
}

// RecordSTUNFallback records a request answered by the static STUN list
func (m *Metrics) RecordSTUNFallback() {
	m.turnFallbackTotal.Inc()
}

// Redis Metrics Methods

// SetRedisDegraded sets the degraded mode gauge
func (m *Metrics) SetRedisDegraded(degraded bool) {
	if degraded {
		m.redisDegraded.Set(1)
		return
	}
	m.redisDegraded.Set(0)
}

// RecordPresenceMirrorDrop records a dropped presence update
func (m *Metrics) RecordPresenceMirrorDrop() {
	m.presenceMirrorDrops.Inc()
}
