// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// TurnDuration tracks orchestrated turn duration by outcome.
	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "persona_turn_duration_seconds",
			Help:    "Duration of one orchestrated turn",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"mode", "outcome"},
	)

	// GuardrailVerdicts counts guardrail decisions by path.
	GuardrailVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persona_guardrail_verdicts_total",
			Help: "Guardrail verdicts by decision and path",
		},
		[]string{"decision", "path"},
	)

	// ToolCallsTotal counts executed tool calls.
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persona_tool_calls_total",
			Help: "Tool calls executed by name and status",
		},
		[]string{"tool", "status"},
	)

	// SupersededTurns counts turns abandoned because a newer response id arrived.
	SupersededTurns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "persona_superseded_turns_total",
			Help: "Turns whose remaining events were dropped after supersession",
		},
	)

	// VoiceSessionsActive tracks live voice websocket sessions.
	VoiceSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "voice_sessions_active",
			Help: "Number of active voice websocket sessions",
		},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// JournalPublished counts events written to the NATS journal.
	JournalPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_journal_published_total",
			Help: "Turn events published to JetStream",
		},
		[]string{"kind", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordTurn records one finished turn.
func RecordTurn(mode, outcome string, duration float64) {
	TurnDuration.WithLabelValues(mode, outcome).Observe(duration)
}

// RecordGuardrail records one guardrail verdict.
func RecordGuardrail(decision, path string) {
	GuardrailVerdicts.WithLabelValues(decision, path).Inc()
}

// RecordToolCall records one tool execution.
func RecordToolCall(tool, status string) {
	ToolCallsTotal.WithLabelValues(tool, status).Inc()
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
