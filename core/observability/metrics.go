// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the engine.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// METRICS DEFINITIONS
// =============================================================================

var (
	// TurnsTotal counts processed turns by verb and final state.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conductor_turns_total",
			Help: "Total turns processed, by verb and terminal state",
		},
		[]string{"verb", "state"},
	)

	// TurnDuration tracks end-to-end turn latency.
	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conductor_turn_duration_seconds",
			Help:    "Turn processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"verb"},
	)

	// StepsTotal counts agent invocations by agent and decision outcome.
	StepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conductor_steps_total",
			Help: "Total agent invocations, by agent and decision",
		},
		[]string{"agent", "decision"},
	)

	// StepDuration tracks per-agent execution latency.
	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conductor_step_duration_seconds",
			Help:    "Agent execution duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"agent"},
	)

	// ToolExecutionsTotal counts tool executions by tool and result status.
	ToolExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conductor_tool_executions_total",
			Help: "Total tool executions, by tool and status",
		},
		[]string{"tool", "status"},
	)

	// EnvelopesEmittedTotal counts emitted envelopes by kind.
	EnvelopesEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conductor_envelopes_emitted_total",
			Help: "Total envelopes emitted, by kind",
		},
		[]string{"kind"},
	)

	// BusMessagesTotal counts bus traffic by message type and outcome.
	BusMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conductor_bus_messages_total",
			Help: "Total bus messages processed, by type and outcome",
		},
		[]string{"message_type", "outcome"},
	)
)

// =============================================================================
// RECORDING HELPERS
// =============================================================================

// RecordTurn records one completed turn.
func RecordTurn(verb, state string, duration time.Duration) {
	TurnsTotal.WithLabelValues(verb, state).Inc()
	TurnDuration.WithLabelValues(verb).Observe(duration.Seconds())
}

// RecordStep records one agent invocation.
func RecordStep(agent, decision string, duration time.Duration) {
	StepsTotal.WithLabelValues(agent, decision).Inc()
	StepDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// RecordToolExecution records one tool execution.
func RecordToolExecution(tool, status string) {
	ToolExecutionsTotal.WithLabelValues(tool, status).Inc()
}

// RecordEnvelopeEmitted records one emitted envelope.
func RecordEnvelopeEmitted(kind string) {
	EnvelopesEmittedTotal.WithLabelValues(kind).Inc()
}

// RecordBusMessage records one bus delivery outcome.
func RecordBusMessage(messageType, outcome string) {
	BusMessagesTotal.WithLabelValues(messageType, outcome).Inc()
}
