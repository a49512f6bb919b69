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

	// DeliveriesTotal tracks room-update delivery attempts by outcome.
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_deliveries_total",
			Help: "Room update delivery attempts",
		},
		[]string{"update_type", "outcome"},
	)

	// MessagesTotal tracks messages posted to rooms.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_messages_total",
			Help: "Messages distributed to rooms",
		},
		[]string{"category"},
	)

	// DecisionsTotal tracks response decisions by reason.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_decisions_total",
			Help: "Response decision outcomes",
		},
		[]string{"reason", "should_respond"},
	)

	// AdapterInvocations tracks adapter invocation duration by type and status.
	AdapterInvocations = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adapter_invocation_duration_seconds",
			Help:    "Adapter invocation duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"adapter_type", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed by the ai-api adapter.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// RoomSubscriptions tracks the current number of (session, room) pairs.
	RoomSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "room_subscriptions",
			Help: "Active room subscription pairs",
		},
	)

	// TrackedParticipants tracks participants held in the distributed directory.
	TrackedParticipants = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracked_participants",
			Help: "Participants tracked across all rooms",
		},
	)

	// WSSessionsActive tracks connected browser sessions.
	WSSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_sessions_active",
			Help: "Number of active websocket sessions",
		},
	)

	// SweepRemovals tracks entries removed by the disconnected-session sweep.
	SweepRemovals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_removals_total",
			Help: "Entries removed by cleanup sweeps",
		},
		[]string{"index"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordDelivery records one delivery attempt.
func RecordDelivery(updateType string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	DeliveriesTotal.WithLabelValues(updateType, outcome).Inc()
}

// RecordInvocation records an adapter invocation.
func RecordInvocation(adapterType, status string, seconds float64) {
	AdapterInvocations.WithLabelValues(adapterType, status).Observe(seconds)
}

// RecordLLMUsage records token counts for one completion.
func RecordLLMUsage(model string, tokensIn, tokensOut int) {
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}
