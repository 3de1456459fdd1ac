package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conversation_turns_total",
		Help: "Conversation turns appended to the log",
	}, []string{"source", "intent"})

	StateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conversation_state_transitions_total",
		Help: "Orchestrator state transitions by target state",
	}, []string{"to"})

	GateRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conversation_gate_rejections_total",
		Help: "Transcripts rejected for empty text or low confidence",
	})

	ReplyFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conversation_reply_fallback_total",
		Help: "Remote replies replaced by the local rule engine",
	}, []string{"reason"})

	ReplyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conversation_reply_duration_seconds",
		Help:    "Latency from accepted transcript to produced reply",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"source"})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conversation_errors_total",
		Help: "Error counts by stage",
	}, []string{"stage", "error_type"})

	TransportState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transport_state",
		Help: "Connection client state (0 disconnected, 1 connecting, 2 connected, 3 error)",
	})

	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transport_reconnects_scheduled_total",
		Help: "Reconnect attempts scheduled after an unintentional close",
	})

	ReconnectsExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transport_reconnects_exhausted_total",
		Help: "Times the retry budget ran out and the client gave up",
	})

	TransportDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transport_messages_dropped_total",
		Help: "Outgoing or incoming messages dropped by reason",
	}, []string{"reason"})

	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_connections_active",
		Help: "Currently open chat connections",
	})

	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_connections_total",
		Help: "Total chat connections accepted",
	})

	GatewayMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_messages_total",
		Help: "Inbound chat frames by envelope type",
	}, []string{"type"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_stage_duration_seconds",
		Help:    "Per-stage latency of the rule engine",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}, []string{"stage"})
)
