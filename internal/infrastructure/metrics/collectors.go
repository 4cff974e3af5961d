package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "panelnode"

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeIgnored = "ignored"
)

var (
	apiConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_connections",
			Help:      "Native API client connections currently open.",
		},
	)

	apiFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_frames_total",
			Help:      "Native API frames by direction and message type.",
		},
		[]string{"direction", "type"},
	)

	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands received from a controller by source, entity and outcome.",
		},
		[]string{"source", "entity", "outcome"},
	)

	probeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_errors_total",
			Help:      "Failed host probe reads by entity.",
		},
		[]string{"entity"},
	)

	mqttPublishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_publishes_total",
			Help:      "MQTT publishes by kind (discovery, status) and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(apiConnections, apiFrames, commands, probeErrors, mqttPublishes)
}

// ConnectionOpened records a newly accepted API connection.
func ConnectionOpened() { apiConnections.Inc() }

// ConnectionClosed records an API connection leaving the set.
func ConnectionClosed() { apiConnections.Dec() }

// FrameIn records one received frame.
func FrameIn(msgType string) { apiFrames.WithLabelValues("in", msgType).Inc() }

// FrameOut records one written frame.
func FrameOut(msgType string) { apiFrames.WithLabelValues("out", msgType).Inc() }

// Command records the outcome of one controller command.
func Command(source, entityID, outcome string) {
	commands.WithLabelValues(source, entityID, outcome).Inc()
}

// ProbeError records a failed probe read.
func ProbeError(entityID string) { probeErrors.WithLabelValues(entityID).Inc() }

// Publish records the outcome of one MQTT publish.
func Publish(kind, outcome string) { mqttPublishes.WithLabelValues(kind, outcome).Inc() }
