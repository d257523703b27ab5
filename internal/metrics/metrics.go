package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveRooms counts rooms with at least one live connection in this process.
	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quizroom_active_rooms",
			Help: "Current number of rooms held in memory",
		},
	)

	// Connections counts joined websocket connections.
	Connections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quizroom_connections",
			Help: "Current number of joined connections",
		},
	)

	// Commands counts inbound commands by name and outcome.
	Commands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizroom_commands_total",
			Help: "Total number of inbound commands",
		},
		[]string{"command", "outcome"}, // outcome: applied/ignored/failed/throttled
	)

	// Evictions counts subscribers dropped because their outbound buffer was full.
	Evictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizroom_slow_subscriber_evictions_total",
			Help: "Total number of subscribers evicted for a full send buffer",
		},
	)

	// ConnectRejections counts refused handshakes by reason.
	ConnectRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizroom_connect_rejections_total",
			Help: "Total number of refused websocket handshakes",
		},
		[]string{"reason"},
	)
)

const (
	OutcomeApplied   = "applied"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
	OutcomeThrottled = "throttled"
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
