package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the board server.
type Metrics struct {
	// WSConnections is the number of currently connected realtime sessions.
	WSConnections prometheus.Gauge

	// PostsCreated counts successfully persisted posts.
	PostsCreated prometheus.Counter

	// BroadcastsSent counts newPost events fanned out to sessions.
	BroadcastsSent prometheus.Counter

	// BroadcastsDropped counts events dropped because a session's send
	// buffer was full or the hub's broadcast queue was saturated.
	BroadcastsDropped prometheus.Counter
}

// New registers the board metrics with reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "caboard_websocket_connections",
			Help: "Current number of connected WebSocket sessions.",
		}),
		PostsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "caboard_posts_created_total",
			Help: "Total number of posts persisted.",
		}),
		BroadcastsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "caboard_broadcasts_sent_total",
			Help: "Total number of newPost events delivered to sessions.",
		}),
		BroadcastsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "caboard_broadcasts_dropped_total",
			Help: "Total number of newPost events dropped due to backpressure.",
		}),
	}
}
