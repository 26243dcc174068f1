package signaling

import "github.com/prometheus/client_golang/prometheus"

var (
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "devconnect_signaling_connections",
			Help: "Current number of active signaling connections.",
		},
	)
	wsActiveRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "devconnect_signaling_active_rooms",
			Help: "Rooms with at least one connection present.",
		},
	)
	wsRelayedMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "devconnect_signaling_relayed_messages_total",
			Help: "Total handshake messages relayed between peers.",
		},
	)
	wsScreenShares = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "devconnect_signaling_screen_share_sessions_total",
			Help: "Total screen-share sessions started.",
		},
	)
	wsDroppedMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "devconnect_signaling_dropped_messages_total",
			Help: "Messages dropped because a client send buffer was full.",
		},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, wsActiveRooms, wsRelayedMessages, wsScreenShares, wsDroppedMessages)
}

func incConnections() {
	wsConnections.Inc()
}

func decConnections() {
	wsConnections.Dec()
}

func setActiveRooms(count int) {
	wsActiveRooms.Set(float64(count))
}

func addRelayed() {
	wsRelayedMessages.Inc()
}

func addScreenShare() {
	wsScreenShares.Inc()
}

func addDropped() {
	wsDroppedMessages.Inc()
}
