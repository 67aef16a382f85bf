package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dm_messages_sent_total",
		Help: "Messages committed to the message store.",
	})
	EventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dm_ws_events_delivered_total",
		Help: "Realtime events written to a live connection.",
	})
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dm_ws_events_dropped_total",
		Help: "Realtime events dropped on slow or absent connections.",
	})
)

// Handler returns the scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
