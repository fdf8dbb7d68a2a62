package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imove_sync_messages_ingested_total",
		Help: "Messages accepted into the store, REST and realtime combined.",
	})
	MessagesDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imove_sync_messages_deduplicated_total",
		Help: "Realtime messages dropped because the id was already present.",
	})
	NotificationsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imove_sync_notifications_ingested_total",
		Help: "Notifications accepted into the store.",
	})
	RealtimeReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imove_sync_realtime_reconnects_total",
		Help: "Reconnection attempts made by the realtime client.",
	})
	APIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imove_sync_api_errors_total",
		Help: "REST failures by normalized error kind.",
	}, []string{"kind"})
)

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
