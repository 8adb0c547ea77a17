// Package metrics holds the Prometheus collectors shared by the notification
// pipeline and the live delivery channel.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkpress_notifications_created_total",
		Help: "Notifications persisted, by kind",
	}, []string{"kind"})

	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkpress_notification_failures_total",
		Help: "Notification pipeline failures, by stage (validate, persist)",
	}, []string{"stage"})

	LivePushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkpress_live_pushes_total",
		Help: "Payloads enqueued to live connections",
	})

	SlowClientDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkpress_live_slow_client_drops_total",
		Help: "Live connections dropped because their outbound queue was full",
	})

	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkpress_live_connections",
		Help: "Currently subscribed live connections",
	})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
