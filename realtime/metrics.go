package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects realtime subsystem metrics.
type Metrics struct {
	ActiveConnections prometheus.Gauge
	OnlineUsers       prometheus.Gauge
	BroadcastsTotal   *prometheus.CounterVec
	DeliveriesTotal   prometheus.Counter
	DeliveryFailures  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_active_connections",
			Help: "Number of live websocket connections",
		}),
		OnlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_online_users",
			Help: "Number of users with at least one live connection",
		}),
		BroadcastsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_broadcasts_total",
			Help: "Total events published, by event name",
		}, []string{"event"}),
		DeliveriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "realtime_deliveries_total",
			Help: "Total per-connection event deliveries",
		}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "realtime_delivery_failures_total",
			Help: "Deliveries dropped because the connection was gone or its buffer was full",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ActiveConnections,
			m.OnlineUsers,
			m.BroadcastsTotal,
			m.DeliveriesTotal,
			m.DeliveryFailures,
		)
	}
	return m
}
