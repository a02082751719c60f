// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RoomMetrics counts coordinator and gateway activity. It satisfies
// coordinator.Metrics.
type RoomMetrics struct {
	roleTransitions *prometheus.CounterVec
	activeRooms     prometheus.Gauge
	subscribers     prometheus.Gauge
	httpRequests    *prometheus.CounterVec
}

func NewRoomMetrics(reg prometheus.Registerer) *RoomMetrics {
	factory := promauto.With(reg)

	return &RoomMetrics{
		roleTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicedeck",
			Name:      "role_transitions_total",
			Help:      "Room role transitions applied by the coordinator, by operation.",
		}, []string{"op"}),
		activeRooms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "voicedeck",
			Name:      "active_rooms",
			Help:      "Rooms with a live state document.",
		}),
		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "voicedeck",
			Name:      "room_subscribers",
			Help:      "Connected realtime subscribers across all rooms.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicedeck",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method and status class.",
		}, []string{"method", "status"}),
	}
}

func (m *RoomMetrics) RoleTransition(op string) {
	m.roleTransitions.WithLabelValues(op).Inc()
}

func (m *RoomMetrics) RoomOpened() {
	m.activeRooms.Inc()
}

func (m *RoomMetrics) RoomClosed() {
	m.activeRooms.Dec()
}

func (m *RoomMetrics) SubscriberConnected() {
	m.subscribers.Inc()
}

func (m *RoomMetrics) SubscriberDisconnected() {
	m.subscribers.Dec()
}

func (m *RoomMetrics) HTTPRequest(method, statusClass string) {
	m.httpRequests.WithLabelValues(method, statusClass).Inc()
}
