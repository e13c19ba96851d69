// internal/monitor/monitor.go
package monitor

import (
	"net/http"
	"time"

	"github.com/jason-s-yu/kargo/internal/game"
	"github.com/jason-s-yu/kargo/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OpenConnections  prometheus.Gauge
	ActiveRooms      prometheus.Gauge
	MessagesReceived prometheus.Counter
	ActionsApplied   *prometheus.CounterVec
	ActionsRejected  *prometheus.CounterVec
	ApplyLatency     prometheus.Histogram
	MessageLatency   prometheus.Histogram
}

// Monitor owns a private registry so tests and multiple servers in one
// process never collide on registration.
type Monitor struct {
	metrics  *Metrics
	registry *prometheus.Registry
}

func NewMonitor(namespace string) *Monitor {
	m := &Metrics{
		OpenConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_connections",
			Help:      "Number of open WebSocket connections",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of active rooms",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}),
		ActionsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_applied_total",
			Help:      "Game actions accepted and applied, by action type",
		}, []string{"action"}),
		ActionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_rejected_total",
			Help:      "Game actions rejected, by action type and error kind",
		}, []string{"action", "kind"}),
		ApplyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_apply_seconds",
			Help:      "Time spent reducing an accepted action",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		m.OpenConnections,
		m.ActiveRooms,
		m.MessagesReceived,
		m.ActionsApplied,
		m.ActionsRejected,
		m.ApplyLatency,
		m.MessageLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Monitor{metrics: m, registry: reg}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

func (m *Monitor) ConnectionOpened() {
	m.metrics.OpenConnections.Inc()
}

func (m *Monitor) ConnectionClosed() {
	m.metrics.OpenConnections.Dec()
}

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
}

func (m *Monitor) ObserveMessageLatency(d time.Duration) {
	m.metrics.MessageLatency.Observe(d.Seconds())
}

func (m *Monitor) RoomsActive(n int) {
	m.metrics.ActiveRooms.Set(float64(n))
}

func (m *Monitor) ActionApplied(action models.ActionType, elapsed time.Duration) {
	m.metrics.ActionsApplied.WithLabelValues(string(action)).Inc()
	m.metrics.ApplyLatency.Observe(elapsed.Seconds())
}

func (m *Monitor) ActionRejected(action models.ActionType, kind game.ErrorKind) {
	m.metrics.ActionsRejected.WithLabelValues(string(action), string(kind)).Inc()
}
