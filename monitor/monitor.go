// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	ActiveRooms     prometheus.Gauge
	PushSubscribers prometheus.Gauge
	MovesTotal      prometheus.Counter
	MoveLatency     prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of rooms with a live game session",
		}),
		PushSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "push_subscribers",
			Help:      "Number of connected push listeners",
		}),
		MovesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Total number of accepted moves",
		}),
		MoveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "move_latency_seconds",
			Help:      "Move handling latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	prometheus.MustRegister(
		m.ActiveRooms,
		m.PushSubscribers,
		m.MovesTotal,
		m.MoveLatency,
	)

	return m
}

type Monitor struct {
	metrics   *Metrics
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace),
		startTime: time.Now(),
	}
}

func (m *Monitor) StartServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))
	mux.Handle("/debug/vars", expvar.Handler())

	go http.ListenAndServe(addr, mux)
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) SetPushSubscribers(count int) {
	m.metrics.PushSubscribers.Set(float64(count))
}

func (m *Monitor) IncPushSubscribers() {
	m.metrics.PushSubscribers.Inc()
}

func (m *Monitor) DecPushSubscribers() {
	m.metrics.PushSubscribers.Dec()
}

func (m *Monitor) IncMoves() {
	m.metrics.MovesTotal.Inc()
}

func (m *Monitor) ObserveMoveLatency(duration time.Duration) {
	m.metrics.MoveLatency.Observe(duration.Seconds())
}
