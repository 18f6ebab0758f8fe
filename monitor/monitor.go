// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlineSessions       prometheus.Gauge
	ActiveRooms          prometheus.Gauge
	GamesStarted         prometheus.Counter
	Plays                *prometheus.CounterVec
	DroppedNotifications prometheus.Counter
	RequestLatency       *prometheus.HistogramVec
}

func NewMetrics(namespace string, registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		OnlineSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_sessions",
			Help:      "Number of identified sessions",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of open rooms",
		}),
		GamesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Total number of games started",
		}),
		Plays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plays_total",
			Help:      "Game moves by result",
		}, []string{"result"}),
		DroppedNotifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_notifications_total",
			Help:      "Events dropped because a session queue was full",
		}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_latency_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		m.OnlineSessions,
		m.ActiveRooms,
		m.GamesStarted,
		m.Plays,
		m.DroppedNotifications,
		m.RequestLatency,
	)

	return m
}

var publishOnce sync.Once

// Monitor 实现 session.Observer 与 room.Observer
type Monitor struct {
	metrics      *Metrics
	registry     *prometheus.Registry
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

func NewMonitor(namespace string) *Monitor {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := &Monitor{
		metrics:   NewMetrics(namespace, registry),
		registry:  registry,
		startTime: time.Now(),
	}

	// expvar names are process-global
	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			return m.Requests()
		}))
	})
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// VarsHandler serves the expvar variables.
func (m *Monitor) VarsHandler() http.Handler {
	return expvar.Handler()
}

// Registry exposes the private registry for tests and extra collectors.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Monitor) SetOnlineSessions(n int) {
	m.metrics.OnlineSessions.Set(float64(n))
}

func (m *Monitor) IncDroppedNotifications() {
	m.metrics.DroppedNotifications.Inc()
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncGamesStarted() {
	m.metrics.GamesStarted.Inc()
}

func (m *Monitor) IncPlays(result string) {
	m.metrics.Plays.WithLabelValues(result).Inc()
}

// ObserveRequest records one handled HTTP request.
func (m *Monitor) ObserveRequest(method, route, status string, duration time.Duration) {
	m.metrics.RequestLatency.WithLabelValues(method, route, status).Observe(duration.Seconds())
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

// Requests returns the number of observed requests.
func (m *Monitor) Requests() int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.requestCount
}
