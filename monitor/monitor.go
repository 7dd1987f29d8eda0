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
	OnlinePlayers   prometheus.Gauge
	ActiveRooms     prometheus.Gauge
	RoundsStarted   prometheus.Counter
	RoundsWon       prometheus.Counter
	RoundsTimedOut  prometheus.Counter
	GuessesReceived prometheus.Counter
	RoundDuration   prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected players",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of live rooms",
		}),
		RoundsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_started_total",
			Help:      "Total number of rounds started",
		}),
		RoundsWon: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_won_total",
			Help:      "Total number of rounds ended by a correct guess",
		}),
		RoundsTimedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_timed_out_total",
			Help:      "Total number of rounds ended by the timer",
		}),
		GuessesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guesses_received_total",
			Help:      "Total number of guesses received",
		}),
		RoundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Time from round start to round end",
			Buckets:   prometheus.LinearBuckets(5, 5, 12),
		}),
	}

	prometheus.MustRegister(
		m.OnlinePlayers,
		m.ActiveRooms,
		m.RoundsStarted,
		m.RoundsWon,
		m.RoundsTimedOut,
		m.GuessesReceived,
		m.RoundDuration,
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
	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))

	go http.ListenAndServe(addr, m.handler())
}

// handler serves /metrics and the expvar dump on a mux of its own so the
// metrics port never exposes the game endpoint and vice versa.
func (m *Monitor) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/vars", expvar.Handler())
	return mux
}

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncRoundsStarted() {
	m.metrics.RoundsStarted.Inc()
}

func (m *Monitor) IncRoundsWon() {
	m.metrics.RoundsWon.Inc()
}

func (m *Monitor) IncRoundsTimedOut() {
	m.metrics.RoundsTimedOut.Inc()
}

func (m *Monitor) IncGuesses() {
	m.metrics.GuessesReceived.Inc()
}

func (m *Monitor) ObserveRoundDuration(duration time.Duration) {
	m.metrics.RoundDuration.Observe(duration.Seconds())
}
