// Package metrics exposes Prometheus collectors for the timerboard service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ticksDeliveredTotal        *prometheus.CounterVec
	ticksDroppedTotal          *prometheus.CounterVec
	activeCadences             prometheus.Gauge
	activeTimers               prometheus.Gauge
	timersCreatedTotal         prometheus.Counter
	timersRemovedTotal         prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		ticksDeliveredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timerboard_ticks_delivered_total",
				Help: "Total ticks delivered to subscribers, labeled by cadence.",
			},
			[]string{"cadence"},
		)

		ticksDroppedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timerboard_ticks_dropped_total",
				Help: "Total ticks dropped because a subscriber fell behind, labeled by cadence.",
			},
			[]string{"cadence"},
		)

		activeCadences = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "timerboard_active_cadences",
				Help: "Number of distinct shared clocks currently live.",
			},
		)

		activeTimers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "timerboard_active_timers",
				Help: "Number of timers currently registered on the board.",
			},
		)

		timersCreatedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "timerboard_timers_created_total",
				Help: "Total timers created since process start.",
			},
		)

		timersRemovedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "timerboard_timers_removed_total",
				Help: "Total timers removed since process start.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTick counts one delivered tick for the given cadence.
func ObserveTick(cadence time.Duration) {
	if ticksDeliveredTotal == nil {
		return
	}
	ticksDeliveredTotal.WithLabelValues(cadence.String()).Inc()
}

// ObserveTickDrop counts one dropped tick for the given cadence.
func ObserveTickDrop(cadence time.Duration) {
	if ticksDroppedTotal == nil {
		return
	}
	ticksDroppedTotal.WithLabelValues(cadence.String()).Inc()
}

// SetActiveCadences records the number of live shared clocks.
func SetActiveCadences(n int) {
	if activeCadences == nil {
		return
	}
	activeCadences.Set(float64(n))
}

// SetActiveTimers records the number of registered timers.
func SetActiveTimers(n int) {
	if activeTimers == nil {
		return
	}
	activeTimers.Set(float64(n))
}

// ObserveTimerCreated counts one timer creation.
func ObserveTimerCreated() {
	if timersCreatedTotal == nil {
		return
	}
	timersCreatedTotal.Inc()
}

// ObserveTimerRemoved counts one timer removal.
func ObserveTimerRemoved() {
	if timersRemovedTotal == nil {
		return
	}
	timersRemovedTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
