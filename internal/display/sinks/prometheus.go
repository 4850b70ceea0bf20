package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/timerboard/internal/timer"
)

// PrometheusSink exports timer display metrics via Prometheus. It owns the
// per-timer progress gauge and the scenario transition counters.
type PrometheusSink struct {
	progress    *prometheus.GaugeVec
	statesTotal *prometheus.CounterVec
	transitions *prometheus.CounterVec
	overdue     prometheus.Gauge

	tracker *scenarioTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		progress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "timerboard_timer_progress_percent",
			Help: "Latest progress percentage per timer.",
		}, []string{"timer_id"}),
		statesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timerboard_display_states_total",
			Help: "Display states computed, partitioned by scenario.",
		}, []string{"scenario"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timerboard_scenario_transitions_total",
			Help: "Scenario transitions observed, partitioned by from and to.",
		}, []string{"from", "to"}),
		overdue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timerboard_timers_overdue",
			Help: "Current number of timers in the overdue scenario.",
		}),
		tracker: newScenarioTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.progress,
		s.statesTotal,
		s.transitions,
		s.overdue,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register display collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []timer.DisplayState) error {
	for _, state := range batch {
		s.consumeState(state)
	}
	return nil
}

func (s *PrometheusSink) consumeState(state timer.DisplayState) {
	s.progress.WithLabelValues(state.TimerID).Set(state.ProgressPercent)
	s.statesTotal.WithLabelValues(string(state.Scenario)).Inc()

	prev, changed := s.tracker.observe(state.TimerID, state.Scenario)
	if !changed {
		return
	}
	if prev != "" {
		s.transitions.WithLabelValues(string(prev), string(state.Scenario)).Inc()
	}
	if state.Scenario == timer.ScenarioOverdue {
		s.overdue.Inc()
	} else if prev == timer.ScenarioOverdue {
		s.overdue.Dec()
	}
}

// Forget drops the per-timer series for a removed timer.
func (s *PrometheusSink) Forget(timerID string) {
	if last, ok := s.tracker.forget(timerID); ok && last == timer.ScenarioOverdue {
		s.overdue.Dec()
	}
	s.progress.DeleteLabelValues(timerID)
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type scenarioTracker struct {
	mu   sync.Mutex
	last map[string]timer.Scenario
}

func newScenarioTracker() *scenarioTracker {
	return &scenarioTracker{last: make(map[string]timer.Scenario)}
}

// observe records the scenario for a timer and reports the previous one plus
// whether it changed.
func (t *scenarioTracker) observe(timerID string, s timer.Scenario) (timer.Scenario, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.last[timerID]
	if ok && prev == s {
		return prev, false
	}
	t.last[timerID] = s
	return prev, true
}

func (t *scenarioTracker) forget(timerID string) (timer.Scenario, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.last[timerID]
	delete(t.last, timerID)
	return last, ok
}
