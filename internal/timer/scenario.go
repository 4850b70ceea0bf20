package timer

import "time"

// Scenario denotes one of the five mutually exclusive timer phases.
type Scenario string

// Supported scenarios.
const (
	ScenarioCountdownToStart Scenario = "COUNTDOWN_TO_START"
	ScenarioOpenTimer        Scenario = "OPEN_TIMER"
	ScenarioOverdue          Scenario = "OVERDUE"
	ScenarioCompleted        Scenario = "COMPLETED"
	ScenarioCountdownActive  Scenario = "COUNTDOWN_ACTIVE"
)

// Valid reports whether s is a known scenario.
func (s Scenario) Valid() bool {
	switch s {
	case ScenarioCountdownToStart, ScenarioOpenTimer, ScenarioOverdue,
		ScenarioCompleted, ScenarioCountdownActive:
		return true
	default:
		return false
	}
}

// Stable reports whether the scenario admits no further transition as wall
// time advances. Overdue is stable too, but its labels keep changing, so the
// engine only parks on Completed.
func (s Scenario) Stable() bool {
	return s == ScenarioCompleted || s == ScenarioOpenTimer || s == ScenarioOverdue
}

// Classify maps a frozen instant and a window to a scenario. It is pure:
// identical inputs always yield the identical scenario. Priority order:
//
//  1. CountdownToStart: now at or before the start.
//  2. OpenTimer: no end instant.
//  3. Overdue: past the end with overdue allowed.
//  4. Completed: past the end otherwise.
//  5. CountdownActive: strictly inside the window.
//
// All transitions are driven solely by elapsed wall time.
func Classify(now time.Time, w Window) Scenario {
	if !now.After(w.Start) {
		return ScenarioCountdownToStart
	}
	if w.End == nil {
		return ScenarioOpenTimer
	}
	if !now.Before(*w.End) {
		if w.OverdueAllowed {
			return ScenarioOverdue
		}
		return ScenarioCompleted
	}
	return ScenarioCountdownActive
}
