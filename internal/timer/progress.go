package timer

import "time"

// openTimerProgress is the constant percentage shown for unbounded timers.
// It deliberately never reaches 100 so the bar reads as "still running".
const openTimerProgress = 95.0

// DefaultStartApproachWindow scales CountdownToStart progress: waits longer
// than this render as a full bar until the start actually arrives. The one
// hour value is a visual heuristic, not a discovered requirement; it is
// tunable via Options.StartApproachWindow.
const DefaultStartApproachWindow = time.Hour

// progressPercent computes the numeric progress for a scenario from one
// frozen instant. The result exceeds 100 only in Overdue.
func progressPercent(now time.Time, w Window, s Scenario, approach time.Duration) float64 {
	if approach <= 0 {
		approach = DefaultStartApproachWindow
	}
	switch s {
	case ScenarioCountdownToStart:
		remaining := w.Start.Sub(now)
		pct := remaining.Seconds() / approach.Seconds() * 100
		return minFloat(100, pct)
	case ScenarioOpenTimer:
		return openTimerProgress
	case ScenarioCompleted:
		return 100
	case ScenarioOverdue:
		total := w.TotalDuration()
		if total <= 0 {
			return 100
		}
		overdue := now.Sub(*w.End)
		return 100 + overdue.Seconds()/total.Seconds()*100
	default: // ScenarioCountdownActive
		total := w.TotalDuration()
		if total <= 0 {
			return 100
		}
		elapsed := now.Sub(w.Start)
		return minFloat(100, elapsed.Seconds()/total.Seconds()*100)
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
