package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestComputeCanonicalStates pins the canonical numeric/label behavior for a
// 100-second window evaluated mid-flight, overdue, and completed.
func TestComputeCanonicalStates(t *testing.T) {
	t.Parallel()

	end := baseTime.Add(100 * time.Second)

	tests := []struct {
		name         string
		overdue      bool
		at           time.Duration
		wantScenario Scenario
		wantProgress float64
		wantStatus   string
	}{
		{
			name:         "midway active",
			overdue:      false,
			at:           50 * time.Second,
			wantScenario: ScenarioCountdownActive,
			wantProgress: 50.0,
			wantStatus:   "00:00:50",
		},
		{
			name:         "overdue by half the window",
			overdue:      true,
			at:           150 * time.Second,
			wantScenario: ScenarioOverdue,
			wantProgress: 150.0,
			wantStatus:   "00:00:50",
		},
		{
			name:         "completed",
			overdue:      false,
			at:           150 * time.Second,
			wantScenario: ScenarioCompleted,
			wantProgress: 100.0,
			wantStatus:   "1m",
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			w, err := NewWindowAt(baseTime, &end, tc.overdue)
			require.NoError(t, err)
			state := Compute("t1", baseTime.Add(tc.at), w, Options{})
			require.Equal(t, tc.wantScenario, state.Scenario)
			require.InDelta(t, tc.wantProgress, state.ProgressPercent, 1e-9)
			require.Equal(t, tc.wantStatus, state.StatusLabel)
		})
	}
}

// TestProgressCountdownToStartSaturates checks the approach-window scaling:
// waits longer than the window render as a full bar.
func TestProgressCountdownToStartSaturates(t *testing.T) {
	t.Parallel()

	w := openWindow(t)

	// 30 minutes out of the default 1h reference window.
	halfway := Compute("t1", baseTime.Add(-30*time.Minute), w, Options{})
	require.InDelta(t, 50.0, halfway.ProgressPercent, 1e-9)

	// Two hours away saturates at 100 well before the start arrives.
	far := Compute("t1", baseTime.Add(-2*time.Hour), w, Options{})
	require.InDelta(t, 100.0, far.ProgressPercent, 1e-9)

	// A custom approach window rescales the same wait.
	opts := Options{StartApproachWindow: 2 * time.Hour}
	rescaled := Compute("t1", baseTime.Add(-30*time.Minute), w, opts)
	require.InDelta(t, 25.0, rescaled.ProgressPercent, 1e-9)
}

// TestProgressOpenTimerConstant pins the "still running" constant.
func TestProgressOpenTimerConstant(t *testing.T) {
	t.Parallel()

	w := openWindow(t)
	for _, off := range []time.Duration{time.Second, time.Hour, 90 * 24 * time.Hour} {
		state := Compute("t1", baseTime.Add(off), w, Options{})
		require.InDelta(t, 95.0, state.ProgressPercent, 1e-9)
	}
}

// TestProgressDegenerateWindow covers zero-length windows: active and
// overdue both collapse to 100.
func TestProgressDegenerateWindow(t *testing.T) {
	t.Parallel()

	end := baseTime
	w, err := NewWindowAt(baseTime, &end, true)
	require.NoError(t, err)

	state := Compute("t1", baseTime.Add(time.Minute), w, Options{})
	require.Equal(t, ScenarioOverdue, state.Scenario)
	require.InDelta(t, 100.0, state.ProgressPercent, 1e-9)
}

// TestProgressActiveMonotonic verifies progress never decreases as time
// advances across a fixed window.
func TestProgressActiveMonotonic(t *testing.T) {
	t.Parallel()

	w := boundedWindow(t, time.Hour, false)
	prev := -1.0
	for off := time.Second; off < time.Hour; off += 37 * time.Second {
		state := Compute("t1", baseTime.Add(off), w, Options{})
		require.Equal(t, ScenarioCountdownActive, state.Scenario)
		require.GreaterOrEqual(t, state.ProgressPercent, prev)
		prev = state.ProgressPercent
	}
}

// TestProgressActiveClamped ensures the active percentage never exceeds 100
// even a nanosecond before the end.
func TestProgressActiveClamped(t *testing.T) {
	t.Parallel()

	w := boundedWindow(t, time.Hour, false)
	state := Compute("t1", baseTime.Add(time.Hour-time.Nanosecond), w, Options{})
	require.Equal(t, ScenarioCountdownActive, state.Scenario)
	require.LessOrEqual(t, state.ProgressPercent, 100.0)
}

// TestProgressOverdueGrowth checks the overdue percentage keeps growing past
// 100 in proportion to the window length.
func TestProgressOverdueGrowth(t *testing.T) {
	t.Parallel()

	w := boundedWindow(t, time.Hour, true)
	one := Compute("t1", baseTime.Add(90*time.Minute), w, Options{})
	two := Compute("t1", baseTime.Add(2*time.Hour), w, Options{})
	require.InDelta(t, 150.0, one.ProgressPercent, 1e-9)
	require.InDelta(t, 200.0, two.ProgressPercent, 1e-9)
	require.Greater(t, two.ProgressPercent, one.ProgressPercent)
}
