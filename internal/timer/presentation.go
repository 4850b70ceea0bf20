package timer

import (
	"errors"
	"fmt"
	"time"
)

// ColorTier is the coarse color/category bucket a renderer maps to a theme.
type ColorTier string

// Supported color tiers.
const (
	TierOnTrack   ColorTier = "on_track"
	TierCaution   ColorTier = "caution"
	TierCritical  ColorTier = "critical"
	TierScheduled ColorTier = "scheduled"
	TierNeutral   ColorTier = "neutral"
)

// Position hints which edge of the layout the rendered bar anchors to.
type Position string

// Supported positions.
const (
	PositionStartAligned Position = "start_aligned"
	PositionEndAligned   Position = "end_aligned"
)

// Thresholds splitting CountdownActive progress into color tiers.
const (
	onTrackMaxPercent = 25.0
	cautionMaxPercent = 75.0
)

// Options tunes presentation-variant knobs of the display computation.
type Options struct {
	// StartApproachWindow scales CountdownToStart progress; zero means
	// DefaultStartApproachWindow.
	StartApproachWindow time.Duration
	// HideStartPercentage suppresses the percentage for CountdownToStart,
	// matching presentation variants that only show the "starts in" label.
	HideStartPercentage bool
}

// DisplayState is the renderer-agnostic snapshot of a timer's current visual
// status. All fields derive from the same frozen instant (At); consumers
// never observe a torn read.
type DisplayState struct {
	// TimerID identifies the owning timer.
	TimerID string
	// At is the frozen instant every field was computed from.
	At time.Time
	// Scenario is the classified phase.
	Scenario Scenario
	// ProgressPercent exceeds 100 only in Overdue.
	ProgressPercent float64
	// StatusLabel is the human-facing elapsed/remaining string.
	StatusLabel string
	// Label is an optional category string ("upcoming", "overdue", ...).
	Label string
	// Position hints the bar anchor edge.
	Position Position
	// HidePercentage suppresses the numeric percentage display.
	HidePercentage bool
	// Shimmer requests a busy indication.
	Shimmer bool
	// ColorTier is the coarse color bucket.
	ColorTier ColorTier
}

// Validate performs coarse validation on DisplayState payloads.
func (s DisplayState) Validate() error {
	if s.TimerID == "" {
		return errors.New("timer id is required")
	}
	if s.At.IsZero() {
		return errors.New("timestamp is required")
	}
	if !s.Scenario.Valid() {
		return fmt.Errorf("unknown scenario %q", s.Scenario)
	}
	if s.ProgressPercent < 0 {
		return errors.New("progress must be >= 0")
	}
	return nil
}

// Compute derives the full DisplayState for one timer at one frozen instant.
// It is the single place scenario, progress, label, and presentation are
// combined, so all fields are consistent with each other.
func Compute(timerID string, now time.Time, w Window, opts Options) DisplayState {
	scenario := Classify(now, w)
	state := DisplayState{
		TimerID:         timerID,
		At:              now,
		Scenario:        scenario,
		ProgressPercent: progressPercent(now, w, scenario, opts.StartApproachWindow),
		Position:        PositionStartAligned,
	}

	switch scenario {
	case ScenarioCountdownToStart:
		state.StatusLabel = FormatWithDayRollover(w.Start.Sub(now))
		state.Label = "upcoming"
		state.Position = PositionEndAligned
		state.ColorTier = TierScheduled
		state.HidePercentage = opts.HideStartPercentage
	case ScenarioOpenTimer:
		state.StatusLabel = FormatWithDayRollover(now.Sub(w.Start))
		state.Label = "running"
		state.ColorTier = TierOnTrack
		state.Shimmer = true
		state.HidePercentage = true
	case ScenarioOverdue:
		state.StatusLabel = FormatWithDayRollover(now.Sub(*w.End))
		state.Label = "overdue"
		state.ColorTier = TierCritical
	case ScenarioCompleted:
		state.StatusLabel = FormatDuration(w.TotalDuration())
		state.Label = "done"
		state.ColorTier = TierNeutral
	case ScenarioCountdownActive:
		state.StatusLabel = FormatWithDayRollover(now.Sub(w.Start))
		state.ColorTier = activeTier(state.ProgressPercent)
	}
	return state
}

// activeTier buckets CountdownActive progress into thirds.
func activeTier(pct float64) ColorTier {
	switch {
	case pct <= onTrackMaxPercent:
		return TierOnTrack
	case pct <= cautionMaxPercent:
		return TierCaution
	default:
		return TierCritical
	}
}
