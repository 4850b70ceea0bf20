package timer

import "time"

// Canonical cadence constants for the adaptive policy.
const (
	// DefaultFineCadence drives second-resolution displays.
	DefaultFineCadence = time.Second
	// DefaultCoarseCadence is enough for day-granularity displays.
	DefaultCoarseCadence = 5 * time.Minute
	// DefaultAdaptiveThreshold is the phase magnitude beyond which the
	// display rolls over to days and the fine cadence is wasted work.
	DefaultAdaptiveThreshold = 24 * time.Hour
)

// CadencePolicy picks the tick interval for a window at an instant. The
// engine re-evaluates the policy on every tick, so policies must be cheap
// and pure.
type CadencePolicy interface {
	Cadence(now time.Time, w Window) time.Duration
}

// FixedCadence always ticks at d, regardless of the window. It backs the
// explicit cadence override a data source may request.
func FixedCadence(d time.Duration) CadencePolicy {
	if d <= 0 {
		d = DefaultFineCadence
	}
	return fixedCadence(d)
}

type fixedCadence time.Duration

func (f fixedCadence) Cadence(time.Time, Window) time.Duration {
	return time.Duration(f)
}

// DualRateCadence ticks at coarse while the phase magnitude exceeds the
// threshold, else at fine. The decision self-corrects: each coarse tick
// re-evaluates it, so a window drifting inside the threshold drops to the
// fine cadence before its next scenario transition.
func DualRateCadence(fine, coarse, threshold time.Duration) CadencePolicy {
	if fine <= 0 {
		fine = DefaultFineCadence
	}
	if coarse <= 0 {
		coarse = DefaultCoarseCadence
	}
	if threshold <= 0 {
		threshold = DefaultAdaptiveThreshold
	}
	return dualRateCadence{fine: fine, coarse: coarse, threshold: threshold}
}

// AdaptiveCadence is the canonical dual-rate policy: 1s fine, 5m coarse,
// 24h threshold.
func AdaptiveCadence() CadencePolicy {
	return DualRateCadence(DefaultFineCadence, DefaultCoarseCadence, DefaultAdaptiveThreshold)
}

type dualRateCadence struct {
	fine      time.Duration
	coarse    time.Duration
	threshold time.Duration
}

func (d dualRateCadence) Cadence(now time.Time, w Window) time.Duration {
	if phaseMagnitude(now, w) > d.threshold {
		return d.coarse
	}
	return d.fine
}

// phaseMagnitude is the seconds-magnitude relevant to the active phase: time
// to start before the window, time to end inside it, time past end after it,
// and elapsed time for unbounded windows.
func phaseMagnitude(now time.Time, w Window) time.Duration {
	if !now.After(w.Start) {
		return w.Start.Sub(now)
	}
	if w.End == nil {
		return now.Sub(w.Start)
	}
	if now.Before(*w.End) {
		return w.End.Sub(now)
	}
	return now.Sub(*w.End)
}
