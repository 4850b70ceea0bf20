// Package timer implements the live countdown engine: time windows, scenario
// classification, progress math, label formatting, and the per-window engine
// that turns shared clock ticks into display states.
package timer

import (
	"errors"
	"fmt"
	"time"
)

// Window construction errors.
var (
	// ErrInvalidWindow reports a missing or unparseable start instant. It is
	// raised synchronously at construction time, never deferred to a tick.
	ErrInvalidWindow = errors.New("invalid time window")

	// ErrMalformedEnd reports an end instant that is present but
	// unparseable. It fails construction exactly like a malformed start;
	// matching errors.Is(err, ErrInvalidWindow) also holds.
	ErrMalformedEnd = fmt.Errorf("%w: malformed end instant", ErrInvalidWindow)
)

// Window is the immutable input defining a timer: a required start instant,
// an optional end instant, and whether running past the end is allowed.
// Windows are treated as values; replacing a window on an engine swaps it
// wholesale, never mutates it.
type Window struct {
	// Start is the required start instant.
	Start time.Time
	// End is the optional end instant; nil means the timer is unbounded.
	End *time.Time
	// OverdueAllowed keeps the timer counting past End instead of
	// completing.
	OverdueAllowed bool
}

// NewWindow parses a Window from RFC 3339 wire strings. An empty or
// unparseable start yields ErrInvalidWindow; a present but unparseable end
// yields ErrMalformedEnd. An empty end string means unbounded.
func NewWindow(start, end string, overdueAllowed bool) (Window, error) {
	if start == "" {
		return Window{}, fmt.Errorf("%w: missing start instant", ErrInvalidWindow)
	}
	startAt, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return Window{}, fmt.Errorf("%w: parse start %q: %v", ErrInvalidWindow, start, err)
	}
	if end == "" {
		return NewWindowAt(startAt, nil, overdueAllowed)
	}
	endAt, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return Window{}, fmt.Errorf("%w: parse end %q: %v", ErrMalformedEnd, end, err)
	}
	return NewWindowAt(startAt, &endAt, overdueAllowed)
}

// NewWindowAt builds a Window from already-resolved instants. The end time,
// when present, is copied so the caller cannot mutate the window through the
// pointer afterwards.
func NewWindowAt(start time.Time, end *time.Time, overdueAllowed bool) (Window, error) {
	if start.IsZero() {
		return Window{}, fmt.Errorf("%w: missing start instant", ErrInvalidWindow)
	}
	w := Window{Start: start.UTC(), OverdueAllowed: overdueAllowed}
	if end != nil {
		endAt := end.UTC()
		w.End = &endAt
	}
	return w, nil
}

// Bounded reports whether the window has an end instant.
func (w Window) Bounded() bool {
	return w.End != nil
}

// TotalDuration returns End minus Start, or zero for unbounded windows. The
// result may be negative for inverted windows; progress math guards for it.
func (w Window) TotalDuration() time.Duration {
	if w.End == nil {
		return 0
	}
	return w.End.Sub(w.Start)
}
