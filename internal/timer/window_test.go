package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestNewWindowValid parses bounded and unbounded wire forms.
func TestNewWindowValid(t *testing.T) {
	t.Parallel()

	w, err := NewWindow("2025-06-01T12:00:00Z", "2025-06-01T13:00:00Z", true)
	require.NoError(t, err)
	require.Equal(t, baseTime, w.Start)
	require.True(t, w.Bounded())
	require.Equal(t, time.Hour, w.TotalDuration())
	require.True(t, w.OverdueAllowed)

	open, err := NewWindow("2025-06-01T12:00:00Z", "", false)
	require.NoError(t, err)
	require.False(t, open.Bounded())
	require.Zero(t, open.TotalDuration())
}

// TestNewWindowMissingStart ensures construction fails synchronously, before
// any state is ever produced.
func TestNewWindowMissingStart(t *testing.T) {
	t.Parallel()

	_, err := NewWindow("", "2025-06-01T13:00:00Z", false)
	require.ErrorIs(t, err, ErrInvalidWindow)

	_, err = NewWindowAt(time.Time{}, nil, false)
	require.ErrorIs(t, err, ErrInvalidWindow)
}

// TestNewWindowMalformedStart rejects unparseable start instants.
func TestNewWindowMalformedStart(t *testing.T) {
	t.Parallel()

	_, err := NewWindow("yesterday-ish", "", false)
	require.ErrorIs(t, err, ErrInvalidWindow)
	require.NotErrorIs(t, err, ErrMalformedEnd)
}

// TestNewWindowMalformedEnd pins the strict policy: a present but
// unparseable end fails construction like a malformed start, and the error
// matches both sentinels.
func TestNewWindowMalformedEnd(t *testing.T) {
	t.Parallel()

	_, err := NewWindow("2025-06-01T12:00:00Z", "not-a-timestamp", false)
	require.ErrorIs(t, err, ErrMalformedEnd)
	require.ErrorIs(t, err, ErrInvalidWindow)
}

// TestNewWindowAtCopiesEnd guards immutability: mutating the caller's end
// time after construction must not leak into the window.
func TestNewWindowAtCopiesEnd(t *testing.T) {
	t.Parallel()

	end := baseTime.Add(time.Hour)
	w, err := NewWindowAt(baseTime, &end, false)
	require.NoError(t, err)

	end = end.Add(24 * time.Hour)
	require.Equal(t, baseTime.Add(time.Hour), *w.End)
}
