package sinks

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/JakeFAU/timerboard/internal/timer"
)

// ErrNotFound signals that no state has been recorded for the timer.
var ErrNotFound = errors.New("display state not found")

// StoreSink keeps the latest pushed DisplayState per timer in memory. It
// backs the API's list endpoint without touching live engines.
type StoreSink struct {
	mu     sync.RWMutex
	latest map[string]timer.DisplayState
}

// NewStoreSink constructs an empty StoreSink.
func NewStoreSink() *StoreSink {
	return &StoreSink{latest: make(map[string]timer.DisplayState)}
}

// Consume records the newest state per timer. Later entries in a batch win;
// stale batches (older At than the recorded state) are ignored per timer.
func (s *StoreSink) Consume(_ context.Context, batch []timer.DisplayState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, state := range batch {
		cur, ok := s.latest[state.TimerID]
		if ok && state.At.Before(cur.At) {
			continue
		}
		s.latest[state.TimerID] = state
	}
	return nil
}

// Latest returns the newest recorded state for a timer.
func (s *StoreSink) Latest(timerID string) (timer.DisplayState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.latest[timerID]
	if !ok {
		return timer.DisplayState{}, ErrNotFound
	}
	return state, nil
}

// All returns every recorded state, ordered by timer ID for stable output.
func (s *StoreSink) All() []timer.DisplayState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]timer.DisplayState, 0, len(s.latest))
	for _, state := range s.latest {
		out = append(out, state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimerID < out[j].TimerID })
	return out
}

// Forget drops the recorded state for a removed timer.
func (s *StoreSink) Forget(timerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.latest, timerID)
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
