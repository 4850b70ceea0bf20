package display

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/timerboard/internal/timer"
)

func sampleState(id string) timer.DisplayState {
	return timer.DisplayState{
		TimerID:         id,
		At:              time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Scenario:        timer.ScenarioCountdownActive,
		ProgressPercent: 42,
		StatusLabel:     "00:07:00",
		Position:        timer.PositionStartAligned,
		ColorTier:       timer.TierCaution,
	}
}

// TestHubBatchBySize verifies the hub flushes immediately once the batch size limit is reached.
func TestHubBatchBySize(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     8,
		MaxBatchStates: 2,
		MaxBatchWait:   time.Minute,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleState("t1"))
	hub.Emit(sampleState("t1"))
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1 && len(sink.Batches()[0]) == 2
	}, time.Second, 10*time.Millisecond)
}

// TestHubBatchByTimer verifies the timer-based flush kicks in when the batch is small.
func TestHubBatchByTimer(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchStates: 10,
		MaxBatchWait:   25 * time.Millisecond,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleState("t1"))
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1
	}, time.Second, 5*time.Millisecond)
}

// TestHubEmitNonBlockingWithoutConsumers asserts Emit never blocks callers, even without sinks.
func TestHubEmitNonBlockingWithoutConsumers(t *testing.T) {
	t.Parallel()

	hub := &Hub{
		cfg:    Config{},
		states: make(chan timer.DisplayState),
		logger: zap.NewNop(),
	}
	start := time.Now()
	hub.Emit(sampleState("t1"))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

// TestHubDropsInvalidStates checks validation gates admission.
func TestHubDropsInvalidStates(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchStates: 1,
		MaxBatchWait:   10 * time.Millisecond,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	invalid := sampleState("")
	hub.Emit(invalid)
	hub.Emit(sampleState("t1"))

	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, "t1", sink.Batches()[0][0].TimerID)
}

// TestHubFlushOnClose ensures Close drains any buffered states before returning.
func TestHubFlushOnClose(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchStates: 100,
		MaxBatchWait:   time.Minute,
	}, sink)

	hub.Emit(sampleState("t1"))

	require.NoError(t, hub.Close(context.Background()))
	require.Len(t, sink.Batches(), 1)
	require.Len(t, sink.Batches()[0], 1)
}

type stubSink struct {
	mu      sync.Mutex
	batches [][]timer.DisplayState
}

func newStubSink() *stubSink {
	return &stubSink{batches: [][]timer.DisplayState{}}
}

func (s *stubSink) Consume(_ context.Context, batch []timer.DisplayState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyBatch := append([]timer.DisplayState(nil), batch...)
	s.batches = append(s.batches, copyBatch)
	return nil
}

func (s *stubSink) Close(context.Context) error {
	return nil
}

func (s *stubSink) Batches() [][]timer.DisplayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]timer.DisplayState, len(s.batches))
	for i, b := range s.batches {
		out[i] = append([]timer.DisplayState(nil), b...)
	}
	return out
}
