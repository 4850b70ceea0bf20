package timer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/timerboard/internal/clock"
	"github.com/JakeFAU/timerboard/internal/tickmux"
)

type captureEmitter struct {
	mu     sync.Mutex
	states []DisplayState
}

func (c *captureEmitter) Emit(state DisplayState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = append(c.states, state)
}

func (c *captureEmitter) States() []DisplayState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]DisplayState(nil), c.states...)
}

func (c *captureEmitter) LastScenario() Scenario {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.states) == 0 {
		return ""
	}
	return c.states[len(c.states)-1].Scenario
}

// TestEngineEmitsAndReleases runs an engine on a fast fixed cadence and
// verifies states flow, then that stopping releases the shared clock
// deterministically.
func TestEngineEmitsAndReleases(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(baseTime.Add(time.Minute))
	mux := tickmux.New(clk, zap.NewNop())
	defer mux.Close()
	emitter := &captureEmitter{}
	cadence := 10 * time.Millisecond

	engine := NewEngine("t1", boundedWindow(t, time.Hour, false), EngineConfig{
		Mux:     mux,
		Clock:   clk,
		Policy:  FixedCadence(cadence),
		Emitter: emitter,
	})
	go engine.Run(context.Background())

	require.Eventually(t, func() bool {
		return len(emitter.States()) >= 2
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, mux.Subscribers(cadence))
	for _, state := range emitter.States() {
		require.Equal(t, ScenarioCountdownActive, state.Scenario)
		require.Equal(t, "t1", state.TimerID)
	}

	engine.Stop()
	<-engine.Done()
	require.Equal(t, 0, mux.Subscribers(cadence))
}

// TestEngineSnapshotWithoutRun covers the pull path: reads that land before
// the first tick still get a consistent state.
func TestEngineSnapshotWithoutRun(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(baseTime.Add(30 * time.Minute))
	mux := tickmux.New(clk, zap.NewNop())
	defer mux.Close()

	engine := NewEngine("t1", boundedWindow(t, time.Hour, true), EngineConfig{
		Mux:   mux,
		Clock: clk,
	})
	state := engine.Snapshot()
	require.Equal(t, ScenarioCountdownActive, state.Scenario)
	require.InDelta(t, 50.0, state.ProgressPercent, 1e-9)
	require.Equal(t, baseTime.Add(30*time.Minute), state.At)
}

// TestEngineCompletedParksAndRevives drives a window to completion, checks
// the engine releases its subscription while parked, and revives it with a
// replacement window.
func TestEngineCompletedParksAndRevives(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(baseTime.Add(time.Minute))
	mux := tickmux.New(clk, zap.NewNop())
	defer mux.Close()
	emitter := &captureEmitter{}
	cadence := 10 * time.Millisecond

	engine := NewEngine("t1", boundedWindow(t, time.Hour, false), EngineConfig{
		Mux:     mux,
		Clock:   clk,
		Policy:  FixedCadence(cadence),
		Emitter: emitter,
	})
	go engine.Run(context.Background())
	defer func() {
		engine.Stop()
		<-engine.Done()
	}()

	require.Eventually(t, func() bool {
		return emitter.LastScenario() == ScenarioCountdownActive
	}, time.Second, 5*time.Millisecond)

	// Jump past the end: the next tick classifies Completed and the engine
	// parks, dropping its hold on the shared clock.
	clk.Set(baseTime.Add(2 * time.Hour))
	require.Eventually(t, func() bool {
		return emitter.LastScenario() == ScenarioCompleted
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return mux.Subscribers(cadence) == 0
	}, time.Second, 5*time.Millisecond)

	// A fresh window revives the engine.
	engine.SetWindow(boundedWindow(t, 6*time.Hour, false))
	require.Eventually(t, func() bool {
		return emitter.LastScenario() == ScenarioCountdownActive &&
			mux.Subscribers(cadence) == 1
	}, time.Second, 5*time.Millisecond)
}

// TestEngineAdaptiveSwitch verifies the engine re-subscribes when the phase
// magnitude crosses the policy threshold, releasing the old cadence.
func TestEngineAdaptiveSwitch(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(baseTime.Add(time.Minute))
	mux := tickmux.New(clk, zap.NewNop())
	defer mux.Close()
	emitter := &captureEmitter{}

	fine := 10 * time.Millisecond
	coarse := 20 * time.Millisecond
	// End is 2h away at start; the 1h threshold keeps the engine coarse
	// until the clock moves close to the end.
	engine := NewEngine("t1", boundedWindow(t, 2*time.Hour, false), EngineConfig{
		Mux:     mux,
		Clock:   clk,
		Policy:  DualRateCadence(fine, coarse, time.Hour),
		Emitter: emitter,
	})
	go engine.Run(context.Background())
	defer func() {
		engine.Stop()
		<-engine.Done()
	}()

	require.Eventually(t, func() bool {
		return mux.Subscribers(coarse) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 0, mux.Subscribers(fine))

	// Move inside the threshold; the next coarse tick self-corrects.
	clk.Set(baseTime.Add(2*time.Hour - time.Minute))
	require.Eventually(t, func() bool {
		return mux.Subscribers(fine) == 1 && mux.Subscribers(coarse) == 0
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, mux.ActiveCadences())
}

// TestEngineSetWindowImmediateRecompute checks a window swap recomputes
// without waiting for the next tick.
func TestEngineSetWindowImmediateRecompute(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(baseTime.Add(time.Minute))
	mux := tickmux.New(clk, zap.NewNop())
	defer mux.Close()
	emitter := &captureEmitter{}

	// A slow cadence so emissions come from the swap, not ticks.
	engine := NewEngine("t1", boundedWindow(t, time.Hour, false), EngineConfig{
		Mux:     mux,
		Clock:   clk,
		Policy:  FixedCadence(time.Minute),
		Emitter: emitter,
	})
	go engine.Run(context.Background())
	defer func() {
		engine.Stop()
		<-engine.Done()
	}()

	require.Eventually(t, func() bool {
		return len(emitter.States()) >= 1
	}, time.Second, 5*time.Millisecond)

	engine.SetWindow(openWindow(t))
	require.Eventually(t, func() bool {
		return emitter.LastScenario() == ScenarioOpenTimer
	}, time.Second, 5*time.Millisecond)
}
