package timer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/timerboard/internal/clock"
	"github.com/JakeFAU/timerboard/internal/tickmux"
)

// Emitter receives each computed DisplayState. The display hub satisfies
// this interface so engines stay agnostic about fanout and sinks.
type Emitter interface {
	Emit(state DisplayState)
}

// EngineConfig wires an Engine's collaborators.
type EngineConfig struct {
	// Mux is the shared tick multiplexer (required).
	Mux *tickmux.Multiplexer
	// Clock supplies wall-clock reads for pull-path snapshots (required).
	Clock clock.Clock
	// Policy picks the tick cadence; defaults to AdaptiveCadence.
	Policy CadencePolicy
	// Options tunes presentation-variant behavior.
	Options Options
	// Emitter receives computed states; nil means pull-only.
	Emitter Emitter
	// Logger is optional.
	Logger *zap.Logger
}

// Engine owns one Window and derives its DisplayState on every tick of the
// cadence its policy selects. Exactly one state is computed per tick, all
// fields frozen to that tick's instant.
type Engine struct {
	id      string
	mux     *tickmux.Multiplexer
	clk     clock.Clock
	policy  CadencePolicy
	opts    Options
	emitter Emitter
	logger  *zap.Logger

	mu           sync.RWMutex
	window       Window
	lastScenario Scenario

	windowCh chan struct{}
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewEngine constructs an Engine for the given window. Run must be called
// for states to flow; Snapshot works immediately.
func NewEngine(id string, w Window, cfg EngineConfig) *Engine {
	policy := cfg.Policy
	if policy == nil {
		policy = AdaptiveCadence()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		id:       id,
		mux:      cfg.Mux,
		clk:      cfg.Clock,
		policy:   policy,
		opts:     cfg.Options,
		emitter:  cfg.Emitter,
		logger:   logger.With(zap.String("timer_id", id)),
		window:   w,
		windowCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// ID returns the engine's timer identifier.
func (e *Engine) ID() string {
	return e.id
}

// Window returns the current window value.
func (e *Engine) Window() Window {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.window
}

// SetWindow replaces the engine's window. The old window is never mutated;
// the run loop recomputes immediately and re-evaluates its cadence.
func (e *Engine) SetWindow(w Window) {
	e.mu.Lock()
	e.window = w
	e.mu.Unlock()
	select {
	case e.windowCh <- struct{}{}:
	default:
	}
}

// Snapshot recomputes the DisplayState at the clock's current instant. This
// pull path serves reads that land before the first tick, and is always
// consistent: every field derives from the one instant read here.
func (e *Engine) Snapshot() DisplayState {
	return Compute(e.id, e.clk.Now(), e.Window(), e.opts)
}

// Stop asks the run loop to exit and release its tick subscription. It is
// idempotent and safe to call before Run.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
}

// Done is closed once the run loop has exited and released its resources.
func (e *Engine) Done() <-chan struct{} {
	return e.doneCh
}

// Run drives the engine until ctx is canceled or Stop is called. It emits an
// initial state, then one state per tick. Detaching releases the hold on the
// multiplexer cadence deterministically.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.doneCh)

	now := e.clk.Now()
	e.publish(Compute(e.id, now, e.Window(), e.opts))

	sub := e.mux.Subscribe(e.policy.Cadence(now, e.Window()))
	if sub == nil {
		return
	}
	defer func() {
		if sub != nil {
			sub.Stop()
		}
	}()

	for {
		select {
		case ts, ok := <-sub.C:
			if !ok {
				return
			}
			state := Compute(e.id, ts, e.Window(), e.opts)
			e.publish(state)
			if state.Scenario == ScenarioCompleted {
				// Completed is terminal: labels and progress are frozen, so
				// ticking is wasted work. Park until the window changes.
				sub.Stop()
				sub = nil
				if !e.waitForWindowChange(ctx) {
					return
				}
				now := e.clk.Now()
				e.publish(Compute(e.id, now, e.Window(), e.opts))
				sub = e.mux.Subscribe(e.policy.Cadence(now, e.Window()))
				if sub == nil {
					return
				}
				continue
			}
			sub = e.retune(ts, sub)
			if sub == nil {
				return
			}
		case <-e.windowCh:
			now := e.clk.Now()
			e.publish(Compute(e.id, now, e.Window(), e.opts))
			sub = e.retune(now, sub)
			if sub == nil {
				return
			}
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		}
	}
}

// retune re-subscribes when the policy's cadence decision changed. The state
// for the current instant was already computed before switching, and the
// fresh ticker's first fire is a full cadence away, so no instant is skipped
// and none is computed twice.
func (e *Engine) retune(now time.Time, sub *tickmux.Subscription) *tickmux.Subscription {
	want := e.policy.Cadence(now, e.Window())
	if want == sub.Cadence() {
		return sub
	}
	next := e.mux.Subscribe(want)
	if next == nil {
		sub.Stop()
		return nil
	}
	sub.Stop()
	e.logger.Debug("cadence switched",
		zap.Duration("from", sub.Cadence()),
		zap.Duration("to", want),
	)
	return next
}

// waitForWindowChange blocks until SetWindow fires; false means the engine
// should exit instead.
func (e *Engine) waitForWindowChange(ctx context.Context) bool {
	select {
	case <-e.windowCh:
		return true
	case <-ctx.Done():
		return false
	case <-e.stopCh:
		return false
	}
}

func (e *Engine) publish(state DisplayState) {
	e.mu.Lock()
	prev := e.lastScenario
	e.lastScenario = state.Scenario
	e.mu.Unlock()
	if prev != "" && prev != state.Scenario {
		e.logger.Info("scenario transition",
			zap.String("from", string(prev)),
			zap.String("to", string(state.Scenario)),
			zap.Float64("progress", state.ProgressPercent),
		)
	}
	if e.emitter != nil {
		e.emitter.Emit(state)
	}
}
