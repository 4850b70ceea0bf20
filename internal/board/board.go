// Package board manages the set of live timers: it owns engine lifecycles
// and is the surface the data source (API, config) creates and removes
// timers through.
package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/timerboard/internal/clock"
	"github.com/JakeFAU/timerboard/internal/metrics"
	"github.com/JakeFAU/timerboard/internal/tickmux"
	"github.com/JakeFAU/timerboard/internal/timer"
)

// ErrNotFound signals that no timer exists for the requested ID.
var ErrNotFound = errors.New("timer not found")

// IDGenerator produces timer IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Config wires the Board's collaborators.
type Config struct {
	// Mux is the shared tick multiplexer (required).
	Mux *tickmux.Multiplexer
	// Clock supplies wall-clock reads (required).
	Clock clock.Clock
	// Emitter receives every computed state (usually the display hub).
	Emitter timer.Emitter
	// IDGen mints timer IDs (required).
	IDGen IDGenerator
	// Options are the default presentation options for new timers.
	Options timer.Options
	// Policy is the default cadence policy; nil means adaptive.
	Policy timer.CadencePolicy
	// OnRemove is called after a removed timer's engine has stopped, so
	// sinks can drop their per-timer state (store entries, metric series).
	OnRemove func(timerID string)
	// Logger is optional.
	Logger *zap.Logger
}

// CreateRequest describes a new timer. A nil FixedCadence means the board's
// default policy applies; otherwise the explicit cadence overrides adaptive
// selection.
type CreateRequest struct {
	Window       timer.Window
	Name         string
	FixedCadence *time.Duration
}

// Info is the registry's record of one live timer.
type Info struct {
	ID      string
	Name    string
	Window  timer.Window
	Created time.Time
}

// Board is the registry of live timers. It is safe for concurrent use.
type Board struct {
	cfg    Config
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	closed  bool

	baseCtx context.Context
	cancel  context.CancelFunc
}

type entry struct {
	info   Info
	engine *timer.Engine
}

// New constructs an empty Board. Engines it creates run until Remove or
// Close.
func New(cfg Config) *Board {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Board{
		cfg:     cfg,
		logger:  logger,
		entries: make(map[string]*entry),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Create registers a timer for the window and starts its engine. It returns
// the registry record; the first DisplayState is already flowing when it
// does.
func (b *Board) Create(req CreateRequest) (Info, error) {
	id, err := b.cfg.IDGen.NewID()
	if err != nil {
		return Info{}, fmt.Errorf("generate timer id: %w", err)
	}
	policy := b.cfg.Policy
	if req.FixedCadence != nil {
		policy = timer.FixedCadence(*req.FixedCadence)
	}
	engine := timer.NewEngine(id, req.Window, timer.EngineConfig{
		Mux:     b.cfg.Mux,
		Clock:   b.cfg.Clock,
		Policy:  policy,
		Options: b.cfg.Options,
		Emitter: b.cfg.Emitter,
		Logger:  b.logger,
	})
	info := Info{
		ID:      id,
		Name:    req.Name,
		Window:  req.Window,
		Created: b.cfg.Clock.Now(),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return Info{}, errors.New("board is closed")
	}
	b.entries[id] = &entry{info: info, engine: engine}
	count := len(b.entries)
	b.mu.Unlock()

	go engine.Run(b.baseCtx)
	metrics.ObserveTimerCreated()
	metrics.SetActiveTimers(count)
	b.logger.Info("timer created",
		zap.String("timer_id", id),
		zap.String("name", req.Name),
		zap.Time("start", req.Window.Start),
		zap.Bool("bounded", req.Window.Bounded()),
		zap.Bool("overdue_allowed", req.Window.OverdueAllowed),
	)
	return info, nil
}

// Get returns the registry record for a timer.
func (b *Board) Get(id string) (Info, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[id]
	if !ok {
		return Info{}, ErrNotFound
	}
	return e.info, nil
}

// Snapshot computes the timer's DisplayState at the current instant (the
// pull path; it does not wait for a tick).
func (b *Board) Snapshot(id string) (timer.DisplayState, error) {
	b.mu.RLock()
	e, ok := b.entries[id]
	b.mu.RUnlock()
	if !ok {
		return timer.DisplayState{}, ErrNotFound
	}
	return e.engine.Snapshot(), nil
}

// SetWindow replaces a timer's window with a new immutable value.
func (b *Board) SetWindow(id string, w timer.Window) error {
	b.mu.RLock()
	e, ok := b.entries[id]
	b.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	e.engine.SetWindow(w)
	b.mu.Lock()
	e.info.Window = w
	b.mu.Unlock()
	return nil
}

// List returns all registry records ordered by ID.
func (b *Board) List() []Info {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Info, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Remove stops a timer's engine and waits for it to release its tick
// subscription. Removal is deterministic: when Remove returns, the engine
// holds no multiplexer resources.
func (b *Board) Remove(id string) error {
	b.mu.Lock()
	e, ok := b.entries[id]
	if ok {
		delete(b.entries, id)
	}
	count := len(b.entries)
	b.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	e.engine.Stop()
	<-e.engine.Done()
	if b.cfg.OnRemove != nil {
		b.cfg.OnRemove(id)
	}
	metrics.ObserveTimerRemoved()
	metrics.SetActiveTimers(count)
	b.logger.Info("timer removed", zap.String("timer_id", id))
	return nil
}

// Close stops every engine and waits for them to exit, bounded by ctx.
func (b *Board) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	engines := make([]*timer.Engine, 0, len(b.entries))
	for _, e := range b.entries {
		engines = append(engines, e.engine)
	}
	b.entries = make(map[string]*entry)
	b.mu.Unlock()

	b.cancel()
	for _, engine := range engines {
		select {
		case <-engine.Done():
		case <-ctx.Done():
			return fmt.Errorf("board close wait: %w", ctx.Err())
		}
	}
	metrics.SetActiveTimers(0)
	return nil
}
