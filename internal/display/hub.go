package display

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/timerboard/internal/timer"
)

// Config controls buffering and batching for the Hub.
//   - BufferSize: size of the internal channel (default 1024).
//   - MaxBatchStates: flush once this many states queue (default 256).
//   - MaxBatchWait: flush after this duration even if the batch is small (default 250ms).
//   - SinkTimeout: per-sink timeout while flushing (default 5s).
//   - BaseContext: parent context passed to sink calls (defaults to context.Background()).
//   - Logger: optional structured logger used for warnings.
type Config struct {
	BufferSize     int
	MaxBatchStates int
	MaxBatchWait   time.Duration
	SinkTimeout    time.Duration
	BaseContext    context.Context
	Logger         *zap.Logger
}

const (
	defaultBufferSize     = 1024
	defaultMaxBatchStates = 256
	defaultMaxBatchWait   = 250 * time.Millisecond
	defaultSinkTimeout    = 5 * time.Second
	dropLogInterval       = 5 * time.Second
)

// Hub aggregates DisplayState streams from many engines and fans them out to
// registered sinks. It is safe for concurrent use and never blocks emitters,
// so a slow sink cannot stall a tick loop.
type Hub struct {
	cfg         Config
	sinks       []Sink
	states      chan timer.DisplayState
	stopCh      chan struct{}
	doneCh      chan struct{}
	logger      *zap.Logger
	dropLimiter rateLimiter
	dropped     atomic.Int64
	closed      atomic.Bool

	closeOnce sync.Once
	closeCtx  context.Context
}

// Hub satisfies timer.Emitter.
var _ timer.Emitter = (*Hub)(nil)

// NewHub initializes a Hub and starts the background batching goroutine using
// the supplied sinks. The returned Hub is immediately ready to accept states.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.MaxBatchStates <= 0 {
		cfg.MaxBatchStates = defaultMaxBatchStates
	}
	if cfg.MaxBatchWait <= 0 {
		cfg.MaxBatchWait = defaultMaxBatchWait
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		cfg:         cfg,
		sinks:       append([]Sink(nil), sinks...),
		states:      make(chan timer.DisplayState, cfg.BufferSize),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		logger:      logger,
		dropLimiter: rateLimiter{interval: dropLogInterval},
	}
	go h.run()
	return h
}

// Emit enqueues a state for batching. It never blocks; if the buffer is full
// the state is dropped and a rate-limited warning is logged.
func (h *Hub) Emit(state timer.DisplayState) {
	if h == nil {
		return
	}
	if h.closed.Load() {
		return
	}
	if err := state.Validate(); err != nil {
		h.logger.Debug("discarding invalid display state", zap.Error(err))
		return
	}
	select {
	case h.states <- state:
	default:
		h.dropped.Add(1)
		if h.dropLimiter.Allow(time.Now()) {
			count := h.dropped.Swap(0)
			h.logger.Warn("display states dropped due to backpressure", zap.Int64("dropped", count))
		}
	}
}

// Close drains remaining states, flushes sinks, and blocks until the
// background goroutine exits. Safe to call multiple times; subsequent calls
// are ignored once shutdown begins.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.closeCtx = ctx
		close(h.stopCh)
	})
	select {
	case <-h.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("display hub close wait: %w", ctx.Err())
	}
}

func (h *Hub) run() {
	defer close(h.doneCh)
	batch := make([]timer.DisplayState, 0, h.cfg.MaxBatchStates)
	flushTimer := time.NewTimer(h.cfg.MaxBatchWait)
	flushTimer.Stop()
	timerActive := false
	for {
		select {
		case state := <-h.states:
			batch = h.enqueueState(batch, state, flushTimer, &timerActive)
		case <-flushTimer.C:
			timerActive = false
			if len(batch) > 0 {
				h.flush(batch)
				batch = batch[:0]
			}
		case <-h.stopCh:
			h.handleStop(batch, flushTimer, &timerActive)
			return
		}
	}
}

func (h *Hub) enqueueState(
	batch []timer.DisplayState,
	state timer.DisplayState,
	flushTimer *time.Timer,
	timerActive *bool,
) []timer.DisplayState {
	batch = append(batch, state)
	if len(batch) >= h.cfg.MaxBatchStates {
		h.flush(batch)
		batch = batch[:0]
		h.stopTimer(flushTimer, timerActive)
	} else if h.cfg.MaxBatchWait > 0 {
		h.resetTimer(flushTimer, timerActive)
	}
	return batch
}

func (h *Hub) handleStop(batch []timer.DisplayState, flushTimer *time.Timer, timerActive *bool) {
	h.stopTimer(flushTimer, timerActive)
	for {
		select {
		case state := <-h.states:
			batch = append(batch, state)
			if len(batch) >= h.cfg.MaxBatchStates {
				h.flush(batch)
				batch = batch[:0]
			}
		default:
			if len(batch) > 0 {
				h.flush(batch)
			}
			h.closeSinks()
			return
		}
	}
}

func (h *Hub) resetTimer(flushTimer *time.Timer, timerActive *bool) {
	if h.cfg.MaxBatchWait <= 0 {
		return
	}
	if *timerActive {
		if !flushTimer.Stop() {
			select {
			case <-flushTimer.C:
			default:
			}
		}
	}
	flushTimer.Reset(h.cfg.MaxBatchWait)
	*timerActive = true
}

func (h *Hub) stopTimer(flushTimer *time.Timer, timerActive *bool) {
	if !*timerActive {
		return
	}
	if !flushTimer.Stop() {
		select {
		case <-flushTimer.C:
		default:
		}
	}
	*timerActive = false
}

func (h *Hub) flush(batch []timer.DisplayState) {
	if len(batch) == 0 {
		return
	}
	copyBatch := append([]timer.DisplayState(nil), batch...)
	baseCtx := h.cfg.BaseContext
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		ctx := baseCtx
		cancel := func() {}
		if h.cfg.SinkTimeout > 0 {
			ctx, cancel = context.WithTimeout(baseCtx, h.cfg.SinkTimeout)
		}
		if err := sink.Consume(ctx, copyBatch); err != nil {
			h.logger.Warn("display sink consume failed", zap.Error(err))
		}
		cancel()
	}
}

func (h *Hub) closeSinks() {
	ctx := h.closeCtx
	if ctx == nil {
		ctx = context.Background()
	}
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Close(ctx); err != nil {
			h.logger.Warn("display sink close failed", zap.Error(err))
		}
	}
}

type rateLimiter struct {
	interval time.Duration
	last     atomic.Int64
}

func (r *rateLimiter) Allow(now time.Time) bool {
	if r == nil || r.interval <= 0 {
		return true
	}
	nano := now.UnixNano()
	last := r.last.Load()
	if nano-last < r.interval.Nanoseconds() {
		return false
	}
	return r.last.CompareAndSwap(last, nano)
}
