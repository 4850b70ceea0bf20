// Package tickmux multiplexes shared periodic clocks. One underlying ticker
// exists per distinct cadence, created lazily on the first subscription and
// torn down when the last subscriber for that cadence detaches.
package tickmux

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/timerboard/internal/clock"
	"github.com/JakeFAU/timerboard/internal/metrics"
)

const (
	// subscriptionBuffer sizes each subscriber channel. Consumers that fall
	// behind lose ticks rather than blocking the shared clock.
	subscriptionBuffer = 16

	dropLogInterval = 5 * time.Second
)

// Multiplexer fans shared tick streams out to subscribers, keyed by cadence.
// It is safe for concurrent use.
type Multiplexer struct {
	clock  clock.Clock
	logger *zap.Logger

	mu     sync.Mutex
	clocks map[time.Duration]*sharedClock
	closed bool
}

// New constructs a Multiplexer reading timestamps from clk.
func New(clk clock.Clock, logger *zap.Logger) *Multiplexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Multiplexer{
		clock:  clk,
		logger: logger,
		clocks: make(map[time.Duration]*sharedClock),
	}
}

// Subscription delivers wall-clock timestamps on every tick of its cadence.
// Timestamps are never decreasing. Stop is idempotent and does not disturb
// other subscribers or other cadences.
type Subscription struct {
	// C receives the wall-clock timestamp of each tick. It is closed when
	// the subscription stops.
	C <-chan time.Time

	c        chan time.Time
	cadence  time.Duration
	mux      *Multiplexer
	stopOnce sync.Once
}

// Cadence reports the interval this subscription ticks at.
func (s *Subscription) Cadence() time.Duration {
	return s.cadence
}

// Stop detaches the subscription. The shared clock for the cadence is torn
// down if this was its last subscriber. Safe to call more than once.
func (s *Subscription) Stop() {
	s.stopOnce.Do(func() {
		s.mux.unsubscribe(s)
	})
}

// Subscribe attaches to the shared clock for the given cadence, creating it
// if this is the first subscriber. A nil return means the multiplexer is
// closed.
func (m *Multiplexer) Subscribe(cadence time.Duration) *Subscription {
	if cadence <= 0 {
		cadence = time.Second
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	sc, ok := m.clocks[cadence]
	if !ok {
		sc = newSharedClock(m, cadence)
		m.clocks[cadence] = sc
		go sc.run()
		metrics.SetActiveCadences(len(m.clocks))
		m.logger.Debug("shared clock created", zap.Duration("cadence", cadence))
	}
	c := make(chan time.Time, subscriptionBuffer)
	sub := &Subscription{C: c, c: c, cadence: cadence, mux: m}
	sc.mu.Lock()
	sc.subs[sub] = struct{}{}
	sc.mu.Unlock()
	return sub
}

// Subscribers reports the current subscriber count for a cadence. Zero means
// no shared clock exists for it.
func (m *Multiplexer) Subscribers(cadence time.Duration) int {
	m.mu.Lock()
	sc, ok := m.clocks[cadence]
	m.mu.Unlock()
	if !ok {
		return 0
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.subs)
}

// ActiveCadences reports how many distinct shared clocks are live.
func (m *Multiplexer) ActiveCadences() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clocks)
}

// Close tears down every shared clock and closes all subscriber channels.
// Subsequent Subscribe calls return nil.
func (m *Multiplexer) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	clocks := make([]*sharedClock, 0, len(m.clocks))
	for _, sc := range m.clocks {
		clocks = append(clocks, sc)
	}
	m.clocks = make(map[time.Duration]*sharedClock)
	m.mu.Unlock()

	for _, sc := range clocks {
		sc.shutdown()
		<-sc.doneCh
	}
	metrics.SetActiveCadences(0)
}

func (m *Multiplexer) unsubscribe(sub *Subscription) {
	m.mu.Lock()
	sc, ok := m.clocks[sub.cadence]
	m.mu.Unlock()
	if !ok {
		// Clock already torn down (multiplexer closed); channel was closed
		// by the shutdown path.
		return
	}

	sc.mu.Lock()
	if _, member := sc.subs[sub]; !member {
		sc.mu.Unlock()
		return
	}
	delete(sc.subs, sub)
	close(sub.c)
	last := len(sc.subs) == 0
	sc.mu.Unlock()

	if !last {
		return
	}
	m.mu.Lock()
	// Re-check under the multiplexer lock: a new subscriber may have raced in.
	if cur, ok := m.clocks[sub.cadence]; ok && cur == sc && cur.empty() {
		delete(m.clocks, sub.cadence)
		sc.shutdown()
		metrics.SetActiveCadences(len(m.clocks))
		m.logger.Debug("shared clock destroyed", zap.Duration("cadence", sub.cadence))
	}
	m.mu.Unlock()
}

// sharedClock owns one time.Ticker and fans its ticks out to subscribers.
type sharedClock struct {
	mux     *Multiplexer
	cadence time.Duration
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu   sync.Mutex
	subs map[*Subscription]struct{}
	last time.Time

	dropped     int64
	lastDropLog time.Time
}

func newSharedClock(mux *Multiplexer, cadence time.Duration) *sharedClock {
	return &sharedClock{
		mux:     mux,
		cadence: cadence,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		subs:    make(map[*Subscription]struct{}),
	}
}

func (sc *sharedClock) run() {
	defer close(sc.doneCh)
	ticker := time.NewTicker(sc.cadence)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sc.deliver(sc.mux.clock.Now())
		case <-sc.stopCh:
			return
		}
	}
}

func (sc *sharedClock) deliver(now time.Time) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	// Wall-clock reads must never go backwards for subscribers.
	if now.Before(sc.last) {
		now = sc.last
	}
	sc.last = now
	for sub := range sc.subs {
		select {
		case sub.c <- now:
			metrics.ObserveTick(sc.cadence)
		default:
			sc.dropped++
			metrics.ObserveTickDrop(sc.cadence)
		}
	}
	if sc.dropped > 0 && now.Sub(sc.lastDropLog) >= dropLogInterval {
		sc.mux.logger.Warn("ticks dropped for slow subscribers",
			zap.Duration("cadence", sc.cadence),
			zap.Int64("dropped", sc.dropped),
		)
		sc.dropped = 0
		sc.lastDropLog = now
	}
}

func (sc *sharedClock) empty() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.subs) == 0
}

// shutdown stops the run loop and closes any remaining subscriber channels.
func (sc *sharedClock) shutdown() {
	select {
	case <-sc.stopCh:
	default:
		close(sc.stopCh)
	}
	sc.mu.Lock()
	for sub := range sc.subs {
		delete(sc.subs, sub)
		close(sub.c)
	}
	sc.mu.Unlock()
}
