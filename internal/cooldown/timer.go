package cooldown

import (
	"sync"
	"time"
)

// TickerFunc creates a ticker firing every d. It returns the tick channel and
// a stop function releasing the ticker.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

// TickFunc observes the remaining count after each decrement. gen identifies
// the countdown that produced the tick.
type TickFunc func(gen uint64, remaining int)

// RealTicker adapts time.NewTicker to TickerFunc.
func RealTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Timer counts down whole ticks. The zero value is not usable; use New.
type Timer struct {
	mu        sync.Mutex
	newTicker TickerFunc
	interval  time.Duration
	onTick    TickFunc

	remaining int
	gen       uint64
	stop      chan struct{}
}

// New creates an idle timer. A nil newTicker falls back to RealTicker and a
// non-positive interval to one second.
func New(newTicker TickerFunc, interval time.Duration, onTick TickFunc) *Timer {
	if newTicker == nil {
		newTicker = RealTicker
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Timer{
		newTicker: newTicker,
		interval:  interval,
		onTick:    onTick,
	}
}

// Start resets the countdown to seconds and begins decrementing. Any running
// countdown is abandoned first. It returns the generation of the new
// countdown; seconds <= 0 leaves the timer idle at zero.
func (t *Timer) Start(seconds int) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	if seconds <= 0 {
		t.remaining = 0
		return t.gen
	}

	t.remaining = seconds
	stop := make(chan struct{})
	t.stop = stop
	gen := t.gen
	ticks, release := t.newTicker(t.interval)

	go t.run(gen, ticks, release, stop)
	return gen
}

// Cancel stops decrementing and resets the remaining time to zero.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.remaining = 0
}

// Remaining reports the seconds left, never below zero.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Running reports whether a countdown goroutine is active.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

func (t *Timer) stopLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.gen++
}

func (t *Timer) run(gen uint64, ticks <-chan time.Time, release func(), stop <-chan struct{}) {
	defer release()

	for {
		select {
		case <-stop:
			return
		case <-ticks:
			remaining, ok := t.decrement(gen)
			if !ok {
				return
			}
			if t.onTick != nil {
				t.onTick(gen, remaining)
			}
			if remaining == 0 {
				return
			}
		}
	}
}

func (t *Timer) decrement(gen uint64) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen || t.remaining <= 0 {
		return 0, false
	}
	t.remaining--
	if t.remaining == 0 {
		// countdown finished on its own; Start/Cancel must not close stop twice
		t.stop = nil
	}
	return t.remaining, true
}
