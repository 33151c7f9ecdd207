// Package debounce turns rapidly changing input into a stable value.
//
// A Debouncer holds at most one pending timer. Every Observe call cancels
// the pending timer and starts a new one, so only the last value of a burst
// settles, delay after the final change (trailing debounce). Stop cancels the
// pending emission for good.
package debounce

import (
	"sync"
	"time"

	"github.com/goliatone/go-listsync/clock"
)

// Debouncer emits the last observed value once delay has passed without a
// newer value.
type Debouncer[T comparable] struct {
	mu       sync.Mutex
	delay    time.Duration
	clock    clock.Clock
	onSettle func(T)

	timer   clock.Timer
	gen     uint64
	pending bool
	value   T
	stopped bool
}

type options struct {
	clock clock.Clock
}

// Option configures a Debouncer.
type Option func(*options)

// WithClock sets the time source for the debounce timer.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// New creates a Debouncer that calls onSettle with each settled value.
// onSettle runs on the timer goroutine, outside the debouncer lock.
func New[T comparable](delay time.Duration, onSettle func(T), opts ...Option) *Debouncer[T] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if onSettle == nil {
		onSettle = func(T) {}
	}
	return &Debouncer[T]{
		delay:    delay,
		clock:    clock.OrReal(o.clock),
		onSettle: onSettle,
	}
}

// Observe records a raw value and restarts the debounce window.
func (d *Debouncer[T]) Observe(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.pending = true
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.settle(gen, v)
	})
}

// Value returns the last settled value.
func (d *Debouncer[T]) Value() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value
}

// Pending reports whether a value is waiting for its window to elapse.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels any pending emission. Observe calls after Stop are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer[T]) settle(gen uint64, v T) {
	d.mu.Lock()
	// a newer Observe or a Stop superseded this timer
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	if v == d.value {
		d.mu.Unlock()
		return
	}
	d.value = v
	d.mu.Unlock()

	d.onSettle(v)
}
