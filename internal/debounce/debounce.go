// Package debounce delays a rapidly changing value until it has been stable
// for a quiet period.
package debounce

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultDelay applies when a zero delay is configured.
const DefaultDelay = 300 * time.Millisecond

// ErrInvalidDelay is returned for negative delays.
var ErrInvalidDelay = errors.New("debounce: delay must not be negative")

// Debouncer relays only the last value pushed within a quiet period. It is
// idle until Push is called and pending until the delay elapses, a newer value
// replaces the wait, or Stop cancels it.
type Debouncer[T any] struct {
	delay time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	gen      uint64
	pending  bool
	stopped  bool
	value    T
	hasValue bool

	out  chan T
	done chan struct{}
}

// New builds a Debouncer. Cancelling ctx stops it; a nil ctx leaves teardown
// to Stop.
func New[T any](ctx context.Context, delay time.Duration) (*Debouncer[T], error) {
	if delay < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDelay, delay)
	}
	if delay == 0 {
		delay = DefaultDelay
	}
	d := &Debouncer[T]{
		delay: delay,
		out:   make(chan T, 1),
		done:  make(chan struct{}),
	}
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				d.Stop()
			case <-d.done:
			}
		}()
	}
	return d, nil
}

// Delay returns the configured quiet period.
func (d *Debouncer[T]) Delay() time.Duration {
	return d.delay
}

// Push records v and restarts the quiet period. Values pushed after Stop are ignored.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.gen++
	gen := d.gen
	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.fire(gen, v)
	})
}

func (d *Debouncer[T]) fire(gen uint64, v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// A stale timer can still fire after Stop returned false on it.
	if d.stopped || gen != d.gen {
		return
	}
	d.pending = false
	d.timer = nil
	d.value = v
	d.hasValue = true
	select {
	case <-d.out:
	default:
	}
	d.out <- v
}

// C delivers settled values. An unread value is replaced by a newer one. The
// channel is closed by Stop.
func (d *Debouncer[T]) C() <-chan T {
	return d.out
}

// Value returns the last settled value.
func (d *Debouncer[T]) Value() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value, d.hasValue
}

// Pending reports whether a value is waiting for the quiet period to elapse.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop discards any pending value and closes C. It is safe to call more than once.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	close(d.out)
	close(d.done)
}
