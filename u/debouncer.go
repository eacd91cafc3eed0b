package u

import (
	"sync/atomic"
	"time"
)

// Debouncer collapses a burst of Debounce() calls into a single
// call of F, Timeout after the first call of the burst
type Debouncer struct {
	Timeout      time.Duration
	F            func()
	isDebouncing atomic.Bool
}

func NewDebouncer(timeout time.Duration, f func()) *Debouncer {
	return &Debouncer{
		Timeout: timeout,
		F:       f,
	}
}

func (d *Debouncer) run() {
	// clear before calling F so that a Debounce() that happens
	// while F runs schedules another call
	d.isDebouncing.Store(false)
	d.F()
}

func (d *Debouncer) Debounce() {
	didSwap := d.isDebouncing.CompareAndSwap(false, true)
	if !didSwap {
		// already debouncing
		return
	}
	PanicIf(d.Timeout == 0, "debounce timeout is 0")
	time.AfterFunc(d.Timeout, d.run)
}

// IsPending returns true if F is scheduled but not yet called
func (d *Debouncer) IsPending() bool {
	return d.isDebouncing.Load()
}
