package u

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebounceCollapsesBurst(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(50*time.Millisecond, func() {
		calls.Add(1)
	})
	for range 100 {
		d.Debounce()
	}
	assert.True(t, d.IsPending())
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return !d.IsPending() }, time.Second, 5*time.Millisecond)

	d.Debounce()
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestDebounceZeroTimeoutPanics(t *testing.T) {
	d := NewDebouncer(0, func() {})
	assert.Panics(t, d.Debounce)
}
