package itemstore

import (
	"sync"
	"sync/atomic"

	"github.com/kjk/itemstore/log"
)

// healthGate is a one-way switch. Once broken, the store refuses
// all disk I/O until the process restarts.
type healthGate struct {
	broken   atomic.Bool
	mu       sync.Mutex
	cause    error
	onBroken func(error)
}

func (h *healthGate) isBroken() bool {
	return h.broken.Load()
}

func (h *healthGate) breakWith(err error) {
	h.mu.Lock()
	if h.broken.Load() {
		h.mu.Unlock()
		return
	}
	h.cause = err
	h.broken.Store(true)
	h.mu.Unlock()

	log.Errorf("itemstore: store is broken and needs a restart: %s", err)
	log.Event("itemstore.broken", "error", err.Error())
	if h.onBroken != nil {
		h.onBroken(err)
	}
}

func (h *healthGate) getCause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cause
}
