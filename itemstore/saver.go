package itemstore

import (
	"sync"
)

type saveState int

const (
	saveIdle saveState = iota
	saveSaving
)

// saver coalesces save requests. While a cycle runs, any number
// of requests collapse into a single follow-up cycle.
//
// prepare runs on the requesting goroutine (first cycle) or the
// save goroutine (follow-ups). It takes the snapshot and returns
// the write to perform.
type saver struct {
	prepare func() func()
	onIdle  func()

	mu        sync.Mutex
	idle      *sync.Cond
	state     saveState
	saveAgain bool
	callbacks []func()

	// serializes all writes done by this process: save cycles,
	// index-only saves and commits
	writeMu sync.Mutex
}

func newSaver(prepare func() func(), onIdle func()) *saver {
	sv := &saver{
		prepare: prepare,
		onIdle:  onIdle,
	}
	sv.idle = sync.NewCond(&sv.mu)
	return sv
}

func (sv *saver) request() {
	sv.mu.Lock()
	if sv.state == saveSaving {
		sv.saveAgain = true
		sv.mu.Unlock()
		return
	}
	sv.state = saveSaving
	sv.mu.Unlock()

	write := sv.prepare()
	go sv.run(write)
}

func (sv *saver) run(write func()) {
	for {
		sv.writeMu.Lock()
		write()
		sv.writeMu.Unlock()

		sv.mu.Lock()
		if sv.saveAgain {
			sv.saveAgain = false
			sv.mu.Unlock()
			write = sv.prepare()
			continue
		}
		sv.state = saveIdle
		callbacks := sv.callbacks
		sv.callbacks = nil
		sv.idle.Broadcast()
		sv.mu.Unlock()

		if sv.onIdle != nil {
			sv.onIdle()
		}
		for _, fn := range callbacks {
			fn()
		}
		return
	}
}

// afterNextSave calls fn once the saver is idle again.
// If nothing is being saved, fn is called right away.
func (sv *saver) afterNextSave(fn func()) {
	sv.mu.Lock()
	if sv.state == saveIdle {
		sv.mu.Unlock()
		fn()
		return
	}
	sv.callbacks = append(sv.callbacks, fn)
	sv.mu.Unlock()
}

func (sv *saver) waitIdle() {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	for sv.state == saveSaving {
		sv.idle.Wait()
	}
}

func (sv *saver) isSaving() bool {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.state == saveSaving
}
