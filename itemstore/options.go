package itemstore

import (
	"errors"
	"runtime"
	"time"

	"github.com/kjk/itemstore/codec"
	"github.com/kjk/itemstore/coord"
)

// State is reported to Options.OnStateChange
type State int

const (
	// StateStartupComplete is sent after the first load
	StateStartupComplete State = iota
	// StateDataUpdated is sent after a load replaced the collection
	StateDataUpdated
	// StateWillSave is sent before a save cycle takes its snapshot
	StateWillSave
	// StateSaveComplete is sent when the save coordinator goes idle
	StateSaveComplete
)

func (s State) String() string {
	switch s {
	case StateStartupComplete:
		return "startup-complete"
	case StateDataUpdated:
		return "data-updated"
	case StateWillSave:
		return "will-save"
	case StateSaveComplete:
		return "save-complete"
	}
	return "unknown"
}

type Options[T Record] struct {
	// Dir is the store directory. Created on first save.
	Dir string

	// Codec converts records to and from file content
	Codec codec.Codec[T]

	// Coordinator guards Dir against other processes.
	// Defaults to coord.NewFileLock()
	Coordinator coord.Coordinator

	// Workers limits parallel decoding and encoding.
	// Defaults to GOMAXPROCS
	Workers int

	// SaveDebounce is how long SaveSoon waits before saving.
	// If 0, SaveSoon saves right away.
	SaveDebounce time.Duration

	// OnStateChange, if set, is called from the goroutine that
	// caused the change. It must not block.
	OnStateChange func(State)

	// OnBroken, if set, is called once when the store breaks
	OnBroken func(error)
}

func (o *Options[T]) setDefaults() error {
	if o.Dir == "" {
		return errors.New("itemstore: Options.Dir is empty")
	}
	if o.Codec == nil {
		return errors.New("itemstore: Options.Codec is nil")
	}
	if o.Coordinator == nil {
		o.Coordinator = coord.NewFileLock()
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return nil
}
