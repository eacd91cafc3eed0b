package itemstore

import (
	"path/filepath"
	"sync"

	"github.com/kjk/itemstore/log"
	"github.com/kjk/itemstore/u"
)

// Store keeps an ordered collection of records in memory and
// persists it in a directory shared with other processes.
type Store[T Record] struct {
	opts   Options[T]
	dir    string
	items  *Collection[T]
	health healthGate
	saver  *saver
	soon   *u.Debouncer

	mu          sync.Mutex
	witness     witness
	haveWitness bool
	// ids past the maxItems cap of the last load, in index order.
	// Writes keep them in the index so their files survive.
	unloaded []ID
	started     bool
}

// New creates a store. Nothing is read from disk until Load.
func New[T Record](opts Options[T]) (*Store[T], error) {
	if err := opts.setDefaults(); err != nil {
		return nil, err
	}
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, err
	}
	s := &Store[T]{
		opts:  opts,
		dir:   dir,
		items: &Collection[T]{},
	}
	s.health.onBroken = opts.OnBroken
	s.saver = newSaver(s.prepareSave, func() {
		s.notify(StateSaveComplete)
	})
	if opts.SaveDebounce > 0 {
		s.soon = u.NewDebouncer(opts.SaveDebounce, func() {
			s.Save(false)
		})
	}
	return s, nil
}

func logf(format string, args ...any) {
	log.Logf("itemstore: "+format, args...)
}

func verbosef(format string, args ...any) {
	log.Verbosef("itemstore: "+format, args...)
}

func (s *Store[T]) notify(st State) {
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(st)
	}
}

// Dir returns absolute path of the store directory
func (s *Store[T]) Dir() string {
	return s.dir
}

// Items gives access to the in-memory collection. Changes to it
// are persisted by the next save.
func (s *Store[T]) Items() *Collection[T] {
	return s.items
}

func (s *Store[T]) recordPath(id ID) string {
	return filepath.Join(s.dir, id.String())
}

// IsBroken returns true if the store hit an unrecoverable error.
// A broken store does no disk I/O until the process restarts.
func (s *Store[T]) IsBroken() bool {
	return s.health.isBroken()
}

// BrokenCause returns the error that broke the store, if any
func (s *Store[T]) BrokenCause() error {
	return s.health.getCause()
}

// MarkDirty flags the record as needing a write on the next save.
// Returns false if there's no record with this id.
func (s *Store[T]) MarkDirty(id ID) bool {
	it, ok := s.items.Get(id)
	if !ok {
		return false
	}
	it.StoreFlags().MarkDirty()
	return true
}

// MarkDeletable flags the record for removal on the next save.
// Returns false if there's no record with this id.
func (s *Store[T]) MarkDeletable(id ID) bool {
	it, ok := s.items.Get(id)
	if !ok {
		return false
	}
	it.StoreFlags().MarkDeletable()
	return true
}

// Delete marks records deletable and requests a save
func (s *Store[T]) Delete(ids ...ID) {
	for _, id := range ids {
		s.MarkDeletable(id)
	}
	s.Save(false)
}

// SendToTop moves records to the front of the collection
// and requests a save
func (s *Store[T]) SendToTop(ids ...ID) {
	s.items.PromoteToTop(ids...)
	s.Save(false)
}

// Save requests a save cycle. If one is already running, another
// one runs after it. With force, Save returns after the data
// current at the time of the call is on disk.
func (s *Store[T]) Save(force bool) {
	if s.health.isBroken() {
		logf("ignoring save, store is broken")
		return
	}
	s.saver.request()
	if force {
		s.saver.waitIdle()
	}
}

// SaveSoon requests a save after Options.SaveDebounce.
// Calls made before that collapse into one save.
func (s *Store[T]) SaveSoon() {
	if s.soon == nil {
		s.Save(false)
		return
	}
	s.soon.Debounce()
}

// AfterNextSave calls fn when the running save cycles finish,
// or right away if nothing is being saved
func (s *Store[T]) AfterNextSave(fn func()) {
	s.saver.afterNextSave(fn)
}

// WaitIdle blocks until no save cycle is running
func (s *Store[T]) WaitIdle() {
	s.saver.waitIdle()
}

// SavePending returns true while a save cycle runs or SaveSoon
// has a save scheduled
func (s *Store[T]) SavePending() bool {
	return (s.soon != nil && s.soon.IsPending()) || s.saver.isSaving()
}

// IsSaving returns true while a save cycle runs
func (s *Store[T]) IsSaving() bool {
	return s.saver.isSaving()
}
