package itemstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kjk/itemstore/idindex"
	"github.com/kjk/itemstore/log"
	"github.com/kjk/itemstore/u"
	"golang.org/x/sync/errgroup"
)

// witness tells if the directory changed since it was last read
// or written by this process. Writes are atomic renames so every
// change to the index or a record file updates the directory mtime.
type witness struct {
	dirModTime   time.Time
	indexModTime time.Time
	indexSize    int64
}

func readWitness(dir string) (witness, error) {
	var w witness
	st, err := os.Stat(dir)
	if err != nil {
		return w, err
	}
	w.dirModTime = st.ModTime()
	st, err = os.Stat(filepath.Join(dir, idindex.FileName))
	if err == nil {
		w.indexModTime = st.ModTime()
		w.indexSize = st.Size()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return w, err
	}
	return w, nil
}

func (w witness) equal(o witness) bool {
	return w.dirModTime.Equal(o.dirModTime) &&
		w.indexModTime.Equal(o.indexModTime) &&
		w.indexSize == o.indexSize
}

func (s *Store[T]) setWitness(w witness) {
	s.mu.Lock()
	s.witness = w
	s.haveWitness = true
	s.mu.Unlock()
}

func (s *Store[T]) clearWitness() {
	s.mu.Lock()
	s.haveWitness = false
	s.mu.Unlock()
}

// isUnchanged is false after a capped load so that the next
// load reads the records that were left out
func (s *Store[T]) isUnchanged(w witness) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.haveWitness && len(s.unloaded) == 0 && s.witness.equal(w)
}

func (s *Store[T]) setUnloaded(ids []ID) {
	s.mu.Lock()
	s.unloaded = ids
	s.mu.Unlock()
}

// IsPartial returns true if the last load was capped by maxItems
// and left records on disk out of the collection
func (s *Store[T]) IsPartial() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.unloaded) > 0
}

// withUnloaded appends ids left out by a capped load that are not in ids
func (s *Store[T]) withUnloaded(ids []ID) []ID {
	s.mu.Lock()
	unloaded := s.unloaded
	s.mu.Unlock()
	if len(unloaded) == 0 {
		return ids
	}
	present := make(map[ID]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}
	for _, id := range unloaded {
		if !present[id] {
			present[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// LoadReport describes the outcome of Load
type LoadReport struct {
	// Fresh is true if the store directory didn't exist
	Fresh bool
	// Reloaded is true if the collection was replaced
	Reloaded bool
	// Total is the number of ids in the index
	Total int
	// Loaded is the number of records in the collection
	Loaded int
	// Dropped is the number of records that couldn't be decoded
	// or were duplicates. The rest of the store is unaffected.
	Dropped int
}

// Load reads the store into memory, replacing the collection.
// It's skipped if the directory didn't change since the last
// load or save by this process. maxItems > 0 loads only that
// many records from the top.
func (s *Store[T]) Load(maxItems int) (LoadReport, error) {
	return s.load(maxItems, false)
}

// Reload is like Load but always reads the directory
func (s *Store[T]) Reload(maxItems int) (LoadReport, error) {
	s.clearWitness()
	return s.load(maxItems, true)
}

func (s *Store[T]) load(maxItems int, force bool) (LoadReport, error) {
	var rep LoadReport
	if s.health.isBroken() {
		logf("ignoring load, store is broken")
		return rep, ErrBroken
	}
	timeStart := time.Now()
	err := s.opts.Coordinator.Read(s.dir, func() error {
		st, err := os.Stat(s.dir)
		if errors.Is(err, fs.ErrNotExist) {
			logf("'%s' doesn't exist, starting with empty store", s.dir)
			s.items.Reset(nil)
			s.clearWitness()
			s.setUnloaded(nil)
			rep.Fresh = true
			rep.Reloaded = true
			return nil
		}
		if err != nil {
			return err
		}
		if !st.IsDir() {
			return fmt.Errorf("'%s' is not a directory", s.dir)
		}
		w, err := readWitness(s.dir)
		if err != nil {
			return err
		}
		if !force && s.isUnchanged(w) {
			verbosef("'%s' didn't change, skipping load", s.dir)
			rep.Total = s.items.Len()
			rep.Loaded = rep.Total
			return nil
		}
		d, err := s.readIndex()
		if err != nil {
			return err
		}
		total := idindex.Count(int64(len(d)))
		n := total
		if maxItems > 0 && maxItems < n {
			n = maxItems
		}
		items, dropped := s.decodeAll(d, n)
		var unloaded []ID
		for i := n; i < total; i++ {
			unloaded = append(unloaded, idindex.At(d, i))
		}
		s.items.Reset(items)
		s.setUnloaded(unloaded)
		s.setWitness(w)
		rep.Reloaded = true
		rep.Total = total
		rep.Loaded = len(items)
		rep.Dropped = dropped
		return nil
	})
	if err != nil {
		s.health.breakWith(err)
		return rep, err
	}

	if rep.Reloaded {
		log.EventWithDuration("itemstore.load", time.Since(timeStart), "dir", s.dir, "total", rep.Total, "loaded", rep.Loaded, "dropped", rep.Dropped)
		verbosef("loaded %d records of %d in %s", rep.Loaded, rep.Total, u.FormatDuration(time.Since(timeStart)))
	}
	s.mu.Lock()
	first := !s.started
	s.started = true
	s.mu.Unlock()
	if first {
		s.notify(StateStartupComplete)
	} else if rep.Reloaded {
		s.notify(StateDataUpdated)
	}
	return rep, nil
}

// readIndex returns nil if there is no index
func (s *Store[T]) readIndex() ([]byte, error) {
	path := filepath.Join(s.dir, idindex.FileName)
	d, err := idindex.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if name := s.findRecordFile(); name != "" {
			return nil, fmt.Errorf("%w: '%s' has record file '%s' but no index", ErrIndexCorrupt, s.dir, name)
		}
		logf("no index in '%s', treating as empty store", s.dir)
		return nil, nil
	}
	if err != nil && !errors.Is(err, idindex.ErrCorrupt) {
		err = fmt.Errorf("%w: %w", ErrIndexCorrupt, err)
	}
	return d, err
}

// findRecordFile returns name of a file in the store directory that
// looks like a record file or "" if there is none
func (s *Store[T]) findRecordFile() string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err == nil {
			return e.Name()
		}
	}
	return ""
}

// decodeAll decodes the first n records of the index in parallel.
// Records that fail are left out, order is kept.
func (s *Store[T]) decodeAll(d []byte, n int) ([]T, int) {
	slots := make([]T, n)
	filled := make([]bool, n)
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i := range n {
		g.Go(func() error {
			id := idindex.At(d, i)
			rec, err := s.readRecord(id)
			if err != nil {
				logf("dropping record: %s", err)
				return nil
			}
			slots[i] = rec
			filled[i] = true
			return nil
		})
	}
	_ = g.Wait()

	dropped := 0
	items := make([]T, 0, n)
	seen := make(map[ID]bool, n)
	for i, rec := range slots {
		if !filled[i] {
			dropped++
			continue
		}
		id := rec.RecordID()
		if seen[id] {
			logf("dropping duplicate record %s at position %d", id, i)
			dropped++
			continue
		}
		seen[id] = true
		items = append(items, rec)
	}
	return items, dropped
}

func (s *Store[T]) readRecord(id ID) (T, error) {
	var zero T
	d, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		return zero, &RecordError{ID: id, Op: OpRead, Err: err}
	}
	rec, err := s.opts.Codec.Decode(id, d)
	if err != nil {
		return zero, &RecordError{ID: id, Op: OpDecode, Err: err}
	}
	if got := rec.RecordID(); got != id {
		return zero, &RecordError{ID: id, Op: OpDecode, Err: fmt.Errorf("decoded record has id %s", got)}
	}
	return rec, nil
}
