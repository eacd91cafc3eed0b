package itemstore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/kjk/itemstore/atomicfile"
	"github.com/kjk/itemstore/idindex"
	"github.com/kjk/itemstore/log"
	"github.com/kjk/itemstore/u"
	"golang.org/x/sync/errgroup"
)

// savable returns records that go into the index, in order
func (s *Store[T]) savable() []T {
	all := s.items.All()
	res := make([]T, 0, len(all))
	for _, it := range all {
		if it.StoreFlags().IsSavable() {
			res = append(res, it)
		}
	}
	return res
}

// prepareSave takes the snapshot for a save cycle. Dirty flags are
// cleared here so that changes made while the write runs mark the
// record dirty again and get picked up by the next cycle.
func (s *Store[T]) prepareSave() func() {
	s.notify(StateWillSave)
	if removed := s.items.RemoveDeletable(); len(removed) > 0 {
		verbosef("removed %d deletable records", len(removed))
	}
	all := s.savable()
	var dirty []T
	for _, it := range all {
		if it.StoreFlags().clearDirty() {
			dirty = append(dirty, it)
		}
	}
	return func() {
		_ = s.write(all, dirty)
	}
}

// write persists dirty records and the index of all records under
// an exclusive lock on the directory. Must be called with
// s.saver.writeMu locked.
func (s *Store[T]) write(all []T, dirty []T) error {
	if s.health.isBroken() {
		logf("ignoring save, store is broken")
		return ErrBroken
	}
	timeStart := time.Now()
	var nFailed atomic.Int32
	err := s.opts.Coordinator.Write(s.dir, func() error {
		if err := os.MkdirAll(s.dir, 0755); err != nil {
			return err
		}
		var g errgroup.Group
		g.SetLimit(s.opts.Workers)
		for _, rec := range dirty {
			g.Go(func() error {
				err := s.writeRecord(rec)
				if log.IfErrf(err) {
					// will be retried by the next save
					rec.StoreFlags().MarkDirty()
					nFailed.Add(1)
				}
				return nil
			})
		}
		_ = g.Wait()

		ids := make([]ID, len(all))
		for i, it := range all {
			ids[i] = it.RecordID()
		}
		ids = s.withUnloaded(ids)
		if err := idindex.WriteFile(filepath.Join(s.dir, idindex.FileName), ids); err != nil {
			return err
		}
		s.removeOrphans(ids)
		atomicfile.SyncDir(s.dir)

		w, err := readWitness(s.dir)
		if err != nil {
			logf("failed to read modification time of '%s': %s", s.dir, err)
			s.clearWitness()
		} else {
			s.setWitness(w)
		}
		return nil
	})
	if err != nil {
		for _, rec := range dirty {
			rec.StoreFlags().MarkDirty()
		}
		log.Errorf("itemstore: save of '%s' failed: %s", s.dir, err)
		log.Event("itemstore.save_failed", "dir", s.dir, "error", err.Error())
		return err
	}
	log.EventWithDuration("itemstore.save", time.Since(timeStart), "dir", s.dir, "total", len(all), "written", len(dirty), "failed", nFailed.Load())
	verbosef("saved %d records (%d written) in %s", len(all), len(dirty), u.FormatDuration(time.Since(timeStart)))
	return nil
}

func (s *Store[T]) writeRecord(rec T) error {
	id := rec.RecordID()
	d, err := s.opts.Codec.Encode(rec)
	if err != nil {
		return &RecordError{ID: id, Op: OpEncode, Err: err}
	}
	if err = atomicfile.WriteFileNoDirSync(s.recordPath(id), d); err != nil {
		return &RecordError{ID: id, Op: OpWrite, Err: err}
	}
	return nil
}

// removeOrphans deletes files that are neither the index nor a record
// in keep. That includes leftover temporary files.
func (s *Store[T]) removeOrphans(keep []ID) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		logf("failed to list '%s': %s", s.dir, err)
		return
	}
	want := make(map[string]bool, len(keep)+1)
	want[idindex.FileName] = true
	for _, id := range keep {
		want[id.String()] = true
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || want[name] {
			continue
		}
		if !atomicfile.IsTempName(name) {
			verbosef("removing '%s', not in the index", name)
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logf("failed to remove '%s': %s", name, err)
		}
	}
}

// SaveIndexOnly writes the index of current records without
// writing any record files
func (s *Store[T]) SaveIndexOnly() error {
	if s.health.isBroken() {
		logf("ignoring index save, store is broken")
		return ErrBroken
	}
	all := s.savable()
	s.saver.writeMu.Lock()
	defer s.saver.writeMu.Unlock()
	return s.write(all, nil)
}

// Commit writes a single record and the index right away.
// rec must be in Items(). It's a no-op for a record marked deletable.
func (s *Store[T]) Commit(rec T) error {
	if s.health.isBroken() {
		logf("ignoring commit, store is broken")
		return ErrBroken
	}
	f := rec.StoreFlags()
	if f.IsDeletable() {
		verbosef("not committing %s, it's deletable", rec.RecordID())
		return nil
	}
	f.clearDirty()
	all := s.savable()
	s.saver.writeMu.Lock()
	defer s.saver.writeMu.Unlock()
	return s.write(all, []T{rec})
}

// InsertWithoutLoading writes records and puts their ids at the top
// of the index on disk, without loading the store. Ids already in
// the index are not added again. Other processes see the records
// on their next load.
func (s *Store[T]) InsertWithoutLoading(recs ...T) error {
	if len(recs) == 0 {
		return nil
	}
	if s.health.isBroken() {
		logf("ignoring insert, store is broken")
		return ErrBroken
	}
	s.saver.writeMu.Lock()
	defer s.saver.writeMu.Unlock()
	err := s.opts.Coordinator.Write(s.dir, func() error {
		if err := os.MkdirAll(s.dir, 0755); err != nil {
			return err
		}
		d, err := s.readIndex()
		if err != nil {
			return err
		}
		existing := make(map[ID]bool, idindex.Count(int64(len(d))))
		for i := range idindex.Count(int64(len(d))) {
			existing[idindex.At(d, i)] = true
		}
		var top []ID
		for _, rec := range recs {
			rec.StoreFlags().clearDirty()
			if err := s.writeRecord(rec); err != nil {
				return err
			}
			id := rec.RecordID()
			if !existing[id] {
				existing[id] = true
				top = append(top, id)
			}
		}
		atomicfile.SyncDir(s.dir)
		newIndex := append(idindex.Marshal(top), d...)
		return atomicfile.WriteFile(filepath.Join(s.dir, idindex.FileName), newIndex)
	})
	if err != nil {
		log.Errorf("itemstore: insert into '%s' failed: %s", s.dir, err)
	}
	return err
}
