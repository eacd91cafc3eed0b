package itemstore

import (
	"errors"
	"io/fs"

	"github.com/kjk/itemstore/idindex"
	"github.com/kjk/itemstore/log"
	"github.com/kjk/itemstore/u"
)

// Locate reads a single record from disk, bypassing the collection.
// Returns false if the record doesn't exist or can't be decoded.
func (s *Store[T]) Locate(id ID) (T, bool) {
	var res T
	found := false
	if s.health.isBroken() {
		logf("ignoring locate, store is broken")
		return res, false
	}
	err := s.opts.Coordinator.Read(s.dir, func() error {
		rec, err := s.readRecord(id)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logf("locate: %s", err)
			}
			return nil
		}
		res, found = rec, true
		return nil
	})
	if err != nil {
		log.Errorf("itemstore: locate %s failed: %s", id, err)
		return res, false
	}
	return res, found
}

// Iterate calls fn for each record on disk in index order, until fn
// returns false. Records that can't be decoded are skipped.
// fn runs while the directory is locked for reading so it must
// not save to the same store.
func (s *Store[T]) Iterate(fn func(T) bool) error {
	if s.health.isBroken() {
		logf("ignoring iterate, store is broken")
		return ErrBroken
	}
	err := s.opts.Coordinator.Read(s.dir, func() error {
		if !u.DirExists(s.dir) {
			return nil
		}
		d, err := s.readIndex()
		if err != nil {
			return err
		}
		n := idindex.Count(int64(len(d)))
		for i := range n {
			rec, err := s.readRecord(idindex.At(d, i))
			if err != nil {
				verbosef("iterate: skipping %s", err)
				continue
			}
			if !fn(rec) {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		log.Errorf("itemstore: iterate failed: %s", err)
	}
	return err
}

// Prefix returns up to n records from the top of the index on disk
func (s *Store[T]) Prefix(n int) ([]T, error) {
	var res []T
	if n <= 0 {
		return res, nil
	}
	err := s.Iterate(func(rec T) bool {
		res = append(res, rec)
		return len(res) < n
	})
	return res, err
}
