// Package coord serializes access to a store directory between
// goroutines and between independent processes.
//
// A read scope may overlap other read scopes. A write scope overlaps
// nothing: no other read or write scope on the same directory runs
// while it is held.
package coord

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrCoordinationFailed is returned when a scope could not be established.
// The body is not called in that case.
var ErrCoordinationFailed = errors.New("coord: coordination failed")

// Coordinator runs fn inside a read or write scope on dir.
// Errors returned by fn are returned unchanged.
type Coordinator interface {
	Read(dir string, fn func() error) error
	Write(dir string, fn func() error) error
}

func failed(dir string, err error) error {
	return fmt.Errorf("%w: '%s': %w", ErrCoordinationFailed, dir, err)
}

// LockPath returns the path of the lock file guarding dir.
// It lives next to dir, not inside it, so that it survives
// removal of unknown files from dir.
func LockPath(dir string) string {
	dir = filepath.Clean(dir)
	return filepath.Join(filepath.Dir(dir), "."+filepath.Base(dir)+".lock")
}

// FileLock coordinates through an OS file lock (flock(2) on unix,
// LockFileEx on windows) on LockPath(dir). The OS drops the lock
// when the holding process exits, including on crash.
//
// Only cooperating processes are excluded: a process that writes
// to the directory without taking the lock is not stopped.
type FileLock struct{}

// NewFileLock returns a cross-process coordinator
func NewFileLock() *FileLock {
	return &FileLock{}
}

// Read runs fn holding a shared lock on dir
func (l *FileLock) Read(dir string, fn func() error) error {
	return l.run(dir, false, fn)
}

// Write runs fn holding an exclusive lock on dir
func (l *FileLock) Write(dir string, fn func() error) error {
	return l.run(dir, true, fn)
}

func (l *FileLock) run(dir string, exclusive bool, fn func() error) error {
	path := LockPath(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return failed(dir, err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return failed(dir, err)
	}
	// closing the file also releases the lock
	defer f.Close()
	if err = lockFile(f, exclusive); err != nil {
		return failed(dir, err)
	}
	defer func() {
		_ = unlockFile(f)
	}()
	return fn()
}

// Local coordinates goroutines of a single process with a
// read/write mutex per directory. Use it when the directory
// is never shared with other processes.
type Local struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewLocal returns an in-process coordinator
func NewLocal() *Local {
	return &Local{
		locks: map[string]*sync.RWMutex{},
	}
}

func (l *Local) lockFor(dir string) (*sync.RWMutex, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, failed(dir, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	rw := l.locks[abs]
	if rw == nil {
		rw = &sync.RWMutex{}
		l.locks[abs] = rw
	}
	return rw, nil
}

// Read runs fn holding dir's read lock
func (l *Local) Read(dir string, fn func() error) error {
	rw, err := l.lockFor(dir)
	if err != nil {
		return err
	}
	rw.RLock()
	defer rw.RUnlock()
	return fn()
}

// Write runs fn holding dir's write lock
func (l *Local) Write(dir string, fn func() error) error {
	rw, err := l.lockFor(dir)
	if err != nil {
		return err
	}
	rw.Lock()
	defer rw.Unlock()
	return fn()
}
