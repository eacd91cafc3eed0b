// Package filerotate writes to a file that is replaced by a new one
// when a time period (e.g. a day) ends.
package filerotate

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Config struct {
	// DidClose, if set, is called after a file is closed. didRotate is
	// true if it was closed because a new period started.
	DidClose func(path string, didRotate bool)

	// PathIfShouldRotate returns path of a new file if a file created
	// at creationTime should be replaced at now, "" otherwise
	PathIfShouldRotate func(creationTime time.Time, now time.Time) string

	// Location of times given to PathIfShouldRotate. Defaults to UTC.
	Location *time.Location

	// Now defaults to time.Now
	Now func() time.Time
}

// File is safe for concurrent use
type File struct {
	mu           sync.Mutex
	config       Config
	path         string
	creationTime time.Time
	file         *os.File
}

// IsSameDay returns true if t1 and t2 fall on the same calendar day
func IsSameDay(t1, t2 time.Time) bool {
	return t1.Year() == t2.Year() && t1.YearDay() == t2.YearDay()
}

func New(config *Config) (*File, error) {
	if config == nil {
		return nil, fmt.Errorf("must provide config")
	}
	if config.PathIfShouldRotate == nil {
		return nil, fmt.Errorf("must provide config.PathIfShouldRotate")
	}
	f := &File{
		config: *config,
	}
	if f.config.Location == nil {
		f.config.Location = time.UTC
	}
	if f.config.Now == nil {
		f.config.Now = time.Now
	}
	if err := f.reopenIfNeeded(); err != nil {
		return nil, err
	}
	return f, nil
}

// MakeDailyRotateInDir names files "${prefix}YYYY-MM-DD.txt" in dir
func MakeDailyRotateInDir(dir string, prefix string) func(time.Time, time.Time) string {
	return func(creationTime time.Time, now time.Time) string {
		if !creationTime.IsZero() && IsSameDay(creationTime, now) {
			return ""
		}
		return filepath.Join(dir, prefix+now.Format("2006-01-02")+".txt")
	}
}

// NewDaily creates a file in dir that rotates daily
func NewDaily(dir string, prefix string, didClose func(path string, didRotate bool)) (*File, error) {
	return New(&Config{
		DidClose:           didClose,
		PathIfShouldRotate: MakeDailyRotateInDir(dir, prefix),
	})
}

func (f *File) now() time.Time {
	return f.config.Now().In(f.config.Location)
}

func (f *File) close(didRotate bool) error {
	if f.file == nil {
		return nil
	}
	_ = f.file.Sync()
	err := f.file.Close()
	f.file = nil
	if err == nil && f.config.DidClose != nil {
		f.config.DidClose(f.path, didRotate)
	}
	return err
}

func (f *File) open(path string, now time.Time) error {
	// the directory might have been removed since the last rotation
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	f.path, f.creationTime, f.file = path, now, file
	return nil
}

func (f *File) reopenIfNeeded() error {
	now := f.now()
	newPath := f.config.PathIfShouldRotate(f.creationTime, now)
	if newPath == "" && f.file != nil {
		return nil
	}
	if newPath == "" {
		// re-open after Close
		newPath = f.path
	}
	if err := f.close(true); err != nil {
		return err
	}
	return f.open(newPath, now)
}

// Write appends d to the current file, rotating first if needed
func (f *File) Write(d []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reopenIfNeeded(); err != nil {
		return 0, err
	}
	return f.file.Write(d)
}

// Path returns path of the current file
func (f *File) Path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.path
}

// Close closes the current file. A later Write re-opens it.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.close(false)
}
