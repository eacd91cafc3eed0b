package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Some references:
// - https://www.slideshare.net/nan1nan1/eat-my-data
// - https://lwn.net/Articles/457667/

var (
	// ErrCancelled is returned by calls subsequent to Cancel()
	ErrCancelled = errors.New("cancelled")

	_ io.WriteCloser = &File{}
)

// File is written to a temporary file in the destination directory
// and renamed over the destination in Close(). Readers of the destination
// see either the old or the new content, never a partial write.
type File struct {
	dstPath string
	dir     string
	tmpFile *os.File
	tmpPath string
	err     error

	// NoDirSync skips fsync of the directory after rename.
	// Set it when many files in the same directory are written
	// and the caller syncs the directory once at the end.
	NoDirSync bool
}

// New creates a temporary file next to path. The temporary file
// name starts with "." so that directory scans can tell it apart
// from real content.
func New(path string) (*File, error) {
	dir, fName := filepath.Split(path)
	if fName == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	tmpFile, err := os.CreateTemp(dir, "."+fName+".tmp*")
	if err != nil {
		return nil, err
	}
	return &File{
		dstPath: path,
		dir:     dir,
		tmpFile: tmpFile,
		tmpPath: tmpFile.Name(),
	}, nil
}

// IsTempName returns true if name looks like a temporary file created by New
func IsTempName(name string) bool {
	if name == "" || name[0] != '.' {
		return false
	}
	s := trimRandomSuffix(name)
	return len(s) > len("..tmp") && strings.HasSuffix(s, ".tmp")
}

// os.CreateTemp replaces the trailing "*" with random digits
func trimRandomSuffix(name string) string {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	return name[:i]
}

func (f *File) setErr(err error) error {
	if err == nil {
		return nil
	}
	if f.err == nil {
		f.err = err
	}
	_ = f.Close()
	return err
}

// Write writes data to a temporary file
func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.Write(d)
	return n, f.setErr(err)
}

func (f *File) alreadyClosed() bool {
	return f.tmpFile == nil
}

// RemoveIfNotClosed removes the temp file if we didn't Close
// the file yet. Destination file will not be created or changed.
// Use it with defer to clean up on early return or panic.
// RemoveIfNotClosed after Close is a no-op.
func (f *File) RemoveIfNotClosed() {
	if f == nil || f.alreadyClosed() {
		return
	}
	f.err = ErrCancelled
	_ = f.Close()
}

// Close syncs the temporary file and renames it to the destination.
// Can be called multiple times; returns the first error.
func (f *File) Close() error {
	if f.alreadyClosed() {
		return f.err
	}
	tmpFile := f.tmpFile
	f.tmpFile = nil

	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()

	didRename := false
	defer func() {
		if !didRename {
			_ = os.Remove(f.tmpPath)
		}
	}()

	if f.err != nil {
		return f.err
	}
	err := errSync
	if err == nil {
		err = errClose
	}
	if err == nil {
		err = os.Rename(f.tmpPath, f.dstPath)
		didRename = err == nil
		if didRename && !f.NoDirSync {
			SyncDir(f.dir)
		}
	}
	f.err = err
	return err
}

// SyncDir fsyncs a directory so that renames in it survive a crash.
// Errors are ignored: not all platforms support it.
func SyncDir(dir string) {
	fdir, _ := os.Open(dir)
	if fdir != nil {
		_ = fdir.Sync()
		_ = fdir.Close()
	}
}

// WriteFile atomically replaces path with d
func WriteFile(path string, d []byte) error {
	return writeFile(path, d, false)
}

// WriteFileNoDirSync is like WriteFile but doesn't fsync the directory
func WriteFileNoDirSync(path string, d []byte) error {
	return writeFile(path, d, true)
}

func writeFile(path string, d []byte, noDirSync bool) error {
	f, err := New(path)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()
	f.NoDirSync = noDirSync
	if _, err = f.Write(d); err != nil {
		return err
	}
	return f.Close()
}
