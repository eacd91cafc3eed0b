package atomicfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func assertFileExists(t *testing.T, path string) {
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("file '%s' doesn't exist, os.Stat() failed with '%s'", path, err)
	}
	if !st.Mode().IsRegular() {
		t.Fatalf("Path '%s' exists but is not a file (mode: %d)", path, int(st.Mode()))
	}
}

func assertFileNotExists(t *testing.T, path string) {
	_, err := os.Stat(path)
	if err == nil {
		t.Fatalf("file '%s' exist, expected to not exist", path)
	}
}

func assertNoError(t *testing.T, err error) {
	if err != nil {
		t.Fatalf("error: %s", err)
	}
}

func assertFileContent(t *testing.T, path string, exp string) {
	d, err := os.ReadFile(path)
	assertNoError(t, err)
	if string(d) != exp {
		t.Fatalf("path: '%s', expected content: '%s', got: '%s'", path, exp, string(d))
	}
}

func TestSimulateError(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "uuids")
	f, err := New(dst)
	assertNoError(t, err)
	assertFileExists(t, f.tmpPath)
	_, err = f.Write([]byte("foo"))
	assertNoError(t, err)
	errSimulated := errors.New("simulated")
	f.err = errSimulated
	err = f.Close()
	if err != errSimulated {
		t.Fatalf("got unexpected error %v", err)
	}
	assertFileNotExists(t, f.tmpPath)
	assertFileNotExists(t, dst)
	// second Close() returns the same error
	err = f.Close()
	if err != errSimulated {
		t.Fatalf("got unexpected error %v", err)
	}
}

func writeWithPanicCancel(t *testing.T, f *File) {
	defer f.RemoveIfNotClosed()

	_, err := f.Write([]byte("foo"))
	assertNoError(t, err)
	panic("simulating a crash")
}

func TestCancelKeepsOldContent(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "uuids")
	assertNoError(t, WriteFile(dst, []byte("old")))

	f, err := New(dst)
	assertNoError(t, err)
	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected to panic")
			}
		}()
		writeWithPanicCancel(t, f)
	}()
	assertFileNotExists(t, f.tmpPath)
	assertFileContent(t, dst, "old")

	_, err = f.Write([]byte("new"))
	if err != ErrCancelled {
		t.Fatalf("expected err to be %v, got %v", ErrCancelled, err)
	}
	if err = f.Close(); err != ErrCancelled {
		t.Fatalf("expected err to be %v, got %v", ErrCancelled, err)
	}
}

func TestWriteFileReplaces(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "uuids")
	assertNoError(t, WriteFile(dst, []byte("first")))
	assertFileContent(t, dst, "first")
	assertNoError(t, WriteFileNoDirSync(dst, []byte("second")))
	assertFileContent(t, dst, "second")

	entries, err := os.ReadDir(dir)
	assertNoError(t, err)
	if len(entries) != 1 {
		t.Fatalf("expected only the destination file, got %d entries", len(entries))
	}
}

func TestNewInMissingDir(t *testing.T) {
	// fail early: no point writing data that can't be renamed into place
	dst := filepath.Join(t.TempDir(), "foo", "bar")
	f, err := New(dst)
	if err == nil {
		t.Fatalf("expected to get an error")
	}
	if f != nil {
		t.Fatalf("expected f to be nil, got %v", f)
	}
}

func TestIsTempName(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "0c1d2e3f-0000-4000-8000-000000000001")
	f, err := New(dst)
	assertNoError(t, err)
	defer f.RemoveIfNotClosed()
	name := filepath.Base(f.tmpPath)
	if !IsTempName(name) {
		t.Fatalf("expected '%s' to be a temp name", name)
	}
	for _, s := range []string{"uuids", "0c1d2e3f-0000-4000-8000-000000000001", ".hidden", ".tmp", "a.tmp1"} {
		if IsTempName(s) {
			t.Fatalf("expected '%s' to not be a temp name", s)
		}
	}
}
