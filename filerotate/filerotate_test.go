package filerotate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closed struct {
	path      string
	didRotate bool
}

func TestDailyRotation(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	var closes []closed
	f, err := New(&Config{
		PathIfShouldRotate: MakeDailyRotateInDir(dir, "log-"),
		DidClose: func(path string, didRotate bool) {
			closes = append(closes, closed{path, didRotate})
		},
		Now: func() time.Time { return now },
	})
	require.NoError(t, err)
	day1 := filepath.Join(dir, "log-2026-03-01.txt")
	assert.Equal(t, day1, f.Path())

	_, err = f.Write([]byte("first\n"))
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = f.Write([]byte("second\n"))
	require.NoError(t, err)
	day2 := filepath.Join(dir, "log-2026-03-02.txt")
	assert.Equal(t, day2, f.Path())
	require.NoError(t, f.Close())

	assert.Equal(t, []closed{{day1, true}, {day2, false}}, closes)
	d, err := os.ReadFile(day1)
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(d))
	d, err = os.ReadFile(day2)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(d))
}

func TestWriteAfterCloseAppends(t *testing.T) {
	dir := t.TempDir()
	f, err := NewDaily(dir, "", nil)
	require.NoError(t, err)
	_, err = f.Write([]byte("a\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	_, err = f.Write([]byte("b\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	d, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(d))
	assert.Equal(t, time.Now().UTC().Format("2006-01-02")+".txt", filepath.Base(f.Path()))
}

func TestLocation(t *testing.T) {
	dir := t.TempDir()
	loc := time.FixedZone("UTC+10", 10*3600)
	f, err := New(&Config{
		PathIfShouldRotate: MakeDailyRotateInDir(dir, ""),
		Location:           loc,
		Now:                func() time.Time { return time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "2026-03-02.txt", filepath.Base(f.Path()))
}

func TestIsSameDay(t *testing.T) {
	t1 := time.Date(2025, 5, 1, 1, 0, 0, 0, time.UTC)
	assert.True(t, IsSameDay(t1, t1.Add(20*time.Hour)))
	assert.False(t, IsSameDay(t1, t1.Add(24*time.Hour)))
	assert.False(t, IsSameDay(t1, t1.AddDate(1, 0, 0)))
}

func TestNewNeedsRotateFunc(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
	_, err = New(&Config{})
	assert.Error(t, err)
}
