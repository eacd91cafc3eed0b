package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func todayFile(dir, kind string) string {
	return filepath.Join(dir, kind, time.Now().UTC().Format("2006-01-02")+".txt")
}

func captureOutput(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	prev := Output
	Output = &buf
	t.Cleanup(func() {
		Output = prev
	})
	return &buf
}

func TestLogToFiles(t *testing.T) {
	out := captureOutput(t)
	dir := t.TempDir()
	require.NoError(t, Init(&Config{Dir: dir}))
	defer Close()

	Logf("saved %d items", 3)
	Errorf("write failed: %s", "disk full")
	Verbosef("not logged")
	assert.False(t, IfErrf(nil))
	Close()

	d, err := os.ReadFile(todayFile(dir, "log"))
	require.NoError(t, err)
	s := string(d)
	assert.Contains(t, s, "saved 3 items\n")
	assert.Contains(t, s, "write failed: disk full\n")
	assert.NotContains(t, s, "not logged")

	d, err = os.ReadFile(todayFile(dir, "errors"))
	require.NoError(t, err)
	assert.Contains(t, string(d), "disk full")
	assert.Contains(t, string(d), "log_test.go")

	assert.Contains(t, out.String(), "saved 3 items")
}

func TestEvent(t *testing.T) {
	captureOutput(t)
	dir := t.TempDir()
	require.NoError(t, Init(&Config{Dir: dir}))
	EventWithDuration("itemstore.save", time.Millisecond, "items", 3, "encoded", 1)
	Close()

	d, err := os.ReadFile(todayFile(dir, "events"))
	require.NoError(t, err)
	s := string(d)
	assert.True(t, strings.HasPrefix(s, "--- "), "got: %s", s)
	firstLine := strings.SplitN(s, "\n", 2)[0]
	assert.True(t, strings.HasSuffix(firstLine, " itemstore.save"), "got: %s", firstLine)
	assert.Contains(t, s, "durmicro")
}

func TestNoDirLogsOnlyToOutput(t *testing.T) {
	out := captureOutput(t)
	require.NoError(t, Init(&Config{}))
	Logf("hello")
	Event("ignored", "k", "v")
	assert.Equal(t, "hello\n", out.String())
}
