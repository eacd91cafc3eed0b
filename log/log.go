package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/kjk/itemstore/filerotate"
)

var (
	// if true, Verbosef() logs
	Verbose bool

	// Output gets a copy of everything logged. nil silences it.
	Output io.Writer = os.Stdout

	mu        sync.Mutex
	logFile   *filerotate.File
	errorFile *filerotate.File
	eventFile *filerotate.File
)

type Config struct {
	// Dir gets "log", "errors" and "events" sub-directories with
	// a file per day (UTC). If empty, only Output is written to.
	Dir string
}

// Init (re)starts logging to files
func Init(c *Config) error {
	Close()
	if c.Dir == "" {
		return nil
	}
	var files [3]*filerotate.File
	for i, name := range []string{"log", "errors", "events"} {
		f, err := filerotate.NewDaily(filepath.Join(c.Dir, name), "", nil)
		if err != nil {
			for _, f := range files[:i] {
				_ = f.Close()
			}
			return err
		}
		files[i] = f
	}
	mu.Lock()
	defer mu.Unlock()
	logFile, errorFile, eventFile = files[0], files[1], files[2]
	return nil
}

// Close closes log files
func Close() {
	mu.Lock()
	defer mu.Unlock()
	for _, f := range []**filerotate.File{&logFile, &errorFile, &eventFile} {
		if *f != nil {
			_ = (*f).Close()
			*f = nil
		}
	}
}

func write(s string, toErrors bool) {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	mu.Lock()
	defer mu.Unlock()
	if Output != nil {
		_, _ = io.WriteString(Output, s)
	}
	if logFile != nil {
		_, _ = io.WriteString(logFile, s)
	}
	if toErrors && errorFile != nil {
		_, _ = io.WriteString(errorFile, s)
	}
}

func Logf(format string, args ...any) {
	if len(args) > 0 {
		format = fmt.Sprintf(format, args...)
	}
	write(format, false)
}

func Verbosef(format string, args ...any) {
	if Verbose {
		Logf(format, args...)
	}
}

// callstack returns "file:line" of callers, skipping skip frames
func callstack(skip int) string {
	var pcs [32]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		fr, more := frames.Next()
		if fr.File != "" {
			sb.WriteString(fr.File + ":" + strconv.Itoa(fr.Line) + "\n")
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// Errorf logs with a callstack. Errors also go to the errors log.
func Errorf(format string, args ...any) {
	if len(args) > 0 {
		format = fmt.Sprintf(format, args...)
	}
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	write(format+callstack(1), true)
}

// IfErrf logs err and returns true if err is not nil.
// IfErrf(err) logs err.Error(), IfErrf(err, "failed: %s", err) logs the formatted message.
func IfErrf(err error, args ...any) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	if len(args) > 0 {
		s = fmt.Sprintf("%v", args[0])
		if len(args) > 1 {
			s = fmt.Sprintf(s, args[1:]...)
		}
	}
	Errorf("%s", s)
	return true
}
