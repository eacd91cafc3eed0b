package log

import (
	"fmt"
	"time"

	"github.com/kjk/itemstore/siser"
	"github.com/toon-format/toon-go"
)

// Event appends a named event to the events log. vals are key/value
// pairs, encoded with toon and framed as a siser line.
func Event(name string, vals ...any) {
	if len(vals)%2 != 0 {
		panic(fmt.Sprintf("log.Event: odd number of vals (%d)", len(vals)))
	}
	mu.Lock()
	enabled := eventFile != nil
	mu.Unlock()
	if !enabled {
		return
	}
	var d []byte
	if len(vals) > 0 {
		m := make(map[string]any, len(vals)/2)
		for i := 0; i < len(vals); i += 2 {
			m[fmt.Sprint(vals[i])] = vals[i+1]
		}
		var err error
		if d, err = toon.Marshal(m); err != nil {
			Logf("log.Event: toon.Marshal() failed with '%s'", err)
			return
		}
	}
	line := siser.MarshalLine(name, time.Now().UTC(), d, nil)
	mu.Lock()
	defer mu.Unlock()
	if eventFile != nil {
		_, _ = eventFile.Write(line)
	}
}

// EventWithDuration is Event with "durmicro" set to dur in microseconds
func EventWithDuration(name string, dur time.Duration, vals ...any) {
	Event(name, append(vals, "durmicro", dur.Microseconds())...)
}
