package siser

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

/*
A Record is an ordered list of key/value pairs serialized in a format
that is easy to parse and human-readable.

The basic format is line-oriented: "key: value\n"

When value is long (> 120 chars), empty or has bytes outside of
printable ascii, we serialize it as:
key:+$len\n
value\n
*/

// Entry is a single key/value pair
type Entry struct {
	Key   string
	Value string
}

// Record is an ordered list of entries. Keys don't have to be unique;
// Get returns the first match.
type Record struct {
	Entries []Entry
}

// Reset removes all entries but keeps allocated memory
func (r *Record) Reset() {
	r.Entries = r.Entries[:0]
}

// Append adds key/value pair. Key can't be empty and can't
// contain ':' or '\n'
func (r *Record) Append(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	r.Entries = append(r.Entries, Entry{Key: key, Value: value})
	return nil
}

// AppendNonEmpty is like Append but skips empty values
func (r *Record) AppendNonEmpty(key, value string) error {
	if value == "" {
		return validateKey(key)
	}
	return r.Append(key, value)
}

func (r *Record) AppendInt(key string, v int64) error {
	return r.Append(key, strconv.FormatInt(v, 10))
}

func (r *Record) AppendBool(key string, v bool) error {
	return r.Append(key, strconv.FormatBool(v))
}

// AppendTime stores t as unix epoch milliseconds
func (r *Record) AppendTime(key string, t time.Time) error {
	return r.AppendInt(key, TimeToUnixMillisecond(t))
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	for i := 0; i < len(key); i++ {
		if c := key[i]; c == ':' || c == '\n' {
			return fmt.Errorf("invalid key '%s'", key)
		}
	}
	return nil
}

// Get returns a value for a given key
func (r *Record) Get(key string) (string, bool) {
	for _, e := range r.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

func (r *Record) getRequired(key string) (string, error) {
	v, ok := r.Get(key)
	if !ok {
		return "", fmt.Errorf("missing key '%s'", key)
	}
	return v, nil
}

func (r *Record) GetInt(key string) (int64, error) {
	v, err := r.getRequired(key)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func (r *Record) GetBool(key string) (bool, error) {
	v, err := r.getRequired(key)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(v)
}

func (r *Record) GetTime(key string) (time.Time, error) {
	ms, err := r.GetInt(key)
	if err != nil {
		return time.Time{}, err
	}
	return TimeFromUnixMillisecond(ms), nil
}

func serializableOnLine(s string) bool {
	for i := 0; i < len(s); i++ {
		if b := s[i]; b < 32 || b > 127 {
			return false
		}
	}
	return true
}

// return true if value needs to be serialized in long,
// size-prefixed format
func needsLongFormat(s string) bool {
	return len(s) == 0 || len(s) > 120 || !serializableOnLine(s)
}

// AppendMarshal appends serialized record to buf
func (r *Record) AppendMarshal(buf *bytes.Buffer) {
	for _, e := range r.Entries {
		buf.WriteString(e.Key)
		if !needsLongFormat(e.Value) {
			buf.WriteString(": ")
			buf.WriteString(e.Value)
			buf.WriteByte('\n')
			continue
		}
		buf.WriteString(":+")
		buf.WriteString(strconv.Itoa(len(e.Value)))
		buf.WriteByte('\n')
		buf.WriteString(e.Value)
		// for readability: next key always starts on a new line
		if n := len(e.Value); n == 0 || e.Value[n-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
}

// Marshal serializes the record
func (r *Record) Marshal() []byte {
	var buf bytes.Buffer
	r.AppendMarshal(&buf)
	return buf.Bytes()
}

// Unmarshal resets r and decodes d as created by Marshal
func (r *Record) Unmarshal(d []byte) error {
	r.Reset()
	for len(d) > 0 {
		idx := bytes.IndexByte(d, '\n')
		if idx == -1 {
			return fmt.Errorf("missing '\\n' at the end of '%s'", string(d))
		}
		line := d[:idx]
		d = d[idx+1:]
		idx = bytes.IndexByte(line, ':')
		// at least one character (' ' or '+') must follow ':'
		if idx == -1 || idx == len(line)-1 {
			return fmt.Errorf("line in unrecognized format: '%s'", line)
		}
		key := string(line[:idx])
		kind := line[idx+1]
		val := line[idx+2:]
		switch kind {
		case ' ':
			r.Entries = append(r.Entries, Entry{Key: key, Value: string(val)})
			continue
		case '+':
			// size-prefixed value follows
		default:
			return fmt.Errorf("line in unrecognized format: '%s'", line)
		}
		n, err := strconv.Atoi(string(val))
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("negative length %d of data", n)
		}
		if n > len(d) {
			return fmt.Errorf("length of value %d greater than remaining data of size %d", n, len(d))
		}
		r.Entries = append(r.Entries, Entry{Key: key, Value: string(d[:n])})
		d = d[n:]
		// optional newline added by AppendMarshal
		if len(d) > 0 && d[0] == '\n' {
			d = d[1:]
		}
	}
	return nil
}

// Unmarshal decodes a new record from d
func Unmarshal(d []byte) (*Record, error) {
	r := &Record{}
	if err := r.Unmarshal(d); err != nil {
		return nil, err
	}
	return r, nil
}
