package itemstore

import (
	"errors"
	"fmt"

	"github.com/kjk/itemstore/coord"
	"github.com/kjk/itemstore/idindex"
)

var (
	// ErrCoordinationFailed is returned when the cross-process scope
	// on the store directory couldn't be established
	ErrCoordinationFailed = coord.ErrCoordinationFailed

	// ErrIndexCorrupt is returned when the index file is unreadable
	// or its size is not a multiple of 16
	ErrIndexCorrupt = idindex.ErrCorrupt

	// ErrBroken is returned by operations refused because an earlier
	// unrecoverable error broke the store. The process must restart.
	ErrBroken = errors.New("itemstore: store is broken, restart required")

	ErrRecordDecodeFailed = errors.New("itemstore: record decode failed")
	ErrRecordEncodeFailed = errors.New("itemstore: record encode failed")
	ErrRecordWriteFailed  = errors.New("itemstore: record write failed")
)

// Op names the step that failed for a single record
type Op string

const (
	OpRead   Op = "read"
	OpDecode Op = "decode"
	OpEncode Op = "encode"
	OpWrite  Op = "write"
)

// RecordError is a failure confined to a single record.
// It never breaks the store.
type RecordError struct {
	ID  ID
	Op  Op
	Err error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("itemstore: %s record %s: %s", e.Op, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Is matches ErrRecordDecodeFailed for read and decode failures,
// ErrRecordEncodeFailed and ErrRecordWriteFailed for the rest
func (e *RecordError) Is(target error) bool {
	switch target {
	case ErrRecordDecodeFailed:
		return e.Op == OpRead || e.Op == OpDecode
	case ErrRecordEncodeFailed:
		return e.Op == OpEncode
	case ErrRecordWriteFailed:
		return e.Op == OpWrite
	}
	return false
}
