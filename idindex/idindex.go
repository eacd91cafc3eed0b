// Package idindex encodes the ordered list of record ids stored in the
// "uuids" index file.
//
// The format is raw 16-byte uuids back to back: no header, no length
// prefix, no checksum. The number of records is the file size / 16.
package idindex

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/kjk/itemstore/atomicfile"
)

// FileName is the name of the index file inside a store directory
const FileName = "uuids"

// IDSize is the size of a single id in the index
const IDSize = 16

// ErrCorrupt is returned when index data is not a multiple of IDSize
var ErrCorrupt = errors.New("idindex: corrupt index")

// Count returns number of ids in an index of a given size in bytes
func Count(size int64) int {
	return int(size / IDSize)
}

// Validate returns ErrCorrupt if d can't be an index
func Validate(d []byte) error {
	if len(d)%IDSize != 0 {
		return fmt.Errorf("%w: size %d is not a multiple of %d", ErrCorrupt, len(d), IDSize)
	}
	return nil
}

// At returns i-th id. d must be validated and i < len(d)/IDSize
func At(d []byte, i int) uuid.UUID {
	var id uuid.UUID
	copy(id[:], d[i*IDSize:(i+1)*IDSize])
	return id
}

// Append appends ids to index data d
func Append(d []byte, ids ...uuid.UUID) []byte {
	for _, id := range ids {
		d = append(d, id[:]...)
	}
	return d
}

// Marshal encodes ids in order
func Marshal(ids []uuid.UUID) []byte {
	d := make([]byte, 0, len(ids)*IDSize)
	return Append(d, ids...)
}

// Parse decodes all ids in d
func Parse(d []byte) ([]uuid.UUID, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}
	n := len(d) / IDSize
	res := make([]uuid.UUID, n)
	for i := range n {
		res[i] = At(d, i)
	}
	return res, nil
}

// ReadFile reads and validates index file at path.
// A missing file is reported with an error matching os.ErrNotExist.
func ReadFile(path string) ([]byte, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err = Validate(d); err != nil {
		return nil, err
	}
	return d, nil
}

// WriteFile atomically replaces index file at path with ids
func WriteFile(path string, ids []uuid.UUID) error {
	return atomicfile.WriteFile(path, Marshal(ids))
}
