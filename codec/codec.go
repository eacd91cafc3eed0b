// Package codec converts a single record to and from the bytes stored
// in its record file. Codecs are stateless and safe for concurrent use.
package codec

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/kjk/itemstore/siser"
)

// Codec encodes and decodes records of type T.
// Decode receives the id the record is stored under (its file name).
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(id uuid.UUID, d []byte) (T, error)
}

// JSON encodes records with encoding/json. alloc returns a new,
// empty record for a given id; Decode unmarshals into it.
type JSON[T any] struct {
	alloc func(id uuid.UUID) T
}

func NewJSON[T any](alloc func(id uuid.UUID) T) *JSON[T] {
	return &JSON[T]{alloc: alloc}
}

func (c *JSON[T]) Encode(v T) ([]byte, error) {
	return json.Marshal(v)
}

func (c *JSON[T]) Decode(id uuid.UUID, d []byte) (T, error) {
	v := c.alloc(id)
	err := json.Unmarshal(d, v)
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// KeyValuer is a record that knows how to store itself as siser key/value pairs
type KeyValuer interface {
	MarshalKeyValues(r *siser.Record) error
	UnmarshalKeyValues(r *siser.Record) error
}

// Siser encodes records in human-readable siser key/value format
type Siser[T KeyValuer] struct {
	alloc func(id uuid.UUID) T
}

func NewSiser[T KeyValuer](alloc func(id uuid.UUID) T) *Siser[T] {
	return &Siser[T]{alloc: alloc}
}

func (c *Siser[T]) Encode(v T) ([]byte, error) {
	var r siser.Record
	if err := v.MarshalKeyValues(&r); err != nil {
		return nil, err
	}
	return r.Marshal(), nil
}

func (c *Siser[T]) Decode(id uuid.UUID, d []byte) (T, error) {
	var zero T
	r, err := siser.Unmarshal(d)
	if err != nil {
		return zero, err
	}
	v := c.alloc(id)
	if err = v.UnmarshalKeyValues(r); err != nil {
		return zero, err
	}
	return v, nil
}
