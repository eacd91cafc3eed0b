package codec

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// Zstd compresses the output of another codec with zstd
type Zstd[T any] struct {
	inner Codec[T]
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// NewZstd wraps inner. EncodeAll / DecodeAll are safe for concurrent
// use so one encoder and decoder are shared by all workers.
func NewZstd[T any](inner Codec[T]) (*Zstd[T], error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &Zstd[T]{inner: inner, enc: enc, dec: dec}, nil
}

func (c *Zstd[T]) Encode(v T) ([]byte, error) {
	d, err := c.inner.Encode(v)
	if err != nil {
		return nil, err
	}
	return c.enc.EncodeAll(d, nil), nil
}

func (c *Zstd[T]) Decode(id uuid.UUID, d []byte) (T, error) {
	raw, err := c.dec.DecodeAll(d, nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.inner.Decode(id, raw)
}

// Brotli compresses the output of another codec with brotli.
// Slower than zstd but produces smaller files for text-heavy records.
type Brotli[T any] struct {
	inner Codec[T]
	Level int
}

func NewBrotli[T any](inner Codec[T]) *Brotli[T] {
	return &Brotli[T]{inner: inner, Level: brotli.DefaultCompression}
}

func (c *Brotli[T]) Encode(v T) ([]byte, error) {
	d, err := c.inner.Encode(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, c.Level)
	if _, err = w.Write(d); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Brotli[T]) Decode(id uuid.UUID, d []byte) (T, error) {
	raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(d)))
	if err != nil {
		var zero T
		return zero, err
	}
	return c.inner.Decode(id, raw)
}
