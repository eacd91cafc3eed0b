package itemstore

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// ID identifies a record. Its canonical string form (lower-case,
// 8-4-4-4-12) is the name of the record's file.
type ID = uuid.UUID

// Record is anything the store can persist. The store only looks at
// the id and the flags; content is up to the Codec.
type Record interface {
	RecordID() ID
	StoreFlags() *Flags
}

const (
	flagDirty uint32 = 1 << iota
	flagDeletable
	flagNotSavable
)

// Flags is embedded in records to track their save state.
// The zero value is a clean, savable record. Safe for concurrent use.
type Flags struct {
	bits atomic.Uint32
}

// MarkDirty flags the record as changed in memory but not on disk
func (f *Flags) MarkDirty() {
	f.bits.Or(flagDirty)
}

func (f *Flags) IsDirty() bool {
	return f.bits.Load()&flagDirty != 0
}

// clearDirty returns true if the record was dirty
func (f *Flags) clearDirty() bool {
	old := f.bits.And(^flagDirty)
	return old&flagDirty != 0
}

// MarkDeletable flags the record for removal on next save
func (f *Flags) MarkDeletable() {
	f.bits.Or(flagDeletable)
}

func (f *Flags) IsDeletable() bool {
	return f.bits.Load()&flagDeletable != 0
}

// SetSavable controls whether the record is persisted at all.
// Records that are still being created should not be savable.
func (f *Flags) SetSavable(savable bool) {
	if savable {
		f.bits.And(^flagNotSavable)
	} else {
		f.bits.Or(flagNotSavable)
	}
}

func (f *Flags) IsSavable() bool {
	return f.bits.Load()&(flagNotSavable|flagDeletable) == 0
}

// Raw is a record whose content is kept as undecoded bytes.
// Tools that don't know the record schema (e.g. itemstorectl) use it.
type Raw struct {
	ID    ID
	Data  []byte
	flags Flags
}

func (r *Raw) RecordID() ID {
	return r.ID
}

func (r *Raw) StoreFlags() *Flags {
	return &r.flags
}

// RawCodec stores Raw.Data as is
type RawCodec struct{}

func (RawCodec) Encode(r *Raw) ([]byte, error) {
	return r.Data, nil
}

func (RawCodec) Decode(id ID, d []byte) (*Raw, error) {
	return &Raw{ID: id, Data: d}, nil
}
