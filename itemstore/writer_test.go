package itemstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kjk/itemstore/idindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readIndexIDs(t *testing.T, dir string) []ID {
	t.Helper()
	d, err := idindex.ReadFile(filepath.Join(dir, idindex.FileName))
	require.NoError(t, err)
	ids, err := idindex.Parse(d)
	require.NoError(t, err)
	return ids
}

func TestSaveIndexOnly(t *testing.T) {
	dir := t.TempDir()
	s := newNoteStore(t, dir, newTestCoord())
	notes := addNotes(s, "a", "b", "c")
	cc := newCountingCodec(notes...)
	s.opts.Codec = cc
	s.Save(true)
	require.Equal(t, int32(3), cc.encodes.Load())

	notes[0].Title = "a2"
	notes[0].flags.MarkDirty()
	s.Items().PromoteToTop(notes[2].ID)
	require.NoError(t, s.SaveIndexOnly())
	assert.Equal(t, int32(3), cc.encodes.Load())
	assert.True(t, notes[0].flags.IsDirty())
	assert.Equal(t, idsOf([]*note{notes[2], notes[0], notes[1]}), readIndexIDs(t, dir))
}

func TestCommit(t *testing.T) {
	dir := t.TempDir()
	s := newNoteStore(t, dir, newTestCoord())
	notes := addNotes(s, "a", "b")
	require.NoError(t, s.Commit(notes[0]))
	assert.False(t, notes[0].flags.IsDirty())
	assert.True(t, notes[1].flags.IsDirty())
	assert.FileExists(t, s.recordPath(notes[0].ID))
	assert.NoFileExists(t, s.recordPath(notes[1].ID))
	assert.Equal(t, idsOf(notes), readIndexIDs(t, dir))

	notes[1].flags.MarkDeletable()
	require.NoError(t, s.Commit(notes[1]))
	assert.NoFileExists(t, s.recordPath(notes[1].ID))
}

func TestInsertWithoutLoading(t *testing.T) {
	dir := t.TempDir()
	s := newNoteStore(t, dir, newTestCoord())
	existing := addNotes(s, "a", "b")
	s.Save(true)

	helper := newNoteStore(t, dir, newTestCoord())
	x, y := newNote("x"), newNote("y")
	require.NoError(t, helper.InsertWithoutLoading(x, y, existing[1]))
	assert.Equal(t, 0, helper.Items().Len())
	assert.Equal(t, []ID{x.ID, y.ID, existing[0].ID, existing[1].ID}, readIndexIDs(t, dir))

	rep, err := s.Load(0)
	require.NoError(t, err)
	assert.True(t, rep.Reloaded)
	assert.Equal(t, []string{"x", "y", "a", "b"}, titlesOf(s.Items().All()))

	require.NoError(t, helper.InsertWithoutLoading())
}

func TestInsertWithoutLoadingIntoMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	s := newNoteStore(t, dir, newTestCoord())
	x := newNote("x")
	require.NoError(t, s.InsertWithoutLoading(x))
	assert.Equal(t, []ID{x.ID}, readIndexIDs(t, dir))
}

type failingCodec struct {
	*countingCodec
	failID ID
}

func (c *failingCodec) Encode(n *note) ([]byte, error) {
	if n.ID == c.failID {
		return nil, errors.New("can't encode")
	}
	return c.countingCodec.Encode(n)
}

func TestRecordEncodeFailureKeepsRecordDirty(t *testing.T) {
	dir := t.TempDir()
	s := newNoteStore(t, dir, newTestCoord())
	notes := addNotes(s, "a", "b", "c")
	fc := &failingCodec{countingCodec: newCountingCodec(), failID: notes[1].ID}
	s.opts.Codec = fc
	s.Save(true)

	assert.False(t, s.IsBroken())
	assert.True(t, notes[1].flags.IsDirty())
	assert.False(t, notes[0].flags.IsDirty())
	assert.FileExists(t, s.recordPath(notes[2].ID))
	assert.NoFileExists(t, s.recordPath(notes[1].ID))
	// the index still lists it, the next save writes it
	assert.Equal(t, idsOf(notes), readIndexIDs(t, dir))

	fc.failID = ID{}
	s.Save(true)
	assert.False(t, notes[1].flags.IsDirty())
	assert.FileExists(t, s.recordPath(notes[1].ID))
}

func TestWriteRecordErrors(t *testing.T) {
	s := newNoteStore(t, filepath.Join(t.TempDir(), "missing"), newTestCoord())
	err := s.writeRecord(newNote("a"))
	assert.ErrorIs(t, err, ErrRecordWriteFailed)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var re *RecordError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, OpWrite, re.Op)
}
