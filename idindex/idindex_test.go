package idindex

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genIDs(n int) []uuid.UUID {
	res := make([]uuid.UUID, n)
	for i := range res {
		res[i] = uuid.New()
	}
	return res
}

func TestMarshalLayout(t *testing.T) {
	ids := genIDs(3)
	d := Marshal(ids)
	require.Len(t, d, 3*IDSize)
	for i, id := range ids {
		assert.Equal(t, id[:], d[i*IDSize:(i+1)*IDSize])
		assert.Equal(t, id, At(d, i))
	}
	assert.Equal(t, 3, Count(int64(len(d))))
}

func TestParse(t *testing.T) {
	ids := genIDs(100)
	got, err := Parse(Marshal(ids))
	require.NoError(t, err)
	assert.Equal(t, ids, got)

	got, err = Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	tests := []int{1, 15, 17, 33}
	for _, n := range tests {
		_, err = Parse(make([]byte, n))
		assert.True(t, errors.Is(err, ErrCorrupt), "size %d", n)
	}
}

func TestAppendPrepend(t *testing.T) {
	ids := genIDs(2)
	newID := uuid.New()
	d := Append(Marshal([]uuid.UUID{newID}), ids...)
	got, err := Parse(d)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{newID, ids[0], ids[1]}, got)
}

func TestReadWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	_, err := ReadFile(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	ids := genIDs(10)
	require.NoError(t, WriteFile(path, ids))
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(10*IDSize), st.Size())

	d, err := ReadFile(path)
	require.NoError(t, err)
	got, err := Parse(d)
	require.NoError(t, err)
	assert.Equal(t, ids, got)

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
	_, err = ReadFile(path)
	assert.True(t, errors.Is(err, ErrCorrupt))
}
