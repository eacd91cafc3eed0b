package itemstore

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kjk/itemstore/codec"
	"github.com/kjk/itemstore/coord"
	"github.com/kjk/itemstore/log"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Output = io.Discard
	os.Exit(m.Run())
}

type note struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
	flags Flags
}

func (n *note) RecordID() ID {
	return n.ID
}

func (n *note) StoreFlags() *Flags {
	return &n.flags
}

func newNote(title string) *note {
	return &note{ID: uuid.New(), Title: title}
}

// countingCodec counts Encode calls per id
type countingCodec struct {
	codec.Codec[*note]
	encodes atomic.Int32
	perID   map[ID]*atomic.Int32
}

func newCountingCodec(notes ...*note) *countingCodec {
	c := &countingCodec{
		Codec: codec.NewJSON(func(id uuid.UUID) *note { return &note{ID: id} }),
		perID: map[ID]*atomic.Int32{},
	}
	for _, n := range notes {
		c.perID[n.ID] = &atomic.Int32{}
	}
	return c
}

func (c *countingCodec) Encode(n *note) ([]byte, error) {
	c.encodes.Add(1)
	if cnt := c.perID[n.ID]; cnt != nil {
		cnt.Add(1)
	}
	return c.Codec.Encode(n)
}

func (c *countingCodec) encodesOf(id ID) int32 {
	return c.perID[id].Load()
}

// testCoord counts lock scopes and can block or fail them
type testCoord struct {
	inner       coord.Coordinator
	reads       atomic.Int32
	writes      atomic.Int32
	beforeWrite func(n int32)
	failReads   bool
	failWrites  bool
}

func newTestCoord() *testCoord {
	return &testCoord{inner: coord.NewLocal()}
}

func (c *testCoord) Read(dir string, fn func() error) error {
	c.reads.Add(1)
	if c.failReads {
		return fmt.Errorf("%w: '%s': simulated", coord.ErrCoordinationFailed, dir)
	}
	return c.inner.Read(dir, fn)
}

func (c *testCoord) Write(dir string, fn func() error) error {
	n := c.writes.Add(1)
	if c.beforeWrite != nil {
		c.beforeWrite(n)
	}
	if c.failWrites {
		return fmt.Errorf("%w: '%s': simulated", coord.ErrCoordinationFailed, dir)
	}
	return c.inner.Write(dir, fn)
}

func newNoteStore(t *testing.T, dir string, c coord.Coordinator) *Store[*note] {
	t.Helper()
	s, err := New(Options[*note]{
		Dir:         dir,
		Codec:       codec.NewJSON(func(id uuid.UUID) *note { return &note{ID: id} }),
		Coordinator: c,
		Workers:     4,
	})
	require.NoError(t, err)
	return s
}

// addNotes appends notes to the store and marks them dirty
func addNotes(s *Store[*note], titles ...string) []*note {
	var res []*note
	for _, title := range titles {
		n := newNote(title)
		n.flags.MarkDirty()
		s.Items().Append(n)
		res = append(res, n)
	}
	return res
}

func idsOf(notes []*note) []ID {
	res := make([]ID, len(notes))
	for i, n := range notes {
		res[i] = n.ID
	}
	return res
}

func titlesOf(notes []*note) []string {
	res := make([]string, len(notes))
	for i, n := range notes {
		res[i] = n.Title
	}
	return res
}

const (
	testTimeout = 5 * time.Second
	testTick    = time.Millisecond
)
