package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/btreestore/internal/alloc"
	"github.com/scigolib/btreestore/internal/store"
)

func testLayout() Layout {
	return Layout{B: 6, MaxKeySize: 16, MaxValueSize: 16}
}

func newAllocForLayout(t *testing.T, s store.Store, layout Layout) *alloc.Allocator {
	t.Helper()
	a, err := alloc.Create(s, 0, layout.NodeSize())
	require.NoError(t, err)
	return a
}

func TestLeafSaveLoadRoundTrip(t *testing.T) {
	layout := testLayout()
	s := store.NewMemoryStore()
	a := newAllocForLayout(t, s, layout)

	addr, err := a.Allocate()
	require.NoError(t, err)

	n := New(layout, Leaf)
	n.Address = addr
	n.Entries = []Entry{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("c"), Value: []byte("3")},
	}
	require.NoError(t, n.Save(s))

	loaded, err := Load(s, addr, layout)
	require.NoError(t, err)
	assert.Equal(t, Leaf, loaded.Type)
	require.Len(t, loaded.Entries, 3)
	assert.Equal(t, []byte("a"), loaded.Entries[0].Key)
	assert.Equal(t, []byte("2"), loaded.Entries[1].Value)
	assert.Empty(t, loaded.Children)
}

func TestInternalSaveLoadRoundTrip(t *testing.T) {
	layout := testLayout()
	s := store.NewMemoryStore()
	a := newAllocForLayout(t, s, layout)

	c0, _ := a.Allocate()
	c1, _ := a.Allocate()

	n := New(layout, Internal)
	addr, err := a.Allocate()
	require.NoError(t, err)
	n.Address = addr
	n.Entries = []Entry{{Key: []byte("m"), Value: []byte("mid")}}
	n.Children = []uint64{c0, c1}
	require.NoError(t, n.Save(s))

	loaded, err := Load(s, addr, layout)
	require.NoError(t, err)
	assert.Equal(t, Internal, loaded.Type)
	assert.Equal(t, []uint64{c0, c1}, loaded.Children)
}

func TestSaveRejectsUnsortedEntries(t *testing.T) {
	layout := testLayout()
	s := store.NewMemoryStore()
	a := newAllocForLayout(t, s, layout)
	addr, err := a.Allocate()
	require.NoError(t, err)

	n := New(layout, Leaf)
	n.Address = addr
	n.Entries = []Entry{
		{Key: []byte("b"), Value: nil},
		{Key: []byte("a"), Value: nil},
	}
	assert.Panics(t, func() { _ = n.Save(s) })
}

func TestSaveRejectsWrongChildCount(t *testing.T) {
	layout := testLayout()
	s := store.NewMemoryStore()
	a := newAllocForLayout(t, s, layout)
	addr, err := a.Allocate()
	require.NoError(t, err)

	n := New(layout, Internal)
	n.Address = addr
	n.Entries = []Entry{{Key: []byte("a")}}
	n.Children = []uint64{1}
	assert.Panics(t, func() { _ = n.Save(s) })
}

func TestFindKeyIndex(t *testing.T) {
	layout := testLayout()
	n := New(layout, Leaf)
	n.Entries = []Entry{
		{Key: []byte("b")},
		{Key: []byte("d")},
		{Key: []byte("f")},
	}

	idx, found := n.FindKeyIndex([]byte("d"))
	assert.True(t, found)
	assert.Equal(t, 1, idx)

	idx, found = n.FindKeyIndex([]byte("a"))
	assert.False(t, found)
	assert.Equal(t, 0, idx)

	idx, found = n.FindKeyIndex([]byte("c"))
	assert.False(t, found)
	assert.Equal(t, 1, idx)

	idx, found = n.FindKeyIndex([]byte("z"))
	assert.False(t, found)
	assert.Equal(t, 3, idx)
}

func TestMaxMinWalksToLeaf(t *testing.T) {
	layout := testLayout()
	s := store.NewMemoryStore()
	a := newAllocForLayout(t, s, layout)

	leftLeaf := New(layout, Leaf)
	leftLeaf.Address, _ = a.Allocate()
	leftLeaf.Entries = []Entry{{Key: []byte("a")}, {Key: []byte("b")}}
	require.NoError(t, leftLeaf.Save(s))

	rightLeaf := New(layout, Leaf)
	rightLeaf.Address, _ = a.Allocate()
	rightLeaf.Entries = []Entry{{Key: []byte("y")}, {Key: []byte("z")}}
	require.NoError(t, rightLeaf.Save(s))

	root := New(layout, Internal)
	root.Address, _ = a.Allocate()
	root.Entries = []Entry{{Key: []byte("m")}}
	root.Children = []uint64{leftLeaf.Address, rightLeaf.Address}
	require.NoError(t, root.Save(s))

	maxEntry, err := Max(s, layout, root)
	require.NoError(t, err)
	assert.Equal(t, []byte("z"), maxEntry.Key)

	minEntry, err := Min(s, layout, root)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), minEntry.Key)
}

func TestLoadBadMagicPanics(t *testing.T) {
	layout := testLayout()
	s := store.NewMemoryStore()
	require.NoError(t, store.WriteAtGrow(s, 0, make([]byte, layout.NodeSize())))

	assert.Panics(t, func() {
		_, _ = Load(s, 0, layout)
	})
}
