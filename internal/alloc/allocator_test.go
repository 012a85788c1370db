package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/btreestore/internal/store"
)

func TestCreateAllocator(t *testing.T) {
	s := store.NewMemoryStore()
	a, err := Create(s, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), a.NumAllocatedChunks())
	assert.Equal(t, uint64(116), a.ChunkSize())
}

func TestAllocateDeallocate(t *testing.T) {
	s := store.NewMemoryStore()
	a, err := Create(s, 0, 32)
	require.NoError(t, err)

	addr1, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a.NumAllocatedChunks())

	addr2, err := a.Allocate()
	require.NoError(t, err)
	assert.NotEqual(t, addr1, addr2)
	assert.Equal(t, uint64(2), a.NumAllocatedChunks())

	require.NoError(t, a.Deallocate(addr1))
	assert.Equal(t, uint64(1), a.NumAllocatedChunks())

	// Reallocating should reuse the freed chunk (LIFO free list).
	addr3, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, addr1, addr3)
	assert.Equal(t, uint64(2), a.NumAllocatedChunks())
}

func TestDoubleFreePanics(t *testing.T) {
	s := store.NewMemoryStore()
	a, err := Create(s, 0, 32)
	require.NoError(t, err)

	addr, err := a.Allocate()
	require.NoError(t, err)
	require.NoError(t, a.Deallocate(addr))

	assert.Panics(t, func() {
		_ = a.Deallocate(addr)
	})
}

func TestLoadRoundTrip(t *testing.T) {
	s := store.NewMemoryStore()
	a, err := Create(s, 0, 32)
	require.NoError(t, err)

	addr1, err := a.Allocate()
	require.NoError(t, err)
	_, err = a.Allocate()
	require.NoError(t, err)
	require.NoError(t, a.Deallocate(addr1))

	loaded := Load(s, 0, 32)
	assert.Equal(t, a.NumAllocatedChunks(), loaded.NumAllocatedChunks())

	addr, err := loaded.Allocate()
	require.NoError(t, err)
	assert.Equal(t, addr1, addr)
}

func TestLoadBadMagicPanics(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, store.WriteAtGrow(s, 0, make([]byte, 48)))

	assert.Panics(t, func() {
		Load(s, 0, 32)
	})
}
