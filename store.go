package btreestore

import (
	"github.com/scigolib/btreestore/internal/store"
)

// Store is the byte-addressable, page-growable backing store contract
// every tree and memory manager reads and writes through. A page is
// store.PageSize (65536) bytes.
type Store = store.Store

// PageSize is the fixed size, in bytes, of one page of a Store.
const PageSize = store.PageSize

// GrowthRefused is the sentinel Store.Grow returns when it declines to
// extend the store.
const GrowthRefused = store.GrowthRefused

// NewMemoryStore returns a volatile, in-RAM Store with zero pages. Useful
// for tests and scratch trees that need no persistence.
func NewMemoryStore() Store {
	return store.NewMemoryStore()
}

// FileStore is a persistent Store backed by an *os.File.
type FileStore = store.FileStore

// NewFileStore opens (creating if necessary) path as a persistent Store.
func NewFileStore(path string) (*FileStore, error) {
	return store.OpenFileStore(path)
}
