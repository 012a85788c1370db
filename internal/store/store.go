// Package store implements the byte-addressable, page-growable backing
// store that every other subsystem in this module reads and writes
// through: the allocator, the node codec, the B-tree engine header, and
// the memory manager's physical store.
package store

import (
	"fmt"

	"github.com/scigolib/btreestore/internal/utils"
)

// PageSize is the fixed size, in bytes, of one page of the backing store.
const PageSize = 65536

// GrowthRefused is the sentinel value Grow returns when it declines to
// extend the store (e.g. an implementation-defined capacity limit).
const GrowthRefused = -1

// Store is the contract every backing store implementation satisfies. It is
// deliberately small: size/grow in pages, read/write in raw bytes.
// MemoryStore and FileStore fail ReadAt and WriteAt (return an error)
// rather than panic when the requested range exceeds the current byte
// size; a memory manager's VirtualMemory instead treats such an access as
// fatal and panics.
type Store interface {
	// Size returns the current size of the store in pages.
	Size() uint64
	// Grow extends the store by n pages and returns the previous size in
	// pages, or GrowthRefused if the extension was declined.
	Grow(n uint64) int64
	// ReadAt returns length bytes starting at offset.
	ReadAt(offset uint64, length int) ([]byte, error)
	// WriteAt writes data starting at offset.
	WriteAt(offset uint64, data []byte) error
}

// maxReadLength bounds a single ReadAt call, far above any header or node
// record this module ever reads, to catch a corrupt offset/length pair
// before it turns into a runaway allocation.
const maxReadLength = 1 << 26

// validateReadLength rejects an absurd or non-positive read length before
// an implementation attempts to size a buffer for it.
func validateReadLength(length int) error {
	if length <= 0 {
		return fmt.Errorf("store: read length %d must be positive", length)
	}
	return utils.ValidateBufferSize(uint64(length), maxReadLength, "read length")
}

// ErrOutOfRange is returned by ReadAt/WriteAt when the requested range
// falls outside the store's current byte size.
type ErrOutOfRange struct {
	Offset, Length, Size uint64
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("store: access [%d, %d) exceeds size %d", e.Offset, e.Offset+e.Length, e.Size)
}

// WriteAtGrow is the safe-write helper described by the spec: it computes
// how many pages are needed to cover offset+len(data), grows the store
// first if it is short, and only then writes. Every mutating write in this
// module (allocator headers, node records, memory-manager bookkeeping)
// goes through this helper instead of calling WriteAt directly.
func WriteAtGrow(s Store, offset uint64, data []byte) error {
	required := offset + uint64(len(data))
	sizeBytes := s.Size() * PageSize
	if required > sizeBytes {
		deficitBytes := required - sizeBytes
		pages := deficitBytes / PageSize
		if deficitBytes%PageSize != 0 {
			pages++
		}
		if prev := s.Grow(pages); prev < 0 {
			return utils.WrapError("growing backing store", fmt.Errorf("grow(%d) refused", pages))
		}
	}
	return s.WriteAt(offset, data)
}
