// Package alloc implements the fixed-size-chunk free-list allocator that
// serves every node a B-tree creates. All chunks are the same size — the
// node's fixed on-disk footprint — so there is no coalescing and no size
// classes; the only bookkeeping is a singly linked list of free chunks.
package alloc

import (
	"fmt"

	"github.com/scigolib/btreestore/internal/codec"
	"github.com/scigolib/btreestore/internal/store"
	"github.com/scigolib/btreestore/internal/utils"
)

const (
	headerMagic  = "BTA"
	headerVer    = 1
	headerSize   = 48
	chunkMagic   = "CHK"
	chunkVer     = 1
	chunkHdrSize = 16

	// NullAddr is the sentinel meaning "no such address".
	NullAddr uint64 = 0
)

// Allocator manages a region of a Store, starting at baseAddr, as a
// sequence of equal-sized chunks. Exactly one node occupies one chunk.
type Allocator struct {
	s              store.Store
	baseAddr       uint64
	allocationSize uint64
	numAllocated   uint64
	freeListHead   uint64
}

// ChunkSize is the total size of one chunk: the chunk header plus the
// caller-supplied allocation (payload) size.
func ChunkSize(allocationSize uint64) uint64 {
	return allocationSize + chunkHdrSize
}

// Create initializes a fresh allocator region at baseAddr, sized to hand
// out allocationSize-byte payloads, and writes the initial single free
// chunk immediately after the header.
func Create(s store.Store, baseAddr, allocationSize uint64) (*Allocator, error) {
	a := &Allocator{
		s:              s,
		baseAddr:       baseAddr,
		allocationSize: allocationSize,
		numAllocated:   0,
		freeListHead:   baseAddr + headerSize,
	}
	if err := writeChunkHeader(s, a.freeListHead, false, NullAddr); err != nil {
		return nil, utils.WrapError("initializing allocator free list", err)
	}
	if err := a.persistHeader(); err != nil {
		return nil, err
	}
	return a, nil
}

// Load reconstructs an Allocator handle from a previously created region at
// baseAddr. It is fatal (panics) if the header's magic or version do not
// match, or if allocationSize differs from the expected value the caller
// passes in (e.g. derived from the B-tree's max key/value sizes).
func Load(s store.Store, baseAddr, expectedAllocationSize uint64) *Allocator {
	buf, err := s.ReadAt(baseAddr, headerSize)
	if err != nil {
		panic(fmt.Sprintf("alloc: reading header at %d: %v", baseAddr, err))
	}
	if string(buf[0:3]) != headerMagic {
		panic(fmt.Sprintf("alloc: bad magic at %d: %q", baseAddr, buf[0:3]))
	}
	if buf[3] != headerVer {
		panic(fmt.Sprintf("alloc: unsupported allocator version %d", buf[3]))
	}
	allocationSize := codec.Uint64(buf[8:16])
	if allocationSize != expectedAllocationSize {
		panic(fmt.Sprintf("alloc: allocation size mismatch: persisted %d, expected %d", allocationSize, expectedAllocationSize))
	}
	return &Allocator{
		s:              s,
		baseAddr:       baseAddr,
		allocationSize: allocationSize,
		numAllocated:   codec.Uint64(buf[16:24]),
		freeListHead:   codec.Uint64(buf[24:32]),
	}
}

// NumAllocatedChunks returns the number of chunks currently ALLOCATED.
func (a *Allocator) NumAllocatedChunks() uint64 { return a.numAllocated }

// ChunkSize returns this allocator's fixed chunk size.
func (a *Allocator) ChunkSize() uint64 { return ChunkSize(a.allocationSize) }

func (a *Allocator) persistHeader() error {
	buf := make([]byte, headerSize)
	copy(buf[0:3], headerMagic)
	buf[3] = headerVer
	// bytes 4:8 reserved (align)
	codec.PutUint64(buf[8:16], a.allocationSize)
	codec.PutUint64(buf[16:24], a.numAllocated)
	codec.PutUint64(buf[24:32], a.freeListHead)
	// bytes 32:48 reserved
	return store.WriteAtGrow(a.s, a.baseAddr, buf)
}

type chunkHeader struct {
	allocated bool
	next      uint64
}

func readChunkHeader(s store.Store, addr uint64) chunkHeader {
	buf, err := s.ReadAt(addr, chunkHdrSize)
	if err != nil {
		panic(fmt.Sprintf("alloc: reading chunk header at %d: %v", addr, err))
	}
	if string(buf[0:3]) != chunkMagic {
		panic(fmt.Sprintf("alloc: bad chunk magic at %d: %q", addr, buf[0:3]))
	}
	if buf[3] != chunkVer {
		panic(fmt.Sprintf("alloc: unsupported chunk version %d", buf[3]))
	}
	return chunkHeader{
		allocated: codec.Bool(buf[4:5]),
		next:      codec.Uint64(buf[8:16]),
	}
}

func writeChunkHeader(s store.Store, addr uint64, allocated bool, next uint64) error {
	buf := make([]byte, chunkHdrSize)
	copy(buf[0:3], chunkMagic)
	buf[3] = chunkVer
	codec.PutBool(buf[4:5], allocated)
	// bytes 5:8 reserved (align)
	codec.PutUint64(buf[8:16], next)
	return store.WriteAtGrow(s, addr, buf)
}

// Allocate pops the head of the free list, marks it allocated, and returns
// the address of its payload (the chunk header address plus the header
// size). If the free list is exhausted it grows a fresh chunk at the
// current tail.
func (a *Allocator) Allocate() (uint64, error) {
	headAddr := a.freeListHead
	head := readChunkHeader(a.s, headAddr)

	if err := writeChunkHeader(a.s, headAddr, true, NullAddr); err != nil {
		return 0, utils.WrapError("marking chunk allocated", err)
	}

	if head.next != NullAddr {
		a.freeListHead = head.next
	} else {
		nextFree := headAddr + a.ChunkSize()
		if err := writeChunkHeader(a.s, nextFree, false, NullAddr); err != nil {
			return 0, utils.WrapError("extending free list", err)
		}
		a.freeListHead = nextFree
	}

	a.numAllocated++
	if err := a.persistHeader(); err != nil {
		return 0, err
	}
	return headAddr + chunkHdrSize, nil
}

// Deallocate returns the chunk whose payload lives at payloadAddr to the
// free list. It is fatal to deallocate a chunk that is not currently
// allocated — that indicates a double-free or a corrupted store.
func (a *Allocator) Deallocate(payloadAddr uint64) error {
	chunkAddr := payloadAddr - chunkHdrSize
	h := readChunkHeader(a.s, chunkAddr)
	if !h.allocated {
		panic(fmt.Sprintf("alloc: double free at chunk %d", chunkAddr))
	}
	if err := writeChunkHeader(a.s, chunkAddr, false, a.freeListHead); err != nil {
		return utils.WrapError("freeing chunk", err)
	}
	a.freeListHead = chunkAddr
	a.numAllocated--
	return a.persistHeader()
}
