// Package memmgr implements the memory manager: a virtual-memory
// partitioner that presents up to 255 independent, Store-shaped views
// ("virtual memories") over one physical Store by interleaving
// fixed-size buckets among them. Each virtual memory can grow
// independently without anyone reserving worst-case capacity up front.
package memmgr

import (
	"fmt"

	"github.com/scigolib/btreestore/internal/codec"
	"github.com/scigolib/btreestore/internal/store"
)

const (
	headerMagic = "MGR"
	headerVer   = 1
	headerSize  = 2080 // magic(3)+version(1)+numBuckets(2)+bucketSize(2)+reserved(32)+sizes(255*8)

	// MaxMemories is the number of usable memory ids (0..254); id 255 is
	// the reserved "unallocated bucket" marker.
	MaxMemories = 255

	// UnallocatedMarker is the owner-table byte value meaning "unowned".
	UnallocatedMarker uint8 = 255

	// DefaultBucketSizeInPages is the bucket size used by the default
	// constructor; callers needing a different granularity use
	// CreateWithBucketSize.
	DefaultBucketSizeInPages = 1024

	// MaxNumBuckets bounds the physical store partitioning; it sizes the
	// owner table persisted right after the header.
	MaxNumBuckets = 32768
)

// MemoryManager owns one physical Store and slices it into buckets, each
// assigned to at most one virtual memory.
type MemoryManager struct {
	phys                store.Store
	bucketSizeInPages   uint16
	numAllocatedBuckets uint16
	memorySizesInPages  [MaxMemories]uint64
	bucketOwners        [MaxNumBuckets]uint8
	bucketsByMemory     [MaxMemories][]uint16
}

// Create initializes a fresh memory manager over phys using the default
// bucket size (1024 pages).
func Create(phys store.Store) (*MemoryManager, error) {
	return CreateWithBucketSize(phys, DefaultBucketSizeInPages)
}

// CreateWithBucketSize initializes a fresh memory manager with a
// caller-chosen bucket granularity.
func CreateWithBucketSize(phys store.Store, bucketSizeInPages uint16) (*MemoryManager, error) {
	mm := &MemoryManager{phys: phys, bucketSizeInPages: bucketSizeInPages}
	for i := range mm.bucketOwners {
		mm.bucketOwners[i] = UnallocatedMarker
	}
	if err := mm.persistHeader(); err != nil {
		return nil, err
	}
	if err := mm.persistOwnerTable(); err != nil {
		return nil, err
	}
	return mm, nil
}

// Load reconstructs a MemoryManager from a previously persisted region at
// the start of phys. expectedBucketSizeInPages must match the persisted
// value; a mismatch is fatal, as is a bad magic or unsupported version.
func Load(phys store.Store, expectedBucketSizeInPages uint16) *MemoryManager {
	hdr, err := phys.ReadAt(0, headerSize)
	if err != nil {
		panic(fmt.Sprintf("memmgr: reading header: %v", err))
	}
	if string(hdr[0:3]) != headerMagic {
		panic(fmt.Sprintf("memmgr: bad magic: %q", hdr[0:3]))
	}
	if hdr[3] != headerVer {
		panic(fmt.Sprintf("memmgr: unsupported version %d", hdr[3]))
	}
	bucketSize := codec.Uint16(hdr[6:8])
	if bucketSize != expectedBucketSizeInPages {
		panic(fmt.Sprintf("memmgr: bucket size mismatch: persisted %d, expected %d", bucketSize, expectedBucketSizeInPages))
	}

	mm := &MemoryManager{phys: phys, bucketSizeInPages: bucketSize}
	mm.numAllocatedBuckets = codec.Uint16(hdr[4:6])
	off := 40
	for i := 0; i < MaxMemories; i++ {
		mm.memorySizesInPages[i] = codec.Uint64(hdr[off : off+8])
		off += 8
	}

	owners, err := phys.ReadAt(headerSize, MaxNumBuckets)
	if err != nil {
		panic(fmt.Sprintf("memmgr: reading owner table: %v", err))
	}
	copy(mm.bucketOwners[:], owners)
	for b := uint16(0); b < mm.numAllocatedBuckets; b++ {
		owner := mm.bucketOwners[b]
		if owner != UnallocatedMarker {
			mm.bucketsByMemory[owner] = append(mm.bucketsByMemory[owner], b)
		}
	}
	return mm
}

func (mm *MemoryManager) persistHeader() error {
	buf := make([]byte, headerSize)
	copy(buf[0:3], headerMagic)
	buf[3] = headerVer
	codec.PutUint16(buf[4:6], mm.numAllocatedBuckets)
	codec.PutUint16(buf[6:8], mm.bucketSizeInPages)
	// bytes [8:40) reserved
	off := 40
	for i := 0; i < MaxMemories; i++ {
		codec.PutUint64(buf[off:off+8], mm.memorySizesInPages[i])
		off += 8
	}
	return store.WriteAtGrow(mm.phys, 0, buf)
}

func (mm *MemoryManager) persistOwnerTable() error {
	return store.WriteAtGrow(mm.phys, headerSize, mm.bucketOwners[:])
}

func (mm *MemoryManager) bucketSizeBytes() uint64 {
	return uint64(mm.bucketSizeInPages) * store.PageSize
}

func bucketBase(bucketID uint16, bucketSizeBytes uint64) uint64 {
	return store.PageSize + uint64(bucketID)*bucketSizeBytes
}

// Memory returns a Store-shaped view onto virtual memory id. id must be in
// 0..254; 255 is the reserved unallocated marker and using it is fatal.
func (mm *MemoryManager) Memory(id uint8) *VirtualMemory {
	if id == UnallocatedMarker {
		panic("memmgr: memory id 255 is reserved")
	}
	return &VirtualMemory{mm: mm, id: id}
}

// growMemory implements spec.md 4.6.2's Grow algorithm for virtual memory
// id. It returns the previous size in pages, or store.GrowthRefused if
// growing would exceed MaxNumBuckets.
func (mm *MemoryManager) growMemory(id uint8, pages uint64) int64 {
	prev := mm.memorySizesInPages[id]
	newTotal := prev + pages

	requiredBuckets := newTotal / uint64(mm.bucketSizeInPages)
	if newTotal%uint64(mm.bucketSizeInPages) != 0 {
		requiredBuckets++
	}
	currentBuckets := uint64(len(mm.bucketsByMemory[id]))

	if requiredBuckets > currentBuckets {
		diff := requiredBuckets - currentBuckets
		if uint64(mm.numAllocatedBuckets)+diff > MaxNumBuckets {
			return store.GrowthRefused
		}
		for i := uint64(0); i < diff; i++ {
			bucketID := mm.numAllocatedBuckets
			mm.numAllocatedBuckets++
			mm.bucketsByMemory[id] = append(mm.bucketsByMemory[id], bucketID)
			mm.bucketOwners[bucketID] = id
		}

		highestEnd := bucketBase(mm.numAllocatedBuckets, mm.bucketSizeBytes())
		requiredPhysPages := highestEnd / store.PageSize
		if mm.phys.Size() < requiredPhysPages {
			if mm.phys.Grow(requiredPhysPages-mm.phys.Size()) < 0 {
				return store.GrowthRefused
			}
		}

		if err := mm.persistOwnerTable(); err != nil {
			return store.GrowthRefused
		}
	}

	mm.memorySizesInPages[id] = newTotal
	if err := mm.persistHeader(); err != nil {
		return store.GrowthRefused
	}
	//nolint:gosec // page counts stay far below int64 range
	return int64(prev)
}

// segment is a contiguous run of a virtual read/write that lands entirely
// within one physical bucket.
type segment struct {
	physOffset uint64
	length     int
}

// bucketSegments splits a virtual [offset, offset+length) range into
// per-bucket segments, translating each into a physical offset. Fatal if
// the range exceeds the memory's current size or touches an unallocated
// virtual bucket.
func (mm *MemoryManager) bucketSegments(id uint8, offset uint64, length int) []segment {
	sizeBytes := mm.memorySizesInPages[id] * store.PageSize
	end := offset + uint64(length)
	if end > sizeBytes {
		panic(fmt.Sprintf("memmgr: memory %d access [%d,%d) exceeds size %d", id, offset, end, sizeBytes))
	}

	bucketSizeBytes := mm.bucketSizeBytes()
	buckets := mm.bucketsByMemory[id]

	var segments []segment
	remaining := uint64(length)
	cur := offset
	for remaining > 0 {
		vBucketIdx := cur / bucketSizeBytes
		withinBucket := cur % bucketSizeBytes
		if int(vBucketIdx) >= len(buckets) {
			panic(fmt.Sprintf("memmgr: memory %d virtual bucket %d not allocated", id, vBucketIdx))
		}
		physBucketID := buckets[vBucketIdx]
		segLen := bucketSizeBytes - withinBucket
		if segLen > remaining {
			segLen = remaining
		}
		physOffset := bucketBase(physBucketID, bucketSizeBytes) + withinBucket
		segments = append(segments, segment{physOffset: physOffset, length: int(segLen)})
		cur += segLen
		remaining -= segLen
	}
	return segments
}

// VirtualMemory is a Store-shaped view onto one of the memory manager's
// virtual memories. It satisfies store.Store so a B-tree can be created
// directly atop it.
type VirtualMemory struct {
	mm *MemoryManager
	id uint8
}

// Size implements store.Store.
func (v *VirtualMemory) Size() uint64 {
	return v.mm.memorySizesInPages[v.id]
}

// Grow implements store.Store.
func (v *VirtualMemory) Grow(pages uint64) int64 {
	return v.mm.growMemory(v.id, pages)
}

// ReadAt implements store.Store.
func (v *VirtualMemory) ReadAt(offset uint64, length int) ([]byte, error) {
	segments := v.mm.bucketSegments(v.id, offset, length)
	out := make([]byte, 0, length)
	for _, seg := range segments {
		b, err := v.mm.phys.ReadAt(seg.physOffset, seg.length)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// WriteAt implements store.Store.
func (v *VirtualMemory) WriteAt(offset uint64, data []byte) error {
	segments := v.mm.bucketSegments(v.id, offset, len(data))
	pos := 0
	for _, seg := range segments {
		if err := v.mm.phys.WriteAt(seg.physOffset, data[pos:pos+seg.length]); err != nil {
			return err
		}
		pos += seg.length
	}
	return nil
}
