package btreestore

import (
	"github.com/scigolib/btreestore/internal/memmgr"
)

// MemoryManager virtualizes one physical Store into up to 255 independent
// sub-stores ("virtual memories") by interleaving fixed-size buckets among
// them, so each can grow independently without reserving worst-case
// capacity. MemoryId 255 is reserved as the unallocated-bucket marker.
type MemoryManager = memmgr.MemoryManager

// VirtualMemory is a Store-shaped view onto one of a MemoryManager's
// virtual memories; it satisfies Store so a Tree can be created directly
// atop it.
type VirtualMemory = memmgr.VirtualMemory

// UnallocatedMemoryID is the reserved MemoryId (255) meaning "unowned".
const UnallocatedMemoryID = memmgr.UnallocatedMarker

// DefaultBucketSizeInPages is the bucket granularity used by
// NewMemoryManager.
const DefaultBucketSizeInPages = memmgr.DefaultBucketSizeInPages

// NewMemoryManager initializes a fresh memory manager over phys using the
// default bucket size (1024 pages).
func NewMemoryManager(phys Store) (*MemoryManager, error) {
	return memmgr.Create(phys)
}

// NewMemoryManagerWithBucketSize initializes a fresh memory manager with a
// caller-chosen bucket granularity.
func NewMemoryManagerWithBucketSize(phys Store, bucketSizeInPages uint16) (*MemoryManager, error) {
	return memmgr.CreateWithBucketSize(phys, bucketSizeInPages)
}

// LoadMemoryManager reconstructs a memory manager previously persisted to
// phys. bucketSizeInPages must match the value used at creation time; a
// mismatch is fatal.
func LoadMemoryManager(phys Store, bucketSizeInPages uint16) *MemoryManager {
	return memmgr.Load(phys, bucketSizeInPages)
}
