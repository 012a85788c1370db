package store

import "github.com/scigolib/btreestore/internal/utils"

// MemoryStore is a volatile, in-RAM implementation of Store. It is used by
// tests and by callers that want a scratch tree with no persistence.
type MemoryStore struct {
	data []byte
}

// NewMemoryStore returns an empty in-RAM store (zero pages).
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Size implements Store.
func (m *MemoryStore) Size() uint64 {
	return uint64(len(m.data)) / PageSize
}

// Grow implements Store. MemoryStore never refuses growth.
func (m *MemoryStore) Grow(n uint64) int64 {
	prev := m.Size()
	m.data = append(m.data, make([]byte, n*PageSize)...)
	//nolint:gosec // page counts are small relative to int64 range
	return int64(prev)
}

// ReadAt implements Store.
func (m *MemoryStore) ReadAt(offset uint64, length int) ([]byte, error) {
	if err := validateReadLength(length); err != nil {
		return nil, utils.WrapError("reading memory store", err)
	}
	end := offset + uint64(length)
	if end > uint64(len(m.data)) {
		return nil, &ErrOutOfRange{Offset: offset, Length: uint64(length), Size: uint64(len(m.data))}
	}
	out := make([]byte, length)
	copy(out, m.data[offset:end])
	return out, nil
}

// WriteAt implements Store.
func (m *MemoryStore) WriteAt(offset uint64, data []byte) error {
	end := offset + uint64(len(data))
	if end > uint64(len(m.data)) {
		return &ErrOutOfRange{Offset: offset, Length: uint64(len(data)), Size: uint64(len(m.data))}
	}
	copy(m.data[offset:end], data)
	return nil
}
