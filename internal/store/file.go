package store

import (
	"os"

	"github.com/scigolib/btreestore/internal/utils"
)

// FileStore is a persistent implementation of Store backed by an *os.File.
// Growth is implemented by truncating the file to a whole number of pages;
// reads and writes use pread/pwrite-style positioned I/O via ReadAt/WriteAt
// so FileStore needs no internal seek cursor.
type FileStore struct {
	f *os.File
}

// OpenFileStore opens (creating if necessary) path as a FileStore. The
// file's existing size is rounded down to a whole number of pages for the
// purposes of Size(); callers loading an existing tree rely on the file
// having been grown exclusively through Grow in a prior session.
func OpenFileStore(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, utils.WrapError("opening backing file", err)
	}
	return &FileStore{f: f}, nil
}

// Close closes the underlying file. Safe to call multiple times.
func (fs *FileStore) Close() error {
	if fs.f == nil {
		return nil
	}
	err := fs.f.Close()
	fs.f = nil
	return err
}

// Size implements Store.
func (fs *FileStore) Size() uint64 {
	info, err := fs.f.Stat()
	if err != nil {
		return 0
	}
	//nolint:gosec // file sizes here are always non-negative
	return uint64(info.Size()) / PageSize
}

// Grow implements Store. Growth refuses only if the underlying Truncate
// call fails (e.g. disk full, permission denied).
func (fs *FileStore) Grow(n uint64) int64 {
	prev := fs.Size()
	newSize := (prev + n) * PageSize
	//nolint:gosec // store sizes stay far below int64 max in practice
	if err := fs.f.Truncate(int64(newSize)); err != nil {
		return GrowthRefused
	}
	//nolint:gosec // page counts are small relative to int64 range
	return int64(prev)
}

// ReadAt implements Store.
func (fs *FileStore) ReadAt(offset uint64, length int) ([]byte, error) {
	if err := validateReadLength(length); err != nil {
		return nil, utils.WrapError("reading backing file", err)
	}
	end := offset + uint64(length)
	if end > fs.Size()*PageSize {
		return nil, &ErrOutOfRange{Offset: offset, Length: uint64(length), Size: fs.Size() * PageSize}
	}
	buf := make([]byte, length)
	//nolint:gosec // offsets stay far below int64 max in practice
	if _, err := fs.f.ReadAt(buf, int64(offset)); err != nil {
		return nil, utils.WrapError("reading backing file", err)
	}
	return buf, nil
}

// WriteAt implements Store.
func (fs *FileStore) WriteAt(offset uint64, data []byte) error {
	end := offset + uint64(len(data))
	if end > fs.Size()*PageSize {
		return &ErrOutOfRange{Offset: offset, Length: uint64(len(data)), Size: fs.Size() * PageSize}
	}
	//nolint:gosec // offsets stay far below int64 max in practice
	if _, err := fs.f.WriteAt(data, int64(offset)); err != nil {
		return utils.WrapError("writing backing file", err)
	}
	return nil
}
