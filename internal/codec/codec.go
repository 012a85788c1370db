// Package codec provides the fixed-width, big-endian integer encoding and
// the byte-string ordering primitives shared by every on-disk layout in
// this module: the B-tree, allocator, and node headers, and the memory
// manager's bucket tables. Endianness is big-endian and MUST stay that way
// across versions — every persisted integer in this module depends on it.
package codec

import "encoding/binary"

// PutUint16 writes v as 2 big-endian bytes at the start of dst.
func PutUint16(dst []byte, v uint16) {
	binary.BigEndian.PutUint16(dst, v)
}

// Uint16 reads 2 big-endian bytes from the start of src.
func Uint16(src []byte) uint16 {
	return binary.BigEndian.Uint16(src)
}

// PutUint32 writes v as 4 big-endian bytes at the start of dst.
func PutUint32(dst []byte, v uint32) {
	binary.BigEndian.PutUint32(dst, v)
}

// Uint32 reads 4 big-endian bytes from the start of src.
func Uint32(src []byte) uint32 {
	return binary.BigEndian.Uint32(src)
}

// PutUint64 writes v as 8 big-endian bytes at the start of dst.
func PutUint64(dst []byte, v uint64) {
	binary.BigEndian.PutUint64(dst, v)
}

// Uint64 reads 8 big-endian bytes from the start of src.
func Uint64(src []byte) uint64 {
	return binary.BigEndian.Uint64(src)
}

// PutBool writes b as a single byte: 1 for true, 0 for false.
func PutBool(dst []byte, b bool) {
	if b {
		dst[0] = 1
	} else {
		dst[0] = 0
	}
}

// Bool reads a single boolean byte.
func Bool(src []byte) bool {
	return src[0] != 0
}

// Compare returns -1, 0, or 1 according to the lexicographic byte order of
// a and b, matching bytes.Compare's contract. Implemented directly under
// its own name so call sites read as tree-key comparisons rather than raw
// byte compares.
func Compare(a, b []byte) int {
	la, lb := len(a), len(b)
	n := la
	if lb < n {
		n = lb
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case la < lb:
		return -1
	case la > lb:
		return 1
	default:
		return 0
	}
}

// HasPrefix reports whether key begins with prefix.
func HasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Concat returns a new byte slice holding a followed by b. Used to build
// the range-query pivot key (prefix ++ offset) without aliasing either
// input.
func Concat(a, b []byte) []byte {
	out := make([]byte, len(a)+len(b))
	copy(out, a)
	copy(out[len(a):], b)
	return out
}
