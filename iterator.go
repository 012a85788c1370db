package btreestore

import (
	"github.com/scigolib/btreestore/internal/codec"
	"github.com/scigolib/btreestore/internal/node"
)

// frame is one level of an Iterator's descent: the node at this level and
// the index of the next entry (equivalently, the next child past the
// previously consumed entry) still to visit.
type frame struct {
	n   *node.Node
	idx int
}

// Iterator yields a tree's entries in ascending key order. It holds no
// store resources beyond the nodes on its current descent path, so it is
// safe to abandon mid-iteration.
type Iterator struct {
	t      *Tree
	stack  []frame
	prefix []byte
	hasPfx bool
}

// Iter returns an iterator over every entry in the tree, in ascending key
// order.
func (t *Tree) Iter() *Iterator {
	it := &Iterator{t: t}
	if t.root != NullAddr {
		it.descendLeftmost(t.root)
	}
	return it
}

// Range returns an iterator over every entry whose key has prefix,
// restarting from the first key greater than or equal to
// prefix+offset when offset is non-nil. This lets a caller page through a
// prefix's keys by passing the part of the last key seen that follows
// prefix as the next call's offset; because the bound is inclusive, that
// key is yielded again as the first result.
func (t *Tree) Range(prefix, offset []byte) *Iterator {
	it := &Iterator{t: t, hasPfx: true, prefix: append([]byte(nil), prefix...)}
	if t.root == NullAddr {
		return it
	}
	pivot := prefix
	if offset != nil {
		pivot = codec.Concat(prefix, offset)
	}
	it.seek(pivot)
	return it
}

// Next returns the next key/value pair, or (nil, nil, false) once
// iteration is exhausted or (for a Range iterator) the key prefix no
// longer matches.
func (it *Iterator) Next() ([]byte, []byte, bool) {
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		if top.idx >= len(top.n.Entries) {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		e := top.n.Entries[top.idx]
		top.idx++
		if !top.n.IsLeaf() {
			it.descendLeftmost(top.n.Children[top.idx])
		}
		if it.hasPfx && !codec.HasPrefix(e.Key, it.prefix) {
			it.stack = nil
			return nil, nil, false
		}
		return e.Key, e.Value, true
	}
	return nil, nil, false
}

// descendLeftmost pushes the leftmost spine starting at addr, so the next
// Next() call yields the smallest key in that subtree.
func (it *Iterator) descendLeftmost(addr uint64) {
	for addr != NullAddr {
		n := it.t.mustLoadNode(addr)
		it.stack = append(it.stack, frame{n: n, idx: 0})
		if n.IsLeaf() {
			return
		}
		addr = n.Children[0]
	}
}

// seek builds a descent stack positioned at the first key >= pivot,
// without ever visiting an entry below pivot.
func (it *Iterator) seek(pivot []byte) {
	addr := it.t.root
	for addr != NullAddr {
		n := it.t.mustLoadNode(addr)
		idx, found := n.FindKeyIndex(pivot)
		it.stack = append(it.stack, frame{n: n, idx: idx})
		if found || n.IsLeaf() {
			return
		}
		addr = n.Children[idx]
	}
}
