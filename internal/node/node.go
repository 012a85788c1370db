// Package node implements the on-disk B-tree node format: a typed,
// versioned, length-prefixed record holding an ordered sequence of
// (key, value) entries and, for internal nodes, one more child address
// than it has entries.
package node

import (
	"fmt"

	"github.com/scigolib/btreestore/internal/codec"
	"github.com/scigolib/btreestore/internal/store"
	"github.com/scigolib/btreestore/internal/utils"
)

// Type tags a node as a leaf or an internal node. It is a tagged variant,
// not two unrelated record types: the on-disk node_type byte is the tag.
type Type uint8

const (
	// Leaf nodes hold only entries.
	Leaf Type = iota + 1
	// Internal nodes hold entries and one more child address than entry.
	Internal
)

const (
	headerMagic = "BTN"
	headerVer   = 1
	headerSize  = 7 // magic(3) + version(1) + node_type(1) + num_entries(2)
)

// Entry is a single (key, value) byte-string pair stored in a node.
type Entry struct {
	Key   []byte
	Value []byte
}

// Layout captures the tree-wide constants needed to compute a node's fixed
// on-disk footprint: the minimum degree B and the maximum key/value sizes.
// Layout is fixed for the life of a tree.
type Layout struct {
	B            uint32
	MaxKeySize   uint32
	MaxValueSize uint32
}

// Capacity returns 2B-1, the maximum number of entries a node may hold.
func (l Layout) Capacity() int {
	return int(2*l.B - 1)
}

// EntrySlotSize returns the fixed footprint of one entry slot:
// key_len(4) + key(max) + val_len(4) + val(max).
func (l Layout) EntrySlotSize() uint64 {
	return 4 + uint64(l.MaxKeySize) + 4 + uint64(l.MaxValueSize)
}

// NodeSize returns the total number of bytes a node of this layout
// occupies, i.e. the allocation_size the Allocator is configured with.
// Panics if the configured key/value sizes would overflow the
// computation; that is a caller configuration error, not a runtime one.
func (l Layout) NodeSize() uint64 {
	cap64 := uint64(l.Capacity())
	entries, err := utils.SafeMultiply(cap64, l.EntrySlotSize())
	if err != nil {
		panic(fmt.Sprintf("node: layout overflows node size computation: %v", err))
	}
	return headerSize + entries + (cap64+1)*8
}

// Node is an in-memory handle for one on-disk B-tree node.
type Node struct {
	Address  uint64
	Type     Type
	Entries  []Entry
	Children []uint64 // empty for leaves, len(Entries)+1 for internal nodes

	layout Layout
}

// New creates a fresh, unaddressed node of the given type. The caller
// assigns Address (from Allocator.Allocate) before the first Save.
func New(layout Layout, typ Type) *Node {
	return &Node{Type: typ, layout: layout}
}

// IsFull reports whether the node already holds the maximum 2B-1 entries.
func (n *Node) IsFull() bool {
	return len(n.Entries) >= n.layout.Capacity()
}

// IsLeaf reports whether this is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.Type == Leaf
}

// Layout returns the node's fixed layout.
func (n *Node) Layout() Layout {
	return n.layout
}

// FindKeyIndex performs a binary search for key among the node's entries
// using lexicographic byte-string order. If key is present at slot i, it
// returns (i, true). Otherwise it returns (i, false) where i is the
// insertion/descent index: the position key would occupy if inserted, and
// (for an internal node) the index of the child subtree that may contain
// key.
func (n *Node) FindKeyIndex(key []byte) (int, bool) {
	lo, hi := 0, len(n.Entries)
	for lo < hi {
		mid := (lo + hi) / 2
		c := codec.Compare(n.Entries[mid].Key, key)
		switch {
		case c == 0:
			return mid, true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false
}

// Max returns the entry with the maximum key in the subtree rooted at n,
// walking the rightmost child repeatedly down to a leaf.
func Max(s store.Store, layout Layout, n *Node) (Entry, error) {
	cur := n
	for !cur.IsLeaf() {
		child, err := Load(s, cur.Children[len(cur.Children)-1], layout)
		if err != nil {
			return Entry{}, err
		}
		cur = child
	}
	if len(cur.Entries) == 0 {
		panic("node: Max called on a subtree with no entries")
	}
	return cur.Entries[len(cur.Entries)-1], nil
}

// Min returns the entry with the minimum key in the subtree rooted at n,
// walking the leftmost child repeatedly down to a leaf.
func Min(s store.Store, layout Layout, n *Node) (Entry, error) {
	cur := n
	for !cur.IsLeaf() {
		child, err := Load(s, cur.Children[0], layout)
		if err != nil {
			return Entry{}, err
		}
		cur = child
	}
	if len(cur.Entries) == 0 {
		panic("node: Min called on a subtree with no entries")
	}
	return cur.Entries[0], nil
}

// Save validates the node's structural invariants and persists it to addr
// == n.Address. Violations are fatal: they indicate the engine built an
// inconsistent node, which should never happen if the algorithms in this
// package are followed.
func (n *Node) Save(s store.Store) error {
	for i := 1; i < len(n.Entries); i++ {
		if codec.Compare(n.Entries[i-1].Key, n.Entries[i].Key) >= 0 {
			panic(fmt.Sprintf("node: entries not strictly increasing at slot %d (addr %d)", i, n.Address))
		}
	}
	switch n.Type {
	case Leaf:
		if len(n.Children) != 0 {
			panic(fmt.Sprintf("node: leaf node at %d has %d children", n.Address, len(n.Children)))
		}
	case Internal:
		if len(n.Children) != len(n.Entries)+1 {
			panic(fmt.Sprintf("node: internal node at %d has %d entries but %d children", n.Address, len(n.Entries), len(n.Children)))
		}
	default:
		panic(fmt.Sprintf("node: unknown node type %d", n.Type))
	}
	if len(n.Entries) == 0 && len(n.Children) == 0 && n.Type == Internal {
		panic(fmt.Sprintf("node: internal node at %d is simultaneously entry-empty and child-empty", n.Address))
	}

	//nolint:gosec // node sizes are bounded by layout, far below int overflow
	buf := utils.GetBuffer(int(n.layout.NodeSize()))
	defer utils.ReleaseBuffer(buf)
	clear(buf)
	copy(buf[0:3], headerMagic)
	buf[3] = headerVer
	buf[4] = byte(n.Type)
	//nolint:gosec // entry counts are bounded by 2B-1, far below uint16 max
	codec.PutUint16(buf[5:7], uint16(len(n.Entries)))

	slotSize := n.layout.EntrySlotSize()
	off := uint64(headerSize)
	for _, e := range n.Entries {
		//nolint:gosec // key/value lengths are validated against max sizes by the engine
		codec.PutUint32(buf[off:off+4], uint32(len(e.Key)))
		copy(buf[off+4:off+4+uint64(n.layout.MaxKeySize)], e.Key)
		valOff := off + 4 + uint64(n.layout.MaxKeySize)
		//nolint:gosec // see above
		codec.PutUint32(buf[valOff:valOff+4], uint32(len(e.Value)))
		copy(buf[valOff+4:valOff+4+uint64(n.layout.MaxValueSize)], e.Value)
		off += slotSize
	}

	if n.Type == Internal {
		childrenOff := headerSize + uint64(n.layout.Capacity())*slotSize
		for i, addr := range n.Children {
			base := childrenOff + uint64(i)*8
			codec.PutUint64(buf[base:base+8], addr)
		}
	}

	return store.WriteAtGrow(s, n.Address, buf)
}

// Load reads and deserializes the node at addr. Bad magic or an
// unsupported version is fatal: it means the store is corrupted or addr
// does not actually point at a node.
func Load(s store.Store, addr uint64, layout Layout) (*Node, error) {
	buf, err := s.ReadAt(addr, int(layout.NodeSize()))
	if err != nil {
		return nil, err
	}
	if string(buf[0:3]) != headerMagic {
		panic(fmt.Sprintf("node: bad magic at %d: %q", addr, buf[0:3]))
	}
	if buf[3] != headerVer {
		panic(fmt.Sprintf("node: unsupported node version %d at %d", buf[3], addr))
	}
	typ := Type(buf[4])
	numEntries := int(codec.Uint16(buf[5:7]))

	n := &Node{Address: addr, Type: typ, layout: layout}
	n.Entries = make([]Entry, numEntries)

	slotSize := layout.EntrySlotSize()
	off := uint64(headerSize)
	for i := 0; i < numEntries; i++ {
		keyLen := codec.Uint32(buf[off : off+4])
		key := make([]byte, keyLen)
		copy(key, buf[off+4:off+4+uint64(keyLen)])
		valOff := off + 4 + uint64(layout.MaxKeySize)
		valLen := codec.Uint32(buf[valOff : valOff+4])
		val := make([]byte, valLen)
		copy(val, buf[valOff+4:valOff+4+uint64(valLen)])
		n.Entries[i] = Entry{Key: key, Value: val}
		off += slotSize
	}

	if typ == Internal {
		childrenOff := headerSize + uint64(layout.Capacity())*slotSize
		n.Children = make([]uint64, numEntries+1)
		for i := range n.Children {
			base := childrenOff + uint64(i)*8
			n.Children[i] = codec.Uint64(buf[base : base+8])
		}
	}

	return n, nil
}
