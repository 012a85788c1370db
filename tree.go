package btreestore

import (
	"fmt"

	"github.com/scigolib/btreestore/internal/alloc"
	"github.com/scigolib/btreestore/internal/codec"
	"github.com/scigolib/btreestore/internal/node"
	"github.com/scigolib/btreestore/internal/store"
)

// MinDegree is the B-tree's fixed minimum degree. Every non-root node
// holds between MinDegree-1 and 2*MinDegree-1 entries. It is not persisted
// per tree (the on-disk header has no field for it): every tree created by
// this package uses the same minimum degree, matching the source library's
// fixed B=6.
const MinDegree = 6

// NullAddr is the sentinel address meaning "no such node"; it denotes an
// empty tree's root.
const NullAddr uint64 = 0

const (
	treeHeaderMagic = "BTR"
	treeHeaderVer   = 1
	treeHeaderSize  = 52 // magic(3)+version(1)+maxKey(4)+maxVal(4)+root(8)+length(8)+reserved(24)
	allocatorBase   = treeHeaderSize
)

// Tree is an ordered key-value map persisted entirely inside a Store: its
// topology, node contents, and free-space bookkeeping all live on the
// Store and survive process restarts.
type Tree struct {
	s      store.Store
	layout node.Layout
	root   uint64
	length uint64
	alloc  *alloc.Allocator
}

// Create initializes a fresh, empty tree on s. maxKeySize and maxValueSize
// bound every key/value Insert will accept for the life of the tree.
func Create(s store.Store, maxKeySize, maxValueSize uint32) (*Tree, error) {
	layout := node.Layout{B: MinDegree, MaxKeySize: maxKeySize, MaxValueSize: maxValueSize}
	a, err := alloc.Create(s, allocatorBase, layout.NodeSize())
	if err != nil {
		return nil, err
	}
	t := &Tree{s: s, layout: layout, root: NullAddr, length: 0, alloc: a}
	if err := t.persistHeader(); err != nil {
		return nil, err
	}
	return t, nil
}

// Load reconstructs a tree handle from a store previously initialized by
// Create. A bad magic or unsupported version is fatal: it means s was
// never a tree, or was written by an incompatible version.
func Load(s store.Store) (*Tree, error) {
	buf, err := s.ReadAt(0, treeHeaderSize)
	if err != nil {
		return nil, err
	}
	if string(buf[0:3]) != treeHeaderMagic {
		panic(fmt.Sprintf("btreestore: bad magic %q", buf[0:3]))
	}
	if buf[3] != treeHeaderVer {
		panic(fmt.Sprintf("btreestore: unsupported tree version %d", buf[3]))
	}
	layout := node.Layout{
		B:            MinDegree,
		MaxKeySize:   codec.Uint32(buf[4:8]),
		MaxValueSize: codec.Uint32(buf[8:12]),
	}
	root := codec.Uint64(buf[12:20])
	length := codec.Uint64(buf[20:28])
	a := alloc.Load(s, allocatorBase, layout.NodeSize())
	return &Tree{s: s, layout: layout, root: root, length: length, alloc: a}, nil
}

func (t *Tree) persistHeader() error {
	buf := make([]byte, treeHeaderSize)
	copy(buf[0:3], treeHeaderMagic)
	buf[3] = treeHeaderVer
	codec.PutUint32(buf[4:8], t.layout.MaxKeySize)
	codec.PutUint32(buf[8:12], t.layout.MaxValueSize)
	codec.PutUint64(buf[12:20], t.root)
	codec.PutUint64(buf[20:28], t.length)
	return store.WriteAtGrow(t.s, 0, buf)
}

// Len returns the number of distinct keys currently bound in the tree.
func (t *Tree) Len() uint64 { return t.length }

// IsEmpty reports whether the tree holds no keys.
func (t *Tree) IsEmpty() bool { return t.length == 0 }

func (t *Tree) loadNode(addr uint64) (*node.Node, error) {
	return node.Load(t.s, addr, t.layout)
}

// mustLoadNode loads a node and panics on failure. Used on every engine
// path (Get, Insert, Remove, iteration, Stats), where a load failure can
// only mean store corruption.
func (t *Tree) mustLoadNode(addr uint64) *node.Node {
	n, err := t.loadNode(addr)
	if err != nil {
		panic(fmt.Sprintf("btreestore: loading node at %d: %v", addr, err))
	}
	return n
}

func (t *Tree) newNode(typ node.Type) (*node.Node, error) {
	addr, err := t.alloc.Allocate()
	if err != nil {
		return nil, err
	}
	n := node.New(t.layout, typ)
	n.Address = addr
	return n, nil
}
