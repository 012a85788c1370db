package btreestore

import "github.com/scigolib/btreestore/internal/node"

// Insert binds key to value, returning the value it previously held (and
// true) if key was already present, or (nil, false) if key is new.
//
// Insert fails with *KeyTooLarge or *ValueTooLarge, leaving the tree
// unchanged, when key or value exceeds the sizes fixed at Create. It can
// also fail if the backing store refuses to grow; the tree is left in a
// consistent (if not fully updated) state in that case.
func (t *Tree) Insert(key, value []byte) ([]byte, bool, error) {
	if len(key) > int(t.layout.MaxKeySize) {
		return nil, false, &KeyTooLarge{Given: uint32(len(key)), Max: t.layout.MaxKeySize}
	}
	if len(value) > int(t.layout.MaxValueSize) {
		return nil, false, &ValueTooLarge{Given: uint32(len(value)), Max: t.layout.MaxValueSize}
	}

	if t.root == NullAddr {
		leaf, err := t.newNode(node.Leaf)
		if err != nil {
			return nil, false, err
		}
		if err := leaf.Save(t.s); err != nil {
			return nil, false, err
		}
		t.root = leaf.Address
	}

	root := t.mustLoadNode(t.root)

	if root.IsFull() {
		if _, found := root.FindKeyIndex(key); !found {
			newRoot, err := t.newNode(node.Internal)
			if err != nil {
				return nil, false, err
			}
			newRoot.Children = []uint64{root.Address}
			if err := t.splitChild(newRoot, 0); err != nil {
				return nil, false, err
			}
			t.root = newRoot.Address
			root = newRoot
		}
	}

	prev, hadPrev, err := t.insertNonFull(root, key, value)
	if err != nil {
		return nil, false, err
	}
	if !hadPrev {
		t.length++
	}
	if err := t.persistHeader(); err != nil {
		return nil, false, err
	}
	return prev, hadPrev, nil
}

// insertNonFull inserts key/value into the subtree rooted at n, where n is
// guaranteed not full. It returns the previous value bound to key, if any.
func (t *Tree) insertNonFull(n *node.Node, key, value []byte) ([]byte, bool, error) {
	idx, found := n.FindKeyIndex(key)
	if found {
		prev := n.Entries[idx].Value
		n.Entries[idx].Value = append([]byte(nil), value...)
		if err := n.Save(t.s); err != nil {
			return nil, false, err
		}
		return prev, true, nil
	}

	if n.IsLeaf() {
		entry := node.Entry{Key: append([]byte(nil), key...), Value: append([]byte(nil), value...)}
		n.Entries = append(n.Entries, node.Entry{})
		copy(n.Entries[idx+1:], n.Entries[idx:])
		n.Entries[idx] = entry
		if err := n.Save(t.s); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	child := t.mustLoadNode(n.Children[idx])

	if child.IsFull() {
		if _, found := child.FindKeyIndex(key); !found {
			if err := t.splitChild(n, idx); err != nil {
				return nil, false, err
			}
			idx, _ = n.FindKeyIndex(key)
			child = t.mustLoadNode(n.Children[idx])
		}
	}

	return t.insertNonFull(child, key, value)
}

// splitChild splits the full child at parent.Children[i] into two nodes,
// promoting its median entry into parent at index i. parent must not
// itself be full.
func (t *Tree) splitChild(parent *node.Node, i int) error {
	full := t.mustLoadNode(parent.Children[i])

	sibling, err := t.newNode(full.Type)
	if err != nil {
		return err
	}

	b := t.layout.B
	median := full.Entries[b-1]

	sibling.Entries = append(sibling.Entries, full.Entries[b:]...)
	full.Entries = full.Entries[:b-1]

	if full.Type == node.Internal {
		sibling.Children = append(sibling.Children, full.Children[b:]...)
		full.Children = full.Children[:b]
	}

	parent.Children = append(parent.Children, 0)
	copy(parent.Children[i+2:], parent.Children[i+1:])
	parent.Children[i+1] = sibling.Address

	parent.Entries = append(parent.Entries, node.Entry{})
	copy(parent.Entries[i+1:], parent.Entries[i:])
	parent.Entries[i] = median

	if err := full.Save(t.s); err != nil {
		return err
	}
	if err := sibling.Save(t.s); err != nil {
		return err
	}
	return parent.Save(t.s)
}
