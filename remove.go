package btreestore

import (
	"fmt"

	"github.com/scigolib/btreestore/internal/node"
)

// Remove unbinds key, returning the value it held (and true), or
// (nil, false) if key was absent.
func (t *Tree) Remove(key []byte) ([]byte, bool, error) {
	if t.root == NullAddr {
		return nil, false, nil
	}
	root := t.mustLoadNode(t.root)
	prev, found, err := t.removeHelper(root, key)
	if err != nil || !found {
		return prev, found, err
	}
	t.length--
	if err := t.persistHeader(); err != nil {
		return nil, false, err
	}
	return prev, true, nil
}

// removeHelper removes key from the subtree rooted at n. Every non-root
// child it descends into is rebalanced beforehand to hold at least B
// entries, so the removal never has to back up and fix an ancestor.
func (t *Tree) removeHelper(n *node.Node, key []byte) ([]byte, bool, error) {
	idx, found := n.FindKeyIndex(key)

	if n.IsLeaf() {
		if !found {
			return nil, false, nil
		}
		prev := n.Entries[idx].Value
		n.Entries = append(n.Entries[:idx], n.Entries[idx+1:]...)
		if len(n.Entries) == 0 {
			if n.Address != t.root {
				panic("btreestore: non-root leaf became empty")
			}
			t.root = NullAddr
			if err := t.persistHeader(); err != nil {
				return nil, false, err
			}
			if err := t.alloc.Deallocate(n.Address); err != nil {
				return nil, false, err
			}
			return prev, true, nil
		}
		if err := n.Save(t.s); err != nil {
			return nil, false, err
		}
		return prev, true, nil
	}

	if found {
		return t.removeFromInternalFound(n, idx, key)
	}
	return t.removeDescending(n, idx, key)
}

// removeFromInternalFound handles key found at n.Entries[idx] of an
// internal node: replace it with its predecessor or successor (whichever
// sibling can spare an entry without violating the minimum-degree
// invariant), or merge the two children around it.
func (t *Tree) removeFromInternalFound(n *node.Node, idx int, key []byte) ([]byte, bool, error) {
	origValue := append([]byte(nil), n.Entries[idx].Value...)
	b := int(t.layout.B)

	left := t.mustLoadNode(n.Children[idx])
	right := t.mustLoadNode(n.Children[idx+1])

	switch {
	case len(left.Entries) >= b:
		pred, err := node.Max(t.s, t.layout, left)
		if err != nil {
			panic(fmt.Sprintf("btreestore: loading predecessor: %v", err))
		}
		if _, _, err := t.removeHelper(left, pred.Key); err != nil {
			return nil, false, err
		}
		n.Entries[idx] = node.Entry{
			Key:   append([]byte(nil), pred.Key...),
			Value: append([]byte(nil), pred.Value...),
		}
		if err := n.Save(t.s); err != nil {
			return nil, false, err
		}
		return origValue, true, nil

	case len(right.Entries) >= b:
		succ, err := node.Min(t.s, t.layout, right)
		if err != nil {
			panic(fmt.Sprintf("btreestore: loading successor: %v", err))
		}
		if _, _, err := t.removeHelper(right, succ.Key); err != nil {
			return nil, false, err
		}
		n.Entries[idx] = node.Entry{
			Key:   append([]byte(nil), succ.Key...),
			Value: append([]byte(nil), succ.Value...),
		}
		if err := n.Save(t.s); err != nil {
			return nil, false, err
		}
		return origValue, true, nil

	default:
		merged, err := t.mergeNodes(left, right, n.Entries[idx])
		if err != nil {
			return nil, false, err
		}
		n.Entries = append(n.Entries[:idx], n.Entries[idx+1:]...)
		n.Children = append(n.Children[:idx+1], n.Children[idx+2:]...)
		if err := t.collapseOrSave(n, merged); err != nil {
			return nil, false, err
		}
		if _, _, err := t.removeHelper(merged, key); err != nil {
			return nil, false, err
		}
		return origValue, true, nil
	}
}

// collapseOrSave persists n after a merge removed one of its entries. If n
// is now empty, it must have been the root (merges only happen inside
// internal nodes with at least one remaining entry otherwise); replaced
// becomes the new root. The new root pointer is persisted before n's chunk
// is freed, so a crash between the two writes never leaves the header
// pointing at a deallocated chunk.
func (t *Tree) collapseOrSave(n, replaced *node.Node) error {
	if len(n.Entries) > 0 {
		return n.Save(t.s)
	}
	if n.Address != t.root {
		panic("btreestore: non-root internal node became empty on merge")
	}
	t.root = replaced.Address
	if err := t.persistHeader(); err != nil {
		return err
	}
	return t.alloc.Deallocate(n.Address)
}

// mergeNodes folds right and median into left, frees right's chunk, and
// persists left. It is used both when an internal node's found key is
// removed by collapsing its two children, and when rebalancing a
// not-found descent merges a deficient child with a sibling.
func (t *Tree) mergeNodes(left, right *node.Node, median node.Entry) (*node.Node, error) {
	left.Entries = append(left.Entries, median)
	left.Entries = append(left.Entries, right.Entries...)
	if left.Type == node.Internal {
		left.Children = append(left.Children, right.Children...)
	}
	if err := left.Save(t.s); err != nil {
		return nil, err
	}
	if err := t.alloc.Deallocate(right.Address); err != nil {
		return nil, err
	}
	return left, nil
}

// removeDescending handles key not found at n: n.Children[idx] is the
// subtree that may contain it. If that child holds fewer than B entries,
// it is rebalanced first by borrowing from a sibling or merging with one,
// so the recursive call always descends into a child with at least B
// entries.
func (t *Tree) removeDescending(n *node.Node, idx int, key []byte) ([]byte, bool, error) {
	c := t.mustLoadNode(n.Children[idx])
	b := int(t.layout.B)

	if len(c.Entries) >= b {
		return t.removeHelper(c, key)
	}

	leftExists := idx > 0
	rightExists := idx < len(n.Children)-1

	var left, right *node.Node
	if leftExists {
		left = t.mustLoadNode(n.Children[idx-1])
	}
	if rightExists {
		right = t.mustLoadNode(n.Children[idx+1])
	}

	switch {
	case leftExists && len(left.Entries) >= b:
		borrowed := left.Entries[len(left.Entries)-1]
		left.Entries = left.Entries[:len(left.Entries)-1]
		sep := n.Entries[idx-1]
		n.Entries[idx-1] = borrowed
		c.Entries = append([]node.Entry{sep}, c.Entries...)
		if c.Type == node.Internal {
			borrowedChild := left.Children[len(left.Children)-1]
			left.Children = left.Children[:len(left.Children)-1]
			c.Children = append([]uint64{borrowedChild}, c.Children...)
		}
		if err := left.Save(t.s); err != nil {
			return nil, false, err
		}
		if err := c.Save(t.s); err != nil {
			return nil, false, err
		}
		if err := n.Save(t.s); err != nil {
			return nil, false, err
		}

	case rightExists && len(right.Entries) >= b:
		borrowed := right.Entries[0]
		right.Entries = right.Entries[1:]
		sep := n.Entries[idx]
		n.Entries[idx] = borrowed
		c.Entries = append(c.Entries, sep)
		if c.Type == node.Internal {
			borrowedChild := right.Children[0]
			right.Children = right.Children[1:]
			c.Children = append(c.Children, borrowedChild)
		}
		if err := right.Save(t.s); err != nil {
			return nil, false, err
		}
		if err := c.Save(t.s); err != nil {
			return nil, false, err
		}
		if err := n.Save(t.s); err != nil {
			return nil, false, err
		}

	case leftExists:
		merged, err := t.mergeNodes(left, c, n.Entries[idx-1])
		if err != nil {
			return nil, false, err
		}
		n.Entries = append(n.Entries[:idx-1], n.Entries[idx:]...)
		n.Children = append(n.Children[:idx], n.Children[idx+1:]...)
		if err := t.collapseOrSave(n, merged); err != nil {
			return nil, false, err
		}
		c = merged

	case rightExists:
		merged, err := t.mergeNodes(c, right, n.Entries[idx])
		if err != nil {
			return nil, false, err
		}
		n.Entries = append(n.Entries[:idx], n.Entries[idx+1:]...)
		n.Children = append(n.Children[:idx+1], n.Children[idx+2:]...)
		if err := t.collapseOrSave(n, merged); err != nil {
			return nil, false, err
		}
		c = merged

	default:
		panic("btreestore: internal node has no sibling to rebalance with")
	}

	return t.removeHelper(c, key)
}
