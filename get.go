package btreestore

// Get returns the value bound to key and true, or (nil, false) if key is
// absent.
func (t *Tree) Get(key []byte) ([]byte, bool) {
	if t.root == NullAddr {
		return nil, false
	}
	n := t.mustLoadNode(t.root)
	for {
		idx, found := n.FindKeyIndex(key)
		if found {
			return n.Entries[idx].Value, true
		}
		if n.IsLeaf() {
			return nil, false
		}
		n = t.mustLoadNode(n.Children[idx])
	}
}

// ContainsKey reports whether key is bound in the tree.
func (t *Tree) ContainsKey(key []byte) bool {
	_, ok := t.Get(key)
	return ok
}
