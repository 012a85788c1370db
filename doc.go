// Package btreestore implements a persistent B-tree map over a
// byte-addressable, page-growable backing store. Tree topology, node
// contents, free-space bookkeeping, and (optionally) a multi-tenant memory
// partitioner all live inside the store and survive process restarts.
//
// A minimal program creates a store and a tree atop it:
//
//	s := btreestore.NewMemoryStore()
//	tree, err := btreestore.Create(s, 64, 256)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tree.Insert([]byte("k"), []byte("v"))
//
// Several independent trees can share one physical store through a
// MemoryManager, which hands out up to 255 independently growable virtual
// memories:
//
//	mgr, _ := btreestore.NewMemoryManager(s)
//	tree, _ := btreestore.Create(mgr.Memory(0), 64, 256)
package btreestore
