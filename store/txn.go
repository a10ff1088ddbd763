package store

import (
	"bytes"
	"sort"

	"github.com/cedoor/sparse-merkle-tree/lib"
)

// enforce the NodeTxnI interface
var _ lib.NodeTxnI = &NodeTxn{}

/*
	NodeTxn acts like a database transaction over a node store
	It saves set/del operations in memory and allows the caller to Write() to the parent or Discard()
	When read from, it merges with the parent as if Write() had already been called

	Every tree mutation stages its node changes in a NodeTxn so a failed operation never
	leaves half of a path rewritten.

	CONTRACT:
	- Write() is atomic only as far as the parent's applyOps() is atomic
	- not thread safe
	- the last operation on an identifier wins
*/

type NodeTxn struct {
	parent nodeBackend // node store to Write() to
	ops    map[lib.NodeValue]op
}

// nodeBackend is a node store able to apply a batch of staged operations in a single step
type nodeBackend interface {
	lib.RNodeStoreI
	applyOps(ops map[lib.NodeValue]op) lib.ErrorI
}

// op or Operation has the record portion of the operation and if it's a *delete* or a *set*
type op struct {
	record *lib.NodeRecord // the record to set
	delete bool            // is operation delete
}

// NewNodeTxn() creates a new instance of a NodeTxn with the specified parent store
func NewNodeTxn(parent nodeBackend) *NodeTxn {
	return &NodeTxn{parent: parent, ops: make(map[lib.NodeValue]op)}
}

// Get() retrieves the record for an identifier from either the in-memory operations or the parent store
func (c *NodeTxn) Get(id lib.NodeValue) (*lib.NodeRecord, lib.ErrorI) {
	if v, found := c.ops[id]; found {
		if v.delete {
			return nil, nil
		}
		return v.record, nil
	}
	return c.parent.Get(id)
}

// Set() adds or replaces the record of an identifier in the in-memory operations
func (c *NodeTxn) Set(id lib.NodeValue, r *lib.NodeRecord) lib.ErrorI {
	if r == nil {
		return ErrStoreSet(errNilRecord)
	}
	c.ops[id] = op{record: r}
	return nil
}

// Delete() marks an identifier for deletion in the in-memory operations
func (c *NodeTxn) Delete(id lib.NodeValue) lib.ErrorI {
	c.ops[id] = op{delete: true}
	return nil
}

// Size() returns the number of records the parent would hold after Write()
func (c *NodeTxn) Size() (int, lib.ErrorI) {
	size, err := c.parent.Size()
	if err != nil {
		return 0, err
	}
	for id, o := range c.ops {
		existing, e := c.parent.Get(id)
		if e != nil {
			return 0, e
		}
		switch {
		case o.delete && existing != nil:
			size--
		case !o.delete && existing == nil:
			size++
		}
	}
	return size, nil
}

// Iterate() visits the merged view: parent records not shadowed by an operation, then the staged sets in identifier order
func (c *NodeTxn) Iterate(cb func(id lib.NodeValue, r *lib.NodeRecord) bool) lib.ErrorI {
	stopped := false
	err := c.parent.Iterate(func(id lib.NodeValue, r *lib.NodeRecord) bool {
		if _, shadowed := c.ops[id]; shadowed {
			return true
		}
		if !cb(id, r) {
			stopped = true
			return false
		}
		return true
	})
	if err != nil || stopped {
		return err
	}
	for _, id := range c.sortedSets() {
		if !cb(id, c.ops[id].record) {
			return nil
		}
	}
	return nil
}

// Discard() clears all in-memory operations
func (c *NodeTxn) Discard() { c.ops = make(map[lib.NodeValue]op) }

// Write() flushes the in-memory operations to the parent store and clears in-memory changes
func (c *NodeTxn) Write() (err lib.ErrorI) {
	if len(c.ops) == 0 {
		return
	}
	if err = c.parent.applyOps(c.ops); err != nil {
		return
	}
	c.ops = make(map[lib.NodeValue]op)
	return
}

// sortedSets() returns the identifiers of the staged sets sorted lexicographically
func (c *NodeTxn) sortedSets() (ids []lib.NodeValue) {
	for id, o := range c.ops {
		if !o.delete {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return
}
