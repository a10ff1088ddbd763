package store

import (
	"bytes"
	"sort"

	"github.com/cedoor/sparse-merkle-tree/lib"
)

// enforce the NodeStoreI interface
var _ lib.NodeStoreI = &MemoryNodeStore{}

// MemoryNodeStore is the default node store: a plain map owned by a single tree
type MemoryNodeStore struct {
	nodes map[lib.NodeValue]*lib.NodeRecord
}

// NewMemoryNodeStore() creates an empty map backed node store
func NewMemoryNodeStore() *MemoryNodeStore {
	return &MemoryNodeStore{nodes: make(map[lib.NodeValue]*lib.NodeRecord)}
}

// NewTxn() wraps the store in a discardable batch of writes
func (m *MemoryNodeStore) NewTxn() lib.NodeTxnI { return NewNodeTxn(m) }

// Get() returns the record stored under id or nil
func (m *MemoryNodeStore) Get(id lib.NodeValue) (*lib.NodeRecord, lib.ErrorI) {
	return m.nodes[id], nil
}

// Size() returns the number of records
func (m *MemoryNodeStore) Size() (int, lib.ErrorI) { return len(m.nodes), nil }

// Iterate() visits the records in identifier order
func (m *MemoryNodeStore) Iterate(cb func(id lib.NodeValue, r *lib.NodeRecord) bool) lib.ErrorI {
	ids := make([]lib.NodeValue, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	for _, id := range ids {
		if !cb(id, m.nodes[id]) {
			break
		}
	}
	return nil
}

// Close() releases the map
func (m *MemoryNodeStore) Close() lib.ErrorI {
	m.nodes = make(map[lib.NodeValue]*lib.NodeRecord)
	return nil
}

// applyOps() applies the staged operations; map writes cannot fail
func (m *MemoryNodeStore) applyOps(ops map[lib.NodeValue]op) lib.ErrorI {
	for id, o := range ops {
		if o.delete {
			delete(m.nodes, id)
			continue
		}
		m.nodes[id] = o.record
	}
	return nil
}
