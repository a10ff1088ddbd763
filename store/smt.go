package store

import (
	"fmt"
	"time"

	"github.com/cedoor/sparse-merkle-tree/lib"
	"github.com/cedoor/sparse-merkle-tree/lib/crypto"
)

// =====================================================
// SMT: A compressed sparse Merkle tree
// =====================================================
//
// 1. The tree addresses 2^256 leaves: the path of a key is its bits
//    read from the least significant one, 0 = left and 1 = right.
// 2. Empty subtrees are ZERO and never stored.
// 3. A subtree holding a single entry collapses into that entry's leaf,
//    so a leaf sits at the depth where its key first diverges from
//    every other key.
// 4. Leaves hash as H(key, value, 1) and internal nodes as H(left, right).
//
// -----------------------------------------------------
// Variables:
// -----------------------------------------------------
// - Sidenodes: the siblings met while descending, shallow to deep.
// - Anchor: the leaf found in place of the sought key, if any.
// - Path_Bit: the bit of the key at the current depth.
//
// -----------------------------------------------------
// 1) Walk: descend from the root along the key's path.
// -----------------------------------------------------
// - Stop at ZERO: the key is absent.
// - Stop at a leaf: the key is present if the leaf's key matches,
//   otherwise the leaf is the 'matching entry' occupying the slot.
// - At an internal node: record the sibling and follow the Path_Bit.
//
// -----------------------------------------------------
// 2.a) Add
// -----------------------------------------------------
// - Delete the internal nodes above the slot: starting from ZERO at the
//   deepest level, or from the Anchor at the deepest non-ZERO sidenode.
// - With an Anchor, pad the sidenodes with ZERO while both keys share
//   the Path_Bit, then append the Anchor.
// - Store the new leaf and rehash up to the root.
//
// -----------------------------------------------------
// 2.b) Update
// -----------------------------------------------------
// - Delete the old leaf and every internal node above it, store the
//   new leaf and rehash along the same sidenodes.
//
// -----------------------------------------------------
// 2.c) Delete
// -----------------------------------------------------
// - Delete the leaf and every internal node above it.
// - If the deepest sidenode is a leaf, it is promoted: it replaces its
//   parent and climbs past the ZERO padding up to the deepest non-ZERO
//   sidenode before rehashing.
// - Otherwise the slot becomes ZERO and the path is rehashed.
//
// -----------------------------------------------------
// 3) Rehash: from a node at depth i+1 up to the root.
// -----------------------------------------------------
// - LOOP from i down to 0:
//   - If Path_Bit = 0: node = H(node, sidenodes[i]).
//   - If Path_Bit = 1: node = H(sidenodes[i], node).
//   - Store (or delete) node.
//
// =====================================================

// operation names used for logging and telemetry
const (
	opAdd    = "add"
	opUpdate = "update"
	opDelete = "delete"
	opGet    = "get"
	opProof  = "proof"
)

type SMT struct {
	// root: the current root, ZERO when the tree is empty
	root lib.NodeValue
	// nodes: the node store, exclusively owned by this tree
	nodes lib.NodeStoreI
	// hasher: the node hashing scheme built over the pluggable hash function
	hasher hasher
	// metrics: optional telemetry
	metrics *lib.Metrics
	// log: the logger
	log lib.LoggerI
}

// walk is the result of descending the tree along a key's path
type walk struct {
	// entry: the sought key, with its value if the key is present
	entry lib.Entry
	// matching: the leaf found in place of the sought key
	matching *lib.Entry
	// sidenodes: the siblings along the path, shallow to deep
	sidenodes []lib.NodeValue
}

// NewSMT() creates an empty tree over a hash function and an empty node store
// A nil node store defaults to a MemoryNodeStore; metrics are optional
func NewSMT(hash crypto.HashFunc, nodes lib.NodeStoreI, metrics *lib.Metrics, log lib.LoggerI) (*SMT, lib.ErrorI) {
	if err := checkHashFunc(hash); err != nil {
		return nil, err
	}
	if log == nil {
		log = lib.NewNullLogger()
	}
	if nodes == nil {
		nodes = NewMemoryNodeStore()
	}
	size, err := nodes.Size()
	if err != nil {
		return nil, err
	}
	if size != 0 {
		return nil, ErrNonEmptyStore(size)
	}
	metrics.UpdateStoredNodes(0)
	return &SMT{nodes: nodes, hasher: hasher{hash: hash}, metrics: metrics, log: log}, nil
}

// Root() returns the root of the tree, ZERO if empty
func (s *SMT) Root() lib.NodeValue { return s.root }

// Get() returns the value stored under key or nil if the key is absent
func (s *SMT) Get(key lib.NodeValue) (value *lib.NodeValue, err lib.ErrorI) {
	defer s.track(opGet, time.Now(), &err)
	w, err := s.retrieveEntry(key)
	if err != nil {
		return nil, err
	}
	return w.entry.Value, nil
}

// Add() inserts a new entry; fails with KeyExists if the key is present
func (s *SMT) Add(key, value lib.NodeValue) (err lib.ErrorI) {
	defer s.track(opAdd, time.Now(), &err)
	w, err := s.retrieveEntry(key)
	if err != nil {
		return
	}
	if w.entry.HasValue() {
		return ErrKeyExists(key)
	}
	txn, path, sidenodes := s.nodes.NewTxn(), keyToPath(key), w.sidenodes
	// the anchor is the leaf currently occupying the key's slot
	anchor, start := lib.ZeroNode, len(sidenodes)-1
	if w.matching != nil {
		anchor = s.hasher.leaf(w.matching.Key, *w.matching.Value)
		start = lastNonZeroIndex(sidenodes)
	}
	if err = s.deleteOldNodes(txn, anchor, path, sidenodes, start); err != nil {
		return
	}
	if w.matching != nil {
		// push the anchor down to the depth where both keys diverge
		matchingPath := keyToPath(w.matching.Key)
		for i := len(sidenodes); i < PathLength && matchingPath[i] == path[i]; i++ {
			sidenodes = append(sidenodes, lib.ZeroNode)
		}
		sidenodes = append(sidenodes, anchor)
	}
	leaf := s.hasher.leaf(key, value)
	if err = txn.Set(leaf, lib.NewLeafRecord(key, value)); err != nil {
		return
	}
	root, err := s.insertNewNodes(txn, leaf, path, sidenodes, len(sidenodes)-1)
	if err != nil {
		return
	}
	s.log.Debugf("Added key %s at depth %d", key, len(sidenodes))
	return s.commit(txn, root)
}

// Update() replaces the value of an existing entry; fails with KeyNotFound if the key is absent
func (s *SMT) Update(key, value lib.NodeValue) (err lib.ErrorI) {
	defer s.track(opUpdate, time.Now(), &err)
	w, err := s.retrieveEntry(key)
	if err != nil {
		return
	}
	if !w.entry.HasValue() {
		return ErrKeyNotFound(key)
	}
	txn, path := s.nodes.NewTxn(), keyToPath(key)
	oldLeaf := s.hasher.leaf(key, *w.entry.Value)
	if err = txn.Delete(oldLeaf); err != nil {
		return
	}
	if err = s.deleteOldNodes(txn, oldLeaf, path, w.sidenodes, len(w.sidenodes)-1); err != nil {
		return
	}
	newLeaf := s.hasher.leaf(key, value)
	if err = txn.Set(newLeaf, lib.NewLeafRecord(key, value)); err != nil {
		return
	}
	root, err := s.insertNewNodes(txn, newLeaf, path, w.sidenodes, len(w.sidenodes)-1)
	if err != nil {
		return
	}
	s.log.Debugf("Updated key %s", key)
	return s.commit(txn, root)
}

// Delete() removes an existing entry; fails with KeyNotFound if the key is absent
func (s *SMT) Delete(key lib.NodeValue) (err lib.ErrorI) {
	defer s.track(opDelete, time.Now(), &err)
	w, err := s.retrieveEntry(key)
	if err != nil {
		return
	}
	if !w.entry.HasValue() {
		return ErrKeyNotFound(key)
	}
	txn, path, sidenodes := s.nodes.NewTxn(), keyToPath(key), w.sidenodes
	oldLeaf := s.hasher.leaf(key, *w.entry.Value)
	if err = txn.Delete(oldLeaf); err != nil {
		return
	}
	// the last entry leaves an empty tree
	root := lib.ZeroNode
	if len(sidenodes) != 0 {
		if err = s.deleteOldNodes(txn, oldLeaf, path, sidenodes, len(sidenodes)-1); err != nil {
			return
		}
		sibling, e := s.getSibling(txn, sidenodes[len(sidenodes)-1])
		if e != nil {
			return e
		}
		if sibling != nil && sibling.IsLeaf {
			// the sibling leaf is now alone in its subtree: collapse it upward past the ZERO padding
			promoted := sidenodes[len(sidenodes)-1]
			sidenodes = sidenodes[:len(sidenodes)-1]
			root, err = s.insertNewNodes(txn, promoted, path, sidenodes, lastNonZeroIndex(sidenodes))
		} else {
			root, err = s.insertNewNodes(txn, lib.ZeroNode, path, sidenodes, len(sidenodes)-1)
		}
		if err != nil {
			return
		}
	}
	s.log.Debugf("Deleted key %s", key)
	return s.commit(txn, root)
}

// Size() returns the number of records in the node store
func (s *SMT) Size() (int, lib.ErrorI) { return s.nodes.Size() }

// Entries() visits every entry of the tree in leaf identifier order until cb returns false
func (s *SMT) Entries(cb func(key, value lib.NodeValue) bool) lib.ErrorI {
	return s.nodes.Iterate(func(_ lib.NodeValue, r *lib.NodeRecord) bool {
		if !r.IsLeaf {
			return true
		}
		return cb(r.Key, r.Value)
	})
}

// Validate() walks the whole tree and ensures the node store holds exactly the nodes reachable from the root
func (s *SMT) Validate() lib.ErrorI {
	reachable, err := s.validateSubtree(s.root, 0, nil)
	if err != nil {
		return err
	}
	size, err := s.nodes.Size()
	if err != nil {
		return err
	}
	if size != reachable {
		return ErrInvalidMerkleTree(fmt.Sprintf("%d records stored but %d reachable from the root", size, reachable))
	}
	return nil
}

// Close() releases the node store
func (s *SMT) Close() lib.ErrorI { return s.nodes.Close() }

// retrieveEntry() walks from the root along the path of key
func (s *SMT) retrieveEntry(key lib.NodeValue) (*walk, lib.ErrorI) {
	w, node := &walk{entry: lib.Entry{Key: key}}, s.root
	for depth := 0; !node.IsZero(); depth++ {
		record, err := s.nodes.Get(node)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, ErrMissingNodeEntry(node)
		}
		if record.IsLeaf {
			if record.Key == key {
				value := record.Value
				w.entry.Value = &value
			} else {
				w.matching = lib.NewEntry(record.Key, record.Value)
			}
			return w, nil
		}
		if depth == PathLength {
			return nil, ErrInvalidMerkleTree(fmt.Sprintf("internal node %s below the maximum depth", node))
		}
		if key.Bit(depth) == 1 {
			w.sidenodes, node = append(w.sidenodes, record.Left), record.Right
		} else {
			w.sidenodes, node = append(w.sidenodes, record.Right), record.Left
		}
	}
	return w, nil
}

// insertNewNodes() rehashes from node up to the root, storing every internal node, starting at sidenodes[i]
func (s *SMT) insertNewNodes(txn lib.NodeTxnI, node lib.NodeValue, path []uint8, sidenodes []lib.NodeValue, i int) (lib.NodeValue, lib.ErrorI) {
	for ; i >= 0; i-- {
		left, right := s.children(node, path[i], sidenodes[i])
		node = s.hasher.internal(left, right)
		if err := txn.Set(node, lib.NewInternalRecord(left, right)); err != nil {
			return lib.ZeroNode, err
		}
	}
	return node, nil
}

// deleteOldNodes() rehashes from node up to the root, deleting every internal node, starting at sidenodes[i]
func (s *SMT) deleteOldNodes(txn lib.NodeTxnI, node lib.NodeValue, path []uint8, sidenodes []lib.NodeValue, i int) lib.ErrorI {
	for ; i >= 0; i-- {
		node = s.hasher.internal(s.children(node, path[i], sidenodes[i]))
		if err := txn.Delete(node); err != nil {
			return err
		}
	}
	return nil
}

// children() orders a node and its sibling by the path bit
func (s *SMT) children(node lib.NodeValue, pathBit uint8, sibling lib.NodeValue) (left, right lib.NodeValue) {
	if pathBit == 1 {
		return sibling, node
	}
	return node, sibling
}

// getSibling() loads the record of a sidenode; ZERO has no record
func (s *SMT) getSibling(txn lib.NodeTxnI, id lib.NodeValue) (*lib.NodeRecord, lib.ErrorI) {
	if id.IsZero() {
		return nil, nil
	}
	record, err := txn.Get(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrMissingNodeEntry(id)
	}
	return record, nil
}

// commit() publishes the staged node changes and only then the new root
func (s *SMT) commit(txn lib.NodeTxnI, root lib.NodeValue) lib.ErrorI {
	if err := txn.Write(); err != nil {
		txn.Discard()
		s.log.Errorf("Node store write failed, root kept at %s: %s", s.root, err.Error())
		return err
	}
	s.root = root
	if s.metrics != nil {
		if size, err := s.nodes.Size(); err == nil {
			s.metrics.UpdateStoredNodes(size)
		}
	}
	return nil
}

// validateSubtree() checks the subtree under node and returns the number of records it spans
func (s *SMT) validateSubtree(node lib.NodeValue, depth int, prefix []uint8) (int, lib.ErrorI) {
	if node.IsZero() {
		return 0, nil
	}
	record, err := s.nodes.Get(node)
	if err != nil {
		return 0, err
	}
	if record == nil {
		return 0, ErrMissingNodeEntry(node)
	}
	if record.IsLeaf {
		if s.hasher.leaf(record.Key, record.Value) != node {
			return 0, ErrInvalidMerkleTree(fmt.Sprintf("leaf %s does not hash to its identifier", node))
		}
		for i, bit := range prefix {
			if record.Key.Bit(i) != bit {
				return 0, ErrInvalidMerkleTree(fmt.Sprintf("leaf %s is off its key's path", node))
			}
		}
		return 1, nil
	}
	if depth == PathLength || s.hasher.internal(record.Left, record.Right) != node {
		return 0, ErrInvalidMerkleTree(fmt.Sprintf("internal node %s is malformed", node))
	}
	if record.Left.IsZero() && record.Right.IsZero() {
		return 0, ErrInvalidMerkleTree(fmt.Sprintf("internal node %s has no children", node))
	}
	left, err := s.validateSubtree(record.Left, depth+1, append(prefix[:depth:depth], 0))
	if err != nil {
		return 0, err
	}
	right, err := s.validateSubtree(record.Right, depth+1, append(prefix[:depth:depth], 1))
	if err != nil {
		return 0, err
	}
	return 1 + left + right, nil
}

// track() records the outcome of an operation in the telemetry
func (s *SMT) track(operation string, start time.Time, err *lib.ErrorI) {
	var e error
	if *err != nil {
		e = *err
	}
	s.metrics.UpdateSMTMetrics(operation, e, time.Since(start))
}

// hasher builds node identifiers from the pluggable hash function
type hasher struct {
	hash crypto.HashFunc
}

// leaf() returns H(key, value, 1)
func (h hasher) leaf(key, value lib.NodeValue) lib.NodeValue {
	return h.digest(key[:], value[:], lib.LeafMarker[:])
}

// internal() returns H(left, right)
func (h hasher) internal(left, right lib.NodeValue) lib.NodeValue {
	return h.digest(left[:], right[:])
}

func (h hasher) digest(inputs ...[]byte) (n lib.NodeValue) {
	copy(n[:], h.hash(inputs...))
	return
}

// checkHashFunc() rejects hash functions the tree cannot be built on
func checkHashFunc(hash crypto.HashFunc) (err lib.ErrorI) {
	if hash == nil {
		return ErrConfiguration("hash function is nil")
	}
	defer func() {
		if r := recover(); r != nil {
			err = ErrConfiguration(fmt.Sprintf("hash function panicked: %v", r))
		}
	}()
	a, b := lib.NewNodeValueFromUint64(1), lib.NewNodeValueFromUint64(2)
	leaf, internal := hash(a[:], b[:], lib.LeafMarker[:]), hash(a[:], b[:])
	for _, out := range [][]byte{leaf, internal} {
		if len(out) != lib.NodeValueSize {
			return ErrConfiguration(fmt.Sprintf("hash output is %d bytes, expected %d", len(out), lib.NodeValueSize))
		}
	}
	if string(hash(a[:], b[:], lib.LeafMarker[:])) != string(leaf) || string(hash(a[:], b[:])) != string(internal) {
		return ErrConfiguration("hash function is not deterministic")
	}
	if string(leaf) == string(internal) {
		return ErrConfiguration("leaf and internal node hashes collide")
	}
	return nil
}
