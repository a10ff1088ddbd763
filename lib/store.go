package lib

/* This file contains the persistence interfaces the tree is built on */

// NodeStoreI is a flat map from node identifier to node record
// Every change made by a tree operation is staged in a NodeTxnI and published atomically on Write()
type NodeStoreI interface {
	RNodeStoreI
	NewTxn() NodeTxnI // stage a batch of sets and deletes over the store
	Close() ErrorI    // release the underlying resources
}

// RNodeStoreI defines the read operations of a node store
type RNodeStoreI interface {
	Get(id NodeValue) (*NodeRecord, ErrorI)                   // access the record under id; nil if missing
	Size() (int, ErrorI)                                      // number of records held
	Iterate(cb func(id NodeValue, r *NodeRecord) bool) ErrorI // visit every record until cb returns false
}

// WNodeStoreI defines the write operations of a node store
type WNodeStoreI interface {
	Set(id NodeValue, r *NodeRecord) ErrorI // set the record referenced by id
	Delete(id NodeValue) ErrorI             // remove the record referenced by id; a no-op if missing
}

// NodeTxnI is a discardable batch of writes; reads see the staged writes layered over the parent
type NodeTxnI interface {
	RNodeStoreI
	WNodeStoreI
	Write() ErrorI // publish every staged write to the parent in one step
	Discard()      // drop every staged write
}
