package store

import (
	"strings"

	"github.com/cedoor/sparse-merkle-tree/lib"
	"github.com/cedoor/sparse-merkle-tree/lib/crypto"
)

/*
	The store package holds the compressed sparse Merkle tree and the node stores it is built on.

	1. Node stores: flat maps from node identifier to node record. MemoryNodeStore is a plain
	   go map; BadgerNodeStore keeps the records in an in-memory badger instance fronted by an
	   lru cache. Neither persists anything past the lifetime of the process.

	2. NodeTxn: every tree operation stages its node deletions and insertions in memory and
	   writes them to the node store in one step, after which the new root is published.

	3. SMT: the tree itself, with membership and non-membership proofs.
*/

// New() creates an empty tree using the hash function and the node store backend of the configuration
func New(config lib.Config, metrics *lib.Metrics, log lib.LoggerI) (*SMT, lib.ErrorI) {
	if log == nil {
		log = lib.NewNullLogger()
	}
	hash, e := crypto.NewHashFunc(config.HashFunction)
	if e != nil {
		return nil, lib.ErrUnknownHasher(config.HashFunction)
	}
	nodes, err := NewNodeStore(config.StoreConfig, log)
	if err != nil {
		return nil, err
	}
	tree, err := NewSMT(hash, nodes, metrics, log)
	if err != nil {
		_ = nodes.Close()
		return nil, err
	}
	log.Debugf("Created tree with hash function %s over the %s node store", config.HashFunction, config.Backend)
	return tree, nil
}

// NewNodeStore() opens the node store backend named in the configuration
func NewNodeStore(config lib.StoreConfig, log lib.LoggerI) (lib.NodeStoreI, lib.ErrorI) {
	switch strings.ToLower(config.Backend) {
	case "", lib.MemoryBackend:
		return NewMemoryNodeStore(), nil
	case lib.BadgerBackend:
		nodes, err := NewBadgerNodeStore(config, log)
		if err != nil {
			return nil, err
		}
		return nodes, nil
	default:
		return nil, ErrUnknownBackend(config.Backend)
	}
}
