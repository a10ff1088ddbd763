package store

import (
	"errors"

	"github.com/cedoor/sparse-merkle-tree/lib"
	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
)

// enforce the NodeStoreI interface
var _ lib.NodeStoreI = &BadgerNodeStore{}

// nodePrefix namespaces the node records within the database
var nodePrefix = []byte("n/")

/*
	BadgerNodeStore keeps the node records in an in-memory badger instance fronted by an lru cache

	- Nothing is ever written to disk: the tree lives for the lifetime of the process
	- A staged NodeTxn is written in a single badger transaction, so a failing Write() leaves
	  the store untouched
	- The record count is maintained on write to keep Size() constant time
*/
type BadgerNodeStore struct {
	db    *badger.DB
	cache *lru.Cache[lib.NodeValue, *lib.NodeRecord]
	count int
	log   lib.LoggerI
}

// NewBadgerNodeStore() opens an in-memory badger database with the store configuration
func NewBadgerNodeStore(config lib.StoreConfig, log lib.LoggerI) (*BadgerNodeStore, lib.ErrorI) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR)
	if config.MemTableSize > 0 {
		opts = opts.WithMemTableSize(config.MemTableSize)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, ErrOpenDB(err)
	}
	cacheSize := config.CacheSize
	if cacheSize <= 0 {
		cacheSize = lib.DefaultStoreConfig().CacheSize
	}
	cache, err := lru.New[lib.NodeValue, *lib.NodeRecord](cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, ErrNewCache(err)
	}
	if log == nil {
		log = lib.NewNullLogger()
	}
	return &BadgerNodeStore{db: db, cache: cache, log: log}, nil
}

// NewTxn() wraps the store in a discardable batch of writes
func (b *BadgerNodeStore) NewTxn() lib.NodeTxnI { return NewNodeTxn(b) }

// Get() returns the record stored under id or nil, consulting the cache first
func (b *BadgerNodeStore) Get(id lib.NodeValue) (record *lib.NodeRecord, err lib.ErrorI) {
	if r, ok := b.cache.Get(id); ok {
		return r, nil
	}
	var bz []byte
	e := b.db.View(func(txn *badger.Txn) error {
		item, er := txn.Get(nodeKey(id))
		if er != nil {
			return er
		}
		bz, er = item.ValueCopy(nil)
		return er
	})
	switch {
	case errors.Is(e, badger.ErrKeyNotFound):
		return nil, nil
	case e != nil:
		return nil, ErrStoreGet(e)
	}
	if record, err = lib.NewNodeRecordFromBytes(bz); err != nil {
		return nil, err
	}
	b.cache.Add(id, record)
	return record, nil
}

// Size() returns the number of records
func (b *BadgerNodeStore) Size() (int, lib.ErrorI) { return b.count, nil }

// Iterate() visits the records in identifier order
func (b *BadgerNodeStore) Iterate(cb func(id lib.NodeValue, r *lib.NodeRecord) bool) lib.ErrorI {
	var iterErr lib.ErrorI
	e := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = nodePrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(nodePrefix); it.ValidForPrefix(nodePrefix); it.Next() {
			item := it.Item()
			var id lib.NodeValue
			copy(id[:], item.Key()[len(nodePrefix):])
			bz, er := item.ValueCopy(nil)
			if er != nil {
				return er
			}
			r, err := lib.NewNodeRecordFromBytes(bz)
			if err != nil {
				iterErr = err
				return nil
			}
			if !cb(id, r) {
				return nil
			}
		}
		return nil
	})
	if e != nil {
		return ErrStoreIterate(e)
	}
	return iterErr
}

// Close() gracefully stops the database
func (b *BadgerNodeStore) Close() lib.ErrorI {
	b.cache.Purge()
	if err := b.db.Close(); err != nil {
		return ErrCloseDB(err)
	}
	return nil
}

// applyOps() writes the staged operations in one badger transaction and updates the cache and count once committed
func (b *BadgerNodeStore) applyOps(ops map[lib.NodeValue]op) lib.ErrorI {
	delta := 0
	err := b.db.Update(func(txn *badger.Txn) error {
		for id, o := range ops {
			k := nodeKey(id)
			_, e := txn.Get(k)
			exists := e == nil
			if e != nil && !errors.Is(e, badger.ErrKeyNotFound) {
				return e
			}
			if o.delete {
				if !exists {
					continue
				}
				if e = txn.Delete(k); e != nil {
					return e
				}
				delta--
				continue
			}
			if e = txn.Set(k, o.record.Bytes()); e != nil {
				return e
			}
			if !exists {
				delta++
			}
		}
		return nil
	})
	if err != nil {
		return ErrCommitDB(err)
	}
	for id, o := range ops {
		if o.delete {
			b.cache.Remove(id)
		} else {
			b.cache.Add(id, o.record)
		}
	}
	b.count += delta
	b.log.Debugf("badger node store committed %d ops, %d records", len(ops), b.count)
	return nil
}

// nodeKey() returns the database key of a node identifier
func nodeKey(id lib.NodeValue) []byte {
	return append(append(make([]byte, 0, len(nodePrefix)+lib.NodeValueSize), nodePrefix...), id[:]...)
}
