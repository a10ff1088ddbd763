package store

import (
	"errors"
	"fmt"

	"github.com/cedoor/sparse-merkle-tree/lib"
)

var errNilRecord = errors.New("nil node record")

func ErrConfiguration(msg string) lib.ErrorI {
	return lib.NewError(lib.CodeConfiguration, lib.SMTModule, fmt.Sprintf("invalid tree configuration: %s", msg))
}

func ErrKeyExists(key lib.NodeValue) lib.ErrorI {
	return lib.NewError(lib.CodeKeyExists, lib.SMTModule, fmt.Sprintf("key %s already exists", key))
}

func ErrKeyNotFound(key lib.NodeValue) lib.ErrorI {
	return lib.NewError(lib.CodeKeyNotFound, lib.SMTModule, fmt.Sprintf("key %s does not exist", key))
}

func ErrInvalidMerkleTree(msg string) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidMerkleTree, lib.SMTModule, fmt.Sprintf("merkle tree is invalid: %s", msg))
}

func ErrOpenDB(err error) lib.ErrorI {
	return lib.NewError(lib.CodeOpenDB, lib.StorageModule, fmt.Sprintf("openDB() failed with err: %s", err.Error()))
}

func ErrCloseDB(err error) lib.ErrorI {
	return lib.NewError(lib.CodeCloseDB, lib.StorageModule, fmt.Sprintf("closeDB() failed with err: %s", err.Error()))
}

func ErrCommitDB(err error) lib.ErrorI {
	return lib.NewError(lib.CodeCommitDB, lib.StorageModule, fmt.Sprintf("commitDB() failed with err: %s", err.Error()))
}

func ErrStoreSet(err error) lib.ErrorI {
	return lib.NewError(lib.CodeStoreSet, lib.StorageModule, fmt.Sprintf("store.set() failed with err: %s", err.Error()))
}

func ErrStoreDelete(err error) lib.ErrorI {
	return lib.NewError(lib.CodeStoreDelete, lib.StorageModule, fmt.Sprintf("store.delete() failed with err: %s", err.Error()))
}

func ErrStoreGet(err error) lib.ErrorI {
	return lib.NewError(lib.CodeStoreGet, lib.StorageModule, fmt.Sprintf("store.get() failed with err: %s", err.Error()))
}

func ErrStoreIterate(err error) lib.ErrorI {
	return lib.NewError(lib.CodeStoreIterate, lib.StorageModule, fmt.Sprintf("store.iterate() failed with err: %s", err.Error()))
}

func ErrNonEmptyStore(size int) lib.ErrorI {
	return lib.NewError(lib.CodeNonEmptyStore, lib.StorageModule, fmt.Sprintf("a new tree requires an empty node store, found %d records", size))
}

func ErrUnknownBackend(name string) lib.ErrorI {
	return lib.NewError(lib.CodeUnknownBackend, lib.StorageModule, fmt.Sprintf("node store backend %q is not supported", name))
}

func ErrNewCache(err error) lib.ErrorI {
	return lib.NewError(lib.CodeNewCache, lib.StorageModule, fmt.Sprintf("lru.New() failed with err: %s", err.Error()))
}

func ErrMissingNodeEntry(id lib.NodeValue) lib.ErrorI {
	return lib.NewError(lib.CodeMissingNodeEntry, lib.StorageModule, fmt.Sprintf("node %s is referenced but not stored", id))
}
