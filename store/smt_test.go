package store

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/cedoor/sparse-merkle-tree/lib"
	"github.com/cedoor/sparse-merkle-tree/lib/crypto"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// six keys and their values (key * 10) used across the tree tests
var testKeys = []uint64{10, 3, 43, 32, 9, 23}

const (
	sixKeysRoot       = "ffe739ae359c1569f18b9c4f5af97cde6ef668395f755c0c3834d7ba79cb9b4c"
	threeKeysRoot     = "6a74fc0a13e520210d5657a6cccc5661da3665f254acb04235fb0ab6cf9ea79a"
	singleLeafRoot    = "e320243d9840d66cced0a82b1d48f6f315afd88e8fc5578df5dd2205a60a706c"
	updatedLeafRoot   = "4ca6fdaf305a3b5dc70e8856de4d375243e7941df26baa4ca82410ee96bdba26"
	divergeAtBit0Root = "0715070a3076761b271ff298f8278525ce0bbe8002a0993faf7a1e01d87d54dd"
	divergeAtBit2Root = "3ffd66e862c7b5ffe53b49935e77a9347d76feca70f0de9825e90024a7716bff"
)

func TestSMTAddDelete(t *testing.T) {
	tree := newTestSMT(t)
	// insert the six keys
	addKeys(t, tree, testKeys...)
	require.Equal(t, mustNodeValue(t, sixKeysRoot), tree.Root())
	requireSize(t, tree, 11)
	require.NoError(t, tree.Validate())
	// delete half of them
	for _, k := range []uint64{3, 32, 9} {
		require.NoError(t, tree.Delete(nv(k)))
	}
	require.Equal(t, mustNodeValue(t, threeKeysRoot), tree.Root())
	requireSize(t, tree, 6)
	require.NoError(t, tree.Validate())
	// the remaining tree is the tree of the remaining keys
	expected := newTestSMT(t)
	addKeys(t, expected, 10, 43, 23)
	require.Equal(t, expected.Root(), tree.Root())
	require.Equal(t, dumpNodes(t, expected), dumpNodes(t, tree))
}

func TestSMTShape(t *testing.T) {
	tests := []struct {
		name         string
		detail       string
		ops          func(t *testing.T, tree *SMT)
		expectedRoot string
		expectedSize int
	}{
		{
			name:   "empty",
			detail: "a new tree has a ZERO root and no nodes",
			ops:    func(t *testing.T, tree *SMT) {},
		},
		{
			name:   "single entry",
			detail: "the only leaf of the tree is the root and the only stored node",
			ops: func(t *testing.T, tree *SMT) {
				require.NoError(t, tree.Add(nv(2), nv(10)))
			},
			expectedRoot: singleLeafRoot,
			expectedSize: 1,
		},
		{
			name:   "single entry updated",
			detail: "updating the only leaf replaces it",
			ops: func(t *testing.T, tree *SMT) {
				require.NoError(t, tree.Add(nv(2), nv(10)))
				require.NoError(t, tree.Update(nv(2), nv(5)))
			},
			expectedRoot: updatedLeafRoot,
			expectedSize: 1,
		},
		{
			name:   "diverge at bit 0",
			detail: "two keys differing in bit 0 hang directly below the root",
			ops: func(t *testing.T, tree *SMT) {
				require.NoError(t, tree.Add(nv(1), nv(10)))
				require.NoError(t, tree.Add(nv(2), nv(20)))
			},
			expectedRoot: divergeAtBit0Root,
			expectedSize: 3,
		},
		{
			name:   "diverge at bit 2",
			detail: "two keys sharing two path bits are pushed down past two ZERO padded levels",
			ops: func(t *testing.T, tree *SMT) {
				require.NoError(t, tree.Add(nv(1), nv(10)))
				require.NoError(t, tree.Add(nv(5), nv(50)))
			},
			expectedRoot: divergeAtBit2Root,
			expectedSize: 5,
		},
		{
			name:   "add then delete",
			detail: "deleting the last entry empties the tree",
			ops: func(t *testing.T, tree *SMT) {
				require.NoError(t, tree.Add(nv(2), nv(10)))
				require.NoError(t, tree.Delete(nv(2)))
			},
		},
		{
			name:   "collapse to a single leaf",
			detail: "deleting one of two deep entries promotes the other to the root",
			ops: func(t *testing.T, tree *SMT) {
				require.NoError(t, tree.Add(nv(5), nv(50)))
				require.NoError(t, tree.Add(nv(2), nv(10)))
				require.NoError(t, tree.Delete(nv(5)))
			},
			expectedRoot: singleLeafRoot,
			expectedSize: 1,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tree := newTestSMT(t)
			test.ops(t, tree)
			expectedRoot := lib.ZeroNode
			if test.expectedRoot != "" {
				expectedRoot = mustNodeValue(t, test.expectedRoot)
			}
			require.Equal(t, expectedRoot, tree.Root())
			requireSize(t, tree, test.expectedSize)
			require.NoError(t, tree.Validate())
		})
	}
}

func TestSMTRootIsLeafAndInternalHash(t *testing.T) {
	h := hasher{hash: crypto.SHA256}
	// the single leaf root is H(key, value, 1)
	require.Equal(t, mustNodeValue(t, singleLeafRoot), h.leaf(nv(2), nv(10)))
	// key 2 goes left and key 1 goes right
	require.Equal(t, mustNodeValue(t, divergeAtBit0Root), h.internal(h.leaf(nv(2), nv(20)), h.leaf(nv(1), nv(10))))
}

func TestSMTGet(t *testing.T) {
	tree := newTestSMT(t)
	addKeys(t, tree, testKeys...)
	for _, k := range testKeys {
		got, err := tree.Get(nv(k))
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, nv(k*10), *got)
	}
	for _, k := range []uint64{0, 1, 25, 42, 1 << 40} {
		got, err := tree.Get(nv(k))
		require.NoError(t, err)
		require.Nil(t, got)
	}
	// an empty tree has nothing
	got, err := newTestSMT(t).Get(nv(10))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSMTErrors(t *testing.T) {
	tests := []struct {
		name         string
		detail       string
		op           func(tree *SMT) lib.ErrorI
		expectedCode lib.ErrorCode
	}{
		{
			name:         "add existing",
			detail:       "adding a present key fails even with the same value",
			op:           func(tree *SMT) lib.ErrorI { return tree.Add(nv(10), nv(100)) },
			expectedCode: lib.CodeKeyExists,
		},
		{
			name:         "add existing new value",
			detail:       "adding a present key fails with a different value",
			op:           func(tree *SMT) lib.ErrorI { return tree.Add(nv(10), nv(7)) },
			expectedCode: lib.CodeKeyExists,
		},
		{
			name:         "update missing",
			detail:       "updating an absent key fails",
			op:           func(tree *SMT) lib.ErrorI { return tree.Update(nv(25), nv(1)) },
			expectedCode: lib.CodeKeyNotFound,
		},
		{
			name:         "delete missing divergence",
			detail:       "deleting an absent key whose slot holds another leaf fails",
			op:           func(tree *SMT) lib.ErrorI { return tree.Delete(nv(25)) },
			expectedCode: lib.CodeKeyNotFound,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tree := newTestSMT(t)
			addKeys(t, tree, testKeys...)
			before := dumpNodes(t, tree)
			err := test.op(tree)
			require.Error(t, err)
			require.Equal(t, lib.SMTModule, err.Module())
			require.Equal(t, test.expectedCode, err.Code())
			// a failed operation changes nothing
			require.Equal(t, mustNodeValue(t, sixKeysRoot), tree.Root())
			require.Equal(t, before, dumpNodes(t, tree))
		})
	}
	// deleting an absent key whose slot is empty fails
	tree := newTestSMT(t)
	addKeys(t, tree, 1, 5)
	root := tree.Root()
	err := tree.Delete(nv(3))
	require.Error(t, err)
	require.Equal(t, lib.CodeKeyNotFound, err.Code())
	require.Equal(t, root, tree.Root())
	// errors match with errors.Is on module and code
	err = newTestSMT(t).Delete(nv(1))
	require.True(t, errors.Is(err, ErrKeyNotFound(nv(2))))
	require.False(t, errors.Is(err, ErrKeyExists(nv(1))))
}

func TestSMTOrderIndependence(t *testing.T) {
	expected := mustNodeValue(t, sixKeysRoot)
	permute(append([]uint64(nil), testKeys...), func(keys []uint64) {
		tree := newTestSMT(t)
		addKeys(t, tree, keys...)
		require.Equal(t, expected, tree.Root(), "insertion order %v", keys)
		requireSize(t, tree, 11)
	})
}

func TestSMTAddDeleteRestores(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		tree := newTestSMT(t)
		keys := rng.Perm(1000)[:20]
		for _, k := range keys {
			require.NoError(t, tree.Add(nv(uint64(k)), nv(uint64(k+1))))
		}
		root, nodes := tree.Root(), dumpNodes(t, tree)
		// add then delete a fresh key
		fresh := nv(uint64(1000 + rng.Intn(1000)))
		require.NoError(t, tree.Add(fresh, nv(5)))
		require.NotEqual(t, root, tree.Root())
		require.NoError(t, tree.Delete(fresh))
		require.Equal(t, root, tree.Root())
		require.Equal(t, nodes, dumpNodes(t, tree))
		// update then update back
		k := nv(uint64(keys[rng.Intn(len(keys))]))
		original, err := tree.Get(k)
		require.NoError(t, err)
		require.NoError(t, tree.Update(k, nv(123456)))
		require.NoError(t, tree.Validate())
		require.NoError(t, tree.Update(k, *original))
		require.Equal(t, root, tree.Root())
		require.Equal(t, nodes, dumpNodes(t, tree))
		// delete everything in a random order
		for _, i := range rng.Perm(len(keys)) {
			require.NoError(t, tree.Delete(nv(uint64(keys[i]))))
			require.NoError(t, tree.Validate())
		}
		require.Equal(t, lib.ZeroNode, tree.Root())
		requireSize(t, tree, 0)
	}
}

func TestSMTWideKeys(t *testing.T) {
	tree := newTestSMT(t)
	// keys sharing 255 path bits sit at the bottom of the tree
	var a, b lib.NodeValue
	a[0] = 0x80
	require.NoError(t, tree.Add(a, nv(1)))
	require.NoError(t, tree.Add(b, nv(2)))
	// one internal node per shared bit, the divergence node and two leaves
	requireSize(t, tree, PathLength+2)
	require.NoError(t, tree.Validate())
	for _, k := range []lib.NodeValue{a, b} {
		proof, err := tree.CreateProof(k)
		require.NoError(t, err)
		require.Len(t, proof.Sidenodes, PathLength)
		require.True(t, tree.VerifyProof(proof))
	}
	require.NoError(t, tree.Delete(a))
	require.Equal(t, hasher{hash: crypto.SHA256}.leaf(b, nv(2)), tree.Root())
	requireSize(t, tree, 1)
}

func TestSMTEntries(t *testing.T) {
	tree := newTestSMT(t)
	addKeys(t, tree, testKeys...)
	got := make(map[lib.NodeValue]lib.NodeValue)
	require.NoError(t, tree.Entries(func(key, value lib.NodeValue) bool {
		got[key] = value
		return true
	}))
	require.Len(t, got, len(testKeys))
	for _, k := range testKeys {
		require.Equal(t, nv(k*10), got[nv(k)])
	}
	// stop early
	count := 0
	require.NoError(t, tree.Entries(func(_, _ lib.NodeValue) bool { count++; return false }))
	require.Equal(t, 1, count)
}

func TestNewSMTConfiguration(t *testing.T) {
	calls := 0
	tests := []struct {
		name   string
		detail string
		hash   crypto.HashFunc
	}{
		{
			name:   "nil",
			detail: "a tree cannot be built without a hash function",
		},
		{
			name:   "short output",
			detail: "node identifiers must be 32 bytes wide",
			hash:   func(inputs ...[]byte) []byte { return make([]byte, 20) },
		},
		{
			name:   "long output",
			detail: "node identifiers must be 32 bytes wide",
			hash:   func(inputs ...[]byte) []byte { return make([]byte, 64) },
		},
		{
			name:   "nondeterministic",
			detail: "the same inputs must always produce the same identifier",
			hash: func(inputs ...[]byte) []byte {
				calls++
				return crypto.SHA256([]byte(fmt.Sprint(calls)))
			},
		},
		{
			name:   "domain collision",
			detail: "a function ignoring the leaf marker confuses leaves with internal nodes",
			hash:   func(inputs ...[]byte) []byte { return crypto.SHA256(inputs[0], inputs[1]) },
		},
		{
			name:   "panic",
			detail: "a panicking function is reported as a configuration error",
			hash:   func(inputs ...[]byte) []byte { panic("boom") },
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tree, err := NewSMT(test.hash, nil, nil, nil)
			require.Nil(t, tree)
			require.Error(t, err)
			require.Equal(t, lib.SMTModule, err.Module())
			require.Equal(t, lib.CodeConfiguration, err.Code())
		})
	}
	// every named hash function builds a working tree
	for _, name := range crypto.HashFuncNames() {
		t.Run(name, func(t *testing.T) {
			hash, e := crypto.NewHashFunc(name)
			require.NoError(t, e)
			tree, err := NewSMT(hash, nil, nil, lib.NewNullLogger())
			require.NoError(t, err)
			addKeys(t, tree, testKeys...)
			require.NoError(t, tree.Validate())
			for k := uint64(0); k < 50; k++ {
				proof, er := tree.CreateProof(nv(k))
				require.NoError(t, er)
				require.True(t, VerifyProof(hash, proof))
			}
		})
	}
	// a tree needs an empty node store
	nodes := NewMemoryNodeStore()
	txn := nodes.NewTxn()
	require.NoError(t, txn.Set(nv(1), lib.NewLeafRecord(nv(1), nv(1))))
	require.NoError(t, txn.Write())
	_, err := NewSMT(crypto.SHA256, nodes, nil, nil)
	require.Error(t, err)
	require.Equal(t, lib.CodeNonEmptyStore, err.Code())
}

func TestSMTValidateCorruption(t *testing.T) {
	nodes := NewMemoryNodeStore()
	tree, err := NewSMT(crypto.SHA256, nodes, nil, nil)
	require.NoError(t, err)
	addKeys(t, tree, testKeys...)
	require.NoError(t, tree.Validate())
	// a dangling record
	txn := nodes.NewTxn()
	require.NoError(t, txn.Set(nv(7), lib.NewLeafRecord(nv(7), nv(7))))
	require.NoError(t, txn.Write())
	err = tree.Validate()
	require.Error(t, err)
	require.Equal(t, lib.CodeInvalidMerkleTree, err.Code())
	// a missing record
	txn = nodes.NewTxn()
	require.NoError(t, txn.Delete(nv(7)))
	require.NoError(t, txn.Delete(hasher{hash: crypto.SHA256}.leaf(nv(23), nv(230))))
	require.NoError(t, txn.Write())
	err = tree.Validate()
	require.Error(t, err)
	require.Equal(t, lib.CodeMissingNodeEntry, err.Code())
	// walking into the missing record fails too
	_, err = tree.Get(nv(23))
	require.Error(t, err)
	require.Equal(t, lib.CodeMissingNodeEntry, err.Code())
}

func TestSMTFailedWriteKeepsRoot(t *testing.T) {
	nodes := &failingNodeStore{MemoryNodeStore: NewMemoryNodeStore()}
	tree, err := NewSMT(crypto.SHA256, nodes, nil, nil)
	require.NoError(t, err)
	addKeys(t, tree, 10, 3)
	root, size := tree.Root(), nodes.count()
	// every write fails from now on
	nodes.fail = true
	require.Error(t, tree.Add(nv(43), nv(430)))
	require.Error(t, tree.Update(nv(10), nv(1)))
	require.Error(t, tree.Delete(nv(3)))
	require.Equal(t, root, tree.Root())
	require.Equal(t, size, nodes.count())
	// the tree is still usable once the store recovers
	nodes.fail = false
	require.NoError(t, tree.Add(nv(43), nv(430)))
	require.NoError(t, tree.Validate())
}

func TestSMTMetrics(t *testing.T) {
	metrics := lib.NewMetricsServer(lib.DefaultMetricsConfig(), lib.NewNullLogger())
	tree, err := NewSMT(crypto.SHA256, nil, metrics, nil)
	require.NoError(t, err)
	addKeys(t, tree, testKeys...)
	require.Error(t, tree.Add(nv(10), nv(1)))
	require.NoError(t, tree.Delete(nv(10)))
	_, err = tree.CreateProof(nv(10))
	require.NoError(t, err)
	require.Equal(t, float64(len(testKeys)), testutil.ToFloat64(metrics.Operations.WithLabelValues(opAdd, "ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.Operations.WithLabelValues(opAdd, "error")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.Operations.WithLabelValues(opDelete, "ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.Operations.WithLabelValues(opProof, "ok")))
	size, err := tree.Size()
	require.NoError(t, err)
	require.Equal(t, float64(size), testutil.ToFloat64(metrics.StoredNodes))
}

// failingNodeStore is a memory node store whose writes can be made to fail
type failingNodeStore struct {
	*MemoryNodeStore
	fail bool
}

func (f *failingNodeStore) NewTxn() lib.NodeTxnI { return NewNodeTxn(f) }

func (f *failingNodeStore) applyOps(ops map[lib.NodeValue]op) lib.ErrorI {
	if f.fail {
		return ErrCommitDB(errors.New("write failure"))
	}
	return f.MemoryNodeStore.applyOps(ops)
}

func (f *failingNodeStore) count() int { return len(f.nodes) }

func newTestSMT(t *testing.T) *SMT {
	tree, err := NewSMT(crypto.SHA256, NewMemoryNodeStore(), nil, lib.NewNullLogger())
	require.NoError(t, err)
	return tree
}

// addKeys() inserts each key with the value key * 10
func addKeys(t *testing.T, tree *SMT, keys ...uint64) {
	for _, k := range keys {
		require.NoError(t, tree.Add(nv(k), nv(k*10)))
	}
}

func requireSize(t *testing.T, tree *SMT, expected int) {
	size, err := tree.Size()
	require.NoError(t, err)
	require.Equal(t, expected, size)
}

// dumpNodes() copies every record of the tree's node store
func dumpNodes(t *testing.T, tree *SMT) map[lib.NodeValue]lib.NodeRecord {
	nodes := make(map[lib.NodeValue]lib.NodeRecord)
	require.NoError(t, tree.nodes.Iterate(func(id lib.NodeValue, r *lib.NodeRecord) bool {
		nodes[id] = *r
		return true
	}))
	return nodes
}

// permute() calls cb with every permutation of keys (Heap's algorithm)
func permute(keys []uint64, cb func([]uint64)) {
	var generate func(n int)
	generate = func(n int) {
		if n == 1 {
			cb(keys)
			return
		}
		for i := 0; i < n-1; i++ {
			generate(n - 1)
			if n%2 == 0 {
				keys[i], keys[n-1] = keys[n-1], keys[i]
			} else {
				keys[0], keys[n-1] = keys[n-1], keys[0]
			}
		}
		generate(n - 1)
	}
	generate(len(keys))
}

func nv(u uint64) lib.NodeValue { return lib.NewNodeValueFromUint64(u) }

func mustNodeValue(t *testing.T, s string) (n lib.NodeValue) {
	bz, err := hex.DecodeString(s)
	require.NoError(t, err)
	copy(n[:], bz)
	return
}
