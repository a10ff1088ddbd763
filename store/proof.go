package store

import (
	"time"

	"github.com/cedoor/sparse-merkle-tree/lib"
	"github.com/cedoor/sparse-merkle-tree/lib/crypto"
)

/*
	Proof verification folds a starting node up to the root along a key's path:

	- Membership:          start from H(key, value, 1) along the path of key
	- Empty slot:          start from ZERO along the path of key
	- Divergence:          start from the matching leaf along the path of the matching key,
	                       then require the matching key to share at least len(sidenodes)
	                       path bits with the sought key, so the leaf truly occupies its slot

	A malformed proof is never an error: it simply does not verify.
*/

// CreateProof() returns a membership or non-membership proof of key against the current root
func (s *SMT) CreateProof(key lib.NodeValue) (proof *lib.Proof, err lib.ErrorI) {
	defer s.track(opProof, time.Now(), &err)
	w, err := s.retrieveEntry(key)
	if err != nil {
		return nil, err
	}
	return &lib.Proof{
		Entry:         w.entry,
		MatchingEntry: w.matching,
		Sidenodes:     w.sidenodes,
		Root:          s.root,
		Membership:    w.entry.HasValue(),
	}, nil
}

// VerifyProof() checks a proof with the hash function of the tree; the proof's root is not compared to the current root
func (s *SMT) VerifyProof(proof *lib.Proof) bool { return VerifyProof(s.hasher.hash, proof) }

// VerifyProof() checks a proof with the hash function passed, without any tree
func VerifyProof(hash crypto.HashFunc, proof *lib.Proof) bool {
	if hash == nil || proof == nil || len(proof.Sidenodes) > PathLength {
		return false
	}
	entry, matching := &proof.Entry, proof.MatchingEntry
	if proof.Membership != entry.HasValue() {
		return false
	}
	h := hasher{hash: hash}
	if matching == nil {
		node := lib.ZeroNode
		if entry.HasValue() {
			node = h.leaf(entry.Key, *entry.Value)
		}
		return h.fold(node, entry.Key, proof.Sidenodes) == proof.Root
	}
	// a matching entry only proves the absence of a different key
	if entry.HasValue() || !matching.HasValue() || matching.Key == entry.Key {
		return false
	}
	if h.fold(h.leaf(matching.Key, *matching.Value), matching.Key, proof.Sidenodes) != proof.Root {
		return false
	}
	return len(proof.Sidenodes) <= commonPrefixLength(entry.Key, matching.Key)
}

// fold() hashes node up to the root along the path of key
func (h hasher) fold(node, key lib.NodeValue, sidenodes []lib.NodeValue) lib.NodeValue {
	for i := len(sidenodes) - 1; i >= 0; i-- {
		if key.Bit(i) == 1 {
			node = h.internal(sidenodes[i], node)
		} else {
			node = h.internal(node, sidenodes[i])
		}
	}
	return node
}
