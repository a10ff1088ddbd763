package crypto

import (
	"fmt"
	"hash"
	"strings"

	"github.com/minio/sha256-simd"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

const (
	HashSize = sha256.Size
)

/*
	A HashFunc compresses an ordered list of node values into a single node value.
	The tree calls it with exactly two inputs for internal nodes and exactly three
	(key, value, leaf marker) for leaves, which keeps the two hashing domains apart.
	The functions below digest the concatenation of their inputs.
*/

// HashFunc is the pluggable hash function of the tree
type HashFunc func(inputs ...[]byte) []byte

// hashers maps the configurable names to their hash.Hash constructors
var hashers = map[string]func() hash.Hash{
	"sha256":    sha256.New,
	"keccak256": sha3.NewLegacyKeccak256,
	"blake2b":   newBlake2b256,
	"blake3":    func() hash.Hash { return blake3.New() },
}

var (
	SHA256     = FromHasher(sha256.New)
	Keccak256  = FromHasher(sha3.NewLegacyKeccak256)
	Blake2b256 = FromHasher(newBlake2b256)
	Blake3     = FromHasher(func() hash.Hash { return blake3.New() })
)

// NewHashFunc() returns the HashFunc registered under name
func NewHashFunc(name string) (HashFunc, error) {
	h, ok := hashers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown hash function %q", name)
	}
	return FromHasher(h), nil
}

// HashFuncNames() lists the names accepted by NewHashFunc
func HashFuncNames() (names []string) {
	for name := range hashers {
		names = append(names, name)
	}
	return
}

// FromHasher() adapts a hash.Hash constructor into a HashFunc digesting the concatenated inputs
func FromHasher(newHasher func() hash.Hash) HashFunc {
	return func(inputs ...[]byte) []byte {
		h := newHasher()
		for _, in := range inputs {
			_, _ = h.Write(in)
		}
		return h.Sum(nil)
	}
}

// Hash() executes the default hashing algorithm on input bytes
func Hash(msg []byte) []byte {
	h := sha256.Sum256(msg)
	return h[:]
}

func newBlake2b256() hash.Hash {
	// blake2b.New256 only fails on keys longer than 64 bytes
	h, _ := blake2b.New256(nil)
	return h
}
