package store

import "github.com/cedoor/sparse-merkle-tree/lib"

// PathLength is the depth of the virtual tree: one level per key bit
const PathLength = lib.NodeValueSize * 8

// keyToPath() expands a key into its 256 path bits; bit i is the i-th least significant bit of the key
// A 0 bit descends left, a 1 bit descends right
func keyToPath(key lib.NodeValue) []uint8 {
	path := make([]uint8, PathLength)
	for i := range path {
		path[i] = key.Bit(i)
	}
	return path
}

// commonPrefixLength() returns the number of leading path bits two keys share
func commonPrefixLength(a, b lib.NodeValue) int {
	for i := 0; i < PathLength; i++ {
		if a.Bit(i) != b.Bit(i) {
			return i
		}
	}
	return PathLength
}

// lastNonZeroIndex() returns the index of the deepest sidenode that is not ZERO, -1 if none
func lastNonZeroIndex(sidenodes []lib.NodeValue) int {
	for i := len(sidenodes) - 1; i >= 0; i-- {
		if !sidenodes[i].IsZero() {
			return i
		}
	}
	return -1
}
