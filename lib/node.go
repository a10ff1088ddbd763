package lib

import (
	"encoding/binary"
	"fmt"

	"github.com/cedoor/sparse-merkle-tree/lib/codec"
	"github.com/holiman/uint256"
)

/* This file defines the fixed width words the tree is built from and the records held by the node store */

const (
	// NodeValueSize is the width in bytes of a key, a value or a node identifier
	NodeValueSize = codec.WordSize
	// nodeRecordSize is the encoded size of a NodeRecord: one tag byte and two words
	nodeRecordSize = 1 + 2*NodeValueSize

	leafTag     byte = 1
	internalTag byte = 0
)

var (
	// ZeroNode is the reserved identifier of an empty subtree, it is never stored
	ZeroNode = NodeValue{}
	// LeafMarker is the third hash input that separates leaves from internal nodes
	LeafMarker = NewNodeValueFromUint64(1)
)

// NodeValue is a 256-bit big-endian word: a key, a value or the hash of a node
type NodeValue [NodeValueSize]byte

// NewNodeValueFromUint64() creates a NodeValue from a small unsigned integer
func NewNodeValueFromUint64(u uint64) (n NodeValue) {
	binary.BigEndian.PutUint64(n[NodeValueSize-8:], u)
	return
}

// NewNodeValueFromBytes() creates a NodeValue from a big-endian byte slice of at most 32 bytes
func NewNodeValueFromBytes(bz []byte) (n NodeValue, err ErrorI) {
	if len(bz) > NodeValueSize {
		return n, ErrInvalidParameter(fmt.Sprintf("%x", bz), codec.ErrTooLarge)
	}
	copy(n[NodeValueSize-len(bz):], bz)
	return
}

// ParseNodeValue() decodes the textual form of a node value using the codec passed
func ParseNodeValue(c codec.NodeValueCodec, s string) (NodeValue, ErrorI) {
	word, err := c.Decode(s)
	if err != nil {
		return ZeroNode, ErrInvalidParameter(s, err)
	}
	return word, nil
}

// IsZero() returns true if the word is the reserved empty identifier
func (n NodeValue) IsZero() bool { return n == ZeroNode }

// Bytes() returns a copy of the big-endian representation
func (n NodeValue) Bytes() []byte {
	bz := make([]byte, NodeValueSize)
	copy(bz, n[:])
	return bz
}

// Uint256() converts the word into an unsigned 256-bit integer
func (n NodeValue) Uint256() *uint256.Int { return new(uint256.Int).SetBytes32(n[:]) }

// Bit() returns the i-th least significant bit of the word, 0 <= i < 256
func (n NodeValue) Bit(i int) uint8 {
	return (n[NodeValueSize-1-i/8] >> (i % 8)) & 1
}

// String() returns the hexadecimal form
func (n NodeValue) String() string { return codec.Hex{}.Encode(n) }

// MarshalText() encodes the word as hex, used by json
func (n NodeValue) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

// UnmarshalText() decodes hex text, with or without the 0x prefix
func (n *NodeValue) UnmarshalText(text []byte) error {
	word, err := codec.Hex{}.Decode(string(text))
	if err != nil {
		return ErrInvalidParameter(string(text), err)
	}
	*n = word
	return nil
}

// Entry is a key with an optional value
// A nil Value means 'the key only', like the entry of a non-membership proof
type Entry struct {
	Key   NodeValue  `json:"key"`
	Value *NodeValue `json:"value,omitempty"`
}

// NewEntry() creates an Entry that carries a value
func NewEntry(key, value NodeValue) *Entry { return &Entry{Key: key, Value: &value} }

// HasValue() returns true if the entry carries a value
func (e *Entry) HasValue() bool { return e != nil && e.Value != nil }

// Copy() returns a deep copy of the entry
func (e *Entry) Copy() *Entry {
	if e == nil {
		return nil
	}
	c := &Entry{Key: e.Key}
	if e.Value != nil {
		v := *e.Value
		c.Value = &v
	}
	return c
}

// NodeRecord is what the node store holds under a node identifier
// A leaf record holds its key and value, an internal record holds its children
type NodeRecord struct {
	IsLeaf bool
	Key    NodeValue // leaf only
	Value  NodeValue // leaf only
	Left   NodeValue // internal only
	Right  NodeValue // internal only
}

// NewLeafRecord() creates the record of a leaf
func NewLeafRecord(key, value NodeValue) *NodeRecord {
	return &NodeRecord{IsLeaf: true, Key: key, Value: value}
}

// NewInternalRecord() creates the record of an internal node
func NewInternalRecord(left, right NodeValue) *NodeRecord {
	return &NodeRecord{Left: left, Right: right}
}

// Children() returns the two words the record is made of: (key, value) for leaves, (left, right) otherwise
func (r *NodeRecord) Children() (NodeValue, NodeValue) {
	if r.IsLeaf {
		return r.Key, r.Value
	}
	return r.Left, r.Right
}

// Bytes() serializes the record as a tag byte followed by its two words
func (r *NodeRecord) Bytes() []byte {
	bz := make([]byte, 0, nodeRecordSize)
	tag := internalTag
	if r.IsLeaf {
		tag = leafTag
	}
	a, b := r.Children()
	bz = append(bz, tag)
	bz = append(bz, a[:]...)
	return append(bz, b[:]...)
}

// NewNodeRecordFromBytes() is the inverse of NodeRecord.Bytes()
func NewNodeRecordFromBytes(bz []byte) (*NodeRecord, ErrorI) {
	if len(bz) != nodeRecordSize || bz[0] > leafTag {
		return nil, ErrInvalidNodeRecord(len(bz))
	}
	var a, b NodeValue
	copy(a[:], bz[1:1+NodeValueSize])
	copy(b[:], bz[1+NodeValueSize:])
	if bz[0] == leafTag {
		return NewLeafRecord(a, b), nil
	}
	return NewInternalRecord(a, b), nil
}

// Equals() compares two records
func (r *NodeRecord) Equals(o *NodeRecord) bool {
	if r == nil || o == nil {
		return r == o
	}
	return *r == *o
}
