package codec

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// WordSize is the width in bytes of every key, value and node identifier in the tree
const WordSize = 32

var (
	ErrEmpty    = errors.New("empty string")
	ErrNotHex   = errors.New("not a hexadecimal number")
	ErrTooLarge = errors.New("exceeds 256 bits")
)

// NodeValueCodec converts the fixed width words handled by the tree to and from their textual form
// A codec lives at the boundary of the system: the tree itself never sees strings
type NodeValueCodec interface {
	Name() string
	Encode(word [WordSize]byte) string
	Decode(s string) ([WordSize]byte, error)
}

// ensure the codecs implement the NodeValueCodec interface
var (
	_ NodeValueCodec = Hex{}
	_ NodeValueCodec = Decimal{}
)

// New() returns the codec registered under name
func New(name string) (NodeValueCodec, error) {
	switch strings.ToLower(name) {
	case "", "hex":
		return Hex{}, nil
	case "decimal", "dec":
		return Decimal{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// Hex encodes words as 64 lowercase hexadecimal digits
// Decoding accepts 1 to 64 digits of any case, with or without a 0x prefix
type Hex struct{}

func (Hex) Name() string { return "hex" }

// Encode() returns the zero padded hexadecimal form of the word
func (Hex) Encode(word [WordSize]byte) string { return hex.EncodeToString(word[:]) }

// Decode() parses a big-endian hexadecimal number into a word, left padding with zeroes
func (Hex) Decode(s string) (word [WordSize]byte, err error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	switch {
	case s == "":
		return word, ErrEmpty
	case len(s) > 2*WordSize:
		return word, ErrTooLarge
	}
	// an odd number of digits is completed with a leading zero
	if len(s)%2 == 1 {
		s = "0" + s
	}
	bz, e := hex.DecodeString(s)
	if e != nil {
		return word, ErrNotHex
	}
	copy(word[WordSize-len(bz):], bz)
	return word, nil
}

// Decimal encodes words as unsigned base-10 integers
type Decimal struct{}

func (Decimal) Name() string { return "decimal" }

// Encode() returns the base-10 form of the word read as a big-endian integer
func (Decimal) Encode(word [WordSize]byte) string {
	return new(uint256.Int).SetBytes32(word[:]).Dec()
}

// Decode() parses an unsigned base-10 integer lower than 2^256
func (Decimal) Decode(s string) (word [WordSize]byte, err error) {
	if s == "" {
		return word, ErrEmpty
	}
	n, e := uint256.FromDecimal(s)
	if e != nil {
		if errors.Is(e, uint256.ErrBig256Range) {
			return word, ErrTooLarge
		}
		return word, e
	}
	return n.Bytes32(), nil
}
