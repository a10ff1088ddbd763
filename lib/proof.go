package lib

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

/*
	A Proof authenticates the presence or absence of a key under a root.

	- Membership: Entry carries the value stored under the key
	- Non-membership, empty slot: Entry carries the key only and MatchingEntry is nil
	- Non-membership, divergence: Entry carries the key only and MatchingEntry is the leaf
	  found on the key's path, whose own key shares at least len(Sidenodes) path bits
*/

// protobuf field numbers of the binary proof form
const (
	proofEntryField         protowire.Number = 1
	proofMatchingEntryField protowire.Number = 2
	proofSidenodeField      protowire.Number = 3
	proofRootField          protowire.Number = 4
	proofMembershipField    protowire.Number = 5

	entryKeyField   protowire.Number = 1
	entryValueField protowire.Number = 2
)

// Proof is a membership or non-membership proof for a single key
type Proof struct {
	Entry         Entry       `json:"entry"`                   // the sought key and, for membership, its value
	MatchingEntry *Entry      `json:"matchingEntry,omitempty"` // the leaf found in place of the sought key
	Sidenodes     []NodeValue `json:"sidenodes"`               // siblings along the path ordered shallow to deep
	Root          NodeValue   `json:"root"`                    // the root the proof was created against
	Membership    bool        `json:"membership"`              // true if the key is present
}

// MarshalBinary() encodes the proof in protobuf wire format
func (p *Proof) MarshalBinary() ([]byte, error) {
	if p == nil {
		return nil, ErrNilProof()
	}
	var bz []byte
	bz = protowire.AppendTag(bz, proofEntryField, protowire.BytesType)
	bz = protowire.AppendBytes(bz, marshalEntry(&p.Entry))
	if p.MatchingEntry != nil {
		bz = protowire.AppendTag(bz, proofMatchingEntryField, protowire.BytesType)
		bz = protowire.AppendBytes(bz, marshalEntry(p.MatchingEntry))
	}
	for _, s := range p.Sidenodes {
		bz = protowire.AppendTag(bz, proofSidenodeField, protowire.BytesType)
		bz = protowire.AppendBytes(bz, s[:])
	}
	bz = protowire.AppendTag(bz, proofRootField, protowire.BytesType)
	bz = protowire.AppendBytes(bz, p.Root[:])
	if p.Membership {
		bz = protowire.AppendTag(bz, proofMembershipField, protowire.VarintType)
		bz = protowire.AppendVarint(bz, protowire.EncodeBool(true))
	}
	return bz, nil
}

// UnmarshalBinary() decodes a proof from protobuf wire format; unknown fields are skipped
func (p *Proof) UnmarshalBinary(bz []byte) error {
	*p = Proof{}
	for len(bz) > 0 {
		num, typ, n := protowire.ConsumeTag(bz)
		if n < 0 {
			return ErrUnmarshalProof(protowire.ParseError(n).Error())
		}
		bz = bz[n:]
		var field []byte
		switch {
		case num == proofMembershipField && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(bz)
			if m < 0 {
				return ErrUnmarshalProof(protowire.ParseError(m).Error())
			}
			p.Membership, bz = protowire.DecodeBool(v), bz[m:]
			continue
		case typ == protowire.BytesType && num >= proofEntryField && num <= proofRootField:
			v, m := protowire.ConsumeBytes(bz)
			if m < 0 {
				return ErrUnmarshalProof(protowire.ParseError(m).Error())
			}
			field, bz = v, bz[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, bz)
			if m < 0 {
				return ErrUnmarshalProof(protowire.ParseError(m).Error())
			}
			bz = bz[m:]
			continue
		}
		switch num {
		case proofEntryField:
			e, err := unmarshalEntry(field)
			if err != nil {
				return err
			}
			p.Entry = *e
		case proofMatchingEntryField:
			e, err := unmarshalEntry(field)
			if err != nil {
				return err
			}
			p.MatchingEntry = e
		case proofSidenodeField:
			s, err := wordFromField("sidenode", field)
			if err != nil {
				return err
			}
			p.Sidenodes = append(p.Sidenodes, s)
		case proofRootField:
			r, err := wordFromField("root", field)
			if err != nil {
				return err
			}
			p.Root = r
		}
	}
	return nil
}

// NewProofFromBytes() decodes a proof from its binary form
func NewProofFromBytes(bz []byte) (*Proof, ErrorI) {
	p := new(Proof)
	if err := p.UnmarshalBinary(bz); err != nil {
		return nil, err.(ErrorI)
	}
	return p, nil
}

// marshalEntry() encodes an entry as an embedded message
func marshalEntry(e *Entry) (bz []byte) {
	bz = protowire.AppendTag(bz, entryKeyField, protowire.BytesType)
	bz = protowire.AppendBytes(bz, e.Key[:])
	if e.Value != nil {
		bz = protowire.AppendTag(bz, entryValueField, protowire.BytesType)
		bz = protowire.AppendBytes(bz, e.Value[:])
	}
	return
}

// unmarshalEntry() decodes an embedded entry message
func unmarshalEntry(bz []byte) (*Entry, ErrorI) {
	e := new(Entry)
	for len(bz) > 0 {
		num, typ, n := protowire.ConsumeTag(bz)
		if n < 0 {
			return nil, ErrUnmarshalProof(protowire.ParseError(n).Error())
		}
		bz = bz[n:]
		if typ != protowire.BytesType || (num != entryKeyField && num != entryValueField) {
			m := protowire.ConsumeFieldValue(num, typ, bz)
			if m < 0 {
				return nil, ErrUnmarshalProof(protowire.ParseError(m).Error())
			}
			bz = bz[m:]
			continue
		}
		v, m := protowire.ConsumeBytes(bz)
		if m < 0 {
			return nil, ErrUnmarshalProof(protowire.ParseError(m).Error())
		}
		bz = bz[m:]
		switch num {
		case entryKeyField:
			k, err := wordFromField("entry key", v)
			if err != nil {
				return nil, err
			}
			e.Key = k
		case entryValueField:
			val, err := wordFromField("entry value", v)
			if err != nil {
				return nil, err
			}
			e.Value = &val
		}
	}
	return e, nil
}

// wordFromField() requires a field to be exactly one node value wide
func wordFromField(name string, bz []byte) (n NodeValue, err ErrorI) {
	if len(bz) != NodeValueSize {
		return n, ErrUnmarshalProof(fmt.Sprintf("%s is %d bytes, expected %d", name, len(bz), NodeValueSize))
	}
	copy(n[:], bz)
	return
}
