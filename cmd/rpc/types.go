package rpc

import (
	"github.com/cedoor/sparse-merkle-tree/lib"
)

// =====================================================
// Request Types
// keys and values are text in the server's configured key encoding
// =====================================================

type keyRequest struct {
	Key string `json:"key"`
}

type entryRequest struct {
	keyRequest
	Value string `json:"value"`
}

type proofRequest struct {
	Proof *lib.Proof `json:"proof"`
}

// =====================================================
// Response Types
// =====================================================

// RootResponse is the state of the tree after a query or a mutation
type RootResponse struct {
	Root  lib.NodeValue `json:"root"`
	Nodes int           `json:"nodes"`
}

// VerifyResponse is the result of checking a proof with the server's hash function
type VerifyResponse struct {
	Valid       bool `json:"valid"`       // the proof is consistent with its own root
	CurrentRoot bool `json:"currentRoot"` // the proof root is the root the server holds now
}
