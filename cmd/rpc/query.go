package rpc

import (
	"errors"
	"net/http"

	"github.com/cedoor/sparse-merkle-tree/lib"
	"github.com/cedoor/sparse-merkle-tree/store"
	"github.com/julienschmidt/httprouter"
)

// Version responds with the software version
func (s *Server) Version(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	write(w, SoftwareVersion, http.StatusOK)
}

// Root responds with the current root and node count
func (s *Server) Root(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.readTree(w, func(t *store.SMT) (any, lib.ErrorI) { return rootResponse(t) })
}

// Entry responds with the entry stored under the key; the value is omitted when the key is absent
func (s *Server) Entry(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(keyRequest)
	if !unmarshal(w, r, req) {
		return
	}
	key, err := s.parseKey(req.Key)
	if err != nil {
		write(w, err, http.StatusBadRequest)
		return
	}
	s.readTree(w, func(t *store.SMT) (any, lib.ErrorI) {
		value, e := t.Get(key)
		if e != nil {
			return nil, e
		}
		return lib.Entry{Key: key, Value: value}, nil
	})
}

// Proof responds with a membership or non-membership proof for the key
func (s *Server) Proof(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(keyRequest)
	if !unmarshal(w, r, req) {
		return
	}
	key, err := s.parseKey(req.Key)
	if err != nil {
		write(w, err, http.StatusBadRequest)
		return
	}
	s.readTree(w, func(t *store.SMT) (any, lib.ErrorI) { return t.CreateProof(key) })
}

// Verify checks a proof with the server's hash function and compares its root to the current one
func (s *Server) Verify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(proofRequest)
	if !unmarshal(w, r, req) {
		return
	}
	if req.Proof == nil {
		write(w, ErrInvalidParams(errors.New("missing proof")), http.StatusBadRequest)
		return
	}
	s.readTree(w, func(t *store.SMT) (any, lib.ErrorI) {
		return VerifyResponse{Valid: t.VerifyProof(req.Proof), CurrentRoot: req.Proof.Root == t.Root()}, nil
	})
}
