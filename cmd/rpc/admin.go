package rpc

import (
	"net/http"

	"github.com/cedoor/sparse-merkle-tree/lib"
	"github.com/cedoor/sparse-merkle-tree/store"
	"github.com/julienschmidt/httprouter"
)

// Add inserts a new entry
func (s *Server) Add(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.mutateEntry(w, r, (*store.SMT).Add)
}

// Update replaces the value of an existing entry
func (s *Server) Update(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.mutateEntry(w, r, (*store.SMT).Update)
}

// Delete removes an entry
func (s *Server) Delete(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(keyRequest)
	if !unmarshal(w, r, req) {
		return
	}
	key, err := s.parseKey(req.Key)
	if err != nil {
		write(w, err, http.StatusBadRequest)
		return
	}
	s.writeTree(w, func(t *store.SMT) lib.ErrorI { return t.Delete(key) })
}

// mutateEntry() decodes an entry request and applies it with the mutation passed
func (s *Server) mutateEntry(w http.ResponseWriter, r *http.Request, mutation func(t *store.SMT, key, value lib.NodeValue) lib.ErrorI) {
	req := new(entryRequest)
	if !unmarshal(w, r, req) {
		return
	}
	key, err := s.parseKey(req.Key)
	if err != nil {
		write(w, err, http.StatusBadRequest)
		return
	}
	value, err := s.parseKey(req.Value)
	if err != nil {
		write(w, err, http.StatusBadRequest)
		return
	}
	s.writeTree(w, func(t *store.SMT) lib.ErrorI { return mutation(t, key, value) })
}
