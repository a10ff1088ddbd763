package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/alecthomas/units"
	"github.com/cedoor/sparse-merkle-tree/lib"
	"github.com/cedoor/sparse-merkle-tree/lib/codec"
	"github.com/cedoor/sparse-merkle-tree/store"
	"github.com/rs/cors"
)

const (
	colon = ":"

	SoftwareVersion = "0.1.0"
	ContentType     = "Content-Type"
	ApplicationJSON = "application/json; charset=utf-8"
)

// Server serves a single tree over JSON http
// Queries share the tree under a read lock, mutations take the write lock
type Server struct {
	tree   *store.SMT
	mu     sync.RWMutex
	codec  codec.NodeValueCodec
	config lib.Config
	server *http.Server
	log    lib.LoggerI
}

// NewServer() creates a server for the tree, decoding request keys with the configured encoding
func NewServer(tree *store.SMT, config lib.Config, log lib.LoggerI) (*Server, lib.ErrorI) {
	c, err := codec.New(config.KeyEncoding)
	if err != nil {
		return nil, lib.ErrUnknownCodec(config.KeyEncoding)
	}
	if log == nil {
		log = lib.NewNullLogger()
	}
	s := &Server{tree: tree, codec: c, config: config, log: log}
	s.server = &http.Server{Addr: colon + config.RPCPort, Handler: s.Handler()}
	return s, nil
}

// Handler() returns the router wrapped in the CORS policy and the request timeout
func (s *Server) Handler() http.Handler {
	// Create CORS policy
	cor := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS", "POST"},
	})
	// Create a default timeout for HTTP requests
	timeout := time.Duration(s.config.TimeoutS) * time.Second
	return cor.Handler(http.TimeoutHandler(createRouter(s), timeout, ErrServerTimeout().Error()))
}

// Start() serves the RPC in the background
func (s *Server) Start() {
	go func() {
		s.log.Infof("Starting RPC server at 0.0.0.0:%s", s.config.RPCPort)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("RPC server failed with err: %s", err.Error())
		}
	}()
}

// Stop() gracefully shuts the RPC server down
func (s *Server) Stop() lib.ErrorI {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.config.TimeoutS)*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return ErrServerShutdown(err)
	}
	return nil
}

// readTree() executes a callback holding the read lock
func (s *Server) readTree(w http.ResponseWriter, callback func(t *store.SMT) (any, lib.ErrorI)) {
	s.mu.RLock()
	payload, err := callback(s.tree)
	s.mu.RUnlock()
	writeResult(w, payload, err)
}

// writeTree() executes a mutation holding the write lock and responds with the new root
func (s *Server) writeTree(w http.ResponseWriter, callback func(t *store.SMT) lib.ErrorI) {
	s.mu.Lock()
	err := callback(s.tree)
	var resp *RootResponse
	if err == nil {
		resp, err = rootResponse(s.tree)
	}
	s.mu.Unlock()
	writeResult(w, resp, err)
}

// parseKey() decodes a key or value from request text
func (s *Server) parseKey(text string) (lib.NodeValue, lib.ErrorI) {
	return lib.ParseNodeValue(s.codec, text)
}

// rootResponse() snapshots the root and the node count
func rootResponse(t *store.SMT) (*RootResponse, lib.ErrorI) {
	size, err := t.Size()
	if err != nil {
		return nil, err
	}
	return &RootResponse{Root: t.Root(), Nodes: size}, nil
}

// statusCode() maps an error to an http status: caller mistakes are 400, the rest 500
func statusCode(err lib.ErrorI) int {
	switch {
	case lib.IsErrorCode(err, lib.SMTModule, lib.CodeInvalidMerkleTree):
		return http.StatusInternalServerError
	case err.Module() == lib.SMTModule, err.Module() == lib.MainModule, err.Module() == lib.RPCModule:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeResult() writes either the error body or the payload
func writeResult(w http.ResponseWriter, payload any, err lib.ErrorI) {
	if err != nil {
		write(w, err, statusCode(err))
		return
	}
	write(w, payload, http.StatusOK)
}

// unmarshal() reads a size limited json body into ptr, responding 400 on failure
func unmarshal(w http.ResponseWriter, r *http.Request, ptr interface{}) bool {
	bz, err := io.ReadAll(io.LimitReader(r.Body, int64(units.MB)))
	if err != nil {
		write(w, ErrInvalidParams(err), http.StatusBadRequest)
		return false
	}
	defer func() { _ = r.Body.Close() }()
	if err = json.Unmarshal(bz, ptr); err != nil {
		write(w, ErrInvalidParams(err), http.StatusBadRequest)
		return false
	}
	return true
}

// write marshaled payload to w
func write(w http.ResponseWriter, payload interface{}, code int) {
	w.Header().Set(ContentType, ApplicationJSON)
	w.WriteHeader(code)

	// Marshal and indent the payload
	bz, _ := json.MarshalIndent(payload, "", "  ")
	_, _ = w.Write(bz)
}
