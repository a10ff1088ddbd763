package rpc

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

const (
	VersionRoutePath = "/v1/"
	RootRoutePath    = "/v1/query/root"
	EntryRoutePath   = "/v1/query/entry"
	ProofRoutePath   = "/v1/query/proof"
	VerifyRoutePath  = "/v1/query/verify"
	AddRoutePath     = "/v1/admin/add"
	UpdateRoutePath  = "/v1/admin/update"
	DeleteRoutePath  = "/v1/admin/delete"
)

const (
	VersionRouteName = "version"
	RootRouteName    = "root"
	EntryRouteName   = "entry"
	ProofRouteName   = "proof"
	VerifyRouteName  = "verify"
	AddRouteName     = "add"
	UpdateRouteName  = "update"
	DeleteRouteName  = "delete"
)

// routes contains the method and path for a tree command
type routes map[string]struct {
	Method string
	Path   string
}

// routePaths is a mapping from route names to their corresponding HTTP methods and paths.
var routePaths = routes{
	VersionRouteName: {Method: http.MethodGet, Path: VersionRoutePath},
	RootRouteName:    {Method: http.MethodPost, Path: RootRoutePath},
	EntryRouteName:   {Method: http.MethodPost, Path: EntryRoutePath},
	ProofRouteName:   {Method: http.MethodPost, Path: ProofRoutePath},
	VerifyRouteName:  {Method: http.MethodPost, Path: VerifyRoutePath},
	AddRouteName:     {Method: http.MethodPost, Path: AddRoutePath},
	UpdateRouteName:  {Method: http.MethodPost, Path: UpdateRoutePath},
	DeleteRouteName:  {Method: http.MethodPost, Path: DeleteRoutePath},
}

// readOnlyRoutes are safe to retry from the client
var readOnlyRoutes = map[string]bool{
	VersionRouteName: true,
	RootRouteName:    true,
	EntryRouteName:   true,
	ProofRouteName:   true,
	VerifyRouteName:  true,
}

// httpRouteHandlers is a custom type that maps strings to httprouter handle functions
type httpRouteHandlers map[string]httprouter.Handle

// createRouter initializes and returns a new HTTP router with predefined route handlers.
func createRouter(s *Server) *httprouter.Router {
	var r = httpRouteHandlers{
		VersionRouteName: s.Version,
		RootRouteName:    s.Root,
		EntryRouteName:   s.Entry,
		ProofRouteName:   s.Proof,
		VerifyRouteName:  s.Verify,
		AddRouteName:     s.Add,
		UpdateRouteName:  s.Update,
		DeleteRouteName:  s.Delete,
	}

	// Initialize a new router using the httprouter package.
	router := httprouter.New()

	// Iterate over the routes in routePaths and set them in the router.
	for routeName, handler := range r {
		route, ok := routePaths[routeName]
		if !ok {
			continue
		}
		router.Handle(route.Method, route.Path, handler)
	}

	return router
}
