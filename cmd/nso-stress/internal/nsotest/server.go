package nsotest

import (
	"net/http"
	"net/http/httptest"

	"github.com/sirupsen/logrus"
)

// Server bundles both northbound handlers over one shared store.
type Server struct {
	Store   *Store
	jsonrpc JSONRPCHandler
	mux     *http.ServeMux
}

// NewServer builds a mock NSO. Credentials only guard the RESTCONF
// side, the JSON-RPC side authenticates through its login method.
func NewServer(username, password string, logger *logrus.Entry) *Server {
	store := NewStore()
	jsonrpcHandler := NewJSONRPCHandler(store, logger)
	restconfHandler := NewRESTCONFHandler(store, username, password, logger)

	mux := http.NewServeMux()
	mux.Handle("/jsonrpc", jsonrpcHandler)
	mux.Handle("/restconf/", restconfHandler)

	return &Server{
		Store:   store,
		jsonrpc: jsonrpcHandler,
		mux:     mux,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) Close() {
	s.jsonrpc.Close()
}

// StartTest runs the mock on an ephemeral port for tests. The returned
// host is suitable for client Options.Host.
func StartTest(username, password string, logger *logrus.Entry) (*Server, *httptest.Server) {
	srv := NewServer(username, password, logger)
	ts := httptest.NewServer(srv)
	return srv, ts
}
