package main

import (
	"log/slog"
	"net/http"
)

// Server wires the API handlers into a single mux.
type Server struct {
	app       *app
	logger    *slog.Logger
	chainAPI  *ChainAPI
	serverAPI *ServerAPI
	mux       *http.ServeMux
}

func NewServer(a *app, actionChan chan string) *Server {
	server := &Server{
		app:       a,
		logger:    a.logger,
		chainAPI:  NewChainAPI(a, a.logger),
		serverAPI: NewServerAPI(a.cm, actionChan, a.logger),
		mux:       http.NewServeMux(),
	}

	server.chainAPI.RegisterRoutes(server.mux)
	server.serverAPI.RegisterRoutes(server.mux)
	return server
}

// ServeHTTP logs every request at debug level before dispatching it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("API request", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
	s.mux.ServeHTTP(w, r)
}
