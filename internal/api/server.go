package api

import (
	"context"
	"fmt"
	"net/http"
)

// Server hosts the REST surface.
type Server struct {
	server *http.Server
}

// NewServer creates a new API server on the given port.
func NewServer(h *Handler, port int) *Server {
	return &Server{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: Routes(h),
		},
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
