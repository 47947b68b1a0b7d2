package api

import (
	"io"
	"net/http"
)

// registerRoutes registers the only route. Every other path falls through
// to the mux's 404, and other methods on / to its 405.
func (s *Server) registerRoutes() {
	s.router.HandleFunc("GET /{$}", s.handleGreeting)
}

// handleGreeting handles GET / (and HEAD /). The request is never read.
func (s *Server) handleGreeting(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, s.opts.Greeting)
}
