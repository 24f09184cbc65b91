// Package inspect serves a read-only HTTP view of a running root: the
// committed tree, scheduler statistics, and a health probe.
//
// The server holds no engine state of its own. It pulls everything through
// the Sources callbacks, so it observes whatever the root has most recently
// committed. Handlers run on HTTP goroutines between flushes; sources must
// tolerate that.
package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-loom/loom/pkg/core"
)

// Sources supplies the live data the server exposes.
type Sources struct {
	// RootID names the root in health payloads.
	RootID func() string
	// Snapshot returns the committed tree.
	Snapshot func() core.NodeSnapshot
	// Stats returns scheduler counters.
	Stats func() core.Stats
}

// Server is the inspector HTTP server for one root.
type Server struct {
	src Sources

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a server that reads from src.
func New(src Sources) *Server {
	return &Server{src: src}
}

// Start binds addr and serves in the background. Binding first fails fast on
// port conflicts; pass a ":0" port for an ephemeral one and read the real
// address from the return value. Starting an already-running server returns
// its current address.
func (s *Server) Start(addr string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String(), nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("inspector listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/tree", s.handleTree)
	mux.HandleFunc("/stats", s.handleStats)

	srv := &http.Server{Handler: mux}
	s.server = srv
	s.listener = ln

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.mu.Lock()
			if s.server == srv {
				s.server = nil
				s.listener = nil
			}
			s.mu.Unlock()
		}
	}()
	return ln.Addr().String(), nil
}

// Addr returns the bound address, or "" when the server is not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close shuts the server down gracefully. Safe to call more than once.
func (s *Server) Close() {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := struct {
		Status string `json:"status"`
		Root   string `json:"root,omitempty"`
	}{Status: "ok"}
	if s.src.RootID != nil {
		resp.Root = s.src.RootID()
	}
	writeJSON(w, resp)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			http.Error(w, fmt.Sprintf("panic: %v", rec), http.StatusInternalServerError)
		}
	}()
	if s.src.Snapshot == nil {
		http.Error(w, "no tree source", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.src.Snapshot())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.src.Stats == nil {
		http.Error(w, "no stats source", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.src.Stats())
}

// writeJSON encodes to a buffer first so encoding failures surface as proper
// HTTP errors instead of truncated bodies.
func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, fmt.Sprintf("json encode error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
