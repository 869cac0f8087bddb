package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"sysmond/internal/model"
)

// Metrics is the collection surface the handlers call into. The Aggregator
// satisfies it; tests substitute a stub.
type Metrics interface {
	CPU(ctx context.Context) (model.CPUSnapshot, error)
	Memory() (model.MemorySnapshot, error)
	Disk(path string) (model.DiskSnapshot, error)
	Network() (model.NetworkSnapshot, error)
	System() (model.SystemSnapshot, error)
	TopProcesses(limit int) ([]model.ProcessInfo, error)
	All(ctx context.Context) (model.MetricsSnapshot, error)
}

// Server owns the HTTP mux for the telemetry API.
type Server struct {
	metrics    Metrics
	version    string
	mux        *http.ServeMux
	httpServer *http.Server
}

// New creates a Server and registers all routes.
func New(m Metrics, version string) *Server {
	s := &Server{
		metrics: m,
		version: version,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleRoot) // also the 404 catch-all
	s.mux.HandleFunc("/health", get(s.handleHealth))
	s.mux.HandleFunc("/system", get(s.handleSystem))
	s.mux.HandleFunc("/metrics", get(s.handleMetrics))
	s.mux.HandleFunc("/metrics/cpu", get(s.handleCPU))
	s.mux.HandleFunc("/metrics/memory", get(s.handleMemory))
	s.mux.HandleFunc("/metrics/disk", get(s.handleDisk))
	s.mux.HandleFunc("/metrics/network", get(s.handleNetwork))
	s.mux.HandleFunc("/processes", get(s.handleProcesses))
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return withCORS(s.mux)
}

// Start begins serving on addr. ListenAndServe runs in a goroutine; the call
// returns immediately.
func (s *Server) Start(addr string) {
	s.httpServer = &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("server error: %v", err)
		}
	}()
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// get rejects every method but GET with a 405 envelope.
func get(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed",
				fmt.Sprintf("%s is not supported on %s", r.Method, r.URL.Path))
			return
		}
		h(w, r)
	}
}

// withCORS allows any origin, so dashboards on other hosts can poll the API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
