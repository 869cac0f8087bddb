package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"sysmond/internal/collector"
	"sysmond/internal/model"
)

const defaultProcessLimit = 10

var knownEndpoints = []string{
	"/", "/health", "/system", "/metrics",
	"/metrics/cpu", "/metrics/memory", "/metrics/disk",
	"/metrics/network", "/processes",
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "Not Found",
			fmt.Sprintf("The endpoint %s does not exist", r.URL.Path))
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed",
			fmt.Sprintf("%s is not supported on /", r.Method))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"api":     "sysmond",
		"version": s.version,
		"status":  "running",
		"endpoints": map[string]string{
			"health":    "/health",
			"system":    "/system",
			"metrics":   "/metrics",
			"cpu":       "/metrics/cpu",
			"memory":    "/metrics/memory",
			"disk":      "/metrics/disk",
			"network":   "/metrics/network",
			"processes": "/processes",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sys, err := s.metrics.System()
	if err != nil {
		s.writeCollectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"timestamp":      now(),
		"uptime_seconds": sys.UptimeSeconds,
	})
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	sys, err := s.metrics.System()
	if err != nil {
		s.writeCollectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sys)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap, err := s.metrics.All(r.Context())
	if err != nil {
		s.writeCollectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCPU(w http.ResponseWriter, r *http.Request) {
	snap, err := s.metrics.CPU(r.Context())
	if err != nil {
		s.writeCollectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Timestamp time.Time         `json:"timestamp"`
		CPU       model.CPUSnapshot `json:"cpu"`
	}{now(), snap})
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	snap, err := s.metrics.Memory()
	if err != nil {
		s.writeCollectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Timestamp time.Time            `json:"timestamp"`
		Memory    model.MemorySnapshot `json:"memory"`
	}{now(), snap})
}

func (s *Server) handleDisk(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		path = collector.DefaultDiskPath
	}
	snap, err := s.metrics.Disk(path)
	if err != nil {
		s.writeCollectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Timestamp time.Time          `json:"timestamp"`
		Disk      model.DiskSnapshot `json:"disk"`
	}{now(), snap})
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	snap, err := s.metrics.Network()
	if err != nil {
		s.writeCollectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Timestamp time.Time             `json:"timestamp"`
		Network   model.NetworkSnapshot `json:"network"`
	}{now(), snap})
}

func (s *Server) handleProcesses(w http.ResponseWriter, r *http.Request) {
	limit := defaultProcessLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Bad Request",
				fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}
	// Bounds are checked here, before any OS sampling happens.
	if limit > collector.MaxProcessLimit {
		writeError(w, http.StatusBadRequest, "Bad Request", collector.ErrLimitExceeded.Error())
		return
	}
	if limit < 1 {
		writeError(w, http.StatusBadRequest, "Bad Request", "limit must be at least 1")
		return
	}
	procs, err := s.metrics.TopProcesses(limit)
	if err != nil {
		s.writeCollectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Timestamp time.Time           `json:"timestamp"`
		Count     int                 `json:"count"`
		Processes []model.ProcessInfo `json:"processes"`
	}{now(), len(procs), procs})
}

// writeCollectError maps collector failures onto status codes. Collector
// errors arrive here unmodified; this is the only place that translates them.
func (s *Server) writeCollectError(w http.ResponseWriter, err error) {
	var pathErr *collector.InvalidPathError
	if errors.As(err, &pathErr) {
		writeError(w, http.StatusBadRequest, "Bad Request", pathErr.Error())
		return
	}
	log.Printf("collect error: %v", err)
	writeError(w, http.StatusInternalServerError, "Internal Server Error",
		"An unexpected error occurred")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

type errorEnvelope struct {
	Error              string   `json:"error"`
	Message            string   `json:"message"`
	AvailableEndpoints []string `json:"available_endpoints,omitempty"`
}

func writeError(w http.ResponseWriter, status int, name, message string) {
	env := errorEnvelope{Error: name, Message: message}
	if status == http.StatusNotFound {
		env.AvailableEndpoints = knownEndpoints
	}
	writeJSON(w, status, env)
}

// now is the single timestamp source for response envelopes: UTC, so the
// RFC3339 form always carries the Z suffix.
func now() time.Time { return time.Now().UTC() }
