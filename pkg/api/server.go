// SPDX-License-Identifier: Apache-2.0

// Package api exposes the Helios HTTP+JSON surface: task submission,
// agent status and the business endpoints.
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/helios-ops/helios/pkg/business"
	"github.com/helios-ops/helios/pkg/errors"
	"github.com/helios-ops/helios/pkg/memory"
	"github.com/helios-ops/helios/pkg/orchestrator"
)

// Services bundles everything the API serves.
type Services struct {
	Manager   *orchestrator.TaskManager
	Inventory *business.InventoryService
	Customers *business.CustomerService
	Staff     *business.StaffService
	Orders    *business.OrderService
	Reports   *business.ReportService
	State     *business.StateService
	Workflows *orchestrator.WorkflowEngine
	Memory    *memory.BusinessMemory
}

// Config tunes the HTTP surface.
type Config struct {
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string
	// APIKey, when set, is required in X-API-Key on /api routes.
	APIKey string
	// ProviderName is reported on /api/status.
	ProviderName string
	// Version is reported on /api/status.
	Version string
}

// Server routes HTTP+JSON requests to the Helios services.
type Server struct {
	services Services
	config   Config
	logger   *slog.Logger
}

// New creates a server.
func New(services Services, config Config) *Server {
	return &Server{
		services: services,
		config:   config,
		logger:   slog.Default().With("component", "api"),
	}
}

// Handler returns the server wrapped in its middleware stack.
func (s *Server) Handler() http.Handler {
	return Chain(s,
		WithLogging(s.logger),
		WithCORS(s.config.CORSOrigins),
		WithAPIKey(s.config.APIKey),
	)
}

// ServeHTTP routes requests by path segment.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	segments := normalizePath(r.URL.Path)
	if len(segments) == 0 {
		http.NotFound(w, r)
		return
	}

	if segments[0] == "healthz" {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if segments[0] != "api" || len(segments) < 2 {
		http.NotFound(w, r)
		return
	}
	rest := segments[2:]

	switch segments[1] {
	case "status":
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		s.handleStatus(w, r)
	case "tasks":
		s.handleTasks(w, r, rest)
	case "agents":
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		s.handleAgents(w, r, rest)
	case "business":
		s.handleBusiness(w, r, rest)
	case "workflows":
		s.handleWorkflows(w, r, rest)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	queue, err := s.services.Manager.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":        "helios",
		"version":        s.config.Version,
		"llm_provider":   s.config.ProviderName,
		"memory_enabled": s.services.Memory.Enabled(),
		"queue":          queue,
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request, segments []string) {
	withHistory := r.URL.Query().Get("history") == "true"
	statuses := s.services.Manager.AgentStatuses(withHistory)

	switch len(segments) {
	case 0:
		writeJSON(w, http.StatusOK, map[string]any{"agents": statuses})
	case 1:
		for _, status := range statuses {
			if status.Name == segments[0] {
				writeJSON(w, http.StatusOK, status)
				return
			}
		}
		writeError(w, errors.New(errors.CodeNotFound, "agent not found", nil).
			WithContext("agent", segments[0]))
	default:
		http.NotFound(w, r)
	}
}

// normalizePath splits a URL path into non-empty segments.
func normalizePath(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func decodeJSON(r *http.Request, v any) error {
	defer io.Copy(io.Discard, r.Body)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.New(errors.CodeInvalidInput, "invalid json body", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a HeliosError onto its HTTP status; anything else is
// an internal error.
func writeError(w http.ResponseWriter, err error) {
	if he := errors.AsHeliosError(err); he != nil {
		writeJSON(w, he.StatusCode, map[string]any{"error": he})
		return
	}
	writeJSONError(w, http.StatusInternalServerError, string(errors.CodeInternal), err.Error())
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

// queryInt parses an integer query parameter, returning def when absent
// or invalid.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
