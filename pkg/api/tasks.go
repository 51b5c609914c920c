// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"

	"github.com/helios-ops/helios/pkg/core"
)

type submitTaskRequest struct {
	Description string `json:"description"`
	Priority    string `json:"priority,omitempty"`
}

// handleTasks routes /api/tasks and everything below it.
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request, segments []string) {
	switch len(segments) {
	case 0:
		switch r.Method {
		case http.MethodPost:
			s.submitTask(w, r)
		case http.MethodGet:
			s.listTasks(w, r)
		default:
			http.NotFound(w, r)
		}
	case 1:
		switch segments[0] {
		case "process-next":
			if r.Method != http.MethodPost {
				http.NotFound(w, r)
				return
			}
			s.processNext(w, r)
		default:
			switch r.Method {
			case http.MethodGet:
				s.getTask(w, r, segments[0])
			case http.MethodDelete:
				s.cancelTask(w, r, segments[0])
			default:
				http.NotFound(w, r)
			}
		}
	case 2:
		if segments[0] == "queue" && segments[1] == "status" && r.Method == http.MethodGet {
			s.queueStatus(w, r)
			return
		}
		http.NotFound(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) submitTask(w http.ResponseWriter, r *http.Request) {
	var req submitTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	task, err := s.services.Manager.Submit(r.Context(), req.Description, core.TaskPriority(req.Priority))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	tasks, err := s.services.Manager.RecentTasks(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) processNext(w http.ResponseWriter, r *http.Request) {
	task, err := s.services.Manager.ProcessNext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if task == nil {
		writeJSON(w, http.StatusOK, map[string]any{"task": nil, "message": "queue is empty"})
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request, id string) {
	task, err := s.services.Manager.GetTask(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) cancelTask(w http.ResponseWriter, r *http.Request, id string) {
	task, err := s.services.Manager.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) queueStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.services.Manager.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
