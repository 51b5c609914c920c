// SPDX-License-Identifier: Apache-2.0

package api

import "net/http"

// handleWorkflows routes /api/workflows and everything below it.
func (s *Server) handleWorkflows(w http.ResponseWriter, r *http.Request, segments []string) {
	switch len(segments) {
	case 0:
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"workflows": s.services.Workflows.Workflows(),
		})
	case 1:
		if segments[0] != "history" || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"history": s.services.Workflows.History(),
		})
	case 2:
		if segments[1] != "execute" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var wctx map[string]any
		if r.ContentLength > 0 {
			if err := decodeJSON(r, &wctx); err != nil {
				writeError(w, err)
				return
			}
		}
		result, err := s.services.Workflows.Execute(r.Context(), segments[0], wctx)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	default:
		http.NotFound(w, r)
	}
}
