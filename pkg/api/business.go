// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"

	"github.com/helios-ops/helios/pkg/business"
	"github.com/helios-ops/helios/pkg/core"
)

// handleBusiness routes /api/business and everything below it.
func (s *Server) handleBusiness(w http.ResponseWriter, r *http.Request, segments []string) {
	if len(segments) == 0 {
		http.NotFound(w, r)
		return
	}
	rest := segments[1:]

	switch segments[0] {
	case "products":
		s.handleProducts(w, r, rest)
	case "customers":
		s.handleCustomers(w, r, rest)
	case "staff":
		s.handleStaff(w, r, rest)
	case "transactions":
		s.handleTransactions(w, r, rest)
	case "state":
		s.handleState(w, r, rest)
	case "reports":
		s.handleReports(w, r, rest)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request, segments []string) {
	ctx := r.Context()

	switch len(segments) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			products, err := s.services.Inventory.ListProducts(ctx, r.URL.Query().Get("category"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"products": products})
		case http.MethodPost:
			var p core.Product
			if err := decodeJSON(r, &p); err != nil {
				writeError(w, err)
				return
			}
			created, err := s.services.Inventory.CreateProduct(ctx, &p)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, created)
		default:
			http.NotFound(w, r)
		}
	case 1:
		if segments[0] == "low-stock" {
			if r.Method != http.MethodGet {
				http.NotFound(w, r)
				return
			}
			products, err := s.services.Inventory.LowStockProducts(ctx)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"products": products})
			return
		}

		id := segments[0]
		switch r.Method {
		case http.MethodGet:
			p, err := s.services.Inventory.GetProduct(ctx, id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, p)
		case http.MethodPut:
			existing, err := s.services.Inventory.GetProduct(ctx, id)
			if err != nil {
				writeError(w, err)
				return
			}
			if err := decodeJSON(r, existing); err != nil {
				writeError(w, err)
				return
			}
			existing.ID = id
			updated, err := s.services.Inventory.UpdateProduct(ctx, existing)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, updated)
		case http.MethodDelete:
			if err := s.services.Inventory.DeleteProduct(ctx, id); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
		default:
			http.NotFound(w, r)
		}
	case 2:
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Amount int `json:"amount"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		var p *core.Product
		var err error
		switch segments[1] {
		case "add-stock":
			p, err = s.services.Inventory.AddStock(ctx, segments[0], req.Amount)
		case "remove-stock":
			p, err = s.services.Inventory.RemoveStock(ctx, segments[0], req.Amount)
		default:
			http.NotFound(w, r)
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request, segments []string) {
	ctx := r.Context()

	switch len(segments) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			customers, err := s.services.Customers.ListCustomers(ctx)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
		case http.MethodPost:
			var c core.Customer
			if err := decodeJSON(r, &c); err != nil {
				writeError(w, err)
				return
			}
			created, err := s.services.Customers.CreateCustomer(ctx, &c)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, created)
		default:
			http.NotFound(w, r)
		}
	case 1:
		if segments[0] == "top" {
			if r.Method != http.MethodGet {
				http.NotFound(w, r)
				return
			}
			customers, err := s.services.Customers.TopCustomers(ctx, queryInt(r, "limit", 10))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
			return
		}

		id := segments[0]
		switch r.Method {
		case http.MethodGet:
			c, err := s.services.Customers.GetCustomer(ctx, id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, c)
		case http.MethodPut:
			existing, err := s.services.Customers.GetCustomer(ctx, id)
			if err != nil {
				writeError(w, err)
				return
			}
			if err := decodeJSON(r, existing); err != nil {
				writeError(w, err)
				return
			}
			existing.ID = id
			updated, err := s.services.Customers.UpdateCustomer(ctx, existing)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, updated)
		case http.MethodDelete:
			if err := s.services.Customers.DeleteCustomer(ctx, id); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
		default:
			http.NotFound(w, r)
		}
	case 2:
		switch {
		case segments[1] == "purchase" && r.Method == http.MethodPost:
			var req struct {
				Amount float64 `json:"amount"`
			}
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, err)
				return
			}
			c, err := s.services.Customers.RecordPurchase(ctx, segments[0], req.Amount)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, c)
		case segments[1] == "transactions" && r.Method == http.MethodGet:
			txs, err := s.services.Orders.TransactionsForCustomer(ctx, segments[0])
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
		default:
			http.NotFound(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleStaff(w http.ResponseWriter, r *http.Request, segments []string) {
	ctx := r.Context()

	switch len(segments) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			status := core.StaffStatus(r.URL.Query().Get("status"))
			staff, err := s.services.Staff.ListStaff(ctx, status)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"staff": staff})
		case http.MethodPost:
			var m core.Staff
			if err := decodeJSON(r, &m); err != nil {
				writeError(w, err)
				return
			}
			created, err := s.services.Staff.CreateStaff(ctx, &m)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, created)
		default:
			http.NotFound(w, r)
		}
	case 1:
		id := segments[0]
		switch r.Method {
		case http.MethodGet:
			m, err := s.services.Staff.GetStaff(ctx, id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, m)
		case http.MethodPut:
			existing, err := s.services.Staff.GetStaff(ctx, id)
			if err != nil {
				writeError(w, err)
				return
			}
			if err := decodeJSON(r, existing); err != nil {
				writeError(w, err)
				return
			}
			existing.ID = id
			updated, err := s.services.Staff.UpdateStaff(ctx, existing)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, updated)
		case http.MethodDelete:
			if err := s.services.Staff.DeleteStaff(ctx, id); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
		default:
			http.NotFound(w, r)
		}
	case 2:
		if segments[1] != "performance" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Rating float64 `json:"rating"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		m, err := s.services.Staff.UpdatePerformance(ctx, segments[0], req.Rating)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request, segments []string) {
	ctx := r.Context()

	switch len(segments) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			txs, err := s.services.Orders.ListTransactions(ctx, queryInt(r, "limit", 50))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
		case http.MethodPost:
			var input business.OrderInput
			if err := decodeJSON(r, &input); err != nil {
				writeError(w, err)
				return
			}
			tx, err := s.services.Orders.CreateTransaction(ctx, input)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, tx)
		default:
			http.NotFound(w, r)
		}
	case 1:
		switch r.Method {
		case http.MethodGet:
			tx, err := s.services.Orders.GetTransaction(ctx, segments[0])
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, tx)
		case http.MethodDelete:
			if err := s.services.Orders.DeleteTransaction(ctx, segments[0]); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": segments[0]})
		default:
			http.NotFound(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, segments []string) {
	ctx := r.Context()

	switch len(segments) {
	case 0:
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		state, err := s.services.State.Snapshot(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	case 1:
		if segments[0] != "metrics" {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			history, err := s.services.State.MetricsHistory(ctx, queryInt(r, "limit", 30))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"metrics": history})
		case http.MethodPost:
			var req struct {
				Period string `json:"period"`
			}
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, err)
				return
			}
			snap, err := s.services.State.RecordMetrics(ctx, req.Period)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, snap)
		default:
			http.NotFound(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request, segments []string) {
	if len(segments) != 1 || r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	report, err := s.services.Reports.ByName(r.Context(), segments[0])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"report": segments[0],
		"data":   report,
	})
}
