package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/helios-ops/helios/pkg/agent"
	"github.com/helios-ops/helios/pkg/business"
	"github.com/helios-ops/helios/pkg/core"
	"github.com/helios-ops/helios/pkg/llm"
	"github.com/helios-ops/helios/pkg/memory"
	"github.com/helios-ops/helios/pkg/orchestrator"
	"github.com/helios-ops/helios/pkg/store"
)

const opsPlan = `{"agents": ["operations"], "steps": ["Process"], "priority": "normal"}`

func newTestServer(t *testing.T, config Config) *Server {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "helios.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	products := store.NewProductStore(db)
	custStore := store.NewCustomerStore(db)
	staffStore := store.NewStaffStore(db)
	txStore := store.NewTransactionStore(db)
	metricsStore := store.NewMetricsStore(db)

	inventory := business.NewInventoryService(products)
	customers := business.NewCustomerService(custStore)
	staff := business.NewStaffService(staffStore)
	orders := business.NewOrderService(txStore, inventory, customers, 0.10)
	state := business.NewStateService(inventory, customers, staff, orders,
		products, custStore, staffStore, metricsStore)
	reports := business.NewReportService(inventory, customers, staff, orders, state)

	registry := agent.NewRegistry(
		agent.NewOperations(inventory, nil, 0),
		agent.NewFinance(orders, state, nil, 0),
	)
	planner := agent.NewPlanner(&llm.MockProvider{Response: opsPlan}, nil, 0)
	manager := orchestrator.NewTaskManager(planner, registry,
		store.NewTaskStore(db), nil, orchestrator.Config{})

	workflows := orchestrator.NewWorkflowEngine()
	workflows.Register("close-of-day", "End of day routine",
		orchestrator.Step{Name: "record-metrics", Run: func(ctx context.Context, wctx map[string]any) (map[string]any, error) {
			snap, err := state.RecordMetrics(ctx, "daily")
			if err != nil {
				return nil, err
			}
			return map[string]any{"daily_sales": snap.DailySales}, nil
		}},
	)

	return New(Services{
		Manager:   manager,
		Inventory: inventory,
		Customers: customers,
		Staff:     staff,
		Orders:    orders,
		Reports:   reports,
		State:     state,
		Workflows: workflows,
		Memory:    memory.NewBusinessMemory(nil, nil, memory.BusinessMemoryConfig{}),
	}, config)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, Config{})
	rec := doJSON(t, s.Handler(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t, Config{ProviderName: "mock", Version: "test"})
	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Service       string `json:"service"`
		LLMProvider   string `json:"llm_provider"`
		MemoryEnabled bool   `json:"memory_enabled"`
	}
	decodeBody(t, rec, &body)
	if body.Service != "helios" || body.LLMProvider != "mock" {
		t.Errorf("unexpected status body %+v", body)
	}
	if body.MemoryEnabled {
		t.Error("memory should be disabled in tests")
	}
}

func TestAPIKeyAuth(t *testing.T) {
	s := newTestServer(t, Config{APIKey: "secret"})
	handler := s.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", rec.Code)
	}

	// Health stays open.
	rec = doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for healthz, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("X-API-Key", "secret")
	good := httptest.NewRecorder()
	handler.ServeHTTP(good, req)
	if good.Code != http.StatusOK {
		t.Errorf("expected 200 with key, got %d", good.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, Config{CORSOrigins: []string{"http://localhost:3000"}})
	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("missing CORS origin header")
	}
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestServer(t, Config{})
	handler := s.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/tasks",
		map[string]string{"description": "check low stock", "priority": "high"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var task core.Task
	decodeBody(t, rec, &task)
	if task.Status != core.TaskStatusPending || task.Priority != core.PriorityHigh {
		t.Errorf("unexpected task %+v", task)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/tasks/process-next", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var processed core.Task
	decodeBody(t, rec, &processed)
	if processed.Status != core.TaskStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", processed.Status, processed.Error)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/tasks/"+task.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/tasks/queue/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status orchestrator.QueueStatus
	decodeBody(t, rec, &status)
	if status.CompletedTasks != 1 {
		t.Errorf("expected 1 completed, got %+v", status)
	}

	// Empty queue reports rather than errors.
	rec = doJSON(t, handler, http.MethodPost, "/api/tasks/process-next", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for empty queue, got %d", rec.Code)
	}
}

func TestSubmitTaskValidation(t *testing.T) {
	s := newTestServer(t, Config{})
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/tasks",
		map[string]string{"description": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCancelTask(t *testing.T) {
	s := newTestServer(t, Config{})
	handler := s.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/tasks",
		map[string]string{"description": "cancel me"})
	var task core.Task
	decodeBody(t, rec, &task)

	rec = doJSON(t, handler, http.MethodDelete, "/api/tasks/"+task.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var cancelled core.Task
	decodeBody(t, rec, &cancelled)
	if cancelled.Status != core.TaskStatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
}

func TestAgentsEndpoint(t *testing.T) {
	s := newTestServer(t, Config{})
	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/agents", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Agents []agent.Status `json:"agents"`
	}
	decodeBody(t, rec, &body)
	if len(body.Agents) != 3 {
		t.Errorf("expected planner + 2 agents, got %d", len(body.Agents))
	}

	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/agents/"+agent.NameOperations, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for known agent, got %d", rec.Code)
	}
	var status agent.Status
	decodeBody(t, rec, &status)
	if status.Name != agent.NameOperations {
		t.Errorf("expected operations status, got %+v", status)
	}

	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/agents/unknown", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown agent, got %d", rec.Code)
	}
}

func TestProductCRUDAndStock(t *testing.T) {
	s := newTestServer(t, Config{})
	handler := s.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/business/products",
		map[string]any{"name": "Espresso Beans", "price": 12.5, "quantity": 40, "reorder_level": 5, "category": "coffee"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var p core.Product
	decodeBody(t, rec, &p)
	if p.ID == "" {
		t.Fatal("expected generated product id")
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/business/products?category=coffee", nil)
	var list struct {
		Products []core.Product `json:"products"`
	}
	decodeBody(t, rec, &list)
	if len(list.Products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(list.Products))
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/business/products/"+p.ID,
		map[string]any{"price": 13.0})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated core.Product
	decodeBody(t, rec, &updated)
	if updated.Price != 13.0 || updated.Name != "Espresso Beans" {
		t.Errorf("expected partial update, got %+v", updated)
	}

	rec = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/business/products/%s/remove-stock", p.ID),
		map[string]any{"amount": 37})
	if rec.Code != http.StatusOK {
		t.Fatalf("stock: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &updated)
	if updated.Quantity != 3 {
		t.Errorf("expected quantity 3, got %d", updated.Quantity)
	}

	// Now below the reorder level.
	rec = doJSON(t, handler, http.MethodGet, "/api/business/products/low-stock", nil)
	decodeBody(t, rec, &list)
	if len(list.Products) != 1 {
		t.Errorf("expected 1 low-stock product, got %d", len(list.Products))
	}

	rec = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/business/products/%s/remove-stock", p.ID),
		map[string]any{"amount": 10})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for insufficient stock, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/business/products/"+p.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/business/products/"+p.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestTransactionEndpoint(t *testing.T) {
	s := newTestServer(t, Config{})
	handler := s.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/business/products",
		map[string]any{"name": "Mug", "price": 5.0, "quantity": 10})
	var p core.Product
	decodeBody(t, rec, &p)

	rec = doJSON(t, handler, http.MethodPost, "/api/business/customers",
		map[string]any{"name": "Dana"})
	var c core.Customer
	decodeBody(t, rec, &c)

	rec = doJSON(t, handler, http.MethodPost, "/api/business/transactions",
		business.OrderInput{
			CustomerID:    c.ID,
			Items:         []business.OrderLine{{ProductID: p.ID, Quantity: 2}},
			PaymentMethod: "card",
		})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var tx core.Transaction
	decodeBody(t, rec, &tx)
	if tx.Subtotal != 10.0 || tx.Tax != 1.0 || tx.Total != 11.0 {
		t.Errorf("unexpected totals %+v", tx)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/business/transactions/"+tx.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	// Customer totals updated.
	rec = doJSON(t, handler, http.MethodGet, "/api/business/customers/"+c.ID, nil)
	decodeBody(t, rec, &c)
	if c.TotalPurchases != 11.0 || c.PurchaseCount != 1 {
		t.Errorf("expected customer totals updated, got %+v", c)
	}
}

func TestStaffEndpoints(t *testing.T) {
	s := newTestServer(t, Config{})
	handler := s.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/business/staff",
		map[string]any{"name": "Riley", "role": "barista"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var m core.Staff
	decodeBody(t, rec, &m)
	if m.Status != core.StaffActive {
		t.Errorf("expected default active, got %s", m.Status)
	}

	rec = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/business/staff/%s/performance", m.ID),
		map[string]any{"rating": 4.5})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &m)
	if m.PerformanceRating != 4.5 {
		t.Errorf("expected rating 4.5, got %v", m.PerformanceRating)
	}

	rec = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/business/staff/%s/performance", m.ID),
		map[string]any{"rating": 9})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for out-of-range rating, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/business/staff?status=active", nil)
	var list struct {
		Staff []core.Staff `json:"staff"`
	}
	decodeBody(t, rec, &list)
	if len(list.Staff) != 1 {
		t.Errorf("expected 1 active staff, got %d", len(list.Staff))
	}
}

func TestStateAndReports(t *testing.T) {
	s := newTestServer(t, Config{})
	handler := s.Handler()

	doJSON(t, handler, http.MethodPost, "/api/business/products",
		map[string]any{"name": "Filter", "price": 2.0, "quantity": 30})

	rec := doJSON(t, handler, http.MethodGet, "/api/business/state", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("state: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var state core.BusinessState
	decodeBody(t, rec, &state)
	if state.TotalProducts != 1 || state.TotalInventoryValue != 60.0 {
		t.Errorf("unexpected state %+v", state)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/business/state/metrics",
		map[string]any{"period": "daily"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("metrics: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/business/state/metrics", nil)
	var history struct {
		Metrics []core.MetricsSnapshot `json:"metrics"`
	}
	decodeBody(t, rec, &history)
	if len(history.Metrics) != 1 {
		t.Errorf("expected 1 snapshot, got %d", len(history.Metrics))
	}

	for _, name := range []string{"daily_sales", "inventory", "customers", "staff", "comprehensive"} {
		rec = doJSON(t, handler, http.MethodGet, "/api/business/reports/"+name, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("report %s: expected 200, got %d: %s", name, rec.Code, rec.Body.String())
		}
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/business/reports/nonsense", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown report, got %d", rec.Code)
	}
}

func TestWorkflowEndpoints(t *testing.T) {
	s := newTestServer(t, Config{})
	handler := s.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/workflows", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list struct {
		Workflows []orchestrator.Info `json:"workflows"`
	}
	decodeBody(t, rec, &list)
	if len(list.Workflows) != 1 || list.Workflows[0].ID != "close-of-day" {
		t.Fatalf("unexpected workflows %+v", list.Workflows)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/workflows/close-of-day/execute", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("execute: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result orchestrator.WorkflowResult
	decodeBody(t, rec, &result)
	if result.Status != "completed" {
		t.Errorf("expected completed workflow, got %+v", result)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/workflows/unknown/execute", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown workflow, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/workflows/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", rec.Code)
	}
	var history struct {
		History []orchestrator.WorkflowResult `json:"history"`
	}
	decodeBody(t, rec, &history)
	if len(history.History) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(history.History))
	}
}

func TestInvalidJSONBody(t *testing.T) {
	s := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
