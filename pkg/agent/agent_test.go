package agent

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/helios-ops/helios/pkg/business"
	"github.com/helios-ops/helios/pkg/core"
	"github.com/helios-ops/helios/pkg/llm"
	"github.com/helios-ops/helios/pkg/store"
)

func newServices(t *testing.T) (*business.InventoryService, *business.CustomerService, *business.StaffService, *business.OrderService, *business.ReportService, *business.StateService) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "helios.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	products := store.NewProductStore(db)
	customers := store.NewCustomerStore(db)
	staffStore := store.NewStaffStore(db)
	transactions := store.NewTransactionStore(db)
	metrics := store.NewMetricsStore(db)

	inventory := business.NewInventoryService(products)
	customerSvc := business.NewCustomerService(customers)
	staffSvc := business.NewStaffService(staffStore)
	orders := business.NewOrderService(transactions, inventory, customerSvc, 0)
	state := business.NewStateService(inventory, customerSvc, staffSvc, orders,
		products, customers, staffStore, metrics)
	reports := business.NewReportService(inventory, customerSvc, staffSvc, orders, state)

	return inventory, customerSvc, staffSvc, orders, reports, state
}

func TestPlannerParsesJSONPlan(t *testing.T) {
	provider := &llm.MockProvider{
		Response: `{"agents": ["finance", "insight"], "steps": ["Check sales", "Summarize"], "priority": "high"}`,
	}
	planner := NewPlanner(provider, nil, 0)

	task := core.NewTask("summarize today's sales", core.PriorityNormal)
	plan, err := planner.PlanTask(context.Background(), task)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.Agents) != 2 || plan.Agents[0] != "finance" || plan.Agents[1] != "insight" {
		t.Errorf("unexpected agents %v", plan.Agents)
	}
	if plan.Priority != "high" {
		t.Errorf("expected high priority, got %q", plan.Priority)
	}
}

func TestPlannerHandlesCodeFences(t *testing.T) {
	provider := &llm.MockProvider{
		Response: "```json\n{\"agents\": [\"OperationsAgent\"], \"steps\": [\"Restock\"], \"priority\": \"normal\"}\n```",
	}
	planner := NewPlanner(provider, nil, 0)

	plan, err := planner.PlanTask(context.Background(), core.NewTask("restock", core.PriorityNormal))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.Agents) != 1 || plan.Agents[0] != NameOperations {
		t.Errorf("expected normalized operations agent, got %v", plan.Agents)
	}
}

func TestPlannerFallsBackOnGarbage(t *testing.T) {
	provider := &llm.MockProvider{Response: "I think the operations team should handle this."}
	planner := NewPlanner(provider, nil, 0)

	plan, err := planner.PlanTask(context.Background(), core.NewTask("do something", core.PriorityNormal))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.Agents) != 1 || plan.Agents[0] != NameOperations {
		t.Errorf("expected fallback to operations, got %v", plan.Agents)
	}
}

func TestTruncateTextKeepsRunesIntact(t *testing.T) {
	// 199 ASCII bytes followed by a three-byte rune straddling the cut.
	s := strings.Repeat("a", 199) + "€€"

	got := truncateText(s, 200)
	if !utf8.ValidString(got) {
		t.Errorf("truncation produced invalid UTF-8: %q", got)
	}
	if len(got) != 199 {
		t.Errorf("expected cut back to 199 bytes, got %d", len(got))
	}
	if truncateText("short", 200) != "short" {
		t.Error("short strings should pass through unchanged")
	}
}

func TestPlannerPropagatesProviderError(t *testing.T) {
	planner := NewPlanner(&llm.FailingMockProvider{}, nil, 0)

	_, err := planner.Execute(context.Background(), core.NewTask("anything", core.PriorityNormal))
	if err == nil {
		t.Fatal("expected provider error")
	}

	history := planner.History()
	if len(history) != 1 || history[0].Status != "failed" {
		t.Errorf("expected failed history entry, got %v", history)
	}
}

func TestOperationsLowStockCheck(t *testing.T) {
	inventory, _, _, _, _, _ := newServices(t)
	ctx := context.Background()

	if _, err := inventory.CreateProduct(ctx, &core.Product{
		Name: "Beans", Price: 10, Quantity: 2, ReorderLevel: 5,
	}); err != nil {
		t.Fatal(err)
	}

	ops := NewOperations(inventory, nil, 0)
	task := core.NewTask("check low stock items", core.PriorityNormal)
	result, err := ops.Execute(ctx, task)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	op, ok := result["operation"].(map[string]any)
	if !ok {
		t.Fatalf("missing operation payload: %v", result)
	}
	if op["type"] != "low_stock_check" {
		t.Errorf("expected low_stock_check, got %v", op["type"])
	}
}

func TestOperationsClassification(t *testing.T) {
	inventory, _, _, _, _, _ := newServices(t)
	ops := NewOperations(inventory, nil, 0)
	ctx := context.Background()

	cases := []struct {
		description string
		wantType    string
	}{
		{"Add 50 bottles of Coke from supplier ABC", "inventory_addition"},
		{"Sold 10 units of product X", "stock_removal"},
		{"Tidy the storefront", "general"},
	}
	for _, tc := range cases {
		result, err := ops.Execute(ctx, core.NewTask(tc.description, core.PriorityNormal))
		if err != nil {
			t.Fatalf("%q: %v", tc.description, err)
		}
		op := result["operation"].(map[string]any)
		if op["type"] != tc.wantType {
			t.Errorf("%q: expected %s, got %v", tc.description, tc.wantType, op["type"])
		}
	}
}

func TestOperationsAppliesStockChange(t *testing.T) {
	inventory, _, _, _, _, _ := newServices(t)
	ctx := context.Background()

	p, err := inventory.CreateProduct(ctx, &core.Product{Name: "Coke", Price: 2, Quantity: 10})
	if err != nil {
		t.Fatal(err)
	}

	ops := NewOperations(inventory, nil, 0)
	result, err := ops.Execute(ctx, core.NewTask("Received 5 Coke from the supplier", core.PriorityNormal))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	op := result["operation"].(map[string]any)
	details := op["details"].(map[string]any)
	if details["status"] != "applied" {
		t.Fatalf("expected applied stock change, got %v", details)
	}

	updated, err := inventory.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Quantity != 15 {
		t.Errorf("expected quantity 15, got %d", updated.Quantity)
	}
}

func TestFinanceRecordsMetricsSnapshot(t *testing.T) {
	_, _, _, orders, _, state := newServices(t)

	finance := NewFinance(orders, state, nil, 0)
	result, err := finance.Execute(context.Background(),
		core.NewTask("record a metrics snapshot for today", core.PriorityNormal))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	tx := result["transaction"].(map[string]any)
	if tx["type"] != "metrics_snapshot" {
		t.Errorf("expected metrics_snapshot, got %v", tx["type"])
	}
}

func TestFinanceDailySales(t *testing.T) {
	inventory, _, _, orders, _, _ := newServices(t)
	ctx := context.Background()

	p, err := inventory.CreateProduct(ctx, &core.Product{Name: "Latte", Price: 5, Quantity: 10})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := orders.CreateTransaction(ctx, business.OrderInput{
		Items: []business.OrderLine{{ProductID: p.ID, Quantity: 1}},
	}); err != nil {
		t.Fatal(err)
	}

	finance := NewFinance(orders, nil, nil, 0)
	result, err := finance.Execute(ctx, core.NewTask("give me the daily sales report", core.PriorityNormal))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	tx := result["transaction"].(map[string]any)
	if tx["type"] != "sales_summary" {
		t.Errorf("expected sales_summary, got %v", tx["type"])
	}
}

func TestCommunicationsRouting(t *testing.T) {
	_, customers, staff, _, _, _ := newServices(t)
	ctx := context.Background()

	if _, err := staff.CreateStaff(ctx, &core.Staff{Name: "Dana", Role: "manager"}); err != nil {
		t.Fatal(err)
	}

	comms := NewCommunications(customers, staff, nil, 0)
	result, err := comms.Execute(ctx, core.NewTask("alert staff about the closing time change", core.PriorityHigh))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	comm := result["communication"].(map[string]any)
	if comm["type"] != "staff_communication" {
		t.Errorf("expected staff_communication, got %v", comm["type"])
	}
	details := comm["details"].(map[string]any)
	if details["recipients"] != 1 {
		t.Errorf("expected 1 recipient, got %v", details["recipients"])
	}
}

func TestInsightInventoryAnalysis(t *testing.T) {
	inventory, _, _, _, reports, _ := newServices(t)
	ctx := context.Background()

	if _, err := inventory.CreateProduct(ctx, &core.Product{
		Name: "Mug", Price: 8, Quantity: 1, ReorderLevel: 3,
	}); err != nil {
		t.Fatal(err)
	}

	insight := NewInsight(reports, &llm.MockProvider{Response: "Stock levels look healthy overall."}, nil, 0)
	result, err := insight.Execute(ctx, core.NewTask("analyze our inventory health", core.PriorityNormal))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	ins := result["insights"].(map[string]any)
	if ins["type"] != "inventory_analysis" {
		t.Errorf("expected inventory_analysis, got %v", ins["type"])
	}
	if ins["summary"] != "Stock levels look healthy overall." {
		t.Errorf("expected llm summary, got %v", ins["summary"])
	}
}

func TestRegistryStatuses(t *testing.T) {
	inventory, customers, staff, orders, reports, state := newServices(t)

	registry := NewRegistry(
		NewOperations(inventory, nil, 0),
		NewFinance(orders, state, nil, 0),
		NewCommunications(customers, staff, nil, 0),
		NewInsight(reports, nil, nil, 0),
	)

	names := registry.Names()
	if len(names) != 4 || names[0] != NameOperations {
		t.Errorf("unexpected names %v", names)
	}

	if _, err := registry.Get("nonexistent"); err == nil {
		t.Error("expected error for unknown agent")
	}

	ops, err := registry.Get(NameOperations)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := ops.Execute(context.Background(), core.NewTask("check inventory", core.PriorityNormal)); err != nil {
		t.Fatal(err)
	}

	statuses := registry.Statuses(false)
	if len(statuses) != 4 {
		t.Fatalf("expected 4 statuses, got %d", len(statuses))
	}
	if statuses[0].Executions != 1 || statuses[0].LastRun == nil {
		t.Errorf("expected execution recorded for operations, got %+v", statuses[0])
	}
	if statuses[0].History != nil {
		t.Error("history should be omitted without withHistory")
	}
}

func TestHistoryBounded(t *testing.T) {
	inventory, _, _, _, _, _ := newServices(t)
	ops := NewOperations(inventory, nil, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := ops.Execute(ctx, core.NewTask("general chore", core.PriorityLow)); err != nil {
			t.Fatal(err)
		}
	}
	if got := len(ops.History()); got != 3 {
		t.Errorf("expected history capped at 3, got %d", got)
	}
}
