// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/helios-ops/helios/pkg/business"
	"github.com/helios-ops/helios/pkg/core"
	"github.com/helios-ops/helios/pkg/memory"
)

// Finance handles financial tracking tasks, backed by the order service
// for live sales figures.
type Finance struct {
	base
	orders *business.OrderService
	state  *business.StateService
}

// NewFinance creates the finance agent. state may be nil when metric
// snapshots are not wanted.
func NewFinance(orders *business.OrderService, state *business.StateService, mem *memory.BusinessMemory, historyLimit int) *Finance {
	return &Finance{
		base:   newBase(NameFinance, "Manages financial tracking and cash flow", mem, historyLimit),
		orders: orders,
		state:  state,
	}
}

// Execute classifies and runs a financial task.
func (a *Finance) Execute(ctx context.Context, task *core.Task) (map[string]any, error) {
	lowered := strings.ToLower(task.Description)

	var result map[string]any
	switch {
	case containsAny(lowered, "daily sales", "today's sales", "sales report"):
		summary, err := a.orders.DailySales(ctx, time.Now().UTC())
		if err != nil {
			a.record(task, "failed", err)
			return nil, err
		}
		result = map[string]any{
			"type":    "sales_summary",
			"message": fmt.Sprintf("Daily sales: %.2f across %d transactions", summary.TotalSales, summary.TransactionCount),
			"details": map[string]any{"summary": summary},
		}
	case a.state != nil && containsAny(lowered, "metric", "snapshot", "close of day", "close the day"):
		snap, err := a.state.RecordMetrics(ctx, "daily")
		if err != nil {
			a.record(task, "failed", err)
			return nil, err
		}
		result = map[string]any{
			"type":    "metrics_snapshot",
			"message": fmt.Sprintf("Metrics recorded: %.2f in sales across %d transactions", snap.DailySales, snap.DailyTransactions),
			"details": map[string]any{"snapshot": snap},
		}
	case containsAny(lowered, "sale", "sold", "purchase", "buy"):
		result = map[string]any{
			"type":    "sale",
			"message": fmt.Sprintf("Sale recorded: %s", task.Description),
			"details": map[string]any{"category": "revenue", "status": "recorded"},
		}
	case containsAny(lowered, "payment", "paid", "refund"):
		result = map[string]any{
			"type":    "payment",
			"message": fmt.Sprintf("Payment processed: %s", task.Description),
			"details": map[string]any{"category": "cash_flow", "status": "processed"},
		}
	case containsAny(lowered, "expense", "cost", "spent"):
		result = map[string]any{
			"type":    "expense",
			"message": fmt.Sprintf("Expense recorded: %s", task.Description),
			"details": map[string]any{"category": "expense", "status": "recorded"},
		}
	default:
		result = map[string]any{
			"type":    "general_transaction",
			"message": fmt.Sprintf("Financial transaction processed: %s", task.Description),
			"details": map[string]any{},
		}
	}

	a.remember(ctx, memory.KindTransaction,
		fmt.Sprintf("Financial Transaction: %s\nResult: %v", task.Description, result["message"]))
	a.record(task, "completed", nil)

	return map[string]any{
		"status":      "completed",
		"transaction": result,
		"message":     result["message"],
	}, nil
}
