// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/helios-ops/helios/pkg/business"
	"github.com/helios-ops/helios/pkg/core"
	"github.com/helios-ops/helios/pkg/memory"
)

// Operations handles inventory and logistics tasks. It classifies the
// task description and consults live inventory so results carry real
// stock figures.
type Operations struct {
	base
	inventory *business.InventoryService
	logger    *slog.Logger
}

// NewOperations creates the operations agent.
func NewOperations(inventory *business.InventoryService, mem *memory.BusinessMemory, historyLimit int) *Operations {
	return &Operations{
		base:      newBase(NameOperations, "Manages inventory and daily operations", mem, historyLimit),
		inventory: inventory,
		logger:    slog.Default().With("agent", NameOperations),
	}
}

// Execute classifies and runs an operational task.
func (a *Operations) Execute(ctx context.Context, task *core.Task) (map[string]any, error) {
	lowered := strings.ToLower(task.Description)

	var result map[string]any
	var err error
	switch {
	case containsAny(lowered, "low stock", "reorder", "running out", "restock"):
		result, err = a.reportLowStock(ctx, task)
	case containsAny(lowered, "add", "receive", "stock", "inventory"):
		result, err = a.applyStock(ctx, task, "add")
	case containsAny(lowered, "remove", "sold", "sale", "transaction"):
		result, err = a.applyStock(ctx, task, "remove")
	default:
		result = map[string]any{
			"type":    "general",
			"message": fmt.Sprintf("Operation processed: %s", task.Description),
			"details": map[string]any{},
		}
	}
	if err != nil {
		a.record(task, "failed", err)
		return nil, err
	}

	a.remember(ctx, memory.KindEvent,
		fmt.Sprintf("Operation: %s\nResult: %v", task.Description, result["message"]))
	a.record(task, "completed", nil)

	return map[string]any{
		"status":    "completed",
		"operation": result,
		"message":   result["message"],
	}, nil
}

// applyStock mutates inventory when the description names a known
// product and an amount. Otherwise the result is left pending for a
// human to confirm.
func (a *Operations) applyStock(ctx context.Context, task *core.Task, action string) (map[string]any, error) {
	kind := "inventory_addition"
	if action == "remove" {
		kind = "stock_removal"
	}

	product, amount, err := a.resolveProduct(ctx, task.Description)
	if err != nil {
		return nil, err
	}
	if product == nil || amount <= 0 {
		return map[string]any{
			"type":    kind,
			"message": fmt.Sprintf("Processed %s: %s", strings.ReplaceAll(kind, "_", " "), task.Description),
			"details": map[string]any{"action": action, "status": "pending_confirmation"},
		}, nil
	}

	if action == "remove" {
		product, err = a.inventory.RemoveStock(ctx, product.ID, amount)
	} else {
		product, err = a.inventory.AddStock(ctx, product.ID, amount)
	}
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"type":    kind,
		"message": fmt.Sprintf("Stock %s applied: %s now at %d units", action, product.Name, product.Quantity),
		"details": map[string]any{
			"action":     action,
			"status":     "applied",
			"product_id": product.ID,
			"amount":     amount,
			"quantity":   product.Quantity,
		},
	}, nil
}

// resolveProduct matches a product name and the first number mentioned
// in the description. Longer names win when several match.
func (a *Operations) resolveProduct(ctx context.Context, description string) (*core.Product, int, error) {
	products, err := a.inventory.ListProducts(ctx, "")
	if err != nil {
		return nil, 0, err
	}

	lowered := strings.ToLower(description)
	var match *core.Product
	for _, p := range products {
		name := strings.ToLower(p.Name)
		if name == "" || !strings.Contains(lowered, name) {
			continue
		}
		if match == nil || len(p.Name) > len(match.Name) {
			match = p
		}
	}

	amount := 0
	for _, field := range strings.Fields(lowered) {
		if n, err := strconv.Atoi(strings.Trim(field, ".,;:x")); err == nil && n > 0 {
			amount = n
			break
		}
	}
	return match, amount, nil
}

func (a *Operations) reportLowStock(ctx context.Context, task *core.Task) (map[string]any, error) {
	low, err := a.inventory.LowStockProducts(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(low))
	for _, p := range low {
		items = append(items, map[string]any{
			"product_id":    p.ID,
			"name":          p.Name,
			"quantity":      p.Quantity,
			"reorder_level": p.ReorderLevel,
		})
	}
	return map[string]any{
		"type":    "low_stock_check",
		"message": fmt.Sprintf("%d products at or below reorder level", len(low)),
		"details": map[string]any{"products": items},
	}, nil
}
