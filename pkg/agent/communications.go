// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/helios-ops/helios/pkg/business"
	"github.com/helios-ops/helios/pkg/core"
	"github.com/helios-ops/helios/pkg/memory"
)

// Communications handles customer and staff messaging tasks.
type Communications struct {
	base
	customers *business.CustomerService
	staff     *business.StaffService
}

// NewCommunications creates the communications agent.
func NewCommunications(customers *business.CustomerService, staff *business.StaffService, mem *memory.BusinessMemory, historyLimit int) *Communications {
	return &Communications{
		base:      newBase(NameCommunications, "Manages customer and staff communications", mem, historyLimit),
		customers: customers,
		staff:     staff,
	}
}

// Execute classifies and runs a communications task.
func (a *Communications) Execute(ctx context.Context, task *core.Task) (map[string]any, error) {
	lowered := strings.ToLower(task.Description)

	var result map[string]any
	switch {
	case containsAny(lowered, "staff", "employee", "team"):
		count := 0
		if active, err := a.staff.ListStaff(ctx, core.StaffActive); err == nil {
			count = len(active)
		}
		result = map[string]any{
			"type":    "staff_communication",
			"message": fmt.Sprintf("Staff alert issued: %s", task.Description),
			"details": map[string]any{
				"target":     "staff",
				"status":     "issued",
				"recipients": count,
				"channels":   []string{"in_app", "email"},
			},
		}
	case containsAny(lowered, "customer", "client", "notify"):
		count := 0
		if all, err := a.customers.ListCustomers(ctx); err == nil {
			count = len(all)
		}
		result = map[string]any{
			"type":    "customer_communication",
			"message": fmt.Sprintf("Customer communication queued: %s", task.Description),
			"details": map[string]any{
				"target":     "customer",
				"status":     "queued",
				"recipients": count,
				"channels":   []string{"sms", "email"},
			},
		}
	default:
		result = map[string]any{
			"type":    "general_communication",
			"message": fmt.Sprintf("Communication processed: %s", task.Description),
			"details": map[string]any{},
		}
	}

	a.remember(ctx, memory.KindEvent,
		fmt.Sprintf("Communication: %s\nResult: %v", task.Description, result["message"]))
	a.record(task, "completed", nil)

	return map[string]any{
		"status":        "completed",
		"communication": result,
		"message":       result["message"],
	}, nil
}
