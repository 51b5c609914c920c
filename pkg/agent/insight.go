// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/helios-ops/helios/pkg/business"
	"github.com/helios-ops/helios/pkg/core"
	"github.com/helios-ops/helios/pkg/llm"
	"github.com/helios-ops/helios/pkg/memory"
)

// Insight analyzes business data and produces recommendations, backed
// by the report service. With a provider attached it also asks the LLM
// for a short narrative over the report data.
type Insight struct {
	base
	reports  *business.ReportService
	provider llm.Provider
}

// NewInsight creates the insight agent. provider may be nil to skip the
// narrative summary.
func NewInsight(reports *business.ReportService, provider llm.Provider, mem *memory.BusinessMemory, historyLimit int) *Insight {
	return &Insight{
		base:     newBase(NameInsight, "Provides analytics and business insights", mem, historyLimit),
		reports:  reports,
		provider: provider,
	}
}

// Execute classifies and runs an analysis task.
func (a *Insight) Execute(ctx context.Context, task *core.Task) (map[string]any, error) {
	lowered := strings.ToLower(task.Description)

	var result map[string]any
	var err error
	switch {
	case containsAny(lowered, "sales", "revenue", "performance"):
		result, err = a.analyzeSales(ctx, task)
	case containsAny(lowered, "inventory", "stock", "product"):
		result, err = a.analyzeInventory(ctx, task)
	case containsAny(lowered, "customer", "trend", "behavior"):
		result, err = a.analyzeCustomers(ctx, task)
	default:
		result = map[string]any{
			"type":            "general_analysis",
			"message":         fmt.Sprintf("Business analysis: %s", task.Description),
			"recommendations": []string{},
			"details":         map[string]any{},
		}
	}
	if err != nil {
		a.record(task, "failed", err)
		return nil, err
	}

	if summary := a.summarize(ctx, task, result); summary != "" {
		result["summary"] = summary
	}

	a.remember(ctx, memory.KindInsight,
		fmt.Sprintf("Business Insights: %s\nInsights: %v", task.Description, result["message"]))
	a.record(task, "completed", nil)

	return map[string]any{
		"status":   "completed",
		"insights": result,
		"message":  result["message"],
	}, nil
}

// summarize asks the LLM for a short narrative over the analysis data.
// Analysis never fails because the summary did.
func (a *Insight) summarize(ctx context.Context, task *core.Task, result map[string]any) string {
	if a.provider == nil {
		return ""
	}
	resp, err := a.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a retail business analyst. Summarize the analysis in two or three plain sentences."},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Task: %s\nAnalysis data: %v", task.Description, result["details"])},
		},
	})
	if err != nil {
		slog.Default().WarnContext(ctx, "insight summary skipped",
			"agent", a.name, "error", err)
		return ""
	}
	return strings.TrimSpace(resp.Content)
}

func (a *Insight) analyzeSales(ctx context.Context, task *core.Task) (map[string]any, error) {
	weekly, err := a.reports.WeeklySales(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":    "sales_analysis",
		"message": fmt.Sprintf("Sales performance analysis: %s", task.Description),
		"recommendations": []string{
			"Monitor peak sales hours for staffing optimization",
			"Consider promotions during low-demand periods",
			"Analyze product mix for cross-selling opportunities",
		},
		"details": map[string]any{
			"metric":        "sales_performance",
			"weekly_totals": weekly,
		},
	}, nil
}

func (a *Insight) analyzeInventory(ctx context.Context, task *core.Task) (map[string]any, error) {
	inventory, err := a.reports.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":    "inventory_analysis",
		"message": fmt.Sprintf("Inventory analysis: %s", task.Description),
		"recommendations": []string{
			"Review reorder levels for fast-moving items",
			"Consider supplier consolidation to reduce costs",
		},
		"details": map[string]any{
			"metric": "inventory_health",
			"report": inventory,
		},
	}, nil
}

func (a *Insight) analyzeCustomers(ctx context.Context, task *core.Task) (map[string]any, error) {
	customers, err := a.reports.Customers(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":    "customer_analysis",
		"message": fmt.Sprintf("Customer analysis: %s", task.Description),
		"recommendations": []string{
			"Develop loyalty program for repeat customers",
			"Target high-value customer segments with promotions",
		},
		"details": map[string]any{
			"metric": "customer_satisfaction",
			"report": customers,
		},
	}, nil
}
