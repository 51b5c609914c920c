// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/helios-ops/helios/pkg/core"
	"github.com/helios-ops/helios/pkg/llm"
	"github.com/helios-ops/helios/pkg/memory"
)

// Registry names of the specialist agents the planner can route to.
const (
	NamePlanner        = "planner"
	NameOperations     = "operations"
	NameFinance        = "finance"
	NameCommunications = "communications"
	NameInsight        = "insight"
)

// Plan is the planner's routing decision for a task.
type Plan struct {
	Agents        []string `json:"agents"`
	Steps         []string `json:"steps"`
	Priority      string   `json:"priority"`
	EstimatedTime string   `json:"estimated_time,omitempty"`
	Risks         []string `json:"risks,omitempty"`
}

// Planner asks the LLM which specialist agents a task needs. When the
// model returns something unparseable the plan falls back to the
// operations agent so the task still runs.
type Planner struct {
	base
	provider llm.Provider
	logger   *slog.Logger
}

// NewPlanner creates the planner agent.
func NewPlanner(provider llm.Provider, mem *memory.BusinessMemory, historyLimit int) *Planner {
	return &Planner{
		base:     newBase(NamePlanner, "Plans tasks and coordinates other agents", mem, historyLimit),
		provider: provider,
		logger:   slog.Default().With("agent", NamePlanner),
	}
}

// Execute analyzes the task and returns the plan. The plan itself is
// also placed in the result payload under "plan".
func (p *Planner) Execute(ctx context.Context, task *core.Task) (map[string]any, error) {
	docs := p.recall(ctx, task.Description, 3)

	resp, err := p.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a business planning expert for a retail operation. Respond only with valid JSON."},
			{Role: llm.RoleUser, Content: buildPlanningPrompt(task.Description, docs)},
		},
	})
	if err != nil {
		p.record(task, "failed", err)
		return nil, err
	}

	plan := parsePlan(resp.Content)
	if plan == nil {
		p.logger.WarnContext(ctx, "plan not parseable, using fallback",
			"task_id", task.ID)
		plan = fallbackPlan()
	}
	plan.Agents = normalizeAgents(plan.Agents)

	p.remember(ctx, memory.KindTask,
		fmt.Sprintf("Task plan for %q: agents=%v steps=%v", task.Description, plan.Agents, plan.Steps))
	p.record(task, "completed", nil)

	return map[string]any{
		"status":          "completed",
		"plan":            plan,
		"agents_needed":   plan.Agents,
		"execution_steps": plan.Steps,
	}, nil
}

// PlanTask runs the planner and returns the typed plan.
func (p *Planner) PlanTask(ctx context.Context, task *core.Task) (*Plan, error) {
	result, err := p.Execute(ctx, task)
	if err != nil {
		return nil, err
	}
	plan, _ := result["plan"].(*Plan)
	if plan == nil {
		plan = fallbackPlan()
	}
	return plan, nil
}

func buildPlanningPrompt(description string, docs []memory.Document) string {
	var context strings.Builder
	if len(docs) == 0 {
		context.WriteString("No previous context available")
	} else {
		for _, d := range docs {
			fmt.Fprintf(&context, "- %s\n", truncateText(d.Text, 200))
		}
	}

	return fmt.Sprintf(`Analyze the following task and determine which agents should handle it.

TASK: %s

BUSINESS CONTEXT:
%s

AVAILABLE AGENTS:
1. operations - Manages inventory and logistics
2. finance - Handles financial transactions and accounting
3. communications - Manages customer and staff communications
4. insight - Provides analytics and recommendations

Respond with a JSON object:
{
    "agents": ["agent1", "agent2"],
    "steps": ["Step 1", "Step 2"],
    "priority": "high/normal/low",
    "estimated_time": "minutes",
    "risks": ["Risk 1"]
}

Respond ONLY with valid JSON, no additional text.`, description, context.String())
}

// truncateText clips s to at most n bytes, backing up so a multi-byte
// rune is never split.
func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// parsePlan extracts a Plan from the model output, tolerating markdown
// code fences around the JSON. Returns nil when nothing parses.
func parsePlan(content string) *Plan {
	content = strings.TrimSpace(content)
	if after, ok := strings.CutPrefix(content, "```json"); ok {
		content = after
	} else if after, ok := strings.CutPrefix(content, "```"); ok {
		content = after
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	var plan Plan
	if err := json.Unmarshal([]byte(content), &plan); err != nil {
		return nil
	}
	if len(plan.Agents) == 0 {
		return nil
	}
	return &plan
}

func fallbackPlan() *Plan {
	return &Plan{
		Agents:   []string{NameOperations},
		Steps:    []string{"Process the task"},
		Priority: string(core.PriorityNormal),
	}
}

// normalizeAgents maps model output like "OperationsAgent" onto registry
// names, dropping anything unknown.
func normalizeAgents(agents []string) []string {
	known := map[string]bool{
		NameOperations:     true,
		NameFinance:        true,
		NameCommunications: true,
		NameInsight:        true,
	}
	var out []string
	seen := make(map[string]bool)
	for _, a := range agents {
		name := strings.ToLower(strings.TrimSpace(a))
		name = strings.TrimSuffix(name, "agent")
		name = strings.TrimSpace(name)
		if known[name] && !seen[name] {
			out = append(out, name)
			seen[name] = true
		}
	}
	if len(out) == 0 {
		out = []string{NameOperations}
	}
	return out
}
