// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/helios-ops/helios/pkg/errors"
)

// Step is one named unit of a workflow.
type Step struct {
	Name string
	Run  func(ctx context.Context, wctx map[string]any) (map[string]any, error)
}

// StepResult records one step's outcome.
type StepResult struct {
	Step    string         `json:"step"`
	Success bool           `json:"success"`
	Output  map[string]any `json:"output,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// WorkflowResult is the outcome of a workflow run.
type WorkflowResult struct {
	WorkflowID string       `json:"workflow_id"`
	Status     string       `json:"status"`
	Results    []StepResult `json:"results"`
	Error      string       `json:"error,omitempty"`
	ExecutedAt time.Time    `json:"executed_at"`
}

type workflow struct {
	id          string
	description string
	steps       []Step
}

// WorkflowEngine runs named multi-step workflows sequentially, aborting
// on the first failed step. Steps share a mutable context map.
type WorkflowEngine struct {
	mu        sync.Mutex
	workflows map[string]*workflow
	history   []WorkflowResult
	logger    *slog.Logger
}

// NewWorkflowEngine creates an empty engine.
func NewWorkflowEngine() *WorkflowEngine {
	return &WorkflowEngine{
		workflows: make(map[string]*workflow),
		logger:    slog.Default().With("component", "workflow"),
	}
}

// Register adds or replaces a workflow definition.
func (e *WorkflowEngine) Register(id, description string, steps ...Step) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.workflows[id] = &workflow{id: id, description: description, steps: steps}
}

// Execute runs the workflow with the given shared context. Step outputs
// are merged into wctx so later steps see earlier results.
func (e *WorkflowEngine) Execute(ctx context.Context, id string, wctx map[string]any) (*WorkflowResult, error) {
	e.mu.Lock()
	wf, ok := e.workflows[id]
	e.mu.Unlock()
	if !ok {
		return nil, errors.New(errors.CodeNotFound, "workflow not found", nil).
			WithContext("workflow_id", id)
	}
	if wctx == nil {
		wctx = make(map[string]any)
	}

	result := &WorkflowResult{
		WorkflowID: id,
		ExecutedAt: time.Now().UTC(),
	}

	for _, step := range wf.steps {
		output, err := step.Run(ctx, wctx)
		sr := StepResult{Step: step.Name, Success: err == nil, Output: output}
		if err != nil {
			sr.Error = err.Error()
			result.Results = append(result.Results, sr)
			result.Status = "failed"
			result.Error = "step failed: " + step.Name
			e.logger.ErrorContext(ctx, "workflow step failed",
				"workflow_id", id, "step", step.Name, "error", err)
			e.remember(result)
			return result, nil
		}
		for k, v := range output {
			wctx[k] = v
		}
		result.Results = append(result.Results, sr)
	}

	result.Status = "completed"
	e.logger.InfoContext(ctx, "workflow completed", "workflow_id", id)
	e.remember(result)
	return result, nil
}

// Info describes a registered workflow.
type Info struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Steps       int    `json:"steps"`
}

// Workflows lists the registered workflows sorted by id.
func (e *WorkflowEngine) Workflows() []Info {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Info, 0, len(e.workflows))
	for _, wf := range e.workflows {
		out = append(out, Info{ID: wf.id, Description: wf.description, Steps: len(wf.steps)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// History returns past workflow runs, oldest first.
func (e *WorkflowEngine) History() []WorkflowResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]WorkflowResult, len(e.history))
	copy(out, e.history)
	return out
}

func (e *WorkflowEngine) remember(result *WorkflowResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, *result)
}
