// SPDX-License-Identifier: Apache-2.0

// Package agent implements the Helios agents. A planner decides which
// specialist agents a task needs; the specialists interpret the task
// description and drive the business services.
package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/helios-ops/helios/pkg/core"
	"github.com/helios-ops/helios/pkg/memory"
)

// Agent is a unit that can execute a natural-language task.
type Agent interface {
	// Name returns the agent's registry name.
	Name() string
	// Description says what the agent handles.
	Description() string
	// Execute runs the task and returns a result payload.
	Execute(ctx context.Context, task *core.Task) (map[string]any, error)
}

// ExecutionRecord is one entry in an agent's execution history.
type ExecutionRecord struct {
	TaskID          string    `json:"task_id"`
	TaskDescription string    `json:"task_description"`
	Status          string    `json:"status"`
	Error           string    `json:"error,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// HistoryProvider is implemented by agents that track their executions.
type HistoryProvider interface {
	History() []ExecutionRecord
}

// DefaultHistoryLimit bounds per-agent execution history.
const DefaultHistoryLimit = 100

// base carries the shared agent plumbing: identity, memory access and
// a bounded execution history.
type base struct {
	name        string
	description string
	memory      *memory.BusinessMemory

	mu      sync.Mutex
	limit   int
	records []ExecutionRecord
}

func newBase(name, description string, mem *memory.BusinessMemory, historyLimit int) base {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return base{
		name:        name,
		description: description,
		memory:      mem,
		limit:       historyLimit,
	}
}

func (b *base) Name() string        { return b.name }
func (b *base) Description() string { return b.description }

// History returns a copy of the execution history, newest last.
func (b *base) History() []ExecutionRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ExecutionRecord, len(b.records))
	copy(out, b.records)
	return out
}

func (b *base) record(task *core.Task, status string, execErr error) {
	rec := ExecutionRecord{
		TaskID:          task.ID,
		TaskDescription: task.Description,
		Status:          status,
		Timestamp:       time.Now().UTC(),
	}
	if execErr != nil {
		rec.Error = execErr.Error()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, rec)
	if len(b.records) > b.limit {
		b.records = b.records[len(b.records)-b.limit:]
	}
}

// recall fetches semantically related memories, swallowing memory
// failures: context is an enrichment, never a dependency.
func (b *base) recall(ctx context.Context, query string, limit int) []memory.Document {
	if b.memory == nil {
		return nil
	}
	docs, err := b.memory.Recall(ctx, query, limit)
	if err != nil {
		return nil
	}
	return docs
}

// remember stores an execution note, ignoring memory failures.
func (b *base) remember(ctx context.Context, kind memory.DocumentKind, text string) {
	if b.memory == nil {
		return
	}
	_ = b.memory.Remember(ctx, kind, text, b.name)
}

// containsAny reports whether the lowercased text contains any of the words.
func containsAny(lowered string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}
