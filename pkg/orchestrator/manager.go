// SPDX-License-Identifier: Apache-2.0

// Package orchestrator coordinates task execution: a bounded FIFO queue
// feeds the planner, which fans tasks out to the specialist agents.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/helios-ops/helios/pkg/agent"
	"github.com/helios-ops/helios/pkg/core"
	"github.com/helios-ops/helios/pkg/errors"
	"github.com/helios-ops/helios/pkg/resilience"
	"github.com/helios-ops/helios/pkg/store"
	"github.com/helios-ops/helios/pkg/telemetry"
)

// DefaultMaxQueueSize bounds the task queue when no limit is configured.
const DefaultMaxQueueSize = 100

// AgentResult pairs an agent with its execution payload.
type AgentResult struct {
	Agent  string         `json:"agent"`
	Result map[string]any `json:"result"`
}

// QueueStatus summarizes the queue for the API.
type QueueStatus struct {
	QueueSize      int      `json:"queue_size"`
	ActiveTasks    int      `json:"active_tasks"`
	CompletedTasks int      `json:"completed_tasks"`
	FailedTasks    int      `json:"failed_tasks"`
	Agents         []string `json:"agents"`
}

// Config tunes the task manager.
type Config struct {
	// MaxQueueSize bounds the pending queue; submissions beyond it fail.
	MaxQueueSize int
	// TaskTimeout bounds a single task execution. Zero disables it.
	TaskTimeout time.Duration
}

// TaskManager owns the task queue. Critical tasks jump to the front;
// everything else is strictly FIFO. Every state change is persisted so
// pending work survives a restart.
type TaskManager struct {
	planner  *agent.Planner
	registry *agent.Registry
	tasks    *store.TaskStore
	metrics  *telemetry.TaskMetrics
	config   Config
	logger   *slog.Logger

	mu     sync.Mutex
	queue  []*core.Task
	active map[string]*core.Task
}

// NewTaskManager creates a task manager.
func NewTaskManager(planner *agent.Planner, registry *agent.Registry, tasks *store.TaskStore, metrics *telemetry.TaskMetrics, config Config) *TaskManager {
	if config.MaxQueueSize <= 0 {
		config.MaxQueueSize = DefaultMaxQueueSize
	}
	return &TaskManager{
		planner:  planner,
		registry: registry,
		tasks:    tasks,
		metrics:  metrics,
		config:   config,
		logger:   slog.Default().With("component", "orchestrator"),
		active:   make(map[string]*core.Task),
	}
}

// Recover re-enqueues tasks that were pending when the process last
// stopped. Call once at startup before accepting traffic.
func (m *TaskManager) Recover(ctx context.Context) (int, error) {
	pending, err := m.tasks.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending tasks: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, task := range pending {
		if task.Priority == core.PriorityCritical {
			m.queue = append([]*core.Task{task}, m.queue...)
		} else {
			m.queue = append(m.queue, task)
		}
	}
	if len(pending) > 0 {
		m.logger.InfoContext(ctx, "recovered pending tasks", "count", len(pending))
	}
	return len(pending), nil
}

// Submit queues a new task and persists it. Critical priority tasks go
// to the front of the queue.
func (m *TaskManager) Submit(ctx context.Context, description string, priority core.TaskPriority) (*core.Task, error) {
	if description == "" {
		return nil, errors.New(errors.CodeInvalidInput, "task description is required", nil)
	}
	if priority != "" && !core.ValidPriority(priority) {
		return nil, errors.New(errors.CodeInvalidInput, "invalid task priority", nil).
			WithContext("priority", string(priority))
	}
	if priority == "" {
		priority = core.PriorityNormal
	}

	m.mu.Lock()
	if len(m.queue) >= m.config.MaxQueueSize {
		m.mu.Unlock()
		m.metrics.RecordRejected(ctx)
		return nil, errors.New(errors.CodeQueueFull, "task queue is full", nil).
			WithContext("max_queue_size", m.config.MaxQueueSize).
			WithRecoverable(true)
	}

	task := core.NewTask(description, priority)
	if task.Priority == core.PriorityCritical {
		m.queue = append([]*core.Task{task}, m.queue...)
	} else {
		m.queue = append(m.queue, task)
	}
	depth := len(m.queue)
	snapshot := task.Clone()
	m.mu.Unlock()

	if err := m.tasks.Save(ctx, snapshot); err != nil {
		// The task still runs from the in-memory queue; it just won't
		// survive a restart.
		m.logger.WarnContext(ctx, "task not persisted", "task_id", snapshot.ID, "error", err)
	}

	m.metrics.RecordSubmitted(ctx, string(snapshot.Priority))
	m.metrics.RecordQueueDepth(ctx, depth)
	m.logger.InfoContext(ctx, "task submitted",
		"task_id", snapshot.ID, "priority", snapshot.Priority, "queue_size", depth)
	return snapshot, nil
}

// ProcessNext pops and executes the next task. Returns (nil, nil) when
// the queue is empty. Task-level failures are reported on the returned
// task, not as an error. The queued task itself is only touched under
// the lock; callers always get a private copy.
func (m *TaskManager) ProcessNext(ctx context.Context) (*core.Task, error) {
	m.mu.Lock()
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return nil, nil
	}
	task := m.queue[0]
	m.queue = m.queue[1:]
	depth := len(m.queue)
	m.active[task.ID] = task
	task.Status = core.TaskStatusRunning
	task.UpdatedAt = time.Now().UTC()
	snapshot := task.Clone()
	m.mu.Unlock()

	m.metrics.RecordQueueDepth(ctx, depth)
	m.persist(ctx, snapshot)

	// The execution goroutine can outlive a timeout, so its outputs go
	// through execMu rather than straight onto the task.
	var execMu sync.Mutex
	var agents []string
	var result map[string]any

	start := time.Now()
	err := resilience.WithTimeout(ctx, resilience.TimeoutConfig{Duration: m.config.TaskTimeout},
		func(ctx context.Context) error {
			a, r, execErr := m.execute(ctx, snapshot)
			execMu.Lock()
			agents, result = a, r
			execMu.Unlock()
			return execErr
		})

	execMu.Lock()
	planned, payload := agents, result
	execMu.Unlock()

	m.mu.Lock()
	task.Agents = planned
	task.UpdatedAt = time.Now().UTC()
	if err != nil {
		task.Status = core.TaskStatusFailed
		task.Error = err.Error()
	} else {
		task.Status = core.TaskStatusCompleted
		task.Result = payload
	}
	delete(m.active, task.ID)
	done := task.Clone()
	m.mu.Unlock()

	if err != nil {
		m.logger.ErrorContext(ctx, "task failed", "task_id", done.ID, "error", err)
	} else {
		m.logger.InfoContext(ctx, "task completed", "task_id", done.ID)
	}
	m.persist(ctx, done)

	m.metrics.RecordOutcome(ctx, err == nil, time.Since(start).Seconds())
	return done, nil
}

// execute runs the planner-first pipeline and aggregates the agent
// results. The planned agents come back even on failure so the task
// records how far it got.
func (m *TaskManager) execute(ctx context.Context, task *core.Task) ([]string, map[string]any, error) {
	plan, err := m.planner.PlanTask(ctx, task)
	if err != nil {
		return nil, nil, fmt.Errorf("planning failed: %w", err)
	}

	results := make([]AgentResult, 0, len(plan.Agents))
	for _, name := range plan.Agents {
		a, err := m.registry.Get(name)
		if err != nil {
			m.logger.WarnContext(ctx, "planned agent not registered", "agent", name)
			continue
		}
		result, err := a.Execute(ctx, task)
		if err != nil {
			return plan.Agents, nil, fmt.Errorf("agent %s failed: %w", name, err)
		}
		results = append(results, AgentResult{Agent: name, Result: result})
	}

	resultPayloads := make([]any, 0, len(results))
	for _, r := range results {
		resultPayloads = append(resultPayloads, map[string]any{
			"agent":  r.Agent,
			"result": r.Result,
		})
	}
	return plan.Agents, map[string]any{
		"plan":              plan,
		"execution_results": resultPayloads,
	}, nil
}

// GetTask returns a task, preferring the live in-flight state. The
// returned task is a copy; the live one stays behind the lock.
func (m *TaskManager) GetTask(ctx context.Context, id string) (*core.Task, error) {
	m.mu.Lock()
	if task, ok := m.active[id]; ok {
		defer m.mu.Unlock()
		return task.Clone(), nil
	}
	for _, task := range m.queue {
		if task.ID == id {
			defer m.mu.Unlock()
			return task.Clone(), nil
		}
	}
	m.mu.Unlock()
	return m.tasks.Get(ctx, id)
}

// Cancel removes a pending task from the queue and marks it cancelled.
// Running or finished tasks cannot be cancelled.
func (m *TaskManager) Cancel(ctx context.Context, id string) (*core.Task, error) {
	m.mu.Lock()
	for i, task := range m.queue {
		if task.ID != id {
			continue
		}
		m.queue = append(m.queue[:i], m.queue[i+1:]...)
		task.Status = core.TaskStatusCancelled
		task.UpdatedAt = time.Now().UTC()
		cancelled := task.Clone()
		m.mu.Unlock()

		m.persist(ctx, cancelled)
		m.logger.InfoContext(ctx, "task cancelled", "task_id", id)
		return cancelled, nil
	}
	m.mu.Unlock()

	task, err := m.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, errors.New(errors.CodeInvalidInput, "only pending tasks can be cancelled", nil).
		WithContext("task_id", id).
		WithContext("status", string(task.Status))
}

// QueueLen returns the number of queued tasks.
func (m *TaskManager) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Status summarizes the queue and persisted task counts.
func (m *TaskManager) Status(ctx context.Context) (*QueueStatus, error) {
	counts, err := m.tasks.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	status := &QueueStatus{
		QueueSize:   len(m.queue),
		ActiveTasks: len(m.active),
	}
	m.mu.Unlock()

	status.CompletedTasks = counts[core.TaskStatusCompleted]
	status.FailedTasks = counts[core.TaskStatusFailed]
	status.Agents = append([]string{agent.NamePlanner}, m.registry.Names()...)
	return status, nil
}

// AgentStatuses reports all registered agents plus the planner.
func (m *TaskManager) AgentStatuses(withHistory bool) []agent.Status {
	statuses := m.registry.Statuses(withHistory)

	planner := agent.Status{
		Name:        m.planner.Name(),
		Description: m.planner.Description(),
	}
	history := m.planner.History()
	planner.Executions = len(history)
	if len(history) > 0 {
		last := history[len(history)-1]
		planner.LastRun = &last
	}
	if withHistory {
		planner.History = history
	}
	return append([]agent.Status{planner}, statuses...)
}

// PurgeTasks deletes terminal tasks last updated before the cutoff.
func (m *TaskManager) PurgeTasks(ctx context.Context, olderThan time.Time) (int64, error) {
	return m.tasks.Purge(ctx, olderThan)
}

// RecentTasks returns the most recently updated tasks.
func (m *TaskManager) RecentTasks(ctx context.Context, limit int) ([]*core.Task, error) {
	return m.tasks.ListRecent(ctx, limit)
}

func (m *TaskManager) persist(ctx context.Context, task *core.Task) {
	if err := m.tasks.Save(ctx, task); err != nil {
		m.logger.WarnContext(ctx, "task state not persisted",
			"task_id", task.ID, "status", task.Status, "error", err)
	}
}
