package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/helios-ops/helios/pkg/agent"
	"github.com/helios-ops/helios/pkg/business"
	"github.com/helios-ops/helios/pkg/core"
	"github.com/helios-ops/helios/pkg/errors"
	"github.com/helios-ops/helios/pkg/llm"
	"github.com/helios-ops/helios/pkg/store"
)

const opsPlan = `{"agents": ["operations"], "steps": ["Process"], "priority": "normal"}`

func newManager(t *testing.T, provider llm.Provider, config Config) (*TaskManager, *store.TaskStore) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "helios.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	inventory := business.NewInventoryService(store.NewProductStore(db))
	registry := agent.NewRegistry(agent.NewOperations(inventory, nil, 0))
	planner := agent.NewPlanner(provider, nil, 0)
	tasks := store.NewTaskStore(db)

	return NewTaskManager(planner, registry, tasks, nil, config), tasks
}

func TestSubmitAndProcess(t *testing.T) {
	m, tasks := newManager(t, &llm.MockProvider{Response: opsPlan}, Config{})
	ctx := context.Background()

	task, err := m.Submit(ctx, "check low stock", core.PriorityNormal)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if task.Status != core.TaskStatusPending {
		t.Errorf("expected pending, got %s", task.Status)
	}

	processed, err := m.ProcessNext(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if processed.ID != task.ID {
		t.Errorf("processed wrong task")
	}
	if processed.Status != core.TaskStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", processed.Status, processed.Error)
	}
	if processed.Result["plan"] == nil {
		t.Error("expected plan in result")
	}
	if len(processed.Agents) != 1 || processed.Agents[0] != agent.NameOperations {
		t.Errorf("expected operations agent recorded, got %v", processed.Agents)
	}

	// Terminal state persisted.
	saved, err := tasks.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("get saved: %v", err)
	}
	if saved.Status != core.TaskStatusCompleted {
		t.Errorf("expected persisted completed, got %s", saved.Status)
	}
}

func TestProcessNextEmptyQueue(t *testing.T) {
	m, _ := newManager(t, &llm.MockProvider{Response: opsPlan}, Config{})

	task, err := m.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task != nil {
		t.Errorf("expected nil task for empty queue, got %v", task)
	}
}

func TestSubmitValidation(t *testing.T) {
	m, _ := newManager(t, &llm.MockProvider{Response: opsPlan}, Config{})
	ctx := context.Background()

	_, err := m.Submit(ctx, "", core.PriorityNormal)
	he := errors.AsHeliosError(err)
	if he == nil || he.Code != errors.CodeInvalidInput {
		t.Errorf("expected INVALID_INPUT for empty description, got %v", err)
	}

	_, err = m.Submit(ctx, "task", core.TaskPriority("urgent"))
	he = errors.AsHeliosError(err)
	if he == nil || he.Code != errors.CodeInvalidInput {
		t.Errorf("expected INVALID_INPUT for bad priority, got %v", err)
	}

	// Blank priority defaults to normal.
	task, err := m.Submit(ctx, "task", "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if task.Priority != core.PriorityNormal {
		t.Errorf("expected normal priority, got %s", task.Priority)
	}
}

func TestQueueFull(t *testing.T) {
	m, _ := newManager(t, &llm.MockProvider{Response: opsPlan}, Config{MaxQueueSize: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := m.Submit(ctx, fmt.Sprintf("task %d", i), core.PriorityNormal); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	_, err := m.Submit(ctx, "one too many", core.PriorityNormal)
	he := errors.AsHeliosError(err)
	if he == nil || he.Code != errors.CodeQueueFull {
		t.Errorf("expected QUEUE_FULL, got %v", err)
	}
}

func TestCriticalJumpsQueue(t *testing.T) {
	m, _ := newManager(t, &llm.MockProvider{Response: opsPlan}, Config{})
	ctx := context.Background()

	if _, err := m.Submit(ctx, "routine restock", core.PriorityNormal); err != nil {
		t.Fatal(err)
	}
	critical, err := m.Submit(ctx, "freezer failure", core.PriorityCritical)
	if err != nil {
		t.Fatal(err)
	}

	processed, err := m.ProcessNext(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if processed.ID != critical.ID {
		t.Errorf("expected critical task first, got %q", processed.Description)
	}
}

func TestPlannerFailureMarksTaskFailed(t *testing.T) {
	m, tasks := newManager(t, &llm.FailingMockProvider{}, Config{})
	ctx := context.Background()

	task, err := m.Submit(ctx, "doomed", core.PriorityNormal)
	if err != nil {
		t.Fatal(err)
	}

	processed, err := m.ProcessNext(ctx)
	if err != nil {
		t.Fatalf("process should not error: %v", err)
	}
	if processed.Status != core.TaskStatusFailed {
		t.Errorf("expected failed, got %s", processed.Status)
	}
	if processed.Error == "" {
		t.Error("expected error message on task")
	}

	saved, err := tasks.Get(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if saved.Status != core.TaskStatusFailed {
		t.Errorf("expected persisted failed, got %s", saved.Status)
	}
}

func TestRecoverPendingTasks(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "helios.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	tasks := store.NewTaskStore(db)
	ctx := context.Background()

	orphan := core.NewTask("left behind", core.PriorityNormal)
	if err := tasks.Save(ctx, orphan); err != nil {
		t.Fatal(err)
	}

	inventory := business.NewInventoryService(store.NewProductStore(db))
	registry := agent.NewRegistry(agent.NewOperations(inventory, nil, 0))
	planner := agent.NewPlanner(&llm.MockProvider{Response: opsPlan}, nil, 0)
	m := NewTaskManager(planner, registry, tasks, nil, Config{})

	recovered, err := m.Recover(ctx)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("expected 1 recovered task, got %d", recovered)
	}

	processed, err := m.ProcessNext(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if processed == nil || processed.ID != orphan.ID {
		t.Errorf("expected recovered task to run, got %v", processed)
	}
}

// gatedProvider parks in Chat until released, holding a task in the
// running state.
type gatedProvider struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *gatedProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	p.once.Do(func() { close(p.started) })
	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &llm.ChatResponse{Content: opsPlan}, nil
}

func TestGetTaskReturnsStableCopy(t *testing.T) {
	gate := &gatedProvider{started: make(chan struct{}), release: make(chan struct{})}
	m, _ := newManager(t, gate, Config{})
	ctx := context.Background()

	submitted, err := m.Submit(ctx, "slow planning job", core.PriorityNormal)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan *core.Task, 1)
	go func() {
		processed, _ := m.ProcessNext(ctx)
		done <- processed
	}()
	<-gate.started

	// Read and marshal the task while the worker goroutine owns it.
	running, err := m.GetTask(ctx, submitted.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if running.Status != core.TaskStatusRunning {
		t.Errorf("expected running, got %s", running.Status)
	}
	if _, err := json.Marshal(running); err != nil {
		t.Fatalf("marshal: %v", err)
	}

	close(gate.release)
	processed := <-done
	if processed == nil || processed.Status != core.TaskStatusCompleted {
		t.Fatalf("expected completed task, got %+v", processed)
	}

	// Earlier reads are copies and stay frozen at what they observed.
	if running.Status != core.TaskStatusRunning {
		t.Errorf("running copy mutated to %s", running.Status)
	}
	if submitted.Status != core.TaskStatusPending {
		t.Errorf("submitted copy mutated to %s", submitted.Status)
	}
}

func TestCancelPendingTask(t *testing.T) {
	m, _ := newManager(t, &llm.MockProvider{Response: opsPlan}, Config{})
	ctx := context.Background()

	task, err := m.Submit(ctx, "cancel me", core.PriorityNormal)
	if err != nil {
		t.Fatal(err)
	}

	cancelled, err := m.Cancel(ctx, task.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != core.TaskStatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
	if m.QueueLen() != 0 {
		t.Errorf("expected empty queue, got %d", m.QueueLen())
	}

	// Terminal tasks cannot be cancelled again.
	if _, err := m.Cancel(ctx, task.ID); err == nil {
		t.Error("expected error cancelling terminal task")
	}
}

func TestStatusAndAgentStatuses(t *testing.T) {
	m, _ := newManager(t, &llm.MockProvider{Response: opsPlan}, Config{})
	ctx := context.Background()

	if _, err := m.Submit(ctx, "task one", core.PriorityNormal); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ProcessNext(ctx); err != nil {
		t.Fatal(err)
	}

	status, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CompletedTasks != 1 || status.QueueSize != 0 {
		t.Errorf("unexpected status %+v", status)
	}
	if len(status.Agents) != 2 || status.Agents[0] != agent.NamePlanner {
		t.Errorf("expected planner + operations, got %v", status.Agents)
	}

	agents := m.AgentStatuses(false)
	if len(agents) != 2 {
		t.Fatalf("expected 2 agent statuses, got %d", len(agents))
	}
	if agents[0].Name != agent.NamePlanner || agents[0].Executions != 1 {
		t.Errorf("expected planner execution recorded, got %+v", agents[0])
	}
}

func TestWorkerDrainsQueue(t *testing.T) {
	m, _ := newManager(t, &llm.MockProvider{Response: opsPlan}, Config{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := m.Submit(ctx, fmt.Sprintf("task %d", i), core.PriorityNormal); err != nil {
			t.Fatal(err)
		}
	}

	w := NewWorker(m, 10*time.Millisecond)
	w.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for m.QueueLen() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	w.Stop()

	if m.QueueLen() != 0 {
		t.Errorf("expected drained queue, got %d", m.QueueLen())
	}
}

func TestWorkerPurgesExpiredTasks(t *testing.T) {
	m, tasks := newManager(t, &llm.MockProvider{Response: opsPlan}, Config{})
	ctx := context.Background()

	old := core.NewTask("archived chore", core.PriorityNormal)
	old.Status = core.TaskStatusCompleted
	old.UpdatedAt = time.Now().UTC().Add(-2 * time.Hour)
	if err := tasks.Save(ctx, old); err != nil {
		t.Fatal(err)
	}
	fresh := core.NewTask("recent chore", core.PriorityNormal)
	fresh.Status = core.TaskStatusCompleted
	if err := tasks.Save(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	w := NewWorker(m, 10*time.Millisecond, WithTaskRetention(time.Hour))
	w.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := tasks.Get(ctx, old.ID); err != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	w.Stop()

	if _, err := tasks.Get(ctx, old.ID); err == nil {
		t.Error("expected expired task to be purged")
	}
	if _, err := tasks.Get(ctx, fresh.ID); err != nil {
		t.Errorf("recent task should survive purge: %v", err)
	}
}

func TestWorkflowEngine(t *testing.T) {
	engine := NewWorkflowEngine()
	ctx := context.Background()

	engine.Register("close-of-day", "End of day routine",
		Step{Name: "tally", Run: func(ctx context.Context, wctx map[string]any) (map[string]any, error) {
			return map[string]any{"total": 42.0}, nil
		}},
		Step{Name: "report", Run: func(ctx context.Context, wctx map[string]any) (map[string]any, error) {
			if wctx["total"] != 42.0 {
				return nil, fmt.Errorf("missing tally output")
			}
			return map[string]any{"reported": true}, nil
		}},
	)

	result, err := engine.Execute(ctx, "close-of-day", nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Status != "completed" || len(result.Results) != 2 {
		t.Errorf("unexpected result %+v", result)
	}

	if len(engine.History()) != 1 {
		t.Errorf("expected 1 history entry")
	}

	if _, err := engine.Execute(ctx, "nope", nil); err == nil {
		t.Error("expected error for unknown workflow")
	}
}

func TestWorkflowAbortsOnFailure(t *testing.T) {
	engine := NewWorkflowEngine()
	reached := false

	engine.Register("fragile", "",
		Step{Name: "boom", Run: func(ctx context.Context, wctx map[string]any) (map[string]any, error) {
			return nil, fmt.Errorf("exploded")
		}},
		Step{Name: "after", Run: func(ctx context.Context, wctx map[string]any) (map[string]any, error) {
			reached = true
			return nil, nil
		}},
	)

	result, err := engine.Execute(context.Background(), "fragile", nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Status != "failed" || len(result.Results) != 1 {
		t.Errorf("unexpected result %+v", result)
	}
	if reached {
		t.Error("later step should not run after failure")
	}
}
