package core

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus describes the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// TaskPriority orders tasks in the queue. Critical tasks jump to the front.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityNormal   TaskPriority = "normal"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

// ValidPriority reports whether p is a known priority value.
func ValidPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Task is a natural-language unit of work submitted by a user and
// dispatched to one or more agents.
type Task struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Agents      []string       `json:"agents,omitempty"`
	Priority    TaskPriority   `json:"priority"`
	Status      TaskStatus     `json:"status"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewTask creates a pending task with a generated ID.
func NewTask(description string, priority TaskPriority) *Task {
	now := time.Now().UTC()
	if !ValidPriority(priority) {
		priority = PriorityNormal
	}
	return &Task{
		ID:          uuid.NewString(),
		Description: description,
		Priority:    priority,
		Status:      TaskStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a copy safe to hand to other goroutines. Agents and the
// top level of Result are copied; nested result values are never
// mutated after assignment, so sharing them is fine.
func (t *Task) Clone() *Task {
	c := *t
	if t.Agents != nil {
		c.Agents = append([]string(nil), t.Agents...)
	}
	if t.Result != nil {
		c.Result = make(map[string]any, len(t.Result))
		for k, v := range t.Result {
			c.Result[k] = v
		}
	}
	return &c
}

// Terminal reports whether the task reached a final state.
func (t *Task) Terminal() bool {
	switch t.Status {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}
