// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/helios-ops/helios/pkg/core"
	"github.com/helios-ops/helios/pkg/errors"
)

// TaskStore persists orchestrator tasks in SQLite. The full task is kept
// as a JSON payload with status and priority as indexed columns, so the
// queue can be rebuilt after a restart.
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore creates a task store over an open database.
func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// Save upserts a task.
func (s *TaskStore) Save(ctx context.Context, task *core.Task) error {
	if task == nil {
		return fmt.Errorf("task is nil")
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, status, priority, updated_at, task_json)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				status = excluded.status,
				priority = excluded.priority,
				updated_at = excluded.updated_at,
				task_json = excluded.task_json`, taskTable),
		task.ID, string(task.Status), string(task.Priority),
		task.UpdatedAt.UnixMilli(), payload)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// Get returns a task by ID.
func (s *TaskStore) Get(ctx context.Context, id string) (*core.Task, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT task_json FROM %s WHERE id = ?", taskTable), id).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(errors.CodeNotFound, "task not found", nil).
				WithContext("id", id)
		}
		return nil, err
	}
	return unmarshalTask(payload)
}

// ListPending returns tasks still waiting to run, oldest first.
// Used to rebuild the in-memory queue at startup.
func (s *TaskStore) ListPending(ctx context.Context) ([]*core.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT task_json FROM %s WHERE status = ?
			ORDER BY updated_at, id`, taskTable),
		string(core.TaskStatusPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListRecent returns the most recently updated tasks, newest first.
func (s *TaskStore) ListRecent(ctx context.Context, limit int) ([]*core.Task, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT task_json FROM %s ORDER BY updated_at DESC, id LIMIT ?`,
			taskTable), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// CountByStatus returns the number of tasks per status.
func (s *TaskStore) CountByStatus(ctx context.Context) (map[core.TaskStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT status, COUNT(*) FROM %s GROUP BY status", taskTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[core.TaskStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[core.TaskStatus(status)] = n
	}
	return out, rows.Err()
}

// Purge deletes terminal tasks older than the cutoff. Returns the number removed.
func (s *TaskStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE updated_at < ? AND status IN (?, ?, ?)`, taskTable),
		olderThan.UnixMilli(),
		string(core.TaskStatusCompleted),
		string(core.TaskStatusFailed),
		string(core.TaskStatusCancelled))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func unmarshalTask(payload []byte) (*core.Task, error) {
	var task core.Task
	if err := json.Unmarshal(payload, &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &task, nil
}

func collectTasks(rows *sql.Rows) ([]*core.Task, error) {
	var out []*core.Task
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		task, err := unmarshalTask(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}
