// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/sigil-dev/horizon/internal/store"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

var _ store.TaskTracker = (*TaskStore)(nil)

// TaskStore is a reference store.TaskTracker on SQLite.
type TaskStore struct {
	db    *sql.DB
	retry store.RetryConfig
	now   func() time.Time
}

// NewTaskStoreWithDB migrates and wraps an already open database.
func NewTaskStoreWithDB(db *sql.DB, opts ...Option) (*TaskStore, error) {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	priority    TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id, status, updated_at);
`
	if _, err := db.Exec(ddl); err != nil {
		return nil, hzerr.Errorf(hzerr.CodeStoreDatabaseFailure, "migrating task table: %w", err)
	}

	o := buildOptions(opts)
	return &TaskStore{db: db, retry: o.retry, now: o.now}, nil
}

// PutTask inserts or replaces a task. A missing ID is generated.
func (s *TaskStore) PutTask(ctx context.Context, t *store.Task) error {
	if t.UserID == "" || t.Title == "" {
		return hzerr.New(hzerr.CodeStoreInvalidInput, "task: UserID and Title are required")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = store.TaskStatusActive
	}
	now := s.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	return store.RetryExec(ctx, s.retry, func() error {
		_, err := s.db.ExecContext(ctx, `INSERT INTO tasks
	(id, user_id, title, description, status, priority, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title       = excluded.title,
	description = excluded.description,
	status      = excluded.status,
	priority    = excluded.priority,
	updated_at  = excluded.updated_at`,
			t.ID, t.UserID, t.Title, t.Description, t.Status, t.Priority,
			formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
		return dbError(err, "putting task")
	})
}

// ListActive returns open tasks ordered by status tier then recency.
func (s *TaskStore) ListActive(ctx context.Context, userID string, limit int) ([]*store.Task, error) {
	ctx, span := tracer.Start(ctx, "tasks.list_active")
	defer span.End()

	if limit <= 0 {
		limit = -1
	}

	const q = `SELECT id, user_id, title, description, status, priority, created_at, updated_at
FROM tasks
WHERE user_id = ? AND status NOT IN ('done', 'completed', 'cancelled', 'archived')
ORDER BY CASE status
		WHEN 'active' THEN 0
		WHEN 'in_progress' THEN 1
		WHEN 'paused' THEN 2
		WHEN 'planned' THEN 3
		ELSE 4
	END,
	updated_at DESC,
	id ASC
LIMIT ?`

	return store.Retry(ctx, s.retry, func() ([]*store.Task, error) {
		rows, err := s.db.QueryContext(ctx, q, userID, limit)
		if err != nil {
			return nil, dbError(err, "listing tasks")
		}
		defer func() { _ = rows.Close() }()

		out := make([]*store.Task, 0)
		for rows.Next() {
			var (
				t                    store.Task
				status               string
				createdAt, updatedAt string
			)
			if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &status, &t.Priority, &createdAt, &updatedAt); err != nil {
				return nil, dbError(err, "scanning task")
			}
			t.Status = store.TaskStatus(status)
			if t.CreatedAt, err = parseTime(createdAt); err != nil {
				return nil, dbError(err, "parsing task created_at")
			}
			if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
				return nil, dbError(err, "parsing task updated_at")
			}
			out = append(out, &t)
		}
		if err := rows.Err(); err != nil {
			return nil, dbError(err, "iterating tasks")
		}
		return out, nil
	})
}
