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

var _ store.ConversationLog = (*ConversationStore)(nil)

// ConversationStore is a reference store.ConversationLog on SQLite.
type ConversationStore struct {
	db    *sql.DB
	retry store.RetryConfig
	now   func() time.Time
}

// NewConversationStoreWithDB migrates and wraps an already open database.
func NewConversationStoreWithDB(db *sql.DB, opts ...Option) (*ConversationStore, error) {
	const ddl = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS conversation_messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	user_id         TEXT NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conv_messages_conv ON conversation_messages(conversation_id, created_at);
CREATE INDEX IF NOT EXISTS idx_conv_messages_user ON conversation_messages(user_id, created_at);
`
	if _, err := db.Exec(ddl); err != nil {
		return nil, hzerr.Errorf(hzerr.CodeStoreDatabaseFailure, "migrating conversation tables: %w", err)
	}

	o := buildOptions(opts)
	return &ConversationStore{db: db, retry: o.retry, now: o.now}, nil
}

// PutConversation inserts or retitles a conversation.
func (s *ConversationStore) PutConversation(ctx context.Context, c *store.Conversation) error {
	if c.UserID == "" {
		return hzerr.New(hzerr.CodeStoreInvalidInput, "conversation: UserID is required")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := s.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}

	return store.RetryExec(ctx, s.retry, func() error {
		_, err := s.db.ExecContext(ctx, `INSERT INTO conversations (id, user_id, title, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
			c.ID, c.UserID, c.Title, formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
		return dbError(err, "putting conversation")
	})
}

// AppendMessage adds a message to an existing conversation.
func (s *ConversationStore) AppendMessage(ctx context.Context, m *store.ConversationMessage) error {
	if m.ConversationID == "" || m.UserID == "" {
		return hzerr.New(hzerr.CodeStoreInvalidInput, "message: ConversationID and UserID are required")
	}
	if !m.Role.Valid() {
		return hzerr.Errorf(hzerr.CodeStoreInvalidInput, "message: invalid role %q", m.Role)
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}

	return store.RetryExec(ctx, s.retry, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return dbError(err, "beginning transaction")
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `INSERT INTO conversation_messages
	(id, conversation_id, user_id, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, m.ConversationID, m.UserID, m.Role, m.Content, formatTime(m.CreatedAt)); err != nil {
			return dbError(err, "appending message")
		}
		if _, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = MAX(updated_at, ?) WHERE id = ?`,
			formatTime(m.CreatedAt), m.ConversationID); err != nil {
			return dbError(err, "touching conversation")
		}
		return dbError(tx.Commit(), "committing message")
	})
}

// Recent returns the newest limit messages of one conversation, oldest
// first. An empty conversationID picks the user's latest conversation.
func (s *ConversationStore) Recent(ctx context.Context, conversationID, userID string, limit int) ([]*store.ConversationMessage, error) {
	ctx, span := tracer.Start(ctx, "conversations.recent")
	defer span.End()

	if limit <= 0 {
		limit = -1
	}

	const q = `SELECT id, conversation_id, user_id, title, role, content, created_at FROM (
	SELECT m.rowid AS seq, m.id, m.conversation_id, m.user_id, c.title, m.role, m.content, m.created_at
	FROM conversation_messages m
	JOIN conversations c ON c.id = m.conversation_id
	WHERE m.user_id = ? AND m.conversation_id = COALESCE(NULLIF(?, ''), (
		SELECT conversation_id FROM conversation_messages
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	))
	ORDER BY m.created_at DESC, m.rowid DESC
	LIMIT ?
) ORDER BY created_at ASC, seq ASC`

	return store.Retry(ctx, s.retry, func() ([]*store.ConversationMessage, error) {
		return s.queryMessages(ctx, q, userID, conversationID, userID, limit)
	})
}

// CrossConversation returns the user's newest messages outside
// excludeConversationID, newest first. An empty excludeConversationID
// excludes the user's latest conversation, matching Recent.
func (s *ConversationStore) CrossConversation(ctx context.Context, excludeConversationID, userID string, limit int) ([]*store.ConversationMessage, error) {
	ctx, span := tracer.Start(ctx, "conversations.cross")
	defer span.End()

	if limit <= 0 {
		limit = -1
	}

	const q = `SELECT m.id, m.conversation_id, m.user_id, c.title, m.role, m.content, m.created_at
FROM conversation_messages m
JOIN conversations c ON c.id = m.conversation_id
WHERE m.user_id = ? AND m.conversation_id <> COALESCE(NULLIF(?, ''), (
	SELECT conversation_id FROM conversation_messages
	WHERE user_id = ?
	ORDER BY created_at DESC, rowid DESC
	LIMIT 1
), '')
ORDER BY m.created_at DESC, m.rowid DESC
LIMIT ?`

	return store.Retry(ctx, s.retry, func() ([]*store.ConversationMessage, error) {
		return s.queryMessages(ctx, q, userID, excludeConversationID, userID, limit)
	})
}

func (s *ConversationStore) queryMessages(ctx context.Context, q string, args ...any) ([]*store.ConversationMessage, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, dbError(err, "querying messages")
	}
	defer func() { _ = rows.Close() }()

	out := make([]*store.ConversationMessage, 0)
	for rows.Next() {
		var (
			m               store.ConversationMessage
			role, createdAt string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.UserID, &m.Title, &role, &m.Content, &createdAt); err != nil {
			return nil, dbError(err, "scanning message")
		}
		m.Role = store.MessageRole(role)
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, dbError(err, "parsing message created_at")
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "iterating messages")
	}
	return out, nil
}
