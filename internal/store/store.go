// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import "context"

// FactStore persists memory facts and enforces their lifecycle rules.
type FactStore interface {
	// UpsertFact inserts a fact or updates the row already holding the same
	// (subjectType, subjectID, horizon, domain, key) tuple. The returned id
	// is stable across updates.
	UpsertFact(ctx context.Context, w *FactWrite) (string, error)
	GetFact(ctx context.Context, id string) (*Fact, error)

	// ListActive returns only active, unexpired facts ordered by horizon tier,
	// updatedAt desc, key asc. On storage failure it returns an empty,
	// non-nil slice together with the error so callers may degrade.
	ListActive(ctx context.Context, filter FactFilter) ([]*Fact, error)

	SetStatus(ctx context.Context, id string, status FactStatus) error
	DeleteFact(ctx context.Context, id string) error
}

// EvidenceLedger is the append-only provenance log of a fact.
type EvidenceLedger interface {
	RecordEvidence(ctx context.Context, factID string, ev *Evidence) (string, error)
	ListEvidence(ctx context.Context, factID string) ([]*Evidence, error)
}

// ProfileStore resolves the user and business profile.
type ProfileStore interface {
	// GetByUserID returns nil, nil when the user has no profile.
	GetByUserID(ctx context.Context, userID string) (*Profile, error)
}

// TaskTracker lists a user's open tasks and projects.
type TaskTracker interface {
	// ListActive orders by status tier (active, in_progress, paused, planned,
	// other) then recency. Terminal statuses are never returned.
	ListActive(ctx context.Context, userID string, limit int) ([]*Task, error)
}

// ConversationLog reads conversation history.
type ConversationLog interface {
	// Recent returns the latest messages of conversationID in chronological
	// order. An empty conversationID selects the user's most recent conversation.
	Recent(ctx context.Context, conversationID, userID string, limit int) ([]*ConversationMessage, error)

	// CrossConversation returns recent messages from every conversation of
	// the user except excludeConversationID, newest first. An empty
	// excludeConversationID excludes the conversation Recent would select.
	CrossConversation(ctx context.Context, excludeConversationID, userID string, limit int) ([]*ConversationMessage, error)
}

// Backend bundles the stores served by one storage backend.
type Backend interface {
	Facts() FactStore
	Evidence() EvidenceLedger
	Profiles() ProfileStore
	Tasks() TaskTracker
	Conversations() ConversationLog
	Ping(ctx context.Context) error
	Close() error
}
