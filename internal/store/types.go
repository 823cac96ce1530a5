// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"time"

	"github.com/sigil-dev/horizon/internal/horizon"
)

// --- Fact types ---

// SubjectType identifies who owns a fact.
type SubjectType string

const (
	SubjectUser   SubjectType = "user"
	SubjectAgent  SubjectType = "agent"
	SubjectShared SubjectType = "shared"
)

// FactStatus is the curation state of a fact. Transitions are external
// decisions and never happen automatically.
type FactStatus string

const (
	FactStatusActive     FactStatus = "active"
	FactStatusStale      FactStatus = "stale"
	FactStatusConflicted FactStatus = "conflicted"
	FactStatusDeprecated FactStatus = "deprecated"
)

const (
	DefaultDomain = "general"
	DefaultSource = "system"
)

// Fact is a durable memory record.
type Fact struct {
	ID          string          `json:"id"`
	SubjectType SubjectType     `json:"subjectType"`
	SubjectID   string          `json:"subjectId"`
	Horizon     horizon.Horizon `json:"horizon"`
	Domain      string          `json:"domain"`
	Key         string          `json:"factKey"`
	Value       FactValue       `json:"factValue"`
	Source      string          `json:"source"`
	Confidence  float64         `json:"confidence"`
	Status      FactStatus      `json:"status"`
	TTLSeconds  *int64          `json:"ttlSeconds,omitempty"`
	ExpiresAt   *time.Time      `json:"expiresAt,omitempty"`
	Tags        []string        `json:"tags"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	CreatedBy   string          `json:"createdBy,omitempty"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Visible reports whether retrieval may return the fact at now.
func (f *Fact) Visible(now time.Time) bool {
	if f.Status != FactStatusActive {
		return false
	}
	return f.ExpiresAt == nil || f.ExpiresAt.After(now)
}

// FactWrite is the input to FactStore.UpsertFact. An explicit ExpiresAt takes
// precedence over TTL derivation. ExpectedVersion makes the write conditional
// on the stored row version.
type FactWrite struct {
	SubjectType     SubjectType     `json:"subjectType"`
	SubjectID       string          `json:"subjectId"`
	Horizon         horizon.Horizon `json:"horizon"`
	Domain          string          `json:"domain,omitempty"`
	Key             string          `json:"factKey"`
	Value           FactValue       `json:"factValue"`
	Source          string          `json:"source,omitempty"`
	Confidence      float64         `json:"confidence"`
	Status          FactStatus      `json:"status,omitempty"`
	TTLSeconds      *int64          `json:"ttlSeconds,omitempty"`
	ExpiresAt       *time.Time      `json:"expiresAt,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
	CreatedBy       string          `json:"createdBy,omitempty"`
	ExpectedVersion *int64          `json:"expectedVersion,omitempty"`
}

// SubjectScope names one fact owner.
type SubjectScope struct {
	Type SubjectType
	ID   string
}

// FactFilter selects facts for ListActive. An empty Horizons list means all.
type FactFilter struct {
	Scopes   []SubjectScope
	Horizons []horizon.Horizon
	Limit    int
}

// Evidence is an append-only provenance record owned by one fact.
type Evidence struct {
	ID        string         `json:"id"`
	FactID    string         `json:"factId"`
	Type      string         `json:"evidenceType"`
	Ref       string         `json:"evidenceRef,omitempty"`
	Text      string         `json:"evidenceText,omitempty"`
	Weight    float64        `json:"weight"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// --- Collaborator types ---

// Profile is the user and business profile.
type Profile struct {
	UserID      string
	DisplayName string
	Role        string
	JobTitle    string
	Location    string
	Preferences map[string]string
	CompanyRef  string
	UpdatedAt   time.Time
}

// TaskStatus is the workflow state of a task or project.
type TaskStatus string

const (
	TaskStatusActive     TaskStatus = "active"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusPaused     TaskStatus = "paused"
	TaskStatusPlanned    TaskStatus = "planned"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusArchived   TaskStatus = "archived"
)

// Task is an open unit of work tracked for a user.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Status      TaskStatus
	Priority    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MessageRole identifies the sender of a conversation message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Conversation is a titled thread of messages.
type Conversation struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversationMessage is one message of a conversation. Title is the
// owning conversation's title when the log joins it in.
type ConversationMessage struct {
	ID             string
	ConversationID string
	UserID         string
	Title          string
	Role           MessageRole
	Content        string
	CreatedAt      time.Time
}
