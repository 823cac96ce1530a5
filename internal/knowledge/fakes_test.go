// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package knowledge_test

import (
	"context"
	"sync"
	"time"

	"github.com/sigil-dev/horizon/internal/horizon"
	"github.com/sigil-dev/horizon/internal/store"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

var (
	baseTime   = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	errOffline = hzerr.New(hzerr.CodeStoreDatabaseUnavailable, "offline")
)

func fixedNow() time.Time { return baseTime }

// fakeFacts embeds the interface so only ListActive needs an implementation.
type fakeFacts struct {
	store.FactStore

	mu      sync.Mutex
	facts   []*store.Fact
	err     error
	filters []store.FactFilter
}

func (f *fakeFacts) ListActive(_ context.Context, filter store.FactFilter) ([]*store.Fact, error) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	f.mu.Unlock()
	if f.err != nil {
		return []*store.Fact{}, f.err
	}
	return f.facts, nil
}

func (f *fakeFacts) lastFilter() store.FactFilter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filters[len(f.filters)-1]
}

type fakeProfiles struct {
	profile *store.Profile
	err     error
	block   chan struct{}
}

func (f *fakeProfiles) GetByUserID(context.Context, string) (*store.Profile, error) {
	if f.block != nil {
		<-f.block
	}
	return f.profile, f.err
}

type fakeTasks struct {
	tasks []*store.Task
	err   error
}

func (f *fakeTasks) ListActive(_ context.Context, _ string, limit int) ([]*store.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.tasks) > limit {
		return f.tasks[:limit], nil
	}
	return f.tasks, nil
}

type fakeConversations struct {
	recent []*store.ConversationMessage
	cross  []*store.ConversationMessage
	err    error

	mu        sync.Mutex
	excludeID string
}

func (f *fakeConversations) Recent(context.Context, string, string, int) ([]*store.ConversationMessage, error) {
	return f.recent, f.err
}

func (f *fakeConversations) CrossConversation(_ context.Context, exclude, _ string, _ int) ([]*store.ConversationMessage, error) {
	f.mu.Lock()
	f.excludeID = exclude
	f.mu.Unlock()
	return f.cross, f.err
}

func fact(id string, h horizon.Horizon, key, value string, updated time.Time) *store.Fact {
	return &store.Fact{
		ID:          id,
		SubjectType: store.SubjectUser,
		SubjectID:   "u1",
		Horizon:     h,
		Domain:      store.DefaultDomain,
		Key:         key,
		Value:       store.TextValue(value),
		Source:      store.DefaultSource,
		Confidence:  0.8,
		Status:      store.FactStatusActive,
		CreatedAt:   updated,
		UpdatedAt:   updated,
	}
}

func msg(convID, title string, role store.MessageRole, content string, at time.Time) *store.ConversationMessage {
	return &store.ConversationMessage{
		ID:             convID + at.Format("150405"),
		ConversationID: convID,
		UserID:         "u1",
		Title:          title,
		Role:           role,
		Content:        content,
		CreatedAt:      at,
	}
}

func boolPtr(b bool) *bool { return &b }
