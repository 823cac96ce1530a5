// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/horizon/internal/store"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

func TestProfileStore_PutGet(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t, newTestClock())

	got, err := b.Profiles().GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got, "missing profile is not an error")

	require.NoError(t, b.ProfileStore().PutProfile(ctx, &store.Profile{
		UserID:      "u1",
		DisplayName: "Ada",
		JobTitle:    "Founder",
		Preferences: map[string]string{"tone": "concise"},
		CompanyRef:  "acme",
	}))

	got, err = b.Profiles().GetByUserID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada", got.DisplayName)
	assert.Equal(t, "concise", got.Preferences["tone"])
	assert.Equal(t, "acme", got.CompanyRef)
	assert.False(t, got.UpdatedAt.IsZero())

	err = b.ProfileStore().PutProfile(ctx, &store.Profile{})
	assert.True(t, hzerr.IsInvalidInput(err))
}

func TestTaskStore_ListActiveOrdersByTierThenRecency(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	b := openTestBackend(t, clock)
	tasks := b.TaskStore()

	seed := []store.Task{
		{Title: "Plan offsite", Status: store.TaskStatusPlanned},
		{Title: "Old active", Status: store.TaskStatusActive},
		{Title: "Shipped", Status: store.TaskStatusDone},
		{Title: "Refactor", Status: store.TaskStatusInProgress},
		{Title: "Cancelled idea", Status: store.TaskStatusCancelled},
		{Title: "Launch v2", Status: store.TaskStatusActive},
		{Title: "Blocked", Status: "blocked"},
		{Title: "Other user", Status: store.TaskStatusActive, UserID: "u2"},
	}
	for i := range seed {
		task := seed[i]
		if task.UserID == "" {
			task.UserID = "u1"
		}
		require.NoError(t, tasks.PutTask(ctx, &task))
		clock.Advance(time.Minute)
	}

	got, err := b.Tasks().ListActive(ctx, "u1", 10)
	require.NoError(t, err)

	titles := make([]string, 0, len(got))
	for _, task := range got {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"Launch v2", "Old active", "Refactor", "Plan offsite", "Blocked"}, titles)

	got, err = b.Tasks().ListActive(ctx, "u1", 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestConversationStore_RecentAndCross(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	b := openTestBackend(t, clock)
	convs := b.ConversationStore()

	for _, c := range []*store.Conversation{
		{ID: "c-old", UserID: "u1", Title: "Pricing"},
		{ID: "c-new", UserID: "u1", Title: "Hiring"},
		{ID: "c-other", UserID: "u2", Title: "Not mine"},
	} {
		require.NoError(t, convs.PutConversation(ctx, c))
	}

	appendMsg := func(convID, userID string, role store.MessageRole, content string) {
		t.Helper()
		clock.Advance(time.Minute)
		require.NoError(t, convs.AppendMessage(ctx, &store.ConversationMessage{
			ConversationID: convID, UserID: userID, Role: role, Content: content,
		}))
	}

	appendMsg("c-old", "u1", store.MessageRoleUser, "what should we charge?")
	appendMsg("c-old", "u1", store.MessageRoleAssistant, "start at 49")
	appendMsg("c-other", "u2", store.MessageRoleUser, "hello")
	for i, content := range []string{"need a designer", "what budget?", "about 80k", "draft the job post", "sure"} {
		role := store.MessageRoleUser
		if i%2 == 1 {
			role = store.MessageRoleAssistant
		}
		appendMsg("c-new", "u1", role, content)
	}

	// No conversation id: the latest conversation wins.
	recent, err := b.Conversations().Recent(ctx, "", "u1", 4)
	require.NoError(t, err)
	require.Len(t, recent, 4)
	assert.Equal(t, "what budget?", recent[0].Content)
	assert.Equal(t, "sure", recent[3].Content)
	assert.Equal(t, "Hiring", recent[0].Title)
	for i := 1; i < len(recent); i++ {
		assert.False(t, recent[i].CreatedAt.Before(recent[i-1].CreatedAt), "chronological")
	}

	recent, err = b.Conversations().Recent(ctx, "c-old", "u1", 4)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "what should we charge?", recent[0].Content)

	cross, err := b.Conversations().CrossConversation(ctx, "c-new", "u1", 8)
	require.NoError(t, err)
	require.Len(t, cross, 2)
	assert.Equal(t, "start at 49", cross[0].Content, "newest first")
	for _, m := range cross {
		assert.Equal(t, "c-old", m.ConversationID)
		assert.Equal(t, "Pricing", m.Title)
	}

	// No exclusion: the latest conversation is the one left out.
	cross, err = b.Conversations().CrossConversation(ctx, "", "u1", 8)
	require.NoError(t, err)
	require.Len(t, cross, 2)
	for _, m := range cross {
		assert.Equal(t, "c-old", m.ConversationID)
	}

	recent, err = b.Conversations().Recent(ctx, "", "nobody", 4)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestConversationStore_AppendRejectsBadRole(t *testing.T) {
	b := openTestBackend(t, newTestClock())
	err := b.ConversationStore().AppendMessage(context.Background(), &store.ConversationMessage{
		ConversationID: "c", UserID: "u1", Role: "tool", Content: "x",
	})
	assert.True(t, hzerr.IsInvalidInput(err))
}
