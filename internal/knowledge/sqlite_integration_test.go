// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package knowledge_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/horizon/internal/horizon"
	"github.com/sigil-dev/horizon/internal/knowledge"
	"github.com/sigil-dev/horizon/internal/store"
	"github.com/sigil-dev/horizon/internal/store/sqlite"
)

func TestAssemble_OverSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	now := baseTime
	clock := func() time.Time { return now }

	b, err := sqlite.Open(filepath.Join(t.TempDir(), "horizon.db"), &store.StorageConfig{}, sqlite.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, b.ProfileStore().PutProfile(ctx, &store.Profile{
		UserID:      "u1",
		DisplayName: "Ada",
		JobTitle:    "Founder",
		Preferences: map[string]string{"reply_length": "short"},
	}))
	require.NoError(t, b.TaskStore().PutTask(ctx, &store.Task{UserID: "u1", Title: "Launch v2"}))
	require.NoError(t, b.ConversationStore().PutConversation(ctx, &store.Conversation{ID: "c1", UserID: "u1", Title: "Launch"}))
	now = now.Add(time.Minute)
	require.NoError(t, b.ConversationStore().AppendMessage(ctx, &store.ConversationMessage{
		ConversationID: "c1", UserID: "u1", Role: store.MessageRoleUser, Content: "what is left before launch?",
	}))

	ttl := int64(60)
	writes := []*store.FactWrite{
		{SubjectType: store.SubjectUser, SubjectID: "u1", Horizon: horizon.Short, Key: "mood", Value: store.TextValue("focused"), Confidence: 0.7},
		{SubjectType: store.SubjectUser, SubjectID: "u1", Horizon: horizon.Short, Key: "lunch", Value: store.TextValue("sushi"), Confidence: 0.5, TTLSeconds: &ttl},
		{SubjectType: store.SubjectShared, SubjectID: "acme", Horizon: horizon.Long, Key: "fiscal_year", Value: store.TextValue("April"), Confidence: 1},
		{SubjectType: store.SubjectUser, SubjectID: "u2", Horizon: horizon.Long, Key: "secret", Value: store.TextValue("not yours"), Confidence: 1},
	}
	ids := make([]string, len(writes))
	for i, w := range writes {
		ids[i], err = b.Facts().UpsertFact(ctx, w)
		require.NoError(t, err)
	}
	stale, err := b.Facts().UpsertFact(ctx, &store.FactWrite{
		SubjectType: store.SubjectUser, SubjectID: "u1", Horizon: horizon.Medium, Key: "old_goal", Value: store.TextValue("x"), Confidence: 1,
	})
	require.NoError(t, err)
	require.NoError(t, b.Facts().SetStatus(ctx, stale, store.FactStatusStale))

	now = now.Add(2 * time.Hour)

	e := knowledge.NewEngine(knowledge.EngineConfig{
		Facts:         b.Facts(),
		Profiles:      b.Profiles(),
		Tasks:         b.Tasks(),
		Conversations: b.Conversations(),
		Now:           clock,
	})

	p, err := e.Assemble(ctx, knowledge.Options{UserID: "u1", CompanyID: "acme"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"agent-core:assistant",
		"user-identity:u1",
		"user-preferences:u1",
		"active-projects:u1",
		"conversation-recent:c1",
		"fact:" + ids[0],
		"fact:" + ids[2],
	}, blockIDs(p))
	assert.Equal(t, "c1", p.Resolved.ConversationID)
	assert.Contains(t, p.SystemContext, "Reply length: short")
	assert.Contains(t, p.SystemContext, "User: what is left before launch?")
	assert.NotContains(t, p.SystemContext, "sushi")
	assert.NotContains(t, p.SystemContext, "not yours")

	again, err := e.Assemble(ctx, knowledge.Options{UserID: "u1", CompanyID: "acme"})
	require.NoError(t, err)
	assert.Equal(t, p.ContextDigest, again.ContextDigest)

	now = now.Add(time.Minute)
	_, err = b.Facts().UpsertFact(ctx, writes[0])
	require.NoError(t, err)
	changed, err := e.Assemble(ctx, knowledge.Options{UserID: "u1", CompanyID: "acme"})
	require.NoError(t, err)
	assert.NotEqual(t, p.ContextDigest, changed.ContextDigest)
}

func TestAssemble_ImplicitConversationKeepsEarlierMemory(t *testing.T) {
	ctx := context.Background()
	now := baseTime
	clock := func() time.Time { return now }

	b, err := sqlite.Open(filepath.Join(t.TempDir(), "horizon.db"), &store.StorageConfig{}, sqlite.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	convs := b.ConversationStore()
	require.NoError(t, convs.PutConversation(ctx, &store.Conversation{ID: "old", UserID: "u1", Title: "Pricing"}))
	require.NoError(t, convs.PutConversation(ctx, &store.Conversation{ID: "cur", UserID: "u1", Title: "Hiring"}))

	say := func(convID, content string) {
		t.Helper()
		now = now.Add(time.Minute)
		require.NoError(t, convs.AppendMessage(ctx, &store.ConversationMessage{
			ConversationID: convID, UserID: "u1", Role: store.MessageRoleUser, Content: content,
		}))
	}
	for _, c := range []string{"what should we charge?", "maybe 49", "or 59"} {
		say("old", c)
	}
	// More messages in the current conversation than the cross fetch reads.
	for i := 0; i < 10; i++ {
		say("cur", "hiring note")
	}

	e := knowledge.NewEngine(knowledge.EngineConfig{Conversations: b.Conversations(), Now: clock})

	implicit, err := e.Assemble(ctx, knowledge.Options{UserID: "u1"})
	require.NoError(t, err)
	explicit, err := e.Assemble(ctx, knowledge.Options{UserID: "u1", ConversationID: "cur"})
	require.NoError(t, err)

	assert.Equal(t, "cur", implicit.Resolved.ConversationID)
	assert.Contains(t, blockIDs(implicit), "conversation-memory:u1")
	assert.Equal(t, blockIDs(explicit), blockIDs(implicit))
	assert.Contains(t, implicit.SystemContext, "Pricing")
}
