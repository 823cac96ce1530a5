// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package knowledge_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/horizon/internal/knowledge"
	"github.com/sigil-dev/horizon/internal/store"
)

func TestSuggest_TimeOfDay(t *testing.T) {
	day := func(hour int) time.Time { return time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC) }

	assert.Contains(t, knowledge.Suggest(nil, day(8))[0], "morning")
	assert.Contains(t, knowledge.Suggest(nil, day(14))[0], "afternoon")
	assert.Contains(t, knowledge.Suggest(nil, day(21))[0], "today")
}

func TestSuggest_UsesConversationAndTasks(t *testing.T) {
	blocks := []knowledge.Block{
		{ID: "agent-core:assistant"},
		{ID: "active-projects:u1", Highlights: []string{"Launch v2", "Hire designer", "Close books"}},
		{ID: "conversation-recent:c1", Highlights: []string{"draft the job post"}},
	}

	got := knowledge.Suggest(blocks, baseTime)
	assert.Equal(t, []string{
		"Help me plan my priorities for this morning.",
		"Continue where we left off: draft the job post",
		"What is the next step for Launch v2?",
		"What is the next step for Hire designer?",
	}, got)
}

func TestSuggest_PadsAndDeduplicates(t *testing.T) {
	blocks := []knowledge.Block{
		{ID: "active-projects:u1", Highlights: []string{"Launch v2", "launch V2"}},
	}

	got := knowledge.Suggest(blocks, baseTime)
	require.Len(t, got, knowledge.MaxSuggestions)
	seen := make(map[string]bool)
	for _, s := range got {
		key := strings.ToLower(s)
		assert.False(t, seen[key], "duplicate %q", s)
		seen[key] = true
	}
	assert.Equal(t, "What is the next step for Launch v2?", got[1])
	assert.Equal(t, "What should I prioritize this week?", got[2])
}

func TestSuggest_TruncatesLongTopics(t *testing.T) {
	long := strings.Repeat("pricing ", 40)
	got := knowledge.Suggest([]knowledge.Block{{ID: "conversation-recent:c1", Highlights: []string{long}}}, baseTime)
	assert.Less(t, len([]rune(got[1])), 100)
	assert.True(t, strings.HasSuffix(got[1], "…"))
}

func TestEngine_SuggestFor(t *testing.T) {
	e := knowledge.NewEngine(knowledge.EngineConfig{
		Tasks: &fakeTasks{tasks: []*store.Task{{Title: "Launch v2", UpdatedAt: baseTime}}},
		Now:   fixedNow,
	})

	got, err := e.SuggestFor(context.Background(), knowledge.Options{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, got.Suggestions, knowledge.MaxSuggestions)
	assert.Contains(t, got.Suggestions, "What is the next step for Launch v2?")
	assert.Len(t, got.ContextDigest, 16)

	_, err = e.SuggestFor(context.Background(), knowledge.Options{})
	assert.Error(t, err)
}
