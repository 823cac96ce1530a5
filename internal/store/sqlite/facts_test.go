// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/horizon/internal/horizon"
	"github.com/sigil-dev/horizon/internal/store"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

func int64p(v int64) *int64 { return &v }

func userFact(h horizon.Horizon, key, value string) *store.FactWrite {
	return &store.FactWrite{
		SubjectType: store.SubjectUser,
		SubjectID:   "u1",
		Horizon:     h,
		Key:         key,
		Value:       store.TextValue(value),
		Confidence:  0.9,
	}
}

func userScope() store.FactFilter {
	return store.FactFilter{Scopes: []store.SubjectScope{{Type: store.SubjectUser, ID: "u1"}}}
}

func TestFactStore_UpsertSameTupleUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	facts := openTestBackend(t, clock).Facts()

	first := userFact(horizon.Short, "energy", "low")
	first.Domain = "mood"
	id1, err := facts.UpsertFact(ctx, first)
	require.NoError(t, err)
	createdAt := clock.Now()

	clock.Advance(5 * time.Minute)
	second := userFact(horizon.Short, "energy", "high")
	second.Domain = "mood"
	second.Source = "extractor"
	second.Confidence = 0.4
	id2, err := facts.UpsertFact(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	list, err := facts.ListActive(ctx, userScope())
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	assert.Equal(t, id1, got.ID)
	assert.Equal(t, "high", got.Value.String())
	assert.Equal(t, "extractor", got.Source)
	assert.InDelta(t, 0.4, got.Confidence, 1e-9)
	assert.True(t, got.CreatedAt.Equal(createdAt), "createdAt preserved")
	assert.True(t, got.UpdatedAt.Equal(clock.Now()))
	assert.Equal(t, int64(2), got.Version)
}

func TestFactStore_Defaults(t *testing.T) {
	ctx := context.Background()
	facts := openTestBackend(t, newTestClock()).Facts()

	id, err := facts.UpsertFact(ctx, userFact(horizon.Long, "name", "Ada"))
	require.NoError(t, err)

	got, err := facts.GetFact(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultDomain, got.Domain)
	assert.Equal(t, store.DefaultSource, got.Source)
	assert.Equal(t, store.FactStatusActive, got.Status)
	assert.Equal(t, int64(1), got.Version)
	assert.Empty(t, got.Tags)
	assert.Nil(t, got.ExpiresAt)
}

func TestFactStore_TTLDerivesExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	facts := openTestBackend(t, clock).Facts()

	w := userFact(horizon.Short, "focus", "release")
	w.TTLSeconds = int64p(3600)
	id, err := facts.UpsertFact(ctx, w)
	require.NoError(t, err)

	got, err := facts.GetFact(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.ExpiresAt)
	require.NotNil(t, got.TTLSeconds)
	assert.Equal(t, int64(3600), *got.TTLSeconds)
	assert.WithinDuration(t, clock.Now().Add(time.Hour), *got.ExpiresAt, time.Millisecond)
}

func TestFactStore_ExplicitExpiryWinsOverTTL(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	facts := openTestBackend(t, clock).Facts()

	explicit := clock.Now().Add(10 * time.Minute)
	w := userFact(horizon.Short, "focus", "release")
	w.TTLSeconds = int64p(3600)
	w.ExpiresAt = &explicit
	id, err := facts.UpsertFact(ctx, w)
	require.NoError(t, err)

	got, err := facts.GetFact(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.ExpiresAt)
	assert.WithinDuration(t, explicit, *got.ExpiresAt, time.Millisecond)
}

func TestFactStore_ListActiveHidesExpiredAndInactive(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	facts := openTestBackend(t, clock).Facts()

	expiring := userFact(horizon.Short, "meeting", "standup at 10")
	expiring.TTLSeconds = int64p(60)
	_, err := facts.UpsertFact(ctx, expiring)
	require.NoError(t, err)

	staleID, err := facts.UpsertFact(ctx, userFact(horizon.Medium, "project", "old launch"))
	require.NoError(t, err)
	require.NoError(t, facts.SetStatus(ctx, staleID, store.FactStatusStale))

	conflicted := userFact(horizon.Long, "city", "Paris")
	conflicted.Status = store.FactStatusConflicted
	_, err = facts.UpsertFact(ctx, conflicted)
	require.NoError(t, err)

	_, err = facts.UpsertFact(ctx, userFact(horizon.Long, "name", "Ada"))
	require.NoError(t, err)

	list, err := facts.ListActive(ctx, userScope())
	require.NoError(t, err)
	assert.Len(t, list, 2)

	clock.Advance(61 * time.Second)
	list, err = facts.ListActive(ctx, userScope())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "name", list[0].Key)

	now := clock.Now()
	for _, f := range list {
		assert.True(t, f.Visible(now))
	}
}

func TestFactStore_ListActiveOrdering(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	facts := openTestBackend(t, clock).Facts()

	writes := []struct {
		h   horizon.Horizon
		key string
	}{
		{horizon.Long, "b-long"},
		{horizon.Short, "a-short-old"},
		{horizon.Medium, "medium"},
	}
	for _, w := range writes {
		_, err := facts.UpsertFact(ctx, userFact(w.h, w.key, "v"))
		require.NoError(t, err)
		clock.Advance(time.Second)
	}
	// Same updatedAt for two short facts: key breaks the tie.
	_, err := facts.UpsertFact(ctx, userFact(horizon.Short, "z-short-new", "v"))
	require.NoError(t, err)
	_, err = facts.UpsertFact(ctx, userFact(horizon.Short, "y-short-new", "v"))
	require.NoError(t, err)
	_, err = facts.UpsertFact(ctx, userFact(horizon.Long, "a-long", "v"))
	require.NoError(t, err)

	list, err := facts.ListActive(ctx, userScope())
	require.NoError(t, err)

	keys := make([]string, 0, len(list))
	for _, f := range list {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"y-short-new", "z-short-new", "a-short-old", "medium", "a-long", "b-long"}, keys)
}

func TestFactStore_ListActiveScopesHorizonsAndLimit(t *testing.T) {
	ctx := context.Background()
	facts := openTestBackend(t, newTestClock()).Facts()

	seed := []*store.FactWrite{
		userFact(horizon.Short, "mine", "v"),
		{SubjectType: store.SubjectUser, SubjectID: "u2", Horizon: horizon.Short, Key: "other-user", Value: store.TextValue("v")},
		{SubjectType: store.SubjectAgent, SubjectID: "assistant", Horizon: horizon.Long, Key: "tone", Value: store.TextValue("warm")},
		{SubjectType: store.SubjectShared, SubjectID: "global", Horizon: horizon.Medium, Key: "holiday", Value: store.TextValue("friday")},
	}
	for _, w := range seed {
		_, err := facts.UpsertFact(ctx, w)
		require.NoError(t, err)
	}

	filter := store.FactFilter{Scopes: []store.SubjectScope{
		{Type: store.SubjectUser, ID: "u1"},
		{Type: store.SubjectAgent, ID: "assistant"},
		{Type: store.SubjectShared, ID: "global"},
	}}
	list, err := facts.ListActive(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	filter.Horizons = []horizon.Horizon{horizon.Short, horizon.Long}
	list, err = facts.ListActive(ctx, filter)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "mine", list[0].Key)
	assert.Equal(t, "tone", list[1].Key)

	filter.Limit = 1
	list, err = facts.ListActive(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFactStore_ListActiveInvalidFilterReturnsEmpty(t *testing.T) {
	facts := openTestBackend(t, newTestClock()).Facts()

	list, err := facts.ListActive(context.Background(), store.FactFilter{})
	require.Error(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestFactStore_RejectsInvalidWrites(t *testing.T) {
	ctx := context.Background()
	facts := openTestBackend(t, newTestClock()).Facts()

	w := userFact(horizon.Short, "k", "v")
	w.TTLSeconds = int64p(0)
	_, err := facts.UpsertFact(ctx, w)
	require.Error(t, err)
	assert.True(t, hzerr.IsInvalidInput(err))

	w = userFact(horizon.Short, "k", "v")
	w.Confidence = 2
	_, err = facts.UpsertFact(ctx, w)
	require.Error(t, err)
	assert.True(t, hzerr.IsInvalidInput(err))

	list, err := facts.ListActive(ctx, userScope())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFactStore_OptimisticVersion(t *testing.T) {
	ctx := context.Background()
	facts := openTestBackend(t, newTestClock()).Facts()

	missing := userFact(horizon.Medium, "plan", "draft")
	missing.ExpectedVersion = int64p(1)
	_, err := facts.UpsertFact(ctx, missing)
	require.Error(t, err)
	assert.True(t, hzerr.IsConflict(err))

	id, err := facts.UpsertFact(ctx, userFact(horizon.Medium, "plan", "draft"))
	require.NoError(t, err)

	update := userFact(horizon.Medium, "plan", "final")
	update.ExpectedVersion = int64p(1)
	gotID, err := facts.UpsertFact(ctx, update)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)

	stale := userFact(horizon.Medium, "plan", "lost update")
	stale.ExpectedVersion = int64p(1)
	_, err = facts.UpsertFact(ctx, stale)
	require.Error(t, err)
	assert.Equal(t, hzerr.CodeStoreFactUpsertConflict, hzerr.CodeOf(err))

	got, err := facts.GetFact(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Value.String())
	assert.Equal(t, int64(2), got.Version)
}

func TestFactStore_StructuredValuesRoundTrip(t *testing.T) {
	ctx := context.Background()
	facts := openTestBackend(t, newTestClock()).Facts()

	w := userFact(horizon.Long, "schedule", "")
	w.Value = store.DocumentValue(map[string]any{"tz": "Europe/Paris", "start": 9.0})
	w.Tags = []string{"work", "calendar", "work"}
	w.Metadata = map[string]any{"extractor": "v3"}
	w.CreatedBy = "ingest"

	id, err := facts.UpsertFact(ctx, w)
	require.NoError(t, err)

	got, err := facts.GetFact(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.ValueDocument, got.Value.Kind)
	assert.Equal(t, "start: 9; tz: Europe/Paris", got.Value.String())
	assert.Equal(t, []string{"calendar", "work"}, got.Tags)
	assert.Equal(t, "v3", got.Metadata["extractor"])
	assert.Equal(t, "ingest", got.CreatedBy)
}

func TestFactStore_SetStatusAndDelete(t *testing.T) {
	ctx := context.Background()
	facts := openTestBackend(t, newTestClock()).Facts()

	id, err := facts.UpsertFact(ctx, userFact(horizon.Long, "name", "Ada"))
	require.NoError(t, err)

	err = facts.SetStatus(ctx, id, "archived")
	assert.True(t, hzerr.IsInvalidInput(err))

	err = facts.SetStatus(ctx, "missing", store.FactStatusDeprecated)
	assert.True(t, hzerr.IsNotFound(err))

	require.NoError(t, facts.SetStatus(ctx, id, store.FactStatusDeprecated))
	got, err := facts.GetFact(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.FactStatusDeprecated, got.Status)

	require.NoError(t, facts.DeleteFact(ctx, id))
	_, err = facts.GetFact(ctx, id)
	assert.True(t, hzerr.IsNotFound(err))
	assert.True(t, hzerr.IsNotFound(facts.DeleteFact(ctx, id)))
}

func TestEvidenceLedger_AppendListCascade(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	b := openTestBackend(t, clock)
	facts, ledger := b.Facts(), b.Evidence()

	factID, err := facts.UpsertFact(ctx, userFact(horizon.Long, "employer", "Acme"))
	require.NoError(t, err)

	_, err = ledger.RecordEvidence(ctx, factID, &store.Evidence{Type: "message", Ref: "msg-1", Text: "I work at Acme", Weight: 0.7})
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = ledger.RecordEvidence(ctx, factID, &store.Evidence{Type: "profile", Weight: 1, Metadata: map[string]any{"field": "company"}})
	require.NoError(t, err)

	evs, err := ledger.ListEvidence(ctx, factID)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, "message", evs[0].Type)
	assert.Equal(t, "I work at Acme", evs[0].Text)
	assert.Equal(t, "profile", evs[1].Type)
	assert.Equal(t, "company", evs[1].Metadata["field"])
	assert.True(t, evs[1].CreatedAt.After(evs[0].CreatedAt))

	// Updating the fact leaves its evidence untouched.
	_, err = facts.UpsertFact(ctx, userFact(horizon.Long, "employer", "Acme Corp"))
	require.NoError(t, err)
	evs, err = ledger.ListEvidence(ctx, factID)
	require.NoError(t, err)
	assert.Len(t, evs, 2)

	require.NoError(t, facts.DeleteFact(ctx, factID))
	evs, err = ledger.ListEvidence(ctx, factID)
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestEvidenceLedger_Rejects(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t, newTestClock())

	_, err := b.Evidence().RecordEvidence(ctx, "missing", &store.Evidence{Type: "message", Weight: 0.5})
	assert.True(t, hzerr.IsNotFound(err))

	factID, err := b.Facts().UpsertFact(ctx, userFact(horizon.Long, "k", "v"))
	require.NoError(t, err)

	_, err = b.Evidence().RecordEvidence(ctx, factID, &store.Evidence{Type: "message", Weight: 1.2})
	assert.True(t, hzerr.IsInvalidInput(err))
}
