// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"math"
	"sort"
	"strings"

	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

// Valid reports whether the subject type is a known fact owner kind.
func (s SubjectType) Valid() bool {
	switch s {
	case SubjectUser, SubjectAgent, SubjectShared:
		return true
	default:
		return false
	}
}

// Valid reports whether the status is a known curation state.
func (s FactStatus) Valid() bool {
	switch s {
	case FactStatusActive, FactStatusStale, FactStatusConflicted, FactStatusDeprecated:
		return true
	default:
		return false
	}
}

// Terminal reports whether a task in this status is finished and must not
// be surfaced as active work.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusDone, TaskStatusCompleted, TaskStatusCancelled, TaskStatusArchived:
		return true
	default:
		return false
	}
}

// Tier ranks open task statuses: active, in_progress, paused, planned, other.
func (s TaskStatus) Tier() int {
	switch s {
	case TaskStatusActive:
		return 0
	case TaskStatusInProgress:
		return 1
	case TaskStatusPaused:
		return 2
	case TaskStatusPlanned:
		return 3
	default:
		return 4
	}
}

// Valid reports whether the role is a known message role.
func (r MessageRole) Valid() bool {
	switch r {
	case MessageRoleUser, MessageRoleAssistant, MessageRoleSystem:
		return true
	default:
		return false
	}
}

// Normalize fills defaults and canonicalises tags. It does not validate.
func (w *FactWrite) Normalize() {
	w.SubjectID = strings.TrimSpace(w.SubjectID)
	w.Key = strings.TrimSpace(w.Key)
	w.Domain = strings.TrimSpace(w.Domain)
	if w.Domain == "" {
		w.Domain = DefaultDomain
	}
	w.Source = strings.TrimSpace(w.Source)
	if w.Source == "" {
		w.Source = DefaultSource
	}
	if w.Status == "" {
		w.Status = FactStatusActive
	}
	w.Tags = NormalizeTags(w.Tags)
}

// Validate rejects out-of-range values. Nothing is clamped.
func (w *FactWrite) Validate() error {
	if !w.SubjectType.Valid() {
		return hzerr.Errorf(hzerr.CodeStoreFactUpsertInvalid, "fact: invalid subject type %q", w.SubjectType)
	}
	if w.SubjectID == "" {
		return hzerr.New(hzerr.CodeStoreFactUpsertInvalid, "fact: SubjectID is required")
	}
	if !w.Horizon.Valid() {
		return hzerr.Errorf(hzerr.CodeStoreFactUpsertInvalid, "fact: invalid horizon %q", w.Horizon)
	}
	if w.Key == "" {
		return hzerr.New(hzerr.CodeStoreFactUpsertInvalid, "fact: Key is required")
	}
	if !w.Value.Kind.Valid() {
		return hzerr.Errorf(hzerr.CodeStoreFactUpsertInvalid, "fact: invalid value kind %q", w.Value.Kind)
	}
	if !unitInterval(w.Confidence) {
		return hzerr.Errorf(hzerr.CodeStoreFactUpsertInvalid, "fact: confidence must be within [0,1], got %v", w.Confidence)
	}
	if w.TTLSeconds != nil && *w.TTLSeconds <= 0 {
		return hzerr.Errorf(hzerr.CodeStoreFactUpsertInvalid, "fact: ttlSeconds must be > 0, got %d", *w.TTLSeconds)
	}
	if w.Status != "" && !w.Status.Valid() {
		return hzerr.Errorf(hzerr.CodeStoreFactUpsertInvalid, "fact: invalid status %q", w.Status)
	}
	if w.ExpectedVersion != nil && *w.ExpectedVersion < 1 {
		return hzerr.Errorf(hzerr.CodeStoreFactUpsertInvalid, "fact: expectedVersion must be >= 1, got %d", *w.ExpectedVersion)
	}
	return nil
}

// Validate checks an evidence record before it is appended.
func (e *Evidence) Validate() error {
	if strings.TrimSpace(e.Type) == "" {
		return hzerr.New(hzerr.CodeStoreEvidenceInvalid, "evidence: Type is required")
	}
	if !unitInterval(e.Weight) {
		return hzerr.Errorf(hzerr.CodeStoreEvidenceInvalid, "evidence: weight must be within [0,1], got %v", e.Weight)
	}
	return nil
}

// Validate checks that the filter names at least one well-formed subject.
func (f FactFilter) Validate() error {
	if len(f.Scopes) == 0 {
		return hzerr.New(hzerr.CodeStoreInvalidInput, "fact filter: at least one subject scope is required")
	}
	for _, s := range f.Scopes {
		if !s.Type.Valid() || s.ID == "" {
			return hzerr.Errorf(hzerr.CodeStoreInvalidInput, "fact filter: invalid scope %s:%q", s.Type, s.ID)
		}
	}
	for _, h := range f.Horizons {
		if !h.Valid() {
			return hzerr.Errorf(hzerr.CodeStoreInvalidInput, "fact filter: invalid horizon %q", h)
		}
	}
	if f.Limit < 0 {
		return hzerr.Errorf(hzerr.CodeStoreInvalidInput, "fact filter: limit must be >= 0, got %d", f.Limit)
	}
	return nil
}

// NormalizeTags trims, drops empties, deduplicates and sorts.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func unitInterval(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
