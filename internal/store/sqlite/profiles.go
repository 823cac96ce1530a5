// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sigil-dev/horizon/internal/store"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

var _ store.ProfileStore = (*ProfileStore)(nil)

// ProfileStore is a reference store.ProfileStore on SQLite.
type ProfileStore struct {
	db    *sql.DB
	retry store.RetryConfig
	now   func() time.Time
}

// NewProfileStoreWithDB migrates and wraps an already open database.
func NewProfileStoreWithDB(db *sql.DB, opts ...Option) (*ProfileStore, error) {
	const ddl = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id      TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	role         TEXT NOT NULL DEFAULT '',
	job_title    TEXT NOT NULL DEFAULT '',
	location     TEXT NOT NULL DEFAULT '',
	preferences  TEXT NOT NULL DEFAULT '{}',
	company_ref  TEXT NOT NULL DEFAULT '',
	updated_at   TEXT NOT NULL
);
`
	if _, err := db.Exec(ddl); err != nil {
		return nil, hzerr.Errorf(hzerr.CodeStoreDatabaseFailure, "migrating profile table: %w", err)
	}

	o := buildOptions(opts)
	return &ProfileStore{db: db, retry: o.retry, now: o.now}, nil
}

// PutProfile inserts or replaces a profile.
func (s *ProfileStore) PutProfile(ctx context.Context, p *store.Profile) error {
	if p.UserID == "" {
		return hzerr.New(hzerr.CodeStoreInvalidInput, "profile: UserID is required")
	}
	prefs, err := encodeJSON(p.Preferences, "{}")
	if err != nil {
		return hzerr.Wrap(err, hzerr.CodeStoreInvalidInput, "encoding preferences")
	}
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}

	return store.RetryExec(ctx, s.retry, func() error {
		_, err := s.db.ExecContext(ctx, `INSERT INTO profiles
	(user_id, display_name, role, job_title, location, preferences, company_ref, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	display_name = excluded.display_name,
	role         = excluded.role,
	job_title    = excluded.job_title,
	location     = excluded.location,
	preferences  = excluded.preferences,
	company_ref  = excluded.company_ref,
	updated_at   = excluded.updated_at`,
			p.UserID, p.DisplayName, p.Role, p.JobTitle, p.Location, prefs, p.CompanyRef, formatTime(updatedAt))
		return dbError(err, "putting profile")
	})
}

// GetByUserID returns nil, nil when the user has no profile.
func (s *ProfileStore) GetByUserID(ctx context.Context, userID string) (*store.Profile, error) {
	ctx, span := tracer.Start(ctx, "profiles.get")
	defer span.End()

	return store.Retry(ctx, s.retry, func() (*store.Profile, error) {
		var (
			p                store.Profile
			prefs, updatedAt string
		)
		err := s.db.QueryRowContext(ctx, `SELECT user_id, display_name, role, job_title, location,
	preferences, company_ref, updated_at FROM profiles WHERE user_id = ?`, userID).
			Scan(&p.UserID, &p.DisplayName, &p.Role, &p.JobTitle, &p.Location, &prefs, &p.CompanyRef, &updatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, dbError(err, "getting profile")
		}

		if err := decodeStringMap(prefs, &p.Preferences); err != nil {
			return nil, dbError(err, "decoding preferences")
		}
		if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, dbError(err, "parsing profile updated_at")
		}
		return &p, nil
	})
}
