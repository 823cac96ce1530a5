// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/sigil-dev/horizon/internal/telemetry"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

var tracer = telemetry.Tracer("github.com/sigil-dev/horizon/internal/store/sqlite")

const defaultMaxOpenConns = 8

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// openDB opens a WAL-mode database with foreign keys on and a bounded pool.
func openDB(dbPath string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, hzerr.Errorf(hzerr.CodeStoreDatabaseFailure, "opening sqlite db: %w", err)
	}

	if maxOpenConns <= 0 {
		maxOpenConns = defaultMaxOpenConns
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, hzerr.Errorf(hzerr.CodeStoreDatabaseFailure, "pinging sqlite db: %w", err)
	}
	return db, nil
}

// dbError classifies a driver error. Busy and locked databases are
// transient and reported as unavailable so store.Retry tries again.
func dbError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) && (sqErr.Code == sqlite3.ErrBusy || sqErr.Code == sqlite3.ErrLocked) {
		return hzerr.Wrap(err, hzerr.CodeStoreDatabaseUnavailable, msg)
	}
	return hzerr.Wrap(err, hzerr.CodeStoreDatabaseFailure, msg)
}

// formatTime serialises a time for storage in the database.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// parseTime deserialises a time string stored in the database.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// encodeJSON never returns an empty string so NOT NULL columns stay valid.
func encodeJSON(v any, empty string) (string, error) {
	if v == nil {
		return empty, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}

func decodeStringMap(raw string, dst *map[string]string) error {
	if raw == "" || raw == "{}" {
		*dst = nil
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}
