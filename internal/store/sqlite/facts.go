// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sigil-dev/horizon/internal/horizon"
	"github.com/sigil-dev/horizon/internal/store"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

// Compile-time interface checks.
var (
	_ store.FactStore      = (*FactStore)(nil)
	_ store.EvidenceLedger = (*FactStore)(nil)
)

// FactStore implements store.FactStore and store.EvidenceLedger backed by
// SQLite. Evidence rows cascade with their fact.
type FactStore struct {
	db     *sql.DB
	retry  store.RetryConfig
	now    func() time.Time
	logger *slog.Logger
	owned  bool
}

// Option configures a store constructed by this package.
type Option func(*options)

type options struct {
	retry  store.RetryConfig
	now    func() time.Time
	logger *slog.Logger
}

// WithRetry sets the backoff policy for transient failures.
func WithRetry(cfg store.RetryConfig) Option {
	return func(o *options) { o.retry = cfg }
}

// WithClock replaces time.Now for write timestamps and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{
		retry:  store.DefaultRetryConfig(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewFactStore opens (or creates) a SQLite database at dbPath holding the
// facts and evidence tables.
func NewFactStore(dbPath string, opts ...Option) (*FactStore, error) {
	db, err := openDB(dbPath, 0)
	if err != nil {
		return nil, err
	}

	fs, err := NewFactStoreWithDB(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	fs.owned = true
	return fs, nil
}

// NewFactStoreWithDB migrates and wraps an already open database.
func NewFactStoreWithDB(db *sql.DB, opts ...Option) (*FactStore, error) {
	if err := migrateFacts(db); err != nil {
		return nil, hzerr.Errorf(hzerr.CodeStoreDatabaseFailure, "migrating fact tables: %w", err)
	}

	o := buildOptions(opts)
	return &FactStore{db: db, retry: o.retry, now: o.now, logger: o.logger}, nil
}

func migrateFacts(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS facts (
	id           TEXT PRIMARY KEY,
	subject_type TEXT NOT NULL,
	subject_id   TEXT NOT NULL,
	horizon      TEXT NOT NULL,
	domain       TEXT NOT NULL DEFAULT 'general',
	fact_key     TEXT NOT NULL,
	value        TEXT NOT NULL,
	source       TEXT NOT NULL DEFAULT 'system',
	confidence   REAL NOT NULL CHECK (confidence >= 0 AND confidence <= 1),
	status       TEXT NOT NULL DEFAULT 'active',
	ttl_seconds  INTEGER CHECK (ttl_seconds IS NULL OR ttl_seconds > 0),
	expires_at   TEXT,
	tags         TEXT NOT NULL DEFAULT '[]',
	metadata     TEXT NOT NULL DEFAULT '{}',
	created_by   TEXT NOT NULL DEFAULT '',
	version      INTEGER NOT NULL DEFAULT 1,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	UNIQUE(subject_type, subject_id, horizon, domain, fact_key)
);

CREATE INDEX IF NOT EXISTS idx_facts_subject ON facts(subject_type, subject_id, status, horizon);

CREATE TABLE IF NOT EXISTS fact_evidence (
	id            TEXT PRIMARY KEY,
	fact_id       TEXT NOT NULL REFERENCES facts(id) ON DELETE CASCADE,
	evidence_type TEXT NOT NULL,
	evidence_ref  TEXT NOT NULL DEFAULT '',
	evidence_text TEXT NOT NULL DEFAULT '',
	weight        REAL NOT NULL CHECK (weight >= 0 AND weight <= 1),
	metadata      TEXT NOT NULL DEFAULT '{}',
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fact_evidence_fact ON fact_evidence(fact_id);

CREATE TRIGGER IF NOT EXISTS fact_evidence_append_only
BEFORE UPDATE ON fact_evidence
BEGIN
	SELECT RAISE(ABORT, 'fact evidence is append-only');
END;
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the database if this store opened it.
func (s *FactStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

const factColumns = `id, subject_type, subject_id, horizon, domain, fact_key, value, source,
	confidence, status, ttl_seconds, expires_at, tags, metadata, created_by, version, created_at, updated_at`

// UpsertFact writes a fact keyed by its unique tuple. A write to an existing
// tuple replaces the mutable columns, bumps the version and keeps id and
// created_at. TTL is turned into expires_at here unless an explicit
// expiry was supplied. w is normalized in place.
func (s *FactStore) UpsertFact(ctx context.Context, w *store.FactWrite) (string, error) {
	ctx, span := tracer.Start(ctx, "facts.upsert",
		trace.WithAttributes(
			attribute.String("fact.subject_type", string(w.SubjectType)),
			attribute.String("fact.horizon", string(w.Horizon)),
			attribute.String("fact.domain", w.Domain),
		),
	)
	defer span.End()

	w.Normalize()
	if err := w.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid input")
		return "", err
	}

	now := s.now().UTC()
	expiresAt := deriveExpiry(now, w.TTLSeconds, w.ExpiresAt)

	value, err := json.Marshal(w.Value)
	if err != nil {
		return "", hzerr.Wrap(err, hzerr.CodeStoreFactUpsertInvalid, "encoding fact value")
	}
	tags, err := encodeJSON(w.Tags, "[]")
	if err != nil {
		return "", hzerr.Wrap(err, hzerr.CodeStoreFactUpsertInvalid, "encoding fact tags")
	}
	metadata, err := encodeJSON(w.Metadata, "{}")
	if err != nil {
		return "", hzerr.Wrap(err, hzerr.CodeStoreFactUpsertInvalid, "encoding fact metadata")
	}

	id, err := store.Retry(ctx, s.retry, func() (string, error) {
		if w.ExpectedVersion != nil {
			return s.updateIfVersion(ctx, w, string(value), tags, metadata, expiresAt, now)
		}
		return s.upsert(ctx, w, string(value), tags, metadata, expiresAt, now)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return "", err
	}

	span.SetAttributes(attribute.String("fact.id", id))
	return id, nil
}

func (s *FactStore) upsert(ctx context.Context, w *store.FactWrite, value, tags, metadata string, expiresAt *time.Time, now time.Time) (string, error) {
	const q = `INSERT INTO facts (id, subject_type, subject_id, horizon, domain, fact_key, value, source,
	confidence, status, ttl_seconds, expires_at, tags, metadata, created_by, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
ON CONFLICT(subject_type, subject_id, horizon, domain, fact_key) DO UPDATE SET
	value       = excluded.value,
	source      = excluded.source,
	confidence  = excluded.confidence,
	status      = excluded.status,
	ttl_seconds = excluded.ttl_seconds,
	expires_at  = excluded.expires_at,
	tags        = excluded.tags,
	metadata    = excluded.metadata,
	version     = facts.version + 1,
	updated_at  = excluded.updated_at
RETURNING id`

	ts := formatTime(now)
	var id string
	err := s.db.QueryRowContext(ctx, q,
		uuid.NewString(), w.SubjectType, w.SubjectID, w.Horizon, w.Domain, w.Key, value, w.Source,
		w.Confidence, w.Status, nullInt64(w.TTLSeconds), nullTime(expiresAt), tags, metadata, w.CreatedBy,
		ts, ts,
	).Scan(&id)
	if err != nil {
		return "", dbError(err, "upserting fact")
	}
	return id, nil
}

func (s *FactStore) updateIfVersion(ctx context.Context, w *store.FactWrite, value, tags, metadata string, expiresAt *time.Time, now time.Time) (string, error) {
	const q = `UPDATE facts SET
	value = ?, source = ?, confidence = ?, status = ?, ttl_seconds = ?, expires_at = ?,
	tags = ?, metadata = ?, version = version + 1, updated_at = ?
WHERE subject_type = ? AND subject_id = ? AND horizon = ? AND domain = ? AND fact_key = ? AND version = ?
RETURNING id`

	var id string
	err := s.db.QueryRowContext(ctx, q,
		value, w.Source, w.Confidence, w.Status, nullInt64(w.TTLSeconds), nullTime(expiresAt),
		tags, metadata, formatTime(now),
		w.SubjectType, w.SubjectID, w.Horizon, w.Domain, w.Key, *w.ExpectedVersion,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", hzerr.New(hzerr.CodeStoreFactUpsertConflict,
			"fact version mismatch",
			hzerr.Field("fact_key", w.Key),
			hzerr.Field("expected_version", *w.ExpectedVersion),
		)
	}
	if err != nil {
		return "", dbError(err, "updating fact")
	}
	return id, nil
}

// deriveExpiry prefers an explicit expiry, then now+ttl, else none.
func deriveExpiry(now time.Time, ttlSeconds *int64, explicit *time.Time) *time.Time {
	if explicit != nil && !explicit.IsZero() {
		t := explicit.UTC()
		return &t
	}
	if ttlSeconds != nil && *ttlSeconds > 0 {
		t := now.Add(time.Duration(*ttlSeconds) * time.Second)
		return &t
	}
	return nil
}

// GetFact returns a fact by id regardless of status or expiry.
func (s *FactStore) GetFact(ctx context.Context, id string) (*store.Fact, error) {
	ctx, span := tracer.Start(ctx, "facts.get", trace.WithAttributes(attribute.String("fact.id", id)))
	defer span.End()

	f, err := store.Retry(ctx, s.retry, func() (*store.Fact, error) {
		row := s.db.QueryRowContext(ctx, `SELECT `+factColumns+` FROM facts WHERE id = ?`, id)
		f, err := scanFact(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hzerr.New(hzerr.CodeStoreFactNotFound, "fact "+id+" not found", hzerr.FieldFactID(id))
		}
		if err != nil {
			return nil, dbError(err, "getting fact")
		}
		return f, nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return f, nil
}

// ListActive returns visible facts for the filter's subjects. On failure it
// returns an empty slice alongside the error.
func (s *FactStore) ListActive(ctx context.Context, filter store.FactFilter) ([]*store.Fact, error) {
	ctx, span := tracer.Start(ctx, "facts.list_active",
		trace.WithAttributes(
			attribute.Int("fact.scopes", len(filter.Scopes)),
			attribute.Int("fact.limit", filter.Limit),
		),
	)
	defer span.End()

	if err := filter.Validate(); err != nil {
		return []*store.Fact{}, err
	}

	q, args := buildListActive(filter, s.now().UTC())
	facts, err := store.Retry(ctx, s.retry, func() ([]*store.Fact, error) {
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, dbError(err, "listing active facts")
		}
		defer func() { _ = rows.Close() }()

		out := make([]*store.Fact, 0)
		for rows.Next() {
			f, err := scanFact(rows)
			if err != nil {
				return nil, dbError(err, "scanning fact")
			}
			out = append(out, f)
		}
		if err := rows.Err(); err != nil {
			return nil, dbError(err, "iterating facts")
		}
		return out, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		s.logger.Warn("listing active facts failed", slog.String("error", err.Error()))
		return []*store.Fact{}, err
	}

	span.SetAttributes(attribute.Int("fact.count", len(facts)))
	return facts, nil
}

func buildListActive(filter store.FactFilter, now time.Time) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, 2+len(filter.Scopes)*2+len(filter.Horizons))

	b.WriteString(`SELECT ` + factColumns + ` FROM facts
WHERE status = ? AND (expires_at IS NULL OR expires_at > ?) AND (`)
	args = append(args, store.FactStatusActive, formatTime(now))

	for i, sc := range filter.Scopes {
		if i > 0 {
			b.WriteString(" OR ")
		}
		b.WriteString("(subject_type = ? AND subject_id = ?)")
		args = append(args, sc.Type, sc.ID)
	}
	b.WriteString(")")

	if len(filter.Horizons) > 0 {
		b.WriteString(" AND horizon IN (")
		for i, h := range filter.Horizons {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, h)
		}
		b.WriteString(")")
	}

	b.WriteString(`
ORDER BY CASE horizon WHEN 'short' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, updated_at DESC, fact_key ASC`)

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	b.WriteString(" LIMIT ?")
	args = append(args, limit)

	return b.String(), args
}

// SetStatus applies an external curation decision.
func (s *FactStore) SetStatus(ctx context.Context, id string, status store.FactStatus) error {
	ctx, span := tracer.Start(ctx, "facts.set_status",
		trace.WithAttributes(attribute.String("fact.id", id), attribute.String("fact.status", string(status))),
	)
	defer span.End()

	if !status.Valid() {
		return hzerr.Errorf(hzerr.CodeStoreInvalidInput, "fact: invalid status %q", status)
	}

	return store.RetryExec(ctx, s.retry, func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE facts SET status = ?, version = version + 1, updated_at = ? WHERE id = ?`,
			status, formatTime(s.now()), id)
		if err != nil {
			return dbError(err, "setting fact status")
		}
		return requireAffected(res, id)
	})
}

// DeleteFact removes a fact and, by cascade, its evidence.
func (s *FactStore) DeleteFact(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "facts.delete", trace.WithAttributes(attribute.String("fact.id", id)))
	defer span.End()

	return store.RetryExec(ctx, s.retry, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM facts WHERE id = ?`, id)
		if err != nil {
			return dbError(err, "deleting fact")
		}
		return requireAffected(res, id)
	})
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err, "reading affected rows")
	}
	if n == 0 {
		return hzerr.New(hzerr.CodeStoreFactNotFound, "fact "+id+" not found", hzerr.FieldFactID(id))
	}
	return nil
}

// RecordEvidence appends an evidence row to an existing fact.
func (s *FactStore) RecordEvidence(ctx context.Context, factID string, ev *store.Evidence) (string, error) {
	ctx, span := tracer.Start(ctx, "facts.evidence.record", trace.WithAttributes(attribute.String("fact.id", factID)))
	defer span.End()

	if err := ev.Validate(); err != nil {
		return "", err
	}
	metadata, err := encodeJSON(ev.Metadata, "{}")
	if err != nil {
		return "", hzerr.Wrap(err, hzerr.CodeStoreEvidenceInvalid, "encoding evidence metadata")
	}

	id := uuid.NewString()
	createdAt := s.now().UTC()

	err = store.RetryExec(ctx, s.retry, func() error {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM facts WHERE id = ?`, factID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return hzerr.New(hzerr.CodeStoreFactNotFound, "fact "+factID+" not found", hzerr.FieldFactID(factID))
		}
		if err != nil {
			return dbError(err, "checking fact")
		}

		_, err = s.db.ExecContext(ctx, `INSERT INTO fact_evidence
	(id, fact_id, evidence_type, evidence_ref, evidence_text, weight, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, factID, strings.TrimSpace(ev.Type), ev.Ref, ev.Text, ev.Weight, metadata, formatTime(createdAt))
		if err != nil {
			return dbError(err, "recording evidence")
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return id, nil
}

// ListEvidence returns a fact's evidence in append order.
func (s *FactStore) ListEvidence(ctx context.Context, factID string) ([]*store.Evidence, error) {
	ctx, span := tracer.Start(ctx, "facts.evidence.list", trace.WithAttributes(attribute.String("fact.id", factID)))
	defer span.End()

	return store.Retry(ctx, s.retry, func() ([]*store.Evidence, error) {
		rows, err := s.db.QueryContext(ctx, `SELECT id, fact_id, evidence_type, evidence_ref, evidence_text,
	weight, metadata, created_at FROM fact_evidence WHERE fact_id = ? ORDER BY rowid`, factID)
		if err != nil {
			return nil, dbError(err, "listing evidence")
		}
		defer func() { _ = rows.Close() }()

		out := make([]*store.Evidence, 0)
		for rows.Next() {
			var (
				ev                  store.Evidence
				metadata, createdAt string
			)
			if err := rows.Scan(&ev.ID, &ev.FactID, &ev.Type, &ev.Ref, &ev.Text, &ev.Weight, &metadata, &createdAt); err != nil {
				return nil, dbError(err, "scanning evidence")
			}
			if err := decodeMetadata(metadata, &ev.Metadata); err != nil {
				return nil, dbError(err, "decoding evidence metadata")
			}
			if ev.CreatedAt, err = parseTime(createdAt); err != nil {
				return nil, dbError(err, "parsing evidence created_at")
			}
			out = append(out, &ev)
		}
		if err := rows.Err(); err != nil {
			return nil, dbError(err, "iterating evidence")
		}
		return out, nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFact(row rowScanner) (*store.Fact, error) {
	var (
		f                       store.Fact
		subjectType, hz, status string
		value, tags, metadata   string
		ttl                     sql.NullInt64
		expiresAt               sql.NullString
		createdAt, updatedAt    string
	)
	err := row.Scan(&f.ID, &subjectType, &f.SubjectID, &hz, &f.Domain, &f.Key, &value, &f.Source,
		&f.Confidence, &status, &ttl, &expiresAt, &tags, &metadata, &f.CreatedBy, &f.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	f.SubjectType = store.SubjectType(subjectType)
	f.Horizon = horizon.Horizon(hz)
	f.Status = store.FactStatus(status)
	if ttl.Valid {
		v := ttl.Int64
		f.TTLSeconds = &v
	}

	if err := json.Unmarshal([]byte(value), &f.Value); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &f.Tags); err != nil {
		return nil, err
	}
	if f.Tags == nil {
		f.Tags = []string{}
	}
	if err := decodeMetadata(metadata, &f.Metadata); err != nil {
		return nil, err
	}
	if f.ExpiresAt, err = parseNullTime(expiresAt); err != nil {
		return nil, err
	}
	if f.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if f.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func decodeMetadata(raw string, dst *map[string]any) error {
	if raw == "" || raw == "{}" {
		*dst = nil
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}
