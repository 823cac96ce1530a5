// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sigil-dev/horizon/internal/store"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

// DatabaseFile is the file name of the backend database inside the data path.
const DatabaseFile = "horizon.db"

func init() {
	store.RegisterBackend("sqlite", newBackend)
}

var _ store.Backend = (*Backend)(nil)

// Backend serves every store from a single shared database so the pool
// bound applies to the whole process.
type Backend struct {
	db            *sql.DB
	facts         *FactStore
	profiles      *ProfileStore
	tasks         *TaskStore
	conversations *ConversationStore
}

func newBackend(cfg *store.StorageConfig, dataPath string) (store.Backend, error) {
	return Open(filepath.Join(dataPath, DatabaseFile), cfg)
}

// Open opens (or creates) the database at dbPath and migrates every table.
func Open(dbPath string, cfg *store.StorageConfig, opts ...Option) (*Backend, error) {
	if cfg == nil {
		cfg = &store.StorageConfig{}
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, hzerr.Errorf(hzerr.CodeStoreDatabaseFailure, "creating data directory: %w", err)
	}

	db, err := openDB(dbPath, cfg.MaxOpenConns)
	if err != nil {
		return nil, err
	}

	if cfg.Retry.MaxAttempts > 0 {
		opts = append([]Option{WithRetry(cfg.Retry)}, opts...)
	}

	b := &Backend{db: db}
	if b.facts, err = NewFactStoreWithDB(db, opts...); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating fact store: %w", err)
	}
	if b.profiles, err = NewProfileStoreWithDB(db, opts...); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating profile store: %w", err)
	}
	if b.tasks, err = NewTaskStoreWithDB(db, opts...); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating task store: %w", err)
	}
	if b.conversations, err = NewConversationStoreWithDB(db, opts...); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating conversation store: %w", err)
	}
	return b, nil
}

func (b *Backend) Facts() store.FactStore               { return b.facts }
func (b *Backend) Evidence() store.EvidenceLedger       { return b.facts }
func (b *Backend) Profiles() store.ProfileStore         { return b.profiles }
func (b *Backend) Tasks() store.TaskTracker             { return b.tasks }
func (b *Backend) Conversations() store.ConversationLog { return b.conversations }

// FactStore, ProfileStore, TaskStore and ConversationStore expose the
// concrete stores for seeding and tooling.
func (b *Backend) FactStore() *FactStore                 { return b.facts }
func (b *Backend) ProfileStore() *ProfileStore           { return b.profiles }
func (b *Backend) TaskStore() *TaskStore                 { return b.tasks }
func (b *Backend) ConversationStore() *ConversationStore { return b.conversations }

// Ping checks the database is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return dbError(err, "pinging database")
	}
	return nil
}

// Close closes the shared database.
func (b *Backend) Close() error {
	return b.db.Close()
}
