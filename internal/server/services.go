// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"context"

	"github.com/sigil-dev/horizon/internal/knowledge"
	"github.com/sigil-dev/horizon/internal/store"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
	"github.com/sigil-dev/horizon/pkg/health"
)

// ContextService assembles context windows and suggestions.
type ContextService interface {
	Assemble(ctx context.Context, opts knowledge.Options) (*knowledge.Payload, error)
	SuggestFor(ctx context.Context, opts knowledge.Options) (*knowledge.Suggestions, error)
}

// FactService is the fact store together with its evidence ledger.
type FactService interface {
	store.FactStore
	store.EvidenceLedger
}

// Pinger reports storage reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services holds dependencies injected into route handlers.
// Each field is an interface so subsystems can be mocked in tests.
// Use NewServices constructor to ensure all required services are provided.
type Services struct {
	assembler ContextService
	facts     FactService
	pinger    Pinger          // optional; nil reports storage as unknown
	health    *health.Tracker // optional; nil omits source health from status
}

// ServicesOption sets an optional dependency.
type ServicesOption func(*Services)

// WithPinger lets the status endpoint check storage.
func WithPinger(p Pinger) ServicesOption {
	return func(s *Services) { s.pinger = p }
}

// WithHealth lets the status endpoint report collaborator health.
func WithHealth(t *health.Tracker) ServicesOption {
	return func(s *Services) { s.health = t }
}

// NewServices creates a Services instance with validation.
// Returns an error if any required service is nil.
func NewServices(ctxSvc ContextService, facts FactService, opts ...ServicesOption) (*Services, error) {
	if ctxSvc == nil {
		return nil, hzerr.New(hzerr.CodeServerConfigInvalid, "context service is required")
	}
	if facts == nil {
		return nil, hzerr.New(hzerr.CodeServerConfigInvalid, "fact service is required")
	}
	s := &Services{assembler: ctxSvc, facts: facts}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}
