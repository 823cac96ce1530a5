// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package knowledge assembles the bounded, ranked context window handed
// to an assistant turn.
//
// An Engine fans out to the fact store and the profile, task and
// conversation collaborators, maps each result to context blocks, keeps
// the best ranked blocks within the budget and renders them together with
// a deterministic cache descriptor. A failing collaborator degrades the
// content of the window, never the call.
package knowledge

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/sigil-dev/horizon/internal/agentcatalog"
	"github.com/sigil-dev/horizon/internal/horizon"
	"github.com/sigil-dev/horizon/internal/store"
	"github.com/sigil-dev/horizon/internal/telemetry"
	"github.com/sigil-dev/horizon/pkg/health"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

var tracer = telemetry.Tracer("github.com/sigil-dev/horizon/internal/knowledge")

// Fetch limits per collaborator.
const (
	taskLimit         = 3
	recentLimit       = 4
	crossLimit        = 8
	factsPerBlock     = 4
	defaultFetchLimit = 2 * time.Second
)

// CacheTTLSeconds is how long an assembled payload may be reused.
const CacheTTLSeconds = 60

// FallbackContext is rendered when no block survives selection.
const FallbackContext = "No persisted knowledge context is available for this user yet."

// AgentCatalog resolves agent personas without I/O.
type AgentCatalog interface {
	Snapshot(agentID string) agentcatalog.Snapshot
}

// EngineConfig wires an Engine. Nil collaborators contribute no blocks.
type EngineConfig struct {
	Facts            store.FactStore
	Profiles         store.ProfileStore
	Tasks            store.TaskTracker
	Conversations    store.ConversationLog
	Catalog          AgentCatalog
	Logger           *slog.Logger
	Metrics          *Metrics
	Health           *health.Tracker
	FetchTimeout     time.Duration
	DefaultMaxBlocks int
	SharedSubjects   []string
	Now              func() time.Time
}

// Engine assembles context windows. It holds no per-call state and is
// safe for concurrent use.
type Engine struct {
	facts            store.FactStore
	profiles         store.ProfileStore
	tasks            store.TaskTracker
	conversations    store.ConversationLog
	catalog          AgentCatalog
	logger           *slog.Logger
	metrics          *Metrics
	health           *health.Tracker
	fetchTimeout     time.Duration
	defaultMaxBlocks int
	sharedSubjects   []string
	now              func() time.Time
}

// NewEngine creates an Engine from cfg, filling defaults.
func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		facts:            cfg.Facts,
		profiles:         cfg.Profiles,
		tasks:            cfg.Tasks,
		conversations:    cfg.Conversations,
		catalog:          cfg.Catalog,
		logger:           cfg.Logger,
		metrics:          cfg.Metrics,
		health:           cfg.Health,
		fetchTimeout:     cfg.FetchTimeout,
		defaultMaxBlocks: horizon.ClampMaxBlocks(cfg.DefaultMaxBlocks),
		sharedSubjects:   cfg.SharedSubjects,
		now:              cfg.Now,
	}
	if e.catalog == nil {
		e.catalog = agentcatalog.Default()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.fetchTimeout <= 0 {
		e.fetchTimeout = defaultFetchLimit
	}
	if len(e.sharedSubjects) == 0 {
		e.sharedSubjects = []string{"global", "default"}
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// resolved is the normalised form of Options.
type resolved struct {
	userID         string
	agent          agentcatalog.Snapshot
	conversationID string
	companyID      string
	horizons       horizon.Set
	maxBlocks      int
}

func (e *Engine) resolve(opts Options) (resolved, error) {
	userID := strings.TrimSpace(opts.UserID)
	if userID == "" {
		return resolved{}, hzerr.New(hzerr.CodeKnowledgeAssembleInvalidInput, "assemble context: userId is required")
	}
	maxBlocks := opts.MaxBlocks
	if maxBlocks == 0 {
		maxBlocks = e.defaultMaxBlocks
	}
	return resolved{
		userID:         userID,
		agent:          e.catalog.Snapshot(opts.AgentID),
		conversationID: strings.TrimSpace(opts.ConversationID),
		companyID:      strings.TrimSpace(opts.CompanyID),
		horizons:       horizon.Include(opts.IncludeShort, opts.IncludeMedium, opts.IncludeLong),
		maxBlocks:      horizon.ClampMaxBlocks(maxBlocks),
	}, nil
}

// Assemble builds the context window for one turn. The only error it
// returns is a missing user id; collaborator failures are logged and
// leave their blocks out.
func (e *Engine) Assemble(ctx context.Context, opts Options) (*Payload, error) {
	started := time.Now()
	r, err := e.resolve(opts)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "knowledge.assemble")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", r.userID),
		attribute.String("agent_id", r.agent.AgentID),
		attribute.Int("max_blocks", r.maxBlocks),
	)

	f := e.fetchAll(ctx, r)
	activeConversation := r.conversationID
	if activeConversation == "" && len(f.recent) > 0 {
		activeConversation = f.recent[len(f.recent)-1].ConversationID
	}

	candidates := e.buildCandidates(r, activeConversation, f)
	selected := selectBlocks(candidates, r.horizons, r.maxBlocks)

	p := &Payload{
		ContextBlocks: make([]Block, 0, len(selected)),
		Sources:       make([]Source, 0, len(selected)),
	}
	seen := make(map[string]bool)
	for _, c := range selected {
		p.ContextBlocks = append(p.ContextBlocks, c.Block)
		p.HorizonUsage.add(c.Horizon)
		if !seen[c.Source] {
			seen[c.Source] = true
			p.Sources = append(p.Sources, Source{ID: c.Source, Type: sourceType(c.Source)})
		}
	}

	p.SystemContext = render(p.ContextBlocks)
	p.TokenEstimate = estimateTokens(p.SystemContext)
	p.ContextDigest = digest(r.userID, r.agent.AgentID, activeConversation, p.ContextBlocks)
	p.Cache = Cache{
		Key:         CacheKey(r.userID, r.agent.AgentID, p.ContextDigest),
		TTLSeconds:  CacheTTLSeconds,
		GeneratedAt: e.now().UTC(),
	}
	p.Resolved = Resolved{
		AgentID:          r.agent.AgentID,
		ConversationID:   activeConversation,
		IncludedHorizons: r.horizons.List(),
		MaxBlocks:        r.maxBlocks,
	}

	elapsed := time.Since(started)
	p.Metrics = Stats{GenerationMS: elapsed.Milliseconds(), TotalCandidates: len(candidates)}
	e.metrics.observeAssembly(elapsed, len(p.ContextBlocks))
	span.SetAttributes(
		attribute.Int("candidates", len(candidates)),
		attribute.Int("selected", len(p.ContextBlocks)),
		attribute.String("digest", p.ContextDigest),
	)
	return p, nil
}

// CacheKey builds the cache key of a payload.
func CacheKey(userID, agentID, digest string) string {
	return "knowledge-context:" + userID + ":" + agentID + ":" + digest
}

// fetched holds the settled collaborator results. Each fetch owns one
// field.
type fetched struct {
	profile *store.Profile
	tasks   []*store.Task
	recent  []*store.ConversationMessage
	cross   []*store.ConversationMessage
	facts   []*store.Fact
}

// Fetch names used for logging, metrics and health.
const (
	fetchProfile = "profile"
	fetchTasks   = "tasks"
	fetchRecent  = "conversation-recent"
	fetchCross   = "conversation-cross"
	fetchFacts   = "facts"
)

func (e *Engine) fetchAll(ctx context.Context, r resolved) fetched {
	var (
		f fetched
		g errgroup.Group
	)

	if e.profiles != nil {
		g.Go(func() error {
			f.profile = fetch(ctx, e, fetchProfile, r.userID, func(ctx context.Context) (*store.Profile, error) {
				return e.profiles.GetByUserID(ctx, r.userID)
			})
			return nil
		})
	}
	if e.tasks != nil {
		g.Go(func() error {
			f.tasks = fetch(ctx, e, fetchTasks, r.userID, func(ctx context.Context) ([]*store.Task, error) {
				return e.tasks.ListActive(ctx, r.userID, taskLimit)
			})
			return nil
		})
	}
	if e.conversations != nil {
		g.Go(func() error {
			f.recent = fetch(ctx, e, fetchRecent, r.userID, func(ctx context.Context) ([]*store.ConversationMessage, error) {
				return e.conversations.Recent(ctx, r.conversationID, r.userID, recentLimit)
			})
			return nil
		})
		g.Go(func() error {
			f.cross = fetch(ctx, e, fetchCross, r.userID, func(ctx context.Context) ([]*store.ConversationMessage, error) {
				return e.conversations.CrossConversation(ctx, r.conversationID, r.userID, crossLimit)
			})
			return nil
		})
	}
	if e.facts != nil && !r.horizons.Empty() {
		filter := store.FactFilter{
			Scopes:   e.factScopes(r),
			Horizons: r.horizons.List(),
			Limit:    r.maxBlocks * factsPerBlock,
		}
		g.Go(func() error {
			f.facts = fetch(ctx, e, fetchFacts, r.userID, func(ctx context.Context) ([]*store.Fact, error) {
				return e.facts.ListActive(ctx, filter)
			})
			return nil
		})
	}

	_ = g.Wait()
	return f
}

func (e *Engine) factScopes(r resolved) []store.SubjectScope {
	scopes := []store.SubjectScope{
		{Type: store.SubjectUser, ID: r.userID},
		{Type: store.SubjectAgent, ID: r.agent.AgentID},
	}
	shared := append([]string(nil), e.sharedSubjects...)
	if r.companyID != "" {
		shared = append(shared, r.companyID)
	}
	seen := make(map[string]bool, len(shared))
	for _, id := range shared {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		scopes = append(scopes, store.SubjectScope{Type: store.SubjectShared, ID: id})
	}
	return scopes
}

// fetch runs fn under the per-fetch deadline. A failure or a straggler
// past the deadline yields the zero value; fn keeps running in the
// background until it observes the cancelled context.
func fetch[T any](ctx context.Context, e *Engine, name, userID string, fn func(context.Context) (T, error)) T {
	ctx, span := tracer.Start(ctx, "knowledge.fetch."+name)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	started := time.Now()
	go func() {
		v, err := fn(ctx)
		done <- result{v: v, err: err}
	}()

	var res result
	select {
	case res = <-done:
		res.err = hzerr.Wrap(res.err, hzerr.CodeKnowledgeFetchFailure, "fetch failed",
			hzerr.FieldSource(name), hzerr.FieldUserID(userID))
	case <-ctx.Done():
		res.err = hzerr.Wrap(ctx.Err(), hzerr.CodeKnowledgeFetchTimeout, "fetch abandoned",
			hzerr.FieldSource(name), hzerr.FieldUserID(userID))
	}

	latency := time.Since(started)
	if e.health != nil {
		e.health.Record(name, latency, res.err)
	}
	if res.err != nil {
		span.RecordError(res.err)
		e.metrics.fetchFailed(name)
		e.logger.WarnContext(ctx, "context source degraded",
			slog.String("source", name),
			slog.String("user_id", userID),
			slog.Duration("latency", latency),
			slog.Any("error", res.err),
		)
		var zero T
		return zero
	}
	return res.v
}
