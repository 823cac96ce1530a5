// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sigil-dev/horizon/internal/knowledge"
	"github.com/sigil-dev/horizon/pkg/health"
)

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
	s.registerFactRoutes()
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "assemble-context",
		Method:      http.MethodPost,
		Path:        "/api/v1/context",
		Summary:     "Assemble the context window for one assistant turn",
		Tags:        []string{"context"},
	}, s.handleAssembleContext)

	huma.Register(s.api, huma.Operation{
		OperationID: "suggest-prompts",
		Method:      http.MethodPost,
		Path:        "/api/v1/suggestions",
		Summary:     "Suggest follow-up prompts from the assembled context",
		Tags:        []string{"context"},
	}, s.handleSuggest)

	huma.Register(s.api, huma.Operation{
		OperationID: "service-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Storage and knowledge source status",
		Tags:        []string{"system"},
	}, s.handleStatus)
}

// --- Request/Response types for huma ---

// ContextRequest selects what to assemble.
type ContextRequest struct {
	UserID         string `json:"userId" minLength:"1" doc:"User the context is assembled for"`
	AgentID        string `json:"agentId,omitempty" doc:"Agent persona; empty selects the default agent"`
	ConversationID string `json:"conversationId,omitempty" doc:"Active conversation; empty selects the latest one"`
	CompanyID      string `json:"companyId,omitempty" doc:"Adds the company's shared facts to the scope"`
	IncludeShort   *bool  `json:"includeShort,omitempty" doc:"Include short-horizon blocks (default true)"`
	IncludeMedium  *bool  `json:"includeMedium,omitempty" doc:"Include medium-horizon blocks (default true)"`
	IncludeLong    *bool  `json:"includeLong,omitempty" doc:"Include long-horizon blocks (default true)"`
	MaxBlocks      int    `json:"maxBlocks,omitempty" doc:"Block budget, clamped to [1, 20]; 0 uses the server default"`
}

func (r ContextRequest) options() knowledge.Options {
	return knowledge.Options{
		UserID:         r.UserID,
		AgentID:        r.AgentID,
		ConversationID: r.ConversationID,
		CompanyID:      r.CompanyID,
		IncludeShort:   r.IncludeShort,
		IncludeMedium:  r.IncludeMedium,
		IncludeLong:    r.IncludeLong,
		MaxBlocks:      r.MaxBlocks,
	}
}

type contextInput struct {
	Body ContextRequest
}

type contextOutput struct {
	CacheControl string `header:"Cache-Control"`
	ETag         string `header:"ETag"`
	Body         *knowledge.Payload
}

type suggestOutput struct {
	Body *knowledge.Suggestions
}

// StatusBody reports storage reachability and per-source fetch health.
type StatusBody struct {
	Status  string           `json:"status" example:"ok" doc:"ok or degraded"`
	Storage string           `json:"storage" example:"ok" doc:"ok, unavailable or unknown"`
	Sources []health.Metrics `json:"sources" doc:"Outcome of the latest fetch per knowledge source"`
}

type statusOutput struct {
	Body StatusBody
}

// --- Handlers ---

func (s *Server) handleAssembleContext(ctx context.Context, input *contextInput) (*contextOutput, error) {
	p, err := s.services.assembler.Assemble(ctx, input.Body.options())
	if err != nil {
		return nil, s.apiError(err, "assembling context")
	}
	return &contextOutput{
		CacheControl: "private, max-age=" + strconv.Itoa(p.Cache.TTLSeconds),
		ETag:         strconv.Quote(p.ContextDigest),
		Body:         p,
	}, nil
}

func (s *Server) handleSuggest(ctx context.Context, input *contextInput) (*suggestOutput, error) {
	out, err := s.services.assembler.SuggestFor(ctx, input.Body.options())
	if err != nil {
		return nil, s.apiError(err, "suggesting prompts")
	}
	return &suggestOutput{Body: out}, nil
}

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	out := &statusOutput{Body: StatusBody{Status: "ok", Storage: "unknown", Sources: []health.Metrics{}}}

	if s.services.pinger != nil {
		out.Body.Storage = "ok"
		if err := s.services.pinger.Ping(ctx); err != nil {
			s.logger.Warn("storage ping failed", "error", err)
			out.Body.Storage = "unavailable"
			out.Body.Status = "degraded"
		}
	}
	if s.services.health != nil {
		out.Body.Sources = s.services.health.Snapshot()
		if !s.services.health.Healthy() {
			out.Body.Status = "degraded"
		}
	}
	return out, nil
}
