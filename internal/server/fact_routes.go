// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sigil-dev/horizon/internal/horizon"
	"github.com/sigil-dev/horizon/internal/store"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

func (s *Server) registerFactRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "upsert-fact",
		Method:      http.MethodPut,
		Path:        "/api/v1/facts",
		Summary:     "Insert or update a fact by its identity tuple",
		Tags:        []string{"facts"},
	}, s.handleUpsertFact)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-facts",
		Method:      http.MethodGet,
		Path:        "/api/v1/facts",
		Summary:     "List active facts of one subject",
		Tags:        []string{"facts"},
	}, s.handleListFacts)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-fact",
		Method:      http.MethodGet,
		Path:        "/api/v1/facts/{id}",
		Summary:     "Get a fact",
		Tags:        []string{"facts"},
	}, s.handleGetFact)

	huma.Register(s.api, huma.Operation{
		OperationID: "set-fact-status",
		Method:      http.MethodPatch,
		Path:        "/api/v1/facts/{id}/status",
		Summary:     "Change the curation status of a fact",
		Tags:        []string{"facts"},
	}, s.handleSetFactStatus)

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-fact",
		Method:        http.MethodDelete,
		Path:          "/api/v1/facts/{id}",
		Summary:       "Delete a fact and its evidence",
		Tags:          []string{"facts"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteFact)

	huma.Register(s.api, huma.Operation{
		OperationID:   "record-evidence",
		Method:        http.MethodPost,
		Path:          "/api/v1/facts/{id}/evidence",
		Summary:       "Append a provenance record to a fact",
		Tags:          []string{"facts"},
		DefaultStatus: http.StatusCreated,
	}, s.handleRecordEvidence)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-evidence",
		Method:      http.MethodGet,
		Path:        "/api/v1/facts/{id}/evidence",
		Summary:     "List the evidence of a fact, oldest first",
		Tags:        []string{"facts"},
	}, s.handleListEvidence)
}

// --- Request/Response types for huma ---

// FactRequest is the body of an upsert.
type FactRequest struct {
	SubjectType     string          `json:"subjectType" enum:"user,agent,shared" doc:"Owner kind"`
	SubjectID       string          `json:"subjectId" minLength:"1" doc:"Owner id"`
	Horizon         string          `json:"horizon" enum:"short,medium,long" doc:"Retention horizon"`
	Domain          string          `json:"domain,omitempty" doc:"Topic grouping; defaults to general"`
	Key             string          `json:"factKey" minLength:"1" doc:"Fact key, unique per subject, horizon and domain"`
	Value           store.FactValue `json:"factValue" doc:"Tagged value"`
	Source          string          `json:"source,omitempty" doc:"Producer of the fact; defaults to system"`
	Confidence      float64         `json:"confidence,omitempty" minimum:"0" maximum:"1" doc:"Confidence in [0, 1]"`
	Status          string          `json:"status,omitempty" enum:"active,stale,conflicted,deprecated" doc:"Curation status; defaults to active"`
	TTLSeconds      *int64          `json:"ttlSeconds,omitempty" doc:"Lifetime in seconds; derives expiresAt"`
	ExpiresAt       *time.Time      `json:"expiresAt,omitempty" doc:"Explicit expiry; wins over ttlSeconds"`
	Tags            []string        `json:"tags,omitempty"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
	CreatedBy       string          `json:"createdBy,omitempty"`
	ExpectedVersion *int64          `json:"expectedVersion,omitempty" doc:"Reject the write unless the stored version matches"`
}

func (r *FactRequest) write() *store.FactWrite {
	return &store.FactWrite{
		SubjectType:     store.SubjectType(r.SubjectType),
		SubjectID:       r.SubjectID,
		Horizon:         horizon.Horizon(r.Horizon),
		Domain:          r.Domain,
		Key:             r.Key,
		Value:           r.Value,
		Source:          r.Source,
		Confidence:      r.Confidence,
		Status:          store.FactStatus(r.Status),
		TTLSeconds:      r.TTLSeconds,
		ExpiresAt:       r.ExpiresAt,
		Tags:            r.Tags,
		Metadata:        r.Metadata,
		CreatedBy:       r.CreatedBy,
		ExpectedVersion: r.ExpectedVersion,
	}
}

type upsertFactInput struct {
	Body FactRequest
}

// FactIDBody carries the id of a written fact.
type FactIDBody struct {
	ID string `json:"id" doc:"Stable fact id"`
}

type upsertFactOutput struct {
	Body FactIDBody
}

type listFactsInput struct {
	SubjectType string `query:"subjectType" required:"true" enum:"user,agent,shared" doc:"Owner kind"`
	SubjectID   string `query:"subjectId" required:"true" minLength:"1" doc:"Owner id"`
	Horizons    string `query:"horizons" doc:"Comma separated horizons; empty lists all"`
	Limit       int    `query:"limit" minimum:"0" maximum:"500" default:"50" doc:"Maximum number of facts"`
}

type listFactsOutput struct {
	Body struct {
		Facts []*store.Fact `json:"facts"`
	}
}

type factIDInput struct {
	ID string `path:"id" doc:"Fact id"`
}

type factOutput struct {
	Body *store.Fact
}

type setStatusInput struct {
	ID   string `path:"id" doc:"Fact id"`
	Body struct {
		Status string `json:"status" enum:"active,stale,conflicted,deprecated" doc:"New curation status"`
	}
}

// EvidenceRequest is the body of an evidence append.
type EvidenceRequest struct {
	Type     string         `json:"evidenceType" minLength:"1" doc:"Kind of evidence, e.g. message or document"`
	Ref      string         `json:"evidenceRef,omitempty" doc:"Pointer to the evidence origin"`
	Text     string         `json:"evidenceText,omitempty" doc:"Excerpt supporting the fact"`
	Weight   float64        `json:"weight,omitempty" minimum:"0" maximum:"1" doc:"Weight in [0, 1]"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type recordEvidenceInput struct {
	ID   string `path:"id" doc:"Fact id"`
	Body EvidenceRequest
}

// EvidenceIDBody carries the id of an appended evidence record.
type EvidenceIDBody struct {
	ID string `json:"id" doc:"Evidence id"`
}

type recordEvidenceOutput struct {
	Body EvidenceIDBody
}

type listEvidenceOutput struct {
	Body struct {
		Evidence []*store.Evidence `json:"evidence"`
	}
}

// --- Handlers ---

func (s *Server) handleUpsertFact(ctx context.Context, input *upsertFactInput) (*upsertFactOutput, error) {
	id, err := s.services.facts.UpsertFact(ctx, input.Body.write())
	if err != nil {
		return nil, s.apiError(err, "upserting fact")
	}
	return &upsertFactOutput{Body: FactIDBody{ID: id}}, nil
}

func (s *Server) handleListFacts(ctx context.Context, input *listFactsInput) (*listFactsOutput, error) {
	horizons, err := parseHorizons(input.Horizons)
	if err != nil {
		return nil, s.apiError(err, "invalid horizons")
	}

	facts, err := s.services.facts.ListActive(ctx, store.FactFilter{
		Scopes:   []store.SubjectScope{{Type: store.SubjectType(input.SubjectType), ID: input.SubjectID}},
		Horizons: horizons,
		Limit:    input.Limit,
	})
	if err != nil {
		return nil, s.apiError(err, "listing facts")
	}

	out := &listFactsOutput{}
	out.Body.Facts = facts
	return out, nil
}

func (s *Server) handleGetFact(ctx context.Context, input *factIDInput) (*factOutput, error) {
	f, err := s.services.facts.GetFact(ctx, input.ID)
	if err != nil {
		return nil, s.apiError(err, "getting fact")
	}
	return &factOutput{Body: f}, nil
}

func (s *Server) handleSetFactStatus(ctx context.Context, input *setStatusInput) (*factOutput, error) {
	if err := s.services.facts.SetStatus(ctx, input.ID, store.FactStatus(input.Body.Status)); err != nil {
		return nil, s.apiError(err, "setting fact status")
	}
	f, err := s.services.facts.GetFact(ctx, input.ID)
	if err != nil {
		return nil, s.apiError(err, "getting fact")
	}
	return &factOutput{Body: f}, nil
}

func (s *Server) handleDeleteFact(ctx context.Context, input *factIDInput) (*struct{}, error) {
	if err := s.services.facts.DeleteFact(ctx, input.ID); err != nil {
		return nil, s.apiError(err, "deleting fact")
	}
	return nil, nil
}

func (s *Server) handleRecordEvidence(ctx context.Context, input *recordEvidenceInput) (*recordEvidenceOutput, error) {
	id, err := s.services.facts.RecordEvidence(ctx, input.ID, &store.Evidence{
		Type:     input.Body.Type,
		Ref:      input.Body.Ref,
		Text:     input.Body.Text,
		Weight:   input.Body.Weight,
		Metadata: input.Body.Metadata,
	})
	if err != nil {
		return nil, s.apiError(err, "recording evidence")
	}
	return &recordEvidenceOutput{Body: EvidenceIDBody{ID: id}}, nil
}

func (s *Server) handleListEvidence(ctx context.Context, input *factIDInput) (*listEvidenceOutput, error) {
	ev, err := s.services.facts.ListEvidence(ctx, input.ID)
	if err != nil {
		return nil, s.apiError(err, "listing evidence")
	}
	out := &listEvidenceOutput{}
	out.Body.Evidence = ev
	return out, nil
}

func parseHorizons(raw string) ([]horizon.Horizon, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []horizon.Horizon
	for _, part := range strings.Split(raw, ",") {
		h, err := horizon.Parse(strings.TrimSpace(part))
		if err != nil {
			return nil, hzerr.Wrap(err, hzerr.CodeServerRequestInvalid, "parsing horizons")
		}
		out = append(out, h)
	}
	return out, nil
}
