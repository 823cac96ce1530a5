// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package knowledge

import (
	"time"

	"github.com/sigil-dev/horizon/internal/horizon"
	"github.com/sigil-dev/horizon/internal/store"
)

// Options are the inputs of one assembly. Nil Include* flags mean the
// horizon is included; a zero MaxBlocks uses the engine default.
type Options struct {
	UserID         string `json:"userId"`
	AgentID        string `json:"agentId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	CompanyID      string `json:"companyId,omitempty"`
	IncludeShort   *bool  `json:"includeShort,omitempty"`
	IncludeMedium  *bool  `json:"includeMedium,omitempty"`
	IncludeLong    *bool  `json:"includeLong,omitempty"`
	MaxBlocks      int    `json:"maxBlocks,omitempty"`
}

// SourceType tells whether a block came from in-process state or from a
// collaborator.
type SourceType string

const (
	SourceRuntime  SourceType = "runtime"
	SourceExternal SourceType = "external"
)

// Source identifiers carried by blocks.
const (
	SourceAgentCatalog    = "agent-catalog"
	SourceFactStore       = "fact-store"
	SourceProfileStore    = "profile-store"
	SourceTaskTracker     = "task-tracker"
	SourceConversationLog = "conversation-log"
)

func sourceType(id string) SourceType {
	switch id {
	case SourceAgentCatalog, SourceFactStore:
		return SourceRuntime
	default:
		return SourceExternal
	}
}

// Block is one renderable unit of assembled memory.
type Block struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Horizon     horizon.Horizon   `json:"horizon"`
	Domain      string            `json:"domain"`
	SubjectType store.SubjectType `json:"subjectType"`
	SubjectID   string            `json:"subjectId"`
	Content     string            `json:"content"`
	Source      string            `json:"source"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	Confidence  *float64          `json:"confidence"`
	Highlights  []string          `json:"highlights,omitempty"`
}

// candidate pairs a block with its ranking priority. The priority never
// leaves the package.
type candidate struct {
	Block
	priority int
}

// Payload is the result of an assembly.
type Payload struct {
	ContextBlocks []Block      `json:"contextBlocks"`
	SystemContext string       `json:"systemContext"`
	HorizonUsage  HorizonUsage `json:"horizonUsage"`
	Sources       []Source     `json:"sources"`
	ContextDigest string       `json:"contextDigest"`
	TokenEstimate int          `json:"tokenEstimate"`
	Cache         Cache        `json:"cache"`
	Resolved      Resolved     `json:"resolved"`
	Metrics       Stats        `json:"metrics"`
}

// HorizonUsage counts the selected blocks per horizon.
type HorizonUsage struct {
	Short  int `json:"short"`
	Medium int `json:"medium"`
	Long   int `json:"long"`
}

func (u *HorizonUsage) add(h horizon.Horizon) {
	switch h {
	case horizon.Short:
		u.Short++
	case horizon.Medium:
		u.Medium++
	case horizon.Long:
		u.Long++
	}
}

// Source is one distinct origin of the selected blocks.
type Source struct {
	ID   string     `json:"id"`
	Type SourceType `json:"type"`
}

// Cache describes how long the payload may be reused.
type Cache struct {
	Key         string    `json:"key"`
	TTLSeconds  int       `json:"ttlSeconds"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Resolved echoes the effective options.
type Resolved struct {
	AgentID          string            `json:"agentId"`
	ConversationID   string            `json:"conversationId,omitempty"`
	IncludedHorizons []horizon.Horizon `json:"includedHorizons"`
	MaxBlocks        int               `json:"maxBlocks"`
}

// Stats reports assembly cost.
type Stats struct {
	GenerationMS    int64 `json:"generationMs"`
	TotalCandidates int   `json:"totalCandidates"`
}
