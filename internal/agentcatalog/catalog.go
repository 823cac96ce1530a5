// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package agentcatalog resolves agent personas from an embedded catalog.
// Lookups are pure: the same catalog version always yields the same
// snapshot for an agent id.
package agentcatalog

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

//go:embed agents.yaml
var embeddedCatalog []byte

// DefaultAgentID is used when a caller does not name an agent.
const DefaultAgentID = "assistant"

// Snapshot describes one agent persona.
type Snapshot struct {
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	AgentRole string `json:"agentRole"`
	Version   string `json:"version"`
	Digest    string `json:"digest"`
	Facts     []Fact `json:"facts"`
}

// Fact is a labelled persona attribute.
type Fact struct {
	Label     string    `json:"label"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UpdatedAt is the newest fact timestamp of the snapshot.
func (s Snapshot) UpdatedAt() time.Time {
	var latest time.Time
	for _, f := range s.Facts {
		if f.UpdatedAt.After(latest) {
			latest = f.UpdatedAt
		}
	}
	return latest
}

type catalogFile struct {
	Version string       `yaml:"version"`
	Default string       `yaml:"default"`
	Agents  []agentEntry `yaml:"agents"`
}

type agentEntry struct {
	ID    string      `yaml:"id"`
	Name  string      `yaml:"name"`
	Role  string      `yaml:"role"`
	Facts []factEntry `yaml:"facts"`
}

type factEntry struct {
	Label     string    `yaml:"label"`
	Value     string    `yaml:"value"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// Catalog is an immutable set of agent personas.
type Catalog struct {
	version   string
	defaultID string
	agents    map[string]agentEntry
	ids       []string
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, hzerr.Wrap(err, hzerr.CodeCatalogParseInvalid, "decoding agent catalog")
	}
	if f.Version == "" {
		return nil, hzerr.New(hzerr.CodeCatalogParseInvalid, "agent catalog: version is required")
	}
	if f.Default == "" {
		f.Default = DefaultAgentID
	}

	c := &Catalog{
		version:   f.Version,
		defaultID: f.Default,
		agents:    make(map[string]agentEntry, len(f.Agents)),
	}
	for _, a := range f.Agents {
		id := strings.TrimSpace(a.ID)
		if id == "" {
			return nil, hzerr.New(hzerr.CodeCatalogParseInvalid, "agent catalog: agent id is required")
		}
		if _, dup := c.agents[id]; dup {
			return nil, hzerr.Errorf(hzerr.CodeCatalogParseInvalid, "agent catalog: duplicate agent %q", id)
		}
		a.ID = id
		c.agents[id] = a
		c.ids = append(c.ids, id)
	}
	if _, ok := c.agents[c.defaultID]; !ok {
		return nil, hzerr.Errorf(hzerr.CodeCatalogParseInvalid, "agent catalog: default agent %q is not defined", c.defaultID)
	}
	sort.Strings(c.ids)
	return c, nil
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return Parse(embeddedCatalog)
})

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := loadDefault()
	if err != nil {
		panic("agentcatalog: embedded catalog is invalid: " + err.Error())
	}
	return c
}

func (c *Catalog) Version() string { return c.version }

// IDs lists the catalog agents in name order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.ids...)
}

// Snapshot resolves agentID. An empty id selects the default agent; an
// unknown id keeps its identity but borrows the default persona.
func (c *Catalog) Snapshot(agentID string) Snapshot {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		agentID = c.defaultID
	}
	entry, ok := c.agents[agentID]
	if !ok {
		entry = c.agents[c.defaultID]
	}

	snap := Snapshot{
		AgentID:   agentID,
		AgentName: entry.Name,
		AgentRole: entry.Role,
		Version:   c.version,
		Facts:     make([]Fact, 0, len(entry.Facts)),
	}
	for _, f := range entry.Facts {
		snap.Facts = append(snap.Facts, Fact{Label: f.Label, Value: f.Value, UpdatedAt: f.UpdatedAt.UTC()})
	}
	snap.Digest = digest(snap)
	return snap
}

func digest(s Snapshot) string {
	h := sha256.New()
	for _, part := range []string{s.Version, s.AgentID, s.AgentName, s.AgentRole} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	for _, f := range s.Facts {
		h.Write([]byte(f.Label))
		h.Write([]byte{0})
		h.Write([]byte(f.Value))
		h.Write([]byte{0})
		h.Write([]byte(f.UpdatedAt.Format(time.RFC3339Nano)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
