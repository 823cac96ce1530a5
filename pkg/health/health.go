// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package health

import (
	"sort"
	"sync"
	"time"
)

// Metrics exposes the current health state of a knowledge source for
// monitoring and operator visibility. All fields are point-in-time
// snapshots safe to serialize to JSON.
type Metrics struct {
	Source        string     `json:"source"`
	FetchCount    int64      `json:"fetchCount"`
	FailureCount  int64      `json:"failureCount"`
	LastFailureAt *time.Time `json:"lastFailureAt,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
	LastLatencyMS int64      `json:"lastLatencyMs"`
	Available     bool       `json:"available"`
}

// Tracker records fetch outcomes per source. The zero value is not usable;
// call NewTracker.
type Tracker struct {
	mu      sync.Mutex
	sources map[string]*Metrics
	now     func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		sources: make(map[string]*Metrics),
		now:     time.Now,
	}
}

// Record stores the outcome of one fetch. A nil err marks the source available.
func (t *Tracker) Record(source string, latency time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.sources[source]
	if !ok {
		m = &Metrics{Source: source}
		t.sources[source] = m
	}

	m.FetchCount++
	m.LastLatencyMS = latency.Milliseconds()
	if err == nil {
		m.Available = true
		m.LastError = ""
		return
	}

	failedAt := t.now().UTC()
	m.FailureCount++
	m.LastFailureAt = &failedAt
	m.LastError = err.Error()
	m.Available = false
}

// Snapshot returns copies of all tracked sources ordered by name.
func (t *Tracker) Snapshot() []Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Metrics, 0, len(t.sources))
	for _, m := range t.sources {
		cp := *m
		if m.LastFailureAt != nil {
			at := *m.LastFailureAt
			cp.LastFailureAt = &at
		}
		out = append(out, cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// Healthy reports whether every tracked source succeeded on its last fetch.
func (t *Tracker) Healthy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, m := range t.sources {
		if !m.Available {
			return false
		}
	}
	return true
}
