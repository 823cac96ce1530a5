// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package horizon holds the static ranking and inclusion rules for
// assembled context. Nothing here performs I/O.
package horizon

import (
	"strings"

	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

// Horizon is the retention tier of a fact or context block.
type Horizon string

const (
	Short  Horizon = "short"
	Medium Horizon = "medium"
	Long   Horizon = "long"
)

// All lists horizons in tier order.
var All = []Horizon{Short, Medium, Long}

func (h Horizon) Valid() bool {
	switch h {
	case Short, Medium, Long:
		return true
	}
	return false
}

// Tier returns the ordinal used when sorting facts (short first).
func (h Horizon) Tier() int {
	switch h {
	case Short:
		return 0
	case Medium:
		return 1
	case Long:
		return 2
	}
	return 3
}

func (h Horizon) String() string { return string(h) }

// Label is the bracketed upper-case tag used in rendered context.
func (h Horizon) Label() string { return "[" + strings.ToUpper(string(h)) + "]" }

// Parse accepts a horizon name in any case.
func Parse(s string) (Horizon, error) {
	h := Horizon(strings.ToLower(strings.TrimSpace(s)))
	if !h.Valid() {
		return "", hzerr.Errorf(hzerr.CodeHorizonParseInvalid, "unknown horizon %q", s)
	}
	return h, nil
}

// Block category priorities. Lower is kept first.
const (
	PriorityAgentCore          = 10
	PriorityUserIdentity       = 20
	PriorityUserPreferences    = 30
	PriorityActiveTasks        = 40
	PriorityCrossConversation  = 45
	PriorityRecentConversation = 50
	PriorityFactShort          = 60
	PriorityFactMedium         = 70
	PriorityFactLong           = 80
)

// FactPriority returns the block priority for a fact of the given horizon.
func FactPriority(h Horizon) int {
	switch h {
	case Short:
		return PriorityFactShort
	case Medium:
		return PriorityFactMedium
	default:
		return PriorityFactLong
	}
}

const (
	DefaultMaxBlocks = 8
	MinMaxBlocks     = 1
	MaxMaxBlocks     = 20
)

// ClampMaxBlocks applies the default to zero and clamps anything else to
// [MinMaxBlocks, MaxMaxBlocks].
func ClampMaxBlocks(n int) int {
	switch {
	case n == 0:
		return DefaultMaxBlocks
	case n < MinMaxBlocks:
		return MinMaxBlocks
	case n > MaxMaxBlocks:
		return MaxMaxBlocks
	}
	return n
}

// Set is an inclusion set of horizons.
type Set struct {
	short, medium, long bool
}

// Include builds a set from optional per-horizon switches. A nil switch
// means included.
func Include(short, medium, long *bool) Set {
	return Set{
		short:  short == nil || *short,
		medium: medium == nil || *medium,
		long:   long == nil || *long,
	}
}

// AllSet includes every horizon.
func AllSet() Set { return Set{short: true, medium: true, long: true} }

// Excluding returns the full set minus the listed horizons.
func Excluding(hs ...Horizon) Set {
	s := AllSet()
	for _, h := range hs {
		switch h {
		case Short:
			s.short = false
		case Medium:
			s.medium = false
		case Long:
			s.long = false
		}
	}
	return s
}

// Switches is the inverse of Include: nil for an included horizon and a
// pointer to false for an excluded one.
func (s Set) Switches() (short, medium, long *bool) {
	sw := func(on bool) *bool {
		if on {
			return nil
		}
		off := false
		return &off
	}
	return sw(s.short), sw(s.medium), sw(s.long)
}

func (s Set) Has(h Horizon) bool {
	switch h {
	case Short:
		return s.short
	case Medium:
		return s.medium
	case Long:
		return s.long
	}
	return false
}

// List returns the included horizons in tier order.
func (s Set) List() []Horizon {
	out := make([]Horizon, 0, 3)
	for _, h := range All {
		if s.Has(h) {
			out = append(out, h)
		}
	}
	return out
}

func (s Set) Empty() bool { return !s.short && !s.medium && !s.long }
