// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package knowledge

import (
	"context"
	"strings"
	"time"

	"github.com/sigil-dev/horizon/internal/textutil"
)

// MaxSuggestions caps the follow-up prompts returned by Suggest.
const MaxSuggestions = 4

const (
	maxTaskSuggestions = 2
	suggestionTopic    = 60
)

var fallbackSuggestions = []string{
	"What should I prioritize this week?",
	"Draft a short status update for my team.",
	"Which of my goals needs attention next?",
	"Suggest a way to save time on routine work.",
}

// Suggest derives follow-up prompt chips from assembled blocks. now picks
// the time-of-day default.
func Suggest(blocks []Block, now time.Time) []string {
	out := make([]string, 0, MaxSuggestions)
	seen := make(map[string]bool)
	add := func(s string) {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] || len(out) == MaxSuggestions {
			return
		}
		seen[key] = true
		out = append(out, s)
	}

	add(timeOfDaySuggestion(now))

	for _, b := range blocks {
		if strings.HasPrefix(b.ID, "conversation-recent:") && len(b.Highlights) > 0 {
			add("Continue where we left off: " + textutil.Truncate(b.Highlights[0], suggestionTopic))
			break
		}
	}

	for _, b := range blocks {
		if !strings.HasPrefix(b.ID, "active-projects:") {
			continue
		}
		for i, title := range b.Highlights {
			if i == maxTaskSuggestions {
				break
			}
			add("What is the next step for " + textutil.Truncate(title, suggestionTopic) + "?")
		}
		break
	}

	for _, s := range fallbackSuggestions {
		add(s)
	}
	return out
}

func timeOfDaySuggestion(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "Help me plan my priorities for this morning."
	case h < 18:
		return "What should I focus on for the rest of the afternoon?"
	default:
		return "Summarize what I got done today."
	}
}

// Suggestions is the result of SuggestFor.
type Suggestions struct {
	Suggestions   []string `json:"suggestions"`
	ContextDigest string   `json:"contextDigest"`
}

// SuggestFor assembles the context for opts and derives suggestions from it.
func (e *Engine) SuggestFor(ctx context.Context, opts Options) (*Suggestions, error) {
	p, err := e.Assemble(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Suggestions{
		Suggestions:   Suggest(p.ContextBlocks, e.now()),
		ContextDigest: p.ContextDigest,
	}, nil
}
