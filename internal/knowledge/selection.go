// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package knowledge

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"time"

	"github.com/sigil-dev/horizon/internal/horizon"
	"github.com/sigil-dev/horizon/internal/textutil"
)

// selectBlocks keeps the candidates of included horizons ordered by
// priority, recency and id, capped at maxBlocks.
func selectBlocks(candidates []candidate, included horizon.Set, maxBlocks int) []candidate {
	kept := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if included.Has(c.Horizon) {
			kept = append(kept, c)
		}
	}
	slices.SortStableFunc(kept, compareCandidates)
	if len(kept) > maxBlocks {
		kept = kept[:maxBlocks]
	}
	return kept
}

func compareCandidates(a, b candidate) int {
	if c := cmp.Compare(a.priority, b.priority); c != 0 {
		return c
	}
	if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// render formats the selected blocks as the system context text.
func render(blocks []Block) string {
	if len(blocks) == 0 {
		return FallbackContext
	}
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, textutil.Lines(
			b.Horizon.Label()+" "+b.Title,
			"Domain: "+b.Domain,
			"Source: "+b.Source,
			b.Content,
		))
	}
	return strings.Join(parts, "\n\n")
}

func estimateTokens(s string) int {
	return textutil.EstimateTokens(s)
}

// digest fingerprints the identity of a selection. It depends only on the
// ids and update times of the blocks, never on their content.
func digest(userID, agentID, conversationID string, blocks []Block) string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write(userID)
	write(agentID)
	write(conversationID)
	for _, b := range blocks {
		write(b.ID)
		write(b.UpdatedAt.UTC().Format(time.RFC3339Nano))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
