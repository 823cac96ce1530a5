// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package textutil_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/sigil-dev/horizon/internal/textutil"
)

func TestCollapse(t *testing.T) {
	assert.Equal(t, "a b c", textutil.Collapse("  a\n\tb   c \r\n"))
	assert.Equal(t, "", textutil.Collapse(" \n\t "))
	// Decomposed e + combining acute composes to a single rune.
	assert.Equal(t, "caf\u00e9", textutil.Collapse("cafe\u0301"))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"fits", "hello world", 20, "hello world"},
		{"exact", "hello", 5, "hello"},
		{"cut", "hello world", 8, "hello w…"},
		{"cut trims space", "hello world", 7, "hello…"},
		{"whitespace first", "a   b   c   d", 5, "a b…"},
		{"zero limit", "hello", 0, ""},
		{"one rune", "hello", 1, "…"},
		{"multibyte", "日本語のテキスト", 4, "日本語…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := textutil.Truncate(tt.in, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), max(tt.limit, 0))
		})
	}
}

func TestTruncateLongInputRespectsCap(t *testing.T) {
	got := textutil.Truncate(strings.Repeat("word ", 200), textutil.ContentLimit)
	assert.Equal(t, textutil.ContentLimit, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, textutil.Ellipsis))
}

func TestFieldAndBullet(t *testing.T) {
	assert.Equal(t, "Role: Founder", textutil.Field("Role", " Founder ", 40))
	assert.Equal(t, "", textutil.Field("Role", "  ", 40))
	assert.Equal(t, "- Launch v2", textutil.Bullet("Launch\nv2", 40))
	assert.Equal(t, "", textutil.Bullet("", 40))
}

func TestLines(t *testing.T) {
	assert.Equal(t, "a\nb", textutil.Lines("a", "", "  ", "b"))
	assert.Equal(t, "", textutil.Lines())
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, textutil.EstimateTokens(""))
	assert.Equal(t, 1, textutil.EstimateTokens("abc"))
	assert.Equal(t, 1, textutil.EstimateTokens("abcd"))
	assert.Equal(t, 2, textutil.EstimateTokens("abcde"))
	assert.Equal(t, 1, textutil.EstimateTokens("日本"))
}
