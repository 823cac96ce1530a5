// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package textutil holds the pure string helpers used to build context
// block content.
package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Character caps per field kind.
const (
	TitleLimit   = 120
	LineLimit    = 160
	MessageLimit = 220
	ContentLimit = 280
)

// Ellipsis marks truncated text.
const Ellipsis = "…"

// CharsPerToken is the ratio behind EstimateTokens.
const CharsPerToken = 4

// Collapse NFC-normalises s and folds every whitespace run into a single
// space, trimming both ends.
func Collapse(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// Truncate collapses whitespace and caps the result at limit characters,
// ellipsis included. A non-positive limit yields "".
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = Collapse(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	keep := limit - utf8.RuneCountInString(Ellipsis)
	if keep <= 0 {
		return string([]rune(Ellipsis)[:limit])
	}
	runes := []rune(s)[:keep]
	return strings.TrimRight(string(runes), " ") + Ellipsis
}

// Field renders "label: value" with the value truncated to limit. Empty
// values render as "".
func Field(label, value string, limit int) string {
	value = Truncate(value, limit)
	if value == "" {
		return ""
	}
	return label + ": " + value
}

// Bullet renders one list item, or "" for blank text.
func Bullet(s string, limit int) string {
	s = Truncate(s, limit)
	if s == "" {
		return ""
	}
	return "- " + s
}

// Lines joins the non-blank lines with newlines.
func Lines(lines ...string) string {
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

// EstimateTokens approximates a token count as ceil(characters / 4). It
// is not a tokenizer.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + CharsPerToken - 1) / CharsPerToken
}
