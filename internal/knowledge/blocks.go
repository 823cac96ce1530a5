// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package knowledge

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sigil-dev/horizon/internal/agentcatalog"
	"github.com/sigil-dev/horizon/internal/horizon"
	"github.com/sigil-dev/horizon/internal/store"
	"github.com/sigil-dev/horizon/internal/textutil"
)

const (
	maxCrossConversations  = 2
	maxCrossMessagesPerOne = 3
	maxPreferences         = 6
)

// buildCandidates maps every settled fetch to blocks. Empty results map to
// no block, and facts that are no longer visible are dropped whatever the
// store returned.
func (e *Engine) buildCandidates(r resolved, activeConversation string, f fetched) []candidate {
	now := e.now()
	out := make([]candidate, 0, 6+len(f.facts))
	out = appendBlock(out, agentBlock(r.agent))
	out = appendBlock(out, identityBlock(r.userID, f.profile))
	out = appendBlock(out, preferencesBlock(r.userID, f.profile))
	out = appendBlock(out, tasksBlock(r.userID, f.tasks))
	out = appendBlock(out, crossConversationBlock(r.userID, activeConversation, f.cross))
	out = appendBlock(out, recentConversationBlock(r.userID, f.recent))
	for _, fact := range f.facts {
		if fact == nil || !fact.Visible(now) {
			continue
		}
		out = appendBlock(out, factBlock(fact))
	}
	return out
}

func appendBlock(out []candidate, c *candidate) []candidate {
	if c == nil || strings.TrimSpace(c.Content) == "" {
		return out
	}
	return append(out, *c)
}

func agentBlock(s agentcatalog.Snapshot) *candidate {
	lines := []string{textutil.Field("Role", s.AgentRole, textutil.LineLimit)}
	for _, f := range s.Facts {
		lines = append(lines, textutil.Field(f.Label, f.Value, textutil.LineLimit))
	}
	title := s.AgentName
	if title == "" {
		title = s.AgentID
	}
	return &candidate{
		Block: Block{
			ID:          "agent-core:" + s.AgentID,
			Title:       textutil.Truncate("Agent: "+title, textutil.TitleLimit),
			Horizon:     horizon.Long,
			Domain:      "agent",
			SubjectType: store.SubjectAgent,
			SubjectID:   s.AgentID,
			Content:     textutil.Lines(lines...),
			Source:      SourceAgentCatalog,
			UpdatedAt:   s.UpdatedAt(),
		},
		priority: horizon.PriorityAgentCore,
	}
}

func identityBlock(userID string, p *store.Profile) *candidate {
	if p == nil {
		return nil
	}
	return &candidate{
		Block: Block{
			ID:          "user-identity:" + userID,
			Title:       "User identity",
			Horizon:     horizon.Long,
			Domain:      "profile",
			SubjectType: store.SubjectUser,
			SubjectID:   userID,
			Content: textutil.Lines(
				textutil.Field("Name", p.DisplayName, textutil.LineLimit),
				textutil.Field("Role", p.Role, textutil.LineLimit),
				textutil.Field("Job title", p.JobTitle, textutil.LineLimit),
				textutil.Field("Location", p.Location, textutil.LineLimit),
				textutil.Field("Company", p.CompanyRef, textutil.LineLimit),
			),
			Source:    SourceProfileStore,
			UpdatedAt: p.UpdatedAt,
		},
		priority: horizon.PriorityUserIdentity,
	}
}

func preferencesBlock(userID string, p *store.Profile) *candidate {
	if p == nil || len(p.Preferences) == 0 {
		return nil
	}
	keys := make([]string, 0, len(p.Preferences))
	for k := range p.Preferences {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > maxPreferences {
		keys = keys[:maxPreferences]
	}
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, textutil.Field(humanize(k), p.Preferences[k], textutil.LineLimit))
	}
	return &candidate{
		Block: Block{
			ID:          "user-preferences:" + userID,
			Title:       "User preferences",
			Horizon:     horizon.Long,
			Domain:      "preferences",
			SubjectType: store.SubjectUser,
			SubjectID:   userID,
			Content:     textutil.Lines(lines...),
			Source:      SourceProfileStore,
			UpdatedAt:   p.UpdatedAt,
		},
		priority: horizon.PriorityUserPreferences,
	}
}

func tasksBlock(userID string, tasks []*store.Task) *candidate {
	if len(tasks) == 0 {
		return nil
	}
	if len(tasks) > taskLimit {
		tasks = tasks[:taskLimit]
	}
	var (
		lines      []string
		highlights []string
		updated    time.Time
	)
	for _, t := range tasks {
		title := textutil.Truncate(t.Title, textutil.TitleLimit)
		if title == "" {
			continue
		}
		line := title
		if meta := taskMeta(t); meta != "" {
			line += " (" + meta + ")"
		}
		if desc := textutil.Truncate(t.Description, textutil.LineLimit); desc != "" {
			line += ": " + desc
		}
		lines = append(lines, textutil.Bullet(line, textutil.ContentLimit))
		highlights = append(highlights, title)
		if t.UpdatedAt.After(updated) {
			updated = t.UpdatedAt
		}
	}
	return &candidate{
		Block: Block{
			ID:          "active-projects:" + userID,
			Title:       "Active projects",
			Horizon:     horizon.Medium,
			Domain:      "tasks",
			SubjectType: store.SubjectUser,
			SubjectID:   userID,
			Content:     textutil.Lines(lines...),
			Source:      SourceTaskTracker,
			UpdatedAt:   updated,
			Highlights:  highlights,
		},
		priority: horizon.PriorityActiveTasks,
	}
}

func taskMeta(t *store.Task) string {
	parts := make([]string, 0, 2)
	if t.Status != "" {
		parts = append(parts, humanize(string(t.Status)))
	}
	if t.Priority != "" {
		parts = append(parts, t.Priority+" priority")
	}
	return strings.Join(parts, ", ")
}

func recentConversationBlock(userID string, msgs []*store.ConversationMessage) *candidate {
	if len(msgs) == 0 {
		return nil
	}
	if len(msgs) > recentLimit {
		msgs = msgs[len(msgs)-recentLimit:]
	}
	last := msgs[len(msgs)-1]

	lines := make([]string, 0, len(msgs))
	var latestUser string
	for _, m := range msgs {
		lines = append(lines, messageLine(m))
		if m.Role == store.MessageRoleUser {
			latestUser = textutil.Truncate(m.Content, textutil.MessageLimit)
		}
	}

	title := "Recent conversation"
	if t := textutil.Truncate(last.Title, textutil.TitleLimit); t != "" {
		title += ": " + t
	}
	c := &candidate{
		Block: Block{
			ID:          "conversation-recent:" + last.ConversationID,
			Title:       textutil.Truncate(title, textutil.TitleLimit),
			Horizon:     horizon.Short,
			Domain:      "conversation",
			SubjectType: store.SubjectUser,
			SubjectID:   userID,
			Content:     textutil.Lines(lines...),
			Source:      SourceConversationLog,
			UpdatedAt:   last.CreatedAt,
		},
		priority: horizon.PriorityRecentConversation,
	}
	if latestUser != "" {
		c.Highlights = []string{latestUser}
	}
	return c
}

// crossConversationBlock groups newest-first messages by conversation,
// skipping the active one.
func crossConversationBlock(userID, activeConversation string, msgs []*store.ConversationMessage) *candidate {
	type group struct {
		title string
		msgs  []*store.ConversationMessage
	}
	var (
		order   []string
		groups  = make(map[string]*group)
		updated time.Time
	)
	for _, m := range msgs {
		if m.ConversationID == "" || m.ConversationID == activeConversation {
			continue
		}
		g, ok := groups[m.ConversationID]
		if !ok {
			if len(order) == maxCrossConversations {
				continue
			}
			g = &group{title: m.Title}
			groups[m.ConversationID] = g
			order = append(order, m.ConversationID)
		}
		if len(g.msgs) == maxCrossMessagesPerOne {
			continue
		}
		g.msgs = append(g.msgs, m)
		if m.CreatedAt.After(updated) {
			updated = m.CreatedAt
		}
	}
	if len(order) == 0 {
		return nil
	}

	var lines []string
	for _, id := range order {
		g := groups[id]
		title := textutil.Truncate(g.title, textutil.TitleLimit)
		if title == "" {
			title = "Untitled conversation"
		}
		lines = append(lines, title+":")
		for i := len(g.msgs) - 1; i >= 0; i-- {
			lines = append(lines, "- "+messageLine(g.msgs[i]))
		}
	}
	return &candidate{
		Block: Block{
			ID:          "conversation-memory:" + userID,
			Title:       "Earlier conversations",
			Horizon:     horizon.Medium,
			Domain:      "conversation",
			SubjectType: store.SubjectUser,
			SubjectID:   userID,
			Content:     textutil.Lines(lines...),
			Source:      SourceConversationLog,
			UpdatedAt:   updated,
		},
		priority: horizon.PriorityCrossConversation,
	}
}

func messageLine(m *store.ConversationMessage) string {
	return humanize(string(m.Role)) + ": " + textutil.Truncate(m.Content, textutil.MessageLimit)
}

func factBlock(f *store.Fact) *candidate {
	if f == nil {
		return nil
	}
	lines := []string{textutil.Truncate(f.Value.String(), textutil.ContentLimit)}
	if len(f.Tags) > 0 {
		lines = append(lines, textutil.Field("Tags", strings.Join(f.Tags, ", "), textutil.LineLimit))
	}
	confidence := f.Confidence
	return &candidate{
		Block: Block{
			ID:          "fact:" + f.ID,
			Title:       textutil.Truncate(humanize(f.Key), textutil.TitleLimit),
			Horizon:     f.Horizon,
			Domain:      f.Domain,
			SubjectType: f.SubjectType,
			SubjectID:   f.SubjectID,
			Content:     textutil.Lines(lines...),
			Source:      SourceFactStore,
			UpdatedAt:   f.UpdatedAt,
			Confidence:  &confidence,
		},
		priority: horizon.FactPriority(f.Horizon),
	}
}

// humanize turns snake, kebab and dotted keys into a capitalised phrase.
func humanize(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	s := strings.Join(words, " ")
	if s == "" {
		return key
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
