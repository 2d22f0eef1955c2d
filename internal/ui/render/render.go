// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render formats search state for terminals. It is shared by the
// dashboard and the one-shot CLI commands.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/ragdash/internal/chat"
	"github.com/jeranaias/ragdash/internal/search"
	"github.com/jeranaias/ragdash/internal/util"
)

// =============================================================================
// MARKDOWN
// =============================================================================

// Markdown renders markdown with glamour, rebuilding the renderer only
// when the wrap width changes.
type Markdown struct {
	mu    sync.Mutex
	style string
	width int
	r     *glamour.TermRenderer
}

// NewMarkdown returns a renderer for a glamour standard style name
// ("dark", "light", "notty", ...).
func NewMarkdown(style string) *Markdown {
	if style == "" {
		style = "dark"
	}
	return &Markdown{style: style}
}

// Render returns src rendered at width. On any renderer error the source
// is returned unchanged.
func (m *Markdown) Render(src string, width int) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	if width < 20 {
		width = 20
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.r == nil || m.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return src
		}
		m.r, m.width = r, width
	}

	out, err := m.r.Render(src)
	if err != nil {
		return src
	}
	return strings.Trim(out, "\n")
}

// =============================================================================
// SEARCH STATE
// =============================================================================

// Elapsed formats a search duration the way the status line shows it.
func Elapsed(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// Intent describes how the backend interpreted a query. Empty parts are
// omitted; a nil intent yields "".
func Intent(in *search.Intent) string {
	if in == nil {
		return ""
	}
	var parts []string
	if in.KeywordQuery != "" {
		parts = append(parts, "keywords: "+in.KeywordQuery)
	}
	if in.SemanticQuery != "" {
		parts = append(parts, "semantic: "+in.SemanticQuery)
	}
	if months := in.Filters.AllYearMonths(); len(months) > 0 {
		parts = append(parts, "months: "+strings.Join(months, ", "))
	}
	if len(in.Filters.Workspaces) > 0 {
		parts = append(parts, "workspaces: "+strings.Join(in.Filters.Workspaces, ", "))
	}
	if len(in.Filters.Links) > 0 {
		parts = append(parts, fmt.Sprintf("links: %d", len(in.Filters.Links)))
	}
	if in.Limit > 0 {
		parts = append(parts, fmt.Sprintf("limit: %d", in.Limit))
	}
	return strings.Join(parts, " · ")
}

// SearchError turns an orchestrator error into one display line.
func SearchError(err error) string {
	if err == nil {
		return ""
	}
	var (
		verr  *search.ClientValidationError
		terr  *search.TransportError
		stage *search.BackendStageError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return "Search cancelled"
	case errors.As(err, &verr):
		return verr.Message
	case errors.As(err, &stage):
		return fmt.Sprintf("Search failed (%s): %s", stage.Label(), stage.Message)
	case errors.As(err, &terr):
		if terr.StatusCode == 0 {
			return chat.MsgNetworkError
		}
		return "Search failed: " + terr.Message
	default:
		return "Search failed: " + err.Error()
	}
}

// Gauge draws the threshold as a bar of width cells.
func Gauge(threshold, width int) (filled, empty string) {
	if width <= 0 {
		return "", ""
	}
	n := search.ClampThreshold(threshold) * width / search.MaxThreshold
	return strings.Repeat("█", n), strings.Repeat("░", width-n)
}

// =============================================================================
// RESULTS
// =============================================================================

// Card is the display form of one result.
type Card struct {
	Rank    int
	Title   string
	Score   string
	Meta    string
	Link    string
	Snippet string
	Active  bool
}

// Cards lays out every result in rank order. Titles and snippets are
// truncated to width cells.
func Cards(snap search.Snapshot, width int) []Card {
	cards := make([]Card, 0, len(snap.All))
	titleWidth := width - 12
	if titleWidth < 10 {
		titleWidth = 10
	}
	for i, r := range snap.All {
		title := r.Title
		if title == "" {
			title = "(untitled)"
		}
		var meta []string
		if r.YearMonth != "" {
			meta = append(meta, r.YearMonth)
		}
		if r.Website != "" {
			meta = append(meta, r.Website)
		}
		if r.Workspace != "" {
			meta = append(meta, r.Workspace)
		}
		cards = append(cards, Card{
			Rank:    i + 1,
			Title:   util.TruncateWidth(util.OneLine(title), titleWidth),
			Score:   fmt.Sprintf("%d%%", search.ScorePercent(r)),
			Meta:    strings.Join(meta, " · "),
			Link:    util.TruncateWidth(r.Link, width),
			Snippet: util.Excerpt(r.Content, width),
			Active:  search.IsActive(r, snap.Threshold),
		})
	}
	return cards
}
