// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/ragdash/internal/chat"
	"github.com/jeranaias/ragdash/internal/search"
)

func TestMarkdown_RenderNoTTY(t *testing.T) {
	md := NewMarkdown("notty")

	out := md.Render("# Title\n\nsome **bold** text", 60)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")

	assert.Equal(t, "", md.Render("   ", 60))

	// width change rebuilds without error
	out = md.Render("hello", 30)
	assert.Contains(t, out, "hello")
}

func TestIntent(t *testing.T) {
	assert.Equal(t, "", Intent(nil))

	in := &search.Intent{
		KeywordQuery:  "copilot",
		SemanticQuery: "copilot price",
		Filters: search.IntentFilters{
			YearMonth:  []string{"2024-01"},
			Workspaces: []string{"sales"},
		},
		Limit: 5,
	}
	got := Intent(in)
	assert.Equal(t, "keywords: copilot · semantic: copilot price · months: 2024-01 · workspaces: sales · limit: 5", got)
}

func TestSearchError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", &search.ClientValidationError{Reason: search.ReasonEmpty, Message: "query is empty"}, "query is empty"},
		{"stage", &search.BackendStageError{Stage: "meilisearch", Message: "down"}, "Search failed (database connectivity): down"},
		{"network", &search.TransportError{Op: "search", Message: "dial", Cause: errors.New("refused")}, chat.MsgNetworkError},
		{"status", &search.TransportError{Op: "search", StatusCode: 502, Message: "bad gateway"}, "Search failed: bad gateway"},
		{"cancel", &search.TransportError{Op: "search", Message: "x", Cause: context.Canceled}, "Search cancelled"},
		{"other", errors.New("boom"), "Search failed: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchError(tt.err))
		})
	}
}

func TestGauge(t *testing.T) {
	f, e := Gauge(50, 10)
	assert.Equal(t, strings.Repeat("█", 5), f)
	assert.Equal(t, strings.Repeat("░", 5), e)

	f, e = Gauge(150, 4)
	assert.Equal(t, "████", f)
	assert.Equal(t, "", e)

	f, e = Gauge(10, 0)
	assert.Empty(t, f+e)
}

func TestElapsed(t *testing.T) {
	assert.Equal(t, "1.25s", Elapsed(1250*time.Millisecond))
}

func TestCards(t *testing.T) {
	rerank := 0.2
	snap := search.Snapshot{
		All: []search.Result{
			{Title: "High", RelevanceScore: 0.9, YearMonth: "2024-05", Website: "docs", Link: "http://a", Content: "line one\nline two"},
			{Title: "", RelevanceScore: 0.95, RerankScore: &rerank},
		},
		Threshold: 50,
	}

	cards := Cards(snap, 40)
	assert.Len(t, cards, 2)

	assert.Equal(t, 1, cards[0].Rank)
	assert.Equal(t, "90%", cards[0].Score)
	assert.Equal(t, "2024-05 · docs", cards[0].Meta)
	assert.Equal(t, "line one line two", cards[0].Snippet)
	assert.True(t, cards[0].Active)

	assert.Equal(t, "(untitled)", cards[1].Title)
	assert.Equal(t, "20%", cards[1].Score)
	assert.False(t, cards[1].Active)
}
