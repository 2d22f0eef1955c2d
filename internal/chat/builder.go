// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strconv"

	"github.com/jeranaias/ragdash/internal/search"
)

// =============================================================================
// CONTEXT ENTRIES
// =============================================================================

// ContextEntry is one grounding document sent with a chat turn.
type ContextEntry struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Link      string `json:"link,omitempty"`
	YearMonth string `json:"year_month,omitempty"`
}

// Source exposes a consistent view of the result store.
type Source interface {
	Snapshot() search.Snapshot
}

// Built is the outcome of assembling a chat context.
type Built struct {
	Entries []ContextEntry

	// Citations maps the 1-based position within Entries to its link.
	Citations map[string]string

	// Scanned is the size of the full result list, Valid of the subset used.
	Scanned int
	Valid   int
}

// Empty reports whether there is nothing to ground a chat turn on.
func (b Built) Empty() bool {
	return len(b.Entries) == 0
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder assembles chat context from the result store.
type Builder struct {
	source Source
}

// NewBuilder reads results from src.
func NewBuilder(src Source) *Builder {
	return &Builder{source: src}
}

// Build collects the fallback-aware active results. Titles carry the
// result's rank in the full list; citations are keyed by position in the
// subset.
func (b *Builder) Build() Built {
	snap := b.source.Snapshot()
	ranked := snap.Ranked()

	out := Built{
		Entries:   make([]ContextEntry, 0, len(ranked)),
		Citations: make(map[string]string, len(ranked)),
		Scanned:   len(snap.All),
		Valid:     len(ranked),
	}
	for i, rr := range ranked {
		out.Entries = append(out.Entries, ContextEntry{
			Title:     "[No." + strconv.Itoa(rr.Rank) + "] " + rr.Result.Title,
			Content:   rr.Result.Content,
			Link:      rr.Result.Link,
			YearMonth: rr.Result.YearMonth,
		})
		if rr.Result.Link != "" {
			out.Citations[strconv.Itoa(i+1)] = rr.Result.Link
		}
	}
	return out
}

// =============================================================================
// TOKEN BUDGET
// =============================================================================

// EstimateTurn sums the estimated tokens of context, history and message.
func EstimateTurn(entries []ContextEntry, history []Turn, message string) int {
	total := EstimateTokens(message)
	for _, e := range entries {
		total += EstimateTokens(e.Content)
	}
	for _, t := range history {
		total += EstimateTokens(t.Content)
	}
	return total
}

// CheckBudget rejects a turn whose estimate exceeds limit. limit <= 0
// disables the check. The estimate is returned either way.
func CheckBudget(entries []ContextEntry, history []Turn, message string, limit int) (int, error) {
	total := EstimateTurn(entries, history, message)
	if limit > 0 && total > limit {
		return total, &search.ClientValidationError{
			Reason:  search.ReasonTokenBudget,
			Message: "estimated " + strconv.Itoa(total) + " tokens exceeds the limit of " + strconv.Itoa(limit),
			Limit:   limit,
			Actual:  total,
		}
	}
	return total, nil
}

// =============================================================================
// HEADER STATUS
// =============================================================================

// HeaderStatus is the short chat-header summary of how many results
// currently ground the chat.
func HeaderStatus(snap search.Snapshot) string {
	if len(snap.All) == 0 {
		return MsgWaitingForSearch
	}
	if len(snap.Active) == 0 {
		return MsgBelowThresholdHeader
	}
	return "(已載入 " + strconv.Itoa(len(snap.Active)) + "/" + strconv.Itoa(len(snap.All)) + " 篇)"
}
