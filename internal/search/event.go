// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"encoding/json"
	"strings"

	"github.com/jeranaias/ragdash/internal/citation"
)

// =============================================================================
// STAGES
// =============================================================================

// Stage identifies a stream record.
type Stage string

const (
	StageSearching   Stage = "searching"
	StageChecking    Stage = "checking"
	StageRewriting   Stage = "rewriting"
	StageRetrying    Stage = "retrying"
	StageSummarizing Stage = "summarizing"
	StageComplete    Stage = "complete"
	StageFailed      Stage = "failed"
)

// IsTerminal reports whether the stage ends a search.
func (s Stage) IsTerminal() bool {
	return s == StageComplete || s == StageFailed
}

// =============================================================================
// EVENT
// =============================================================================

// Event is one decoded record of the search stream.
type Event struct {
	Stage    Stage
	Message  string
	NewQuery string

	// Set on failed records.
	Error      string
	ErrorStage string

	// Set on complete records.
	Summary     Summary
	Results     []Result
	Intent      *Intent
	LinkMapping map[string]string
}

type wireEvent struct {
	Stage       string            `json:"stage"`
	Status      string            `json:"status"`
	Message     string            `json:"message"`
	NewQuery    string            `json:"new_query"`
	Error       string            `json:"error"`
	ErrorStage  string            `json:"error_stage"`
	Summary     Summary           `json:"summary"`
	Results     []Result          `json:"results"`
	Intent      *Intent           `json:"intent"`
	LinkMapping map[string]string `json:"link_mapping"`
}

// DecodeEvent parses one stream record. A record is failed when either
// its status or its stage says so; otherwise stage wins over status.
func DecodeEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, err
	}

	ev := Event{
		Message:     w.Message,
		NewQuery:    w.NewQuery,
		Error:       w.Error,
		ErrorStage:  w.ErrorStage,
		Summary:     w.Summary,
		Results:     w.Results,
		Intent:      w.Intent,
		LinkMapping: w.LinkMapping,
	}

	switch {
	case w.Status == string(StageFailed) || w.Stage == string(StageFailed):
		ev.Stage = StageFailed
		if ev.ErrorStage == "" && w.Stage != string(StageFailed) {
			ev.ErrorStage = w.Stage
		}
	case w.Stage != "":
		ev.Stage = Stage(w.Stage)
	default:
		ev.Stage = Stage(w.Status)
	}
	return ev, nil
}

// =============================================================================
// SUMMARY
// =============================================================================

// Phrases the backend uses in brief_answer when nothing relevant was found.
var noResultPhrases = []string{"沒有參考資料", "從內容 search 不到"}

// Summary is the AI summary of a search: either plain text or the
// structured brief/detailed/general form. Nil pointers mark absent fields.
type Summary struct {
	Text string

	Structured     bool
	BriefAnswer    *string
	DetailedAnswer *string
	GeneralSummary *string
}

type wireSummary struct {
	BriefAnswer    *string `json:"brief_answer"`
	DetailedAnswer *string `json:"detailed_answer"`
	GeneralSummary *string `json:"general_summary"`
}

// UnmarshalJSON accepts a string, an object or null.
func (s *Summary) UnmarshalJSON(data []byte) error {
	*s = Summary{}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		return json.Unmarshal(data, &s.Text)
	}
	var w wireSummary
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.Structured = true
	s.BriefAnswer = w.BriefAnswer
	s.DetailedAnswer = w.DetailedAnswer
	s.GeneralSummary = w.GeneralSummary
	return nil
}

// MarshalJSON mirrors UnmarshalJSON.
func (s Summary) MarshalJSON() ([]byte, error) {
	if !s.Structured {
		if s.Text == "" {
			return []byte("null"), nil
		}
		return json.Marshal(s.Text)
	}
	return json.Marshal(wireSummary{s.BriefAnswer, s.DetailedAnswer, s.GeneralSummary})
}

// IsEmpty reports whether there is nothing to show.
func (s Summary) IsEmpty() bool {
	if !s.Structured {
		return strings.TrimSpace(s.Text) == ""
	}
	return s.BriefAnswer == nil && s.DetailedAnswer == nil && s.GeneralSummary == nil
}

// NoResults reports whether the brief answer says nothing was found.
func (s Summary) NoResults() bool {
	if !s.Structured || s.BriefAnswer == nil {
		return false
	}
	for _, p := range noResultPhrases {
		if *s.BriefAnswer == p {
			return true
		}
	}
	return false
}

// Markdown renders the summary with citations rewritten by f.
func (s Summary) Markdown(links map[string]string, f citation.Formatter) string {
	if !s.Structured {
		return citation.Rewrite(s.Text, links, f)
	}

	var b strings.Builder
	if s.BriefAnswer != nil && *s.BriefAnswer != "" {
		icon := "✦"
		if s.NoResults() {
			icon = "⚠"
		}
		b.WriteString("> " + icon + " **" + *s.BriefAnswer + "**\n\n")
	}
	writeSection(&b, "詳細說明", s.DetailedAnswer, "無詳細內容", links, f)
	writeSection(&b, "內容總結", s.GeneralSummary, "無總結內容", links, f)
	return strings.TrimRight(b.String(), "\n")
}

func writeSection(b *strings.Builder, title string, body *string, empty string, links map[string]string, f citation.Formatter) {
	if body == nil {
		return
	}
	b.WriteString("#### " + title + "\n\n")
	if strings.TrimSpace(*body) == "" {
		b.WriteString("*" + empty + "*\n\n")
		return
	}
	b.WriteString(citation.Rewrite(*body, links, f) + "\n\n")
}

// =============================================================================
// INTENT
// =============================================================================

// Intent is the backend's parsed reading of the query.
type Intent struct {
	KeywordQuery  string        `json:"keyword_query"`
	SemanticQuery string        `json:"semantic_query"`
	Filters       IntentFilters `json:"filters"`
	Limit         int           `json:"limit,omitempty"`
}

// IntentFilters narrows a search. The backend has sent both year_month
// and year_months over time; YearMonths merges them.
type IntentFilters struct {
	YearMonth  []string `json:"year_month,omitempty"`
	YearMonths []string `json:"year_months,omitempty"`
	Workspaces []string `json:"workspaces,omitempty"`
	Links      []string `json:"links,omitempty"`
}

// AllYearMonths returns the union of both year-month filter fields.
func (f IntentFilters) AllYearMonths() []string {
	seen := make(map[string]bool)
	var out []string
	for _, ym := range append(append([]string{}, f.YearMonth...), f.YearMonths...) {
		if !seen[ym] {
			seen[ym] = true
			out = append(out, ym)
		}
	}
	return out
}
