// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// =============================================================================
// RESULT
// =============================================================================

// Result is one retrieved document. Backend score and content fields are
// folded into this shape once, when the record is decoded.
type Result struct {
	ID        string
	Title     string
	Content   string
	Link      string
	YearMonth string
	Website   string
	Workspace string

	// RelevanceScore is the ranking score in [0,1]. Zero when absent.
	RelevanceScore float64

	// RerankScore is set only when a rerank stage ran.
	RerankScore *float64
}

// wireResult is the canonical encoding used for local storage and output.
type wireResult struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	Link           string   `json:"link,omitempty"`
	YearMonth      string   `json:"year_month,omitempty"`
	Website        string   `json:"website,omitempty"`
	Workspace      string   `json:"workspace,omitempty"`
	RelevanceScore float64  `json:"relevance_score"`
	RerankScore    *float64 `json:"rerank_score,omitempty"`
}

// MarshalJSON encodes the canonical field names.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireResult(r))
}

// UnmarshalJSON accepts both the backend's field names and the canonical
// ones written by MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = normalize(raw)
	return nil
}

func normalize(raw map[string]json.RawMessage) Result {
	r := Result{
		ID:        firstString(raw, "id", "_id", "uuid"),
		Title:     firstString(raw, "title", "main_title"),
		Content:   firstString(raw, "content", "cleaned_content", "body", "text"),
		Link:      firstString(raw, "link", "heading_link", "url"),
		YearMonth: firstString(raw, "year_month", "month"),
		Website:   firstString(raw, "website"),
		Workspace: firstString(raw, "workspace"),
	}
	if v, ok := firstNumber(raw, "_rankingScore", "relevance_score", "relevanceScore", "score"); ok {
		r.RelevanceScore = v
	}
	if v, ok := firstNumber(raw, "_rerank_score", "rerank_score", "rerankScore"); ok {
		r.RerankScore = &v
	}
	return r
}

func firstString(raw map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

func firstNumber(raw map[string]json.RawMessage, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err == nil {
			return f, true
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// =============================================================================
// SCORING
// =============================================================================

// DisplayScore is the rerank score when present, else the relevance score.
func DisplayScore(r Result) float64 {
	if r.RerankScore != nil {
		return *r.RerankScore
	}
	return r.RelevanceScore
}

// ScorePercent rounds the display score to a whole percentage,
// half away from zero.
func ScorePercent(r Result) int {
	return int(math.Round(DisplayScore(r) * 100))
}

// IsActive reports whether r meets the threshold percentage.
func IsActive(r Result, threshold int) bool {
	return ScorePercent(r) >= threshold
}
