// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

// Params are the user-controlled knobs of one search.
type Params struct {
	Query                     string
	Limit                     int
	SemanticRatio             float64
	EnableLLM                 bool
	ManualSemanticRatio       bool
	EnableKeywordWeightRerank bool

	// StartDate and EndDate are YYYY-MM-DD; empty means unbounded.
	StartDate string
	EndDate   string

	// SelectedWebsites restricts results to these sources. Empty means all.
	SelectedWebsites []string
}

// Client defaults used until the backend config overrides them.
const (
	DefaultLimit         = 5
	DefaultSemanticRatio = 0.5
)

// DefaultParams returns Params for query with client defaults.
func DefaultParams(query string) Params {
	return Params{
		Query:                     query,
		Limit:                     DefaultLimit,
		SemanticRatio:             DefaultSemanticRatio,
		EnableLLM:                 true,
		EnableKeywordWeightRerank: true,
	}
}
