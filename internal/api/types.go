// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"strings"

	"github.com/jeranaias/ragdash/internal/search"
)

// =============================================================================
// SEARCH
// =============================================================================

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query                     string   `json:"query" validate:"required"`
	Limit                     int      `json:"limit" validate:"gte=1,lte=100"`
	SemanticRatio             float64  `json:"semantic_ratio" validate:"gte=0,lte=1"`
	EnableLLM                 bool     `json:"enable_llm"`
	ManualSemanticRatio       bool     `json:"manual_semantic_ratio"`
	EnableKeywordWeightRerank bool     `json:"enable_keyword_weight_rerank"`
	StartDate                 *string  `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate                   *string  `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	SelectedWebsites          []string `json:"selected_websites"`
}

// CollectionSearchRequest is the body of POST /api/collection_search.
type CollectionSearchRequest struct {
	Query                     string  `json:"query" validate:"required"`
	Limit                     int     `json:"limit" validate:"gte=1,lte=100"`
	SemanticRatio             float64 `json:"semantic_ratio" validate:"gte=0,lte=1"`
	EnableLLM                 bool    `json:"enable_llm"`
	ManualSemanticRatio       bool    `json:"manual_semantic_ratio"`
	EnableKeywordWeightRerank bool    `json:"enable_keyword_weight_rerank"`
}

// NewSearchRequest converts search parameters to the wire body.
func NewSearchRequest(p search.Params) SearchRequest {
	websites := p.SelectedWebsites
	if websites == nil {
		websites = []string{}
	}
	return SearchRequest{
		Query:                     p.Query,
		Limit:                     p.Limit,
		SemanticRatio:             p.SemanticRatio,
		EnableLLM:                 p.EnableLLM,
		ManualSemanticRatio:       p.ManualSemanticRatio,
		EnableKeywordWeightRerank: p.EnableKeywordWeightRerank,
		StartDate:                 optional(p.StartDate),
		EndDate:                   optional(p.EndDate),
		SelectedWebsites:          websites,
	}
}

// NewCollectionSearchRequest converts search parameters for the
// non-streaming endpoint, which takes no date or source filters.
func NewCollectionSearchRequest(p search.Params) CollectionSearchRequest {
	return CollectionSearchRequest{
		Query:                     p.Query,
		Limit:                     p.Limit,
		SemanticRatio:             p.SemanticRatio,
		EnableLLM:                 p.EnableLLM,
		ManualSemanticRatio:       p.ManualSemanticRatio,
		EnableKeywordWeightRerank: p.EnableKeywordWeightRerank,
	}
}

// CollectionResult is the response of /api/collection_search.
type CollectionResult struct {
	Results []search.Result `json:"results"`
	Intent  *search.Intent  `json:"intent"`
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// =============================================================================
// FEEDBACK
// =============================================================================

// FeedbackType is thumbs up or down.
type FeedbackType string

const (
	FeedbackPositive FeedbackType = "positive"
	FeedbackNegative FeedbackType = "negative"
)

// FeedbackRequest is the body of POST /api/feedback.
type FeedbackRequest struct {
	FeedbackType FeedbackType  `json:"feedback_type" validate:"required,oneof=positive negative"`
	Query        string        `json:"query" validate:"required"`
	SearchParams SearchRequest `json:"search_params"`
}

// =============================================================================
// BACKEND CONFIG
// =============================================================================

// RemoteConfig is the payload of GET /api/config. Pointer fields are
// absent when the backend omits them.
type RemoteConfig struct {
	DefaultLimit               *int     `json:"default_limit,omitempty"`
	DefaultSimilarityThreshold *float64 `json:"default_similarity_threshold,omitempty"`
	DefaultSemanticRatio       *float64 `json:"default_semantic_ratio,omitempty"`
	EnableLLM                  *bool    `json:"enable_llm,omitempty"`
	ManualSemanticRatio        *bool    `json:"manual_semantic_ratio,omitempty"`
	EnableRerank               *bool    `json:"enable_rerank,omitempty"`
	TokenLimit                 *int     `json:"token_limit,omitempty"`
	MaxChatHistory             *int     `json:"max_chat_history,omitempty"`
	StartDate                  string   `json:"start_date,omitempty"`
	EndDate                    string   `json:"end_date,omitempty"`

	Announcements []Announcement `json:"announcements,omitempty"`
	Websites      []Website      `json:"websites,omitempty"`
}

// Announcement is one notice shown at startup.
type Announcement struct {
	MainTitle string      `json:"main_title"`
	Title     string      `json:"title"`
	Content   TextOrLines `json:"content"`
}

// Website is one indexed source.
type Website struct {
	Title       string `json:"title"`
	URL         string `json:"URL"`
	UpdateDate  string `json:"update_date,omitempty"`
	UpdateCount int    `json:"update_count,omitempty"`
}

// TextOrLines decodes a string or a list of lines into one string.
type TextOrLines string

// UnmarshalJSON joins list content with newlines.
func (t *TextOrLines) UnmarshalJSON(data []byte) error {
	var lines []string
	if err := json.Unmarshal(data, &lines); err == nil {
		*t = TextOrLines(strings.Join(lines, "\n"))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = TextOrLines(s)
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*t = ""
		return nil
	}
	*t = TextOrLines(strings.TrimSpace(string(data)))
	return nil
}

// =============================================================================
// COLLECTIONS + UPLOAD
// =============================================================================

// UploadRequest describes one file upload to a collection.
type UploadRequest struct {
	FilePath       string `validate:"required,file"`
	CollectionName string `validate:"required"`
	Mode           string `validate:"omitempty,oneof=Dense Hybrid"`
	EmbeddingModel string
	ChunkSize      int `validate:"omitempty,gte=50,lte=4000"`
}

// UploadResult is the response of /api/upload.
type UploadResult struct {
	Message           string `json:"message"`
	ChunksCount       int    `json:"chunks_count"`
	SuccessfulUploads int    `json:"successful_uploads"`
	FailedChunks      int    `json:"failed_chunks"`
	Error             string `json:"error,omitempty"`
}

// Summary formats the result the way the upload panel reports it.
func (u UploadResult) Summary(collection string) string {
	msg := u.Message
	if msg == "" {
		msg = "Successfully uploaded " + itoa(u.SuccessfulUploads) + "/" + itoa(u.ChunksCount) + " chunks"
	}
	if u.FailedChunks > 0 {
		msg += " (" + itoa(u.FailedChunks) + " failed)"
	}
	return msg + ` to collection "` + collection + `"`
}

// Ack is the generic {message|status|error} reply of maintenance calls.
type Ack struct {
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}
