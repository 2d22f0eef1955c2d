// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// =============================================================================
// CLIENT VALIDATION
// =============================================================================

// ValidationReason says why input was rejected locally.
type ValidationReason int

const (
	ReasonEmpty ValidationReason = iota
	ReasonTooLong
	ReasonTokenBudget
	ReasonInvalid
)

// ClientValidationError is raised before any network call: empty or
// oversized input, or a local token budget overflow.
type ClientValidationError struct {
	Reason  ValidationReason
	Message string

	// Limit and Actual are set for ReasonTooLong and ReasonTokenBudget.
	Limit  int
	Actual int
}

func (e *ClientValidationError) Error() string {
	return e.Message
}

// =============================================================================
// TRANSPORT
// =============================================================================

// TransportError is a network failure or a non-OK response without a
// structured body.
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Cause      error
}

func (e *TransportError) Error() string {
	msg := e.Op + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// =============================================================================
// BACKEND STAGE
// =============================================================================

// BackendStageError is a structured failure reported by the backend,
// either in a non-OK response body or in a failed stream record.
type BackendStageError struct {
	Stage      string
	Message    string
	StatusCode int
}

func (e *BackendStageError) Error() string {
	return e.Label() + ": " + e.Message
}

// Label is the human-readable category for Stage.
func (e *BackendStageError) Label() string {
	return StageLabel(e.Stage)
}

var stageLabels = map[string]string{
	"meilisearch":      "database connectivity",
	"embedding":        "vector service",
	"llm":              "language-model service",
	"intent_parsing":   "query-intent parsing",
	"initial_search":   "initial search",
	"summarizing":      "summary generation",
	"input_validation": "input validation",
}

// GenericFailureLabel is used for unknown or missing stages.
const GenericFailureLabel = "generic failure"

// StageLabel maps a backend error stage to its category label.
func StageLabel(stage string) string {
	if l, ok := stageLabels[stage]; ok {
		return l
	}
	return GenericFailureLabel
}

// =============================================================================
// HELPERS
// =============================================================================

// IsValidation reports whether err is a ClientValidationError.
func IsValidation(err error) bool {
	var e *ClientValidationError
	return errors.As(err, &e)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}

// IsBackendStage reports whether err is a BackendStageError.
func IsBackendStage(err error) bool {
	var e *BackendStageError
	return errors.As(err, &e)
}

// ErrorFromResponse converts a non-OK response body into an error. A JSON
// body carrying error/error_stage (or stage) becomes a BackendStageError;
// anything else becomes a TransportError with the raw text.
func ErrorFromResponse(op string, status int, body []byte) error {
	var parsed struct {
		Error      string `json:"error"`
		Detail     string `json:"detail"`
		ErrorStage string `json:"error_stage"`
		Stage      string `json:"stage"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		msg := parsed.Error
		if msg == "" {
			msg = parsed.Detail
		}
		stage := parsed.ErrorStage
		if stage == "" {
			stage = parsed.Stage
		}
		if msg != "" || stage != "" {
			if msg == "" {
				msg = "HTTP error! status: " + strconv.Itoa(status)
			}
			return &BackendStageError{Stage: stage, Message: msg, StatusCode: status}
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		text = "HTTP error! status: " + strconv.Itoa(status)
		if st := http.StatusText(status); st != "" {
			text += " " + st
		}
	}
	return &TransportError{Op: op, StatusCode: status, Message: text}
}
