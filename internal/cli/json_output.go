// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - The --json output envelope.

package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the envelope every command prints with --json.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error is the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// ErrorType categorises Error (see GetExitCode)
	ErrorType string `json:"error_type,omitempty"`

	// Timestamp is when the response was generated (RFC 3339, UTC)
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates an error response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		ErrorType: errorType(err),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response to w as indented JSON.
func (r *JSONResponse) Print(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// printJSON prints data in the success envelope.
func (a *App) printJSON(command string, data interface{}) error {
	return NewJSONResponse(command, data).Print(a.Out)
}
