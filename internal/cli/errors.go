// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes shared by all commands.
//
// Commands always return errors; Main displays them once and maps them
// to an exit code.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/ragdash/internal/config"
	"github.com/jeranaias/ragdash/internal/search"
	"github.com/jeranaias/ragdash/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitBackendError indicates the backend reported a failure
	ExitBackendError = 4
	// ExitNetworkError indicates the backend could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError is a failed command with context. Code, when non-zero,
// overrides the exit code derived from Err.
type CommandError struct {
	Command string
	Reason  string
	Err     error
	Code    int
}

func (e *CommandError) Error() string {
	msg := e.Command + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// usageError reports bad arguments.
func usageError(command, format string, args ...interface{}) error {
	return &CommandError{Command: command, Reason: fmt.Sprintf(format, args...), Code: ExitUsageError}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode determines the exit code for err.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code != 0 {
		return cmdErr.Code
	}

	var cfgErrs config.ValidateErrors
	switch {
	case errors.As(err, &cfgErrs):
		return ExitConfigError
	case search.IsValidation(err):
		return ExitUsageError
	case errors.Is(err, storage.ErrNotFound):
		return ExitNotFoundError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case search.IsBackendStage(err):
		return ExitBackendError
	case search.IsTransport(err):
		return ExitNetworkError
	}
	return ExitGeneralError
}

// errorType names err for JSON output.
func errorType(err error) string {
	switch GetExitCode(err) {
	case ExitUsageError:
		return "usage_error"
	case ExitConfigError:
		return "config_error"
	case ExitBackendError:
		return "backend_error"
	case ExitNetworkError:
		return "network_error"
	case ExitNotFoundError:
		return "not_found_error"
	case ExitTimeoutError:
		return "timeout_error"
	}
	return "generic_error"
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as JSON when jsonMode is set.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		resp := NewJSONErrorResponse("", err)
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(resp)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}
