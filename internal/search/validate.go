// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxQueryLength bounds a query in runes.
const DefaultMaxQueryLength = 500

// NormalizeInput NFC-normalises and trims user input.
func NormalizeInput(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// ValidateInput normalises s and rejects it when empty or longer than
// maxLen runes. maxLen <= 0 disables the length check.
func ValidateInput(field, s string, maxLen int) (string, error) {
	s = NormalizeInput(s)
	if s == "" {
		return "", &ClientValidationError{
			Reason:  ReasonEmpty,
			Message: field + " is empty",
		}
	}
	if n := utf8.RuneCountInString(s); maxLen > 0 && n > maxLen {
		return "", &ClientValidationError{
			Reason:  ReasonTooLong,
			Message: field + " is too long (" + strconv.Itoa(n) + " > " + strconv.Itoa(maxLen) + " characters)",
			Limit:   maxLen,
			Actual:  n,
		}
	}
	return s, nil
}
