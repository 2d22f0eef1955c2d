// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"math"
	"unicode/utf8"
)

// CJK unified ideographs counted at the heavier rate.
const (
	cjkFirst = '\u4e00'
	cjkLast  = '\u9fa5'
)

// EstimateTokens approximates the token cost of text: 2.5 per CJK
// ideograph plus one per four other characters, rounded up.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	total := utf8.RuneCountInString(text)
	cjk := CountCJK(text)
	return int(math.Ceil(float64(cjk)*2.5 + float64(total-cjk)/4))
}

// CountCJK counts runes in U+4E00..U+9FA5.
func CountCJK(text string) int {
	n := 0
	for _, r := range text {
		if r >= cjkFirst && r <= cjkLast {
			n++
		}
	}
	return n
}
