// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "testing"

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"你好world", 7},
		{"abcd", 1},
		{"abcde", 2},
		{"你", 3},
		{"你好", 5},
		// full-width latin is not CJK
		{"ｗｏｒｌｄ", 2},
		// U+9FA6 is outside the counted range
		{"龥龦", 3},
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestCountCJK(t *testing.T) {
	if got := CountCJK("見[1]與【2】"); got != 2 {
		t.Errorf("CountCJK = %d, want 2", got)
	}
}
