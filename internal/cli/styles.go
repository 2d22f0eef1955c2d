// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styles for command output.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragdash/internal/ui/styles"
)

// init configures lipgloss for the detected color profile.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Width(20)

	// SuccessStyle is used for success messages
	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	// ErrorStyle is used for error messages
	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	// WarningStyle is used for warnings and stage messages
	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	// DimStyle is used for secondary information and dimmed results
	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	// SeparatorStyle is used for visual separators
	SeparatorStyle = lipgloss.NewStyle().
			Foreground(styles.Overlay)

	// ScoreStyle marks the score of an active result
	ScoreStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	// LinkStyle is used for result links
	LinkStyle = lipgloss.NewStyle().
			Foreground(styles.LinkColor)

	// PromptStyle is the chat prompt
	PromptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)
)

// RenderSeparator renders a horizontal rule of width cells (70 when
// width <= 0).
func RenderSeparator(width int) string {
	if width <= 0 {
		width = 70
	}
	return SeparatorStyle.Render(strings.Repeat("─", width))
}

// RenderLabel renders a fixed-width label.
func RenderLabel(label string) string {
	return LabelStyle.Render(label)
}
