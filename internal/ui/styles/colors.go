// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Purple - focused panel borders, summary heading
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan - brand, search box, user chat turns
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - active results, completed searches
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - stage messages, warnings, the threshold gauge
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACE + TEXT COLORS
// =============================================================================

var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}
var OverlayDim = lipgloss.AdaptiveColor{Light: "#D4D4D4", Dark: "#45475A"}

var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}

// LinkColor - result links and citations
var LinkColor = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"}

// =============================================================================
// STATUS MARKERS
// =============================================================================

// StatusIndicatorSet holds ASCII markers shown next to status colors.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
	Pending string
}

// StatusIndicators are the markers used by the Render helpers.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
	Pending: "[ ]",
}

func renderMarked(color lipgloss.AdaptiveColor, marker, message string) string {
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(marker + " " + message)
}

// RenderSuccess renders message with the success marker.
func RenderSuccess(message string) string {
	return renderMarked(Emerald, StatusIndicators.Success, message)
}

// RenderError renders message with the error marker.
func RenderError(message string) string {
	return renderMarked(Rose, StatusIndicators.Error, message)
}

// RenderWarning renders message with the warning marker.
func RenderWarning(message string) string {
	return renderMarked(Amber, StatusIndicators.Warning, message)
}

// RenderInfo renders message with the info marker.
func RenderInfo(message string) string {
	return renderMarked(Cyan, StatusIndicators.Info, message)
}

// RenderLink underlines text in the link color.
func RenderLink(text string) string {
	return lipgloss.NewStyle().Foreground(LinkColor).Underline(true).Render(text)
}
