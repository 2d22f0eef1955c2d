// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles for the dashboard.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// LAYOUT
	// ==========================================================================

	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderInfo  lipgloss.Style

	Panel        lipgloss.Style
	PanelFocused lipgloss.Style
	PanelTitle   lipgloss.Style

	// ==========================================================================
	// SEARCH + RESULTS
	// ==========================================================================

	InputPrompt lipgloss.Style
	ParamsLine  lipgloss.Style

	ResultRank    lipgloss.Style
	ResultTitle   lipgloss.Style
	ResultMeta    lipgloss.Style
	ResultSnippet lipgloss.Style
	ResultDimmed  lipgloss.Style
	ScoreActive   lipgloss.Style
	ScoreDimmed   lipgloss.Style
	Gauge         lipgloss.Style
	GaugeEmpty    lipgloss.Style

	// ==========================================================================
	// SUMMARY + CHAT
	// ==========================================================================

	StageText   lipgloss.Style
	ErrorText   lipgloss.Style
	IntentLine  lipgloss.Style
	UserTurn    lipgloss.Style
	ModelTurn   lipgloss.Style
	SystemTurn  lipgloss.Style
	Suggestion  lipgloss.Style
	ChatStatus  lipgloss.Style
	TokenNormal lipgloss.Style
	TokenHigh   lipgloss.Style

	// ==========================================================================
	// OVERLAY + FOOTER
	// ==========================================================================

	Modal      lipgloss.Style
	ModalTitle lipgloss.Style
	StatusBar  lipgloss.Style
	Muted      lipgloss.Style
}

// NewTheme detects the terminal and builds the styles.
func NewTheme() *Theme {
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// GlamourStyle names the glamour standard style matching the background.
func (t *Theme) GlamourStyle() string {
	if t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderBrand = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.HeaderInfo = lipgloss.NewStyle().Foreground(TextSecondary)

	t.Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder(), true).
		BorderForeground(OverlayDim).
		Padding(0, 1)
	t.PanelFocused = t.Panel.BorderForeground(Purple)
	t.PanelTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple)

	t.InputPrompt = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.ParamsLine = lipgloss.NewStyle().Foreground(TextMuted)

	t.ResultRank = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.ResultTitle = lipgloss.NewStyle().Bold(true).Foreground(TextPrimary)
	t.ResultMeta = lipgloss.NewStyle().Foreground(TextSecondary)
	t.ResultSnippet = lipgloss.NewStyle().Foreground(TextSecondary)
	t.ResultDimmed = lipgloss.NewStyle().Foreground(TextMuted).Faint(true)
	t.ScoreActive = lipgloss.NewStyle().Bold(true).Foreground(Emerald)
	t.ScoreDimmed = lipgloss.NewStyle().Foreground(TextMuted)
	t.Gauge = lipgloss.NewStyle().Foreground(Amber)
	t.GaugeEmpty = lipgloss.NewStyle().Foreground(OverlayDim)

	t.StageText = lipgloss.NewStyle().Italic(true).Foreground(Amber)
	t.ErrorText = lipgloss.NewStyle().Bold(true).Foreground(Rose)
	t.IntentLine = lipgloss.NewStyle().Foreground(TextMuted)
	t.UserTurn = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.ModelTurn = lipgloss.NewStyle().Foreground(TextPrimary)
	t.SystemTurn = lipgloss.NewStyle().Italic(true).Foreground(Amber)
	t.Suggestion = lipgloss.NewStyle().
		Foreground(LinkColor).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(OverlayDim).
		Padding(0, 1)
	t.ChatStatus = lipgloss.NewStyle().Foreground(TextSecondary)
	t.TokenNormal = lipgloss.NewStyle().Foreground(TextMuted)
	t.TokenHigh = lipgloss.NewStyle().Bold(true).Foreground(Rose)

	t.Modal = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(Amber).
		Padding(1, 2)
	t.ModalTitle = lipgloss.NewStyle().Bold(true).Foreground(Amber)
	t.StatusBar = lipgloss.NewStyle().Foreground(TextMuted).Padding(0, 1)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
}
