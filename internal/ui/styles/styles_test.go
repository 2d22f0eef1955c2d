// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestRenderHelpers_IncludeMarkers(t *testing.T) {
	tests := []struct {
		name   string
		render func(string) string
		marker string
	}{
		{"success", RenderSuccess, StatusIndicators.Success},
		{"error", RenderError, StatusIndicators.Error},
		{"warning", RenderWarning, StatusIndicators.Warning},
		{"info", RenderInfo, StatusIndicators.Info},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.render("msg")
			assert.Contains(t, out, tt.marker)
			assert.Contains(t, out, "msg")
		})
	}
}

func TestGlamourStyle(t *testing.T) {
	th := &Theme{IsDark: true, ColorProfile: termenv.TrueColor}
	assert.Equal(t, "dark", th.GlamourStyle())

	th.IsDark = false
	assert.Equal(t, "light", th.GlamourStyle())

	th.ColorProfile = termenv.Ascii
	assert.Equal(t, "notty", th.GlamourStyle())
}

func TestNewTheme_PanelsHaveBorders(t *testing.T) {
	th := NewTheme()
	for _, st := range []lipgloss.Style{th.Panel, th.PanelFocused} {
		assert.Equal(t, lipgloss.RoundedBorder(), st.GetBorderStyle())
		assert.True(t, st.GetBorderTop())
		assert.True(t, st.GetBorderBottom())
		assert.True(t, st.GetBorderLeft())
		assert.True(t, st.GetBorderRight())
	}
}
