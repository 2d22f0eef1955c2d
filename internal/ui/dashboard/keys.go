// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the dashboard bindings.
type KeyMap struct {
	Submit        key.Binding
	SwitchFocus   key.Binding
	ThresholdUp   key.Binding
	ThresholdDown key.Binding
	ScrollUp      key.Binding
	ScrollDown    key.Binding
	ToggleLLM     key.Binding
	Suggestion    key.Binding
	ClearChat     key.Binding
	UndoTurn      key.Binding
	FeedbackGood  key.Binding
	FeedbackBad   key.Binding
	Announcements key.Binding
	HideForever   key.Binding
	Copy          key.Binding
	Export        key.Binding
	Cancel        key.Binding
	Help          key.Binding
	Quit          key.Binding
}

// DefaultKeyMap returns the default bindings. Plain letters are left to
// the text inputs.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "search / send"),
		),
		SwitchFocus: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "search ↔ chat"),
		),
		ThresholdUp: key.NewBinding(
			key.WithKeys("ctrl+up", "alt+]"),
			key.WithHelp("C-↑", "threshold +"),
		),
		ThresholdDown: key.NewBinding(
			key.WithKeys("ctrl+down", "alt+["),
			key.WithHelp("C-↓", "threshold -"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		ToggleLLM: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "AI summary on/off"),
		),
		Suggestion: key.NewBinding(
			key.WithKeys("alt+1", "alt+2", "alt+3", "alt+4", "alt+5"),
			key.WithHelp("M-1..5", "ask suggestion"),
		),
		ClearChat: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "clear chat"),
		),
		UndoTurn: key.NewBinding(
			key.WithKeys("ctrl+z"),
			key.WithHelp("C-z", "undo last turn"),
		),
		FeedbackGood: key.NewBinding(
			key.WithKeys("alt+y"),
			key.WithHelp("M-y", "good results"),
		),
		FeedbackBad: key.NewBinding(
			key.WithKeys("alt+n"),
			key.WithHelp("M-n", "bad results"),
		),
		Announcements: key.NewBinding(
			key.WithKeys("f2"),
			key.WithHelp("F2", "announcements"),
		),
		HideForever: key.NewBinding(
			key.WithKeys("f3"),
			key.WithHelp("F3", "don't show again"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy answer"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "export"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close / cancel"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.SwitchFocus, k.ThresholdUp, k.ThresholdDown, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.SwitchFocus, k.ScrollUp, k.ScrollDown},
		{k.ThresholdUp, k.ThresholdDown, k.ToggleLLM, k.Cancel},
		{k.Suggestion, k.ClearChat, k.UndoTurn, k.Copy, k.Export},
		{k.FeedbackGood, k.FeedbackBad, k.Announcements, k.HideForever},
		{k.Help, k.Quit},
	}
}
