// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small text and file helpers shared by the CLI and TUI.
//
// Display helpers measure terminal cells rather than bytes or runes, so CJK
// titles line up with ASCII ones.
//
// # Usage
//
//	title := util.TruncateWidth(r.Title, 40)
//	line := util.FitWidth(util.OneLine(r.Content), 80)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
