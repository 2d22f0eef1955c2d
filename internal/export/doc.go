// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a search session (results, AI summary and the
// chat grounded in it) to a file.
//
// # Key Types
//
//   - Transcript: one search and its conversation
//   - Exporter: a file format (Markdown, JSON)
//
// # Usage
//
//	t := export.NewTranscript(outcome, store.Snapshot(), session.History().Turns())
//	path, err := export.WriteFile(t, "", "copilot.md")
package export
