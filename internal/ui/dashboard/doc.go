// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dashboard is the ragdash terminal dashboard.
//
// The screen has four panels: the search box, the ranked result list
// (results under the similarity threshold are dimmed), the AI summary with
// live stage messages, and the chat grounded in the active results.
//
// Searches run on a goroutine through search.Orchestrator. Stage hooks and
// store observers feed a buffered event channel that the Bubble Tea loop
// drains one message at a time. Every search message carries its
// generation so output from a superseded search is dropped.
//
// # Key Types
//
//   - Model: the Bubble Tea model
//   - Deps: backend, preferences and configuration
//   - KeyMap: key bindings
//
// # Usage
//
//	m := dashboard.New(dashboard.Deps{Backend: client, Prefs: db, Config: cfg})
//	err := dashboard.Run(ctx, m)
package dashboard
