// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package search implements the streaming search client core: result
// normalisation, the threshold-gated result store and the orchestrator
// that drives one streamed search from request to completion.
//
// # Key Types
//
//   - Result: one normalised search hit
//   - Store: all results plus the threshold-derived active subset
//   - Orchestrator: runs a search, dispatching stage hooks
//   - Event: one decoded stream record
//   - Summary: plain or structured AI summary
//
// # Usage
//
//	store := search.NewStore()
//	orch := search.NewOrchestrator(client, store, search.Hooks{
//	    OnSummarizing: func(msg string) { ... },
//	    OnSummary:     func(s search.Summary, links map[string]string) { ... },
//	})
//	out := orch.Search(ctx, search.DefaultParams("copilot pricing"))
package search
