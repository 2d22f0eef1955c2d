// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the ragdash command line.
//
// Running ragdash with no subcommand opens the dashboard. Every other
// feature has a scriptable subcommand that prints plain text (or JSON with
// --json) so the tool composes with pipes.
//
// # Key Types
//
//   - App: shared state for one invocation (config, backend client, store)
//   - JSONResponse: the envelope printed by --json
//   - CommandError: a failed command with its exit code category
//
// # Usage
//
//	os.Exit(cli.Main(ctx, os.Args[1:]))
//
// # Commands Overview
//
// Search and chat:
//   - search: stream one search, print results and the summary
//     (--export writes them to a Markdown or JSON file)
//   - chat: interactive chat grounded in search results
//   - feedback: rate the last search
//   - clear: reset the backend's chat memory
//
// Backend data:
//   - sources, announcements: backend configuration (announcements
//     --hide turns off the dashboard popup)
//   - upload, clear-collection, stats: collection maintenance
//
// Local state:
//   - config: show, get, set, reset, path, keys, watch
//   - history: recent searches
package cli
