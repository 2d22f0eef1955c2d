// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the RAG search backend.
//
// It implements search.Backend and chat.Backend, plus the surrounding
// endpoints the dashboard needs: feedback, backend config, collection
// maintenance and file upload.
//
// # Key Types
//
//   - Client: the backend client (safe for concurrent use)
//   - ClientConfig: base URL, timeouts, rate limit, cache TTL
//   - RemoteConfig: the /api/config payload
//
// # Usage
//
//	client := api.NewClient(api.DefaultConfig())
//	remote, err := client.Config(ctx)
//	body, err := client.OpenSearchStream(ctx, search.DefaultParams("pricing"))
package api
