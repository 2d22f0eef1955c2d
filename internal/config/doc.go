// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for ragdash.
//
// Settings live in a TOML file, may be overridden by environment variables
// (optionally supplied through a .env file) and are validated with struct
// tags. Backend-served defaults from /api/config can be merged on top.
//
// # Key Types
//
//   - Config: main configuration structure
//   - BackendConfig: backend URL, timeouts and rate limit
//   - SearchConfig: default search parameters and threshold
//   - ChatConfig: chat limits and citation style
//   - ValidateErrors: every field that failed validation
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (RAGDASH_*), including values from .env
//   - ~/.ragdash/config.toml (or $RAGDASH_HOME/config.toml)
//   - Built-in defaults
//
// Backend defaults are applied with ApplyRemote only for fields the user
// has not set explicitly.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	params := cfg.SearchParams("copilot pricing")
package config
