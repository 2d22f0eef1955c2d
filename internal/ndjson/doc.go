// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ndjson decodes newline-delimited JSON streams.
//
// The search backend streams one JSON record per line. Network chunks
// may split a line anywhere, so the reader buffers until it sees '\n'.
//
// # Key Types
//
//   - Reader: single-pass, lazy record reader
//   - Options: trailing-line and logging behaviour
//   - ParseError: a malformed line (logged, never returned)
//
// # Usage
//
//	r := ndjson.NewReader(resp.Body, ndjson.Options{})
//	err := r.Process(ctx, func(rec json.RawMessage) bool {
//	    // handle rec; return false to stop
//	    return true
//	})
package ndjson
