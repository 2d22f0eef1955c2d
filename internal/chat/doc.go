// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the search-grounded chatbot: token estimation,
// bounded history, context assembly from the active search results and
// the turn-level session that talks to the chat endpoint.
//
// # Key Types
//
//   - History: capped, front-evicting list of turns
//   - Builder: turns the result store into a chat context
//   - Session: one conversation against a Backend
//   - Reply: what the UI shows for one user message
//
// # Usage
//
//	sess := chat.NewSession(client, store, chat.DefaultConfig())
//	reply := sess.Send(ctx, "what changed in pricing?")
//	fmt.Println(reply.Text)
package chat
