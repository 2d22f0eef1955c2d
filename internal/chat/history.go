// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "sync"

// Role is who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one message in the conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DefaultMaxHistory is the number of turns kept.
const DefaultMaxHistory = 10

// History is a bounded, oldest-first list of turns. Appending past the
// cap evicts from the front.
type History struct {
	mu    sync.Mutex
	turns []Turn
	max   int
}

// NewHistory creates a history holding at most max turns.
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	return &History{max: max}
}

// Push appends turns and trims the front to the cap.
func (h *History) Push(turns ...Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turns...)
	if over := len(h.turns) - h.max; over > 0 {
		h.turns = append([]Turn(nil), h.turns[over:]...)
	}
}

// AddExchange records a completed user/model pair.
func (h *History) AddExchange(user, model string) {
	h.Push(Turn{Role: RoleUser, Content: user}, Turn{Role: RoleModel, Content: model})
}

// Turns returns a copy, oldest first. Never nil.
func (h *History) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of turns held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Clear drops every turn.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}

// DropLastExchange removes the trailing model turn and the user turn
// before it. Reports whether anything was removed.
func (h *History) DropLastExchange() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.turns)
	if n == 0 {
		return false
	}
	if h.turns[n-1].Role == RoleModel {
		n--
	}
	if n > 0 && h.turns[n-1].Role == RoleUser {
		n--
	}
	h.turns = h.turns[:n]
	return true
}

// Tokens estimates the token cost of all turns.
func (h *History) Tokens() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, t := range h.turns {
		total += EstimateTokens(t.Content)
	}
	return total
}
