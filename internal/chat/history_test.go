// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryCapEvictsOldest(t *testing.T) {
	h := NewHistory(10)
	for i := 0; i < 12; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleModel
		}
		h.Push(Turn{Role: role, Content: strconv.Itoa(i)})
	}

	turns := h.Turns()
	require.Len(t, turns, 10)
	for i, turn := range turns {
		assert.Equal(t, strconv.Itoa(i+2), turn.Content)
	}
	assert.Equal(t, RoleUser, turns[0].Role)
}

func TestHistoryExchanges(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < 6; i++ {
		h.AddExchange("q"+strconv.Itoa(i), "a"+strconv.Itoa(i))
	}
	turns := h.Turns()
	require.Len(t, turns, DefaultMaxHistory)
	assert.Equal(t, Turn{Role: RoleUser, Content: "q1"}, turns[0])
	assert.Equal(t, Turn{Role: RoleModel, Content: "a5"}, turns[9])
}

func TestHistoryDropLastExchange(t *testing.T) {
	h := NewHistory(10)
	assert.False(t, h.DropLastExchange())

	h.AddExchange("q1", "a1")
	h.AddExchange("q2", "a2")
	assert.True(t, h.DropLastExchange())
	assert.Equal(t, []Turn{{RoleUser, "q1"}, {RoleModel, "a1"}}, h.Turns())

	h.Clear()
	assert.Equal(t, 0, h.Len())
	assert.NotNil(t, h.Turns())
}

func TestHistoryTokens(t *testing.T) {
	h := NewHistory(10)
	h.AddExchange("你好", "abcd")
	assert.Equal(t, 6, h.Tokens())
}
