// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragdash/internal/citation"
	"github.com/jeranaias/ragdash/internal/search"
)

type fakeBackend struct {
	resp     *Response
	err      error
	requests []Request

	clearCalls int
	undoCalls  int
}

func (f *fakeBackend) Chat(ctx context.Context, req Request) (*Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeBackend) ClearLLMHistory(ctx context.Context) error {
	f.clearCalls++
	return nil
}

func (f *fakeBackend) ClearLastLLMTurn(ctx context.Context) error {
	f.undoCalls++
	return nil
}

func storeWith(results ...search.Result) *search.Store {
	s := search.NewStore()
	s.SetResults(results)
	return s
}

func twoResults() []search.Result {
	return []search.Result{
		{ID: "1", Title: "low", Content: "alpha", Link: "http://a", RelevanceScore: 0.3},
		{ID: "2", Title: "high", Content: "beta", Link: "http://b", YearMonth: "2025-12", RelevanceScore: 0.8},
	}
}

func TestSendWithoutResultsNeverCallsBackend(t *testing.T) {
	backend := &fakeBackend{}
	sess := NewSession(backend, search.NewStore(), DefaultConfig())

	reply := sess.Send(context.Background(), "hello")
	assert.Equal(t, ReplySearchFirst, reply.Kind)
	assert.Equal(t, MsgSearchFirst, reply.Text)
	assert.Equal(t, SearchFirstSuggestions, reply.Suggestions)
	assert.False(t, reply.Sent)
	assert.Empty(t, backend.requests)
	assert.Equal(t, 0, sess.History().Len())
}

func TestSendFilteredByThreshold(t *testing.T) {
	backend := &fakeBackend{}
	store := storeWith(twoResults()...)
	store.SetThreshold(90)

	reply := NewSession(backend, store, DefaultConfig()).Send(context.Background(), "hello")
	assert.Equal(t, ReplyFiltered, reply.Kind)
	assert.Contains(t, reply.Text, "參考前 2 篇")
	assert.Empty(t, backend.requests)
}

func TestSendBuildsRankedContext(t *testing.T) {
	backend := &fakeBackend{resp: &Response{
		Answer:      "見【1】",
		Suggestions: []string{"next?"},
	}}
	store := storeWith(twoResults()...)
	store.SetThreshold(50)

	sess := NewSession(backend, store, DefaultConfig())
	reply := sess.Send(context.Background(), "  pricing?  ")
	require.True(t, reply.OK(), reply.Text)

	require.Len(t, backend.requests, 1)
	req := backend.requests[0]
	assert.Equal(t, "pricing?", req.Message)
	require.Len(t, req.Context, 1)
	assert.Equal(t, ContextEntry{Title: "[No.2] high", Content: "beta", Link: "http://b", YearMonth: "2025-12"}, req.Context[0])
	assert.NotNil(t, req.History)

	// [1] is the first context entry, i.e. the rank-2 result
	assert.Equal(t, `見[\[1\]](http://b)`, reply.Text)
	assert.Equal(t, []string{"next?"}, reply.Suggestions)
	assert.Equal(t, []Turn{{RoleUser, "pricing?"}, {RoleModel, "見【1】"}}, sess.History().Turns())
}

func TestSendHistoryIsForwardedAndCapped(t *testing.T) {
	backend := &fakeBackend{resp: &Response{Answer: "ok"}}
	sess := NewSession(backend, storeWith(twoResults()...), Config{MaxHistory: 4})

	for i := 0; i < 3; i++ {
		require.True(t, sess.Send(context.Background(), "q").OK())
	}
	assert.Len(t, backend.requests[2].History, 4)
	assert.Equal(t, 4, sess.History().Len())
}

func TestSendTokenBudget(t *testing.T) {
	backend := &fakeBackend{resp: &Response{Answer: "ok"}}
	cfg := DefaultConfig()
	cfg.TokenLimit = 3
	sess := NewSession(backend, storeWith(twoResults()...), cfg)

	reply := sess.Send(context.Background(), "你好world")
	assert.Equal(t, ReplyRejected, reply.Kind)
	assert.Empty(t, backend.requests)

	var verr *search.ClientValidationError
	require.ErrorAs(t, reply.Err, &verr)
	assert.Equal(t, search.ReasonTokenBudget, verr.Reason)
	// alpha(2) + beta(1) + 你好world(7)
	assert.Equal(t, 10, verr.Actual)
	assert.Contains(t, reply.Text, "10")
	assert.Contains(t, reply.Text, "3")
}

func TestSendMessageValidation(t *testing.T) {
	backend := &fakeBackend{resp: &Response{Answer: "ok"}}
	sess := NewSession(backend, storeWith(twoResults()...), Config{MaxMessageLength: 5})

	empty := sess.Send(context.Background(), "   ")
	assert.Equal(t, ReplyRejected, empty.Kind)
	assert.True(t, search.IsValidation(empty.Err))

	long := sess.Send(context.Background(), strings.Repeat("a", 6))
	assert.Equal(t, ReplyRejected, long.Kind)
	assert.Equal(t, MsgTooLong, long.Text)
	assert.Empty(t, backend.requests)
}

func TestSendBackendErrorsDoNotTouchHistory(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
		err  error
		kind ReplyKind
		text string
	}{
		{"input too long", &Response{Error: "Input length exceeds 8192"}, nil, ReplyTooLong, MsgTooLong},
		{"token limit", &Response{Error: "Token 使用量已達上限"}, nil, ReplyTokenLimit, "Token 使用量已達上限"},
		{"generic", &Response{Error: "model crashed"}, nil, ReplyError, "系統錯誤：model crashed"},
		{"structured status error", nil, &search.BackendStageError{Stage: "llm", Message: "Input length exceeds"}, ReplyTooLong, MsgTooLong},
		{"network", nil, &search.TransportError{Op: "chat", Message: "dial", Cause: errors.New("refused")}, ReplyNetworkError, MsgNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{resp: tt.resp, err: tt.err}
			sess := NewSession(backend, storeWith(twoResults()...), DefaultConfig())
			sess.History().AddExchange("old", "turn")

			reply := sess.Send(context.Background(), "q")
			assert.Equal(t, tt.kind, reply.Kind)
			assert.Contains(t, reply.Text, tt.text)
			assert.True(t, reply.Sent)
			assert.Equal(t, 2, sess.History().Len())
		})
	}
}

func TestTokenUsageOverridesEstimate(t *testing.T) {
	backend := &fakeBackend{resp: &Response{Answer: "ok"}}
	sess := NewSession(backend, storeWith(twoResults()...), DefaultConfig())

	reply := sess.Send(context.Background(), "abcd")
	// alpha(2) + beta(1) + abcd(1)
	assert.Equal(t, 4, reply.Tokens)
	assert.Equal(t, 4, sess.Tokens())

	backend.resp = &Response{Answer: "ok", TokenUsage: &TokenUsage{Total: 1234}}
	reply = sess.Send(context.Background(), "abcd")
	assert.Equal(t, 1234, reply.Tokens)
	assert.Equal(t, 1234, sess.Tokens())
}

func TestInitialSuggestions(t *testing.T) {
	backend := &fakeBackend{resp: &Response{Suggestions: []string{"a", "b"}}}
	sess := NewSession(backend, search.NewStore(), DefaultConfig())
	assert.Equal(t, []string{"a", "b"}, sess.InitialSuggestions(context.Background()))

	req := backend.requests[0]
	assert.Equal(t, "", req.Message)
	assert.NotNil(t, req.Context)
	assert.NotNil(t, req.History)

	backend.err = errors.New("down")
	assert.Equal(t, DefaultSuggestions, sess.InitialSuggestions(context.Background()))
}

func TestClearAndUndo(t *testing.T) {
	backend := &fakeBackend{resp: &Response{Answer: "ok"}}
	sess := NewSession(backend, storeWith(twoResults()...), DefaultConfig())
	sess.Send(context.Background(), "one")
	sess.Send(context.Background(), "two")

	removed, err := sess.UndoLast(context.Background())
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 2, sess.History().Len())
	assert.Equal(t, 1, backend.undoCalls)

	require.NoError(t, sess.Clear(context.Background()))
	assert.Equal(t, 0, sess.History().Len())
	assert.Equal(t, 0, sess.Tokens())
	assert.Equal(t, 1, backend.clearCalls)

	removed, err = sess.UndoLast(context.Background())
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 1, backend.undoCalls)
}

func TestHeaderStatus(t *testing.T) {
	assert.Equal(t, MsgWaitingForSearch, HeaderStatus(search.NewStore().Snapshot()))

	store := storeWith(twoResults()...)
	store.SetThreshold(50)
	assert.Equal(t, "(已載入 1/2 篇)", HeaderStatus(store.Snapshot()))

	store.SetThreshold(99)
	assert.Equal(t, MsgBelowThresholdHeader, HeaderStatus(store.Snapshot()))
}

func TestHTMLCitationFormatter(t *testing.T) {
	backend := &fakeBackend{resp: &Response{Answer: "see [2] and [9]"}}
	cfg := DefaultConfig()
	cfg.Citations = citation.HTML
	sess := NewSession(backend, storeWith(twoResults()...), cfg)

	reply := sess.Send(context.Background(), "q")
	assert.Equal(t, `see <a href="http://b" target="_blank" class="citation-link">[2]</a> and [9]`, reply.Text)
}
