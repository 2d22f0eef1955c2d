// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jeranaias/ragdash/internal/citation"
	"github.com/jeranaias/ragdash/internal/logger"
	"github.com/jeranaias/ragdash/internal/search"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// Request is the body of POST /api/chat.
type Request struct {
	Message string         `json:"message"`
	Context []ContextEntry `json:"context"`
	History []Turn         `json:"history"`
}

// TokenUsage is the backend's own token accounting.
type TokenUsage struct {
	Prompt     int `json:"prompt,omitempty"`
	Completion int `json:"completion,omitempty"`
	Total      int `json:"total"`
}

// SourceRef is a document the backend says it used.
type SourceRef struct {
	Title     string `json:"title"`
	Link      string `json:"link,omitempty"`
	YearMonth string `json:"year_month,omitempty"`
}

// Response is the body returned by /api/chat.
type Response struct {
	Answer      string      `json:"answer"`
	Sources     []SourceRef `json:"sources,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
	TokenUsage  *TokenUsage `json:"token_usage,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Backend sends one chat request.
type Backend interface {
	Chat(ctx context.Context, req Request) (*Response, error)
}

// HistoryBackend is implemented by backends that keep server-side
// conversation memory.
type HistoryBackend interface {
	ClearLLMHistory(ctx context.Context) error
	ClearLastLLMTurn(ctx context.Context) error
}

// =============================================================================
// ERRORS
// =============================================================================

// TurnErrorKind classifies a backend chat failure.
type TurnErrorKind int

const (
	TurnErrorGeneric TurnErrorKind = iota
	TurnErrorTooLong
	TurnErrorTokenLimit
)

// ChatTurnError is a failure reported by the chat backend.
type ChatTurnError struct {
	Kind    TurnErrorKind
	Message string
}

func (e *ChatTurnError) Error() string {
	return "chat: " + e.Message
}

// ClassifyBackendError maps a backend error string to its kind.
func ClassifyBackendError(msg string) TurnErrorKind {
	switch {
	case strings.Contains(msg, backendTooLong):
		return TurnErrorTooLong
	case strings.Contains(msg, backendTokenLimit):
		return TurnErrorTokenLimit
	default:
		return TurnErrorGeneric
	}
}

// =============================================================================
// REPLY
// =============================================================================

// ReplyKind says what a Reply represents.
type ReplyKind int

const (
	// ReplyAnswer is a model answer; history was updated.
	ReplyAnswer ReplyKind = iota
	// ReplySearchFirst means there are no search results at all.
	ReplySearchFirst
	// ReplyFiltered means every result is below the threshold.
	ReplyFiltered
	// ReplyRejected is a local validation failure (length or budget).
	ReplyRejected
	// ReplyTooLong, ReplyTokenLimit and ReplyError are backend failures.
	ReplyTooLong
	ReplyTokenLimit
	ReplyError
	// ReplyNetworkError is a transport failure.
	ReplyNetworkError
)

// Reply is what the UI shows for one user message.
type Reply struct {
	Kind ReplyKind

	// Text is display-ready markdown; answers have citations rewritten.
	Text string

	// Answer is the raw model answer.
	Answer string

	Suggestions []string
	Sources     []SourceRef
	Err         error

	// Sent reports whether the backend was contacted.
	Sent bool

	// Tokens is the turn's token count: the backend's total when it
	// reported one, else the local estimate.
	Tokens int
}

// OK reports whether the turn produced an answer.
func (r Reply) OK() bool {
	return r.Kind == ReplyAnswer
}

// =============================================================================
// SESSION
// =============================================================================

// Config controls a Session.
type Config struct {
	MaxMessageLength int
	MaxHistory       int

	// TokenLimit caps the estimated size of one turn; <= 0 disables.
	TokenLimit int

	// Citations renders mapped [n] markers in answers.
	Citations citation.Formatter
}

// DefaultConfig returns the stock chat limits.
func DefaultConfig() Config {
	return Config{
		MaxMessageLength: 500,
		MaxHistory:       DefaultMaxHistory,
		TokenLimit:       200000,
		Citations:        citation.Markdown,
	}
}

// Session is one chat conversation grounded in a result store.
// Send may be called from any goroutine; turns are serialised.
type Session struct {
	backend Backend
	builder *Builder
	history *History
	cfg     Config
	log     *logger.Logger

	turnMu sync.Mutex

	mu     sync.Mutex
	tokens int
}

// NewSession creates a session.
func NewSession(backend Backend, src Source, cfg Config) *Session {
	def := DefaultConfig()
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = def.MaxMessageLength
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = def.MaxHistory
	}
	if cfg.Citations == nil {
		cfg.Citations = def.Citations
	}
	return &Session{
		backend: backend,
		builder: NewBuilder(src),
		history: NewHistory(cfg.MaxHistory),
		cfg:     cfg,
		log:     logger.L(),
	}
}

// History exposes the conversation history.
func (s *Session) History() *History {
	return s.history
}

// Tokens returns the token count of the last sent turn.
func (s *Session) Tokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

// TokenLimit returns the configured budget.
func (s *Session) TokenLimit() int {
	return s.cfg.TokenLimit
}

// SetTokenLimit updates the budget, e.g. after loading backend config.
func (s *Session) SetTokenLimit(limit int) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	s.cfg.TokenLimit = limit
}

func (s *Session) setTokens(n int) {
	s.mu.Lock()
	s.tokens = n
	s.mu.Unlock()
}

// Send runs one chat turn. It never returns an error directly; failures
// are described by the Reply. History changes only on ReplyAnswer.
func (s *Session) Send(ctx context.Context, message string) Reply {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	msg, err := search.ValidateInput("message", message, s.cfg.MaxMessageLength)
	if err != nil {
		var verr *search.ClientValidationError
		text := ""
		if errors.As(err, &verr) && verr.Reason == search.ReasonTooLong {
			text = MsgTooLong
		}
		return Reply{Kind: ReplyRejected, Text: text, Err: err}
	}

	built := s.builder.Build()
	if built.Scanned == 0 {
		return Reply{Kind: ReplySearchFirst, Text: MsgSearchFirst, Suggestions: SearchFirstSuggestions}
	}
	if built.Empty() {
		return Reply{Kind: ReplyFiltered, Text: belowThresholdMessage(built.Scanned)}
	}

	history := s.history.Turns()
	estimate, err := CheckBudget(built.Entries, history, msg, s.cfg.TokenLimit)
	if err != nil {
		s.log.Warn("chat", "turn rejected by token budget", logger.Details{"estimate": estimate, "limit": s.cfg.TokenLimit})
		return Reply{Kind: ReplyRejected, Text: tokenBudgetMessage(estimate, s.cfg.TokenLimit), Err: err, Tokens: estimate}
	}

	s.setTokens(estimate)
	s.log.Debug("chat", "sending turn", logger.Details{
		"context":  len(built.Entries),
		"scanned":  built.Scanned,
		"history":  len(history),
		"estimate": estimate,
	})

	resp, err := s.backend.Chat(ctx, Request{Message: msg, Context: built.Entries, History: history})
	if err != nil {
		return s.failure(err, estimate)
	}
	if resp.Error != "" {
		return s.backendFailure(resp.Error, estimate)
	}

	tokens := estimate
	if resp.TokenUsage != nil && resp.TokenUsage.Total > 0 {
		tokens = resp.TokenUsage.Total
	}
	s.setTokens(tokens)
	s.history.AddExchange(msg, resp.Answer)

	return Reply{
		Kind:        ReplyAnswer,
		Text:        citation.Rewrite(resp.Answer, built.Citations, s.cfg.Citations),
		Answer:      resp.Answer,
		Suggestions: resp.Suggestions,
		Sources:     resp.Sources,
		Sent:        true,
		Tokens:      tokens,
	}
}

func (s *Session) failure(err error, estimate int) Reply {
	var stageErr *search.BackendStageError
	if errors.As(err, &stageErr) {
		return s.backendFailure(stageErr.Message, estimate)
	}
	s.log.Error("chat", "chat request failed", logger.Details{"error": err})
	return Reply{Kind: ReplyNetworkError, Text: MsgNetworkError, Err: err, Sent: true, Tokens: estimate}
}

func (s *Session) backendFailure(msg string, estimate int) Reply {
	turnErr := &ChatTurnError{Kind: ClassifyBackendError(msg), Message: msg}
	s.log.Warn("chat", "backend rejected turn", logger.Details{"error": msg})

	r := Reply{Err: turnErr, Sent: true, Tokens: estimate}
	switch turnErr.Kind {
	case TurnErrorTooLong:
		r.Kind, r.Text = ReplyTooLong, MsgTooLong
	case TurnErrorTokenLimit:
		r.Kind, r.Text = ReplyTokenLimit, tokenLimitMessage(msg)
	default:
		r.Kind, r.Text = ReplyError, MsgGenericErrorPrefix+msg
	}
	return r
}

// =============================================================================
// SUGGESTIONS + HISTORY CONTROL
// =============================================================================

// InitialSuggestions asks the backend for opening suggestions with an
// empty turn. A failed request yields DefaultSuggestions.
func (s *Session) InitialSuggestions(ctx context.Context) []string {
	resp, err := s.backend.Chat(ctx, Request{Message: "", Context: []ContextEntry{}, History: []Turn{}})
	if err != nil {
		s.log.Warn("chat", "initial suggestions unavailable", logger.Details{"error": err.Error()})
		return DefaultSuggestions
	}
	return resp.Suggestions
}

// Clear empties local history and, when supported, the backend's.
func (s *Session) Clear(ctx context.Context) error {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.history.Clear()
	s.setTokens(0)
	if hb, ok := s.backend.(HistoryBackend); ok {
		return hb.ClearLLMHistory(ctx)
	}
	return nil
}

// UndoLast drops the last exchange locally and, when supported, on the
// backend. Reports whether anything was removed locally.
func (s *Session) UndoLast(ctx context.Context) (bool, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	removed := s.history.DropLastExchange()
	if !removed {
		return false, nil
	}
	if hb, ok := s.backend.(HistoryBackend); ok {
		return true, hb.ClearLastLLMTurn(ctx)
	}
	return true, nil
}
