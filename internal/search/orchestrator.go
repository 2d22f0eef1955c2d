// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/ragdash/internal/logger"
	"github.com/jeranaias/ragdash/internal/ndjson"
)

// =============================================================================
// STATE
// =============================================================================

// State is the lifecycle of one search invocation.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateComplete
	StateFailed
)

var stateNames = [...]string{"idle", "sending", "streaming", "complete", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// =============================================================================
// BACKEND + HOOKS
// =============================================================================

// Backend opens the streaming search response. A non-OK response must be
// returned as an error (see ErrorFromResponse).
type Backend interface {
	OpenSearchStream(ctx context.Context, p Params) (io.ReadCloser, error)
}

// Hooks are presentation callbacks. Any may be nil. Hooks from a search
// that has been superseded by a newer one are never called.
//
// OnState and OnStage carry the generation of the search that produced
// them; a listener on another goroutine can compare it against the
// newest generation it has seen.
type Hooks struct {
	OnState       func(gen uint64, s State)
	OnStage       func(gen uint64, stage Stage, msg, newQuery string)
	OnSearching   func(msg string)
	OnChecking    func(msg string)
	OnRewriting   func(msg, newQuery string)
	OnRetrying    func(msg string)
	OnSummarizing func(msg string)

	// OnComplete receives the finished outcome after the store is updated.
	OnComplete func(Outcome)
	OnSummary  func(s Summary, linkMapping map[string]string)
	OnError    func(err error)
}

// Outcome describes how one search ended.
type Outcome struct {
	Generation  uint64
	Params      Params
	State       State
	Err         error
	Elapsed     time.Duration
	Results     []Result
	Summary     Summary
	Intent      *Intent
	LinkMapping map[string]string

	// Superseded is set when a newer search started before this one ended.
	Superseded bool
}

// Options tune the orchestrator.
type Options struct {
	MaxQueryLength int

	// Stream options; FlushTrailing is forwarded to the line reader.
	Stream ndjson.Options

	// Now is the clock used for elapsed time (tests).
	Now func() time.Time
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs streamed searches against a Backend and finalises
// results into a Store. Concurrent calls are allowed; only the most
// recent one may touch hooks or the store.
type Orchestrator struct {
	backend Backend
	store   *Store
	hooks   Hooks
	opts    Options
	log     *logger.Logger

	generation atomic.Uint64

	mu    sync.Mutex
	state State
}

// NewOrchestrator wires a backend and store together.
func NewOrchestrator(backend Backend, store *Store, hooks Hooks, opts Options) *Orchestrator {
	if opts.MaxQueryLength == 0 {
		opts.MaxQueryLength = DefaultMaxQueryLength
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		backend: backend,
		store:   store,
		hooks:   hooks,
		opts:    opts,
		log:     logger.L(),
	}
}

// SetLogger overrides the logger.
func (o *Orchestrator) SetLogger(l *logger.Logger) {
	o.log = l
}

// State returns the state of the current generation.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Generation returns the id of the most recent search.
func (o *Orchestrator) Generation() uint64 {
	return o.generation.Load()
}

// Search runs one search to completion. It never panics on backend
// misbehaviour; every failure is returned in the Outcome and passed to
// OnError. Calling Search again supersedes any search still running.
//
// A query rejected by validation never starts a search: the running one
// is left alone, no hook fires and the Outcome has generation 0.
func (o *Orchestrator) Search(ctx context.Context, p Params) Outcome {
	query, err := ValidateInput("query", p.Query, o.opts.MaxQueryLength)
	if err != nil {
		o.log.Debug("search", "query rejected", logger.Details{"error": err.Error()})
		return Outcome{Params: p, State: StateFailed, Err: err}
	}
	p.Query = query

	gen := o.generation.Add(1)
	run := &run{o: o, gen: gen}
	out := Outcome{Generation: gen, Params: p}

	start := o.opts.Now()
	run.setState(StateSending)
	o.log.Info("search", "search started", logger.Details{"generation": gen, "query": query})

	body, err := o.backend.OpenSearchStream(ctx, p)
	if err != nil {
		out.Elapsed = o.opts.Now().Sub(start)
		return run.fail(out, wrapTransport(err))
	}
	defer body.Close()

	run.setState(StateStreaming)

	reader := ndjson.NewReader(body, o.opts.Stream)
	var final *Outcome
	procErr := reader.Process(ctx, func(raw json.RawMessage) bool {
		ev, err := DecodeEvent(raw)
		if err != nil {
			o.log.Warn("search", "undecodable stream record", logger.Details{"error": err.Error()})
			return true
		}
		if !run.current() {
			return false
		}

		switch ev.Stage {
		case StageComplete:
			done := out
			done.State = StateComplete
			done.Elapsed = o.opts.Now().Sub(start)
			done.Results = ev.Results
			if done.Results == nil {
				done.Results = []Result{}
			}
			done.Summary = ev.Summary
			done.Intent = ev.Intent
			done.LinkMapping = ev.LinkMapping
			final = &done
			return false
		case StageFailed:
			failed := out
			failed.Elapsed = o.opts.Now().Sub(start)
			failed.Err = &BackendStageError{Stage: ev.ErrorStage, Message: failedMessage(ev)}
			final = &failed
			return false
		default:
			run.dispatchStage(ev)
			return true
		}
	})

	if final != nil && final.State == StateComplete {
		return run.complete(*final)
	}
	if final != nil {
		return run.fail(*final, final.Err)
	}

	out.Elapsed = o.opts.Now().Sub(start)
	if !run.current() {
		out.Superseded = true
		out.State = StateFailed
		out.Err = context.Canceled
		return out
	}
	if procErr != nil {
		return run.fail(out, wrapTransport(procErr))
	}
	return run.fail(out, &TransportError{Op: "search", Message: "stream ended before completion"})
}

func failedMessage(ev Event) string {
	if ev.Error != "" {
		return ev.Error
	}
	if ev.Message != "" {
		return ev.Message
	}
	return "Unknown error"
}

func wrapTransport(err error) error {
	var stageErr *BackendStageError
	var transErr *TransportError
	if errors.As(err, &stageErr) || errors.As(err, &transErr) {
		return err
	}
	return &TransportError{Op: "search", Message: "request failed", Cause: err}
}

// =============================================================================
// RUN
// =============================================================================

// run is the per-invocation view of the orchestrator. Every side effect
// goes through current() so a superseded run is inert.
type run struct {
	o   *Orchestrator
	gen uint64
}

func (r *run) current() bool {
	return r.o.generation.Load() == r.gen
}

func (r *run) setState(s State) {
	r.o.mu.Lock()
	if !r.current() {
		r.o.mu.Unlock()
		return
	}
	r.o.state = s
	r.o.mu.Unlock()

	if h := r.o.hooks.OnState; h != nil {
		h(r.gen, s)
	}
}

func (r *run) dispatchStage(ev Event) {
	h := r.o.hooks
	r.o.log.Debug("search", "stage", logger.Details{"generation": r.gen, "stage": string(ev.Stage), "message": ev.Message})

	if h.OnStage != nil {
		switch ev.Stage {
		case StageSearching, StageChecking, StageRewriting, StageRetrying, StageSummarizing:
			h.OnStage(r.gen, ev.Stage, ev.Message, ev.NewQuery)
		}
	}

	switch ev.Stage {
	case StageSearching:
		if h.OnSearching != nil {
			h.OnSearching(ev.Message)
		}
	case StageChecking:
		if h.OnChecking != nil {
			h.OnChecking(ev.Message)
		}
	case StageRewriting:
		if h.OnRewriting != nil {
			h.OnRewriting(ev.Message, ev.NewQuery)
		}
	case StageRetrying:
		if h.OnRetrying != nil {
			h.OnRetrying(ev.Message)
		}
	case StageSummarizing:
		if h.OnSummarizing != nil {
			h.OnSummarizing(ev.Message)
		}
	default:
		r.o.log.Debug("search", "ignoring unknown stage", logger.Details{"stage": string(ev.Stage)})
	}
}

func (r *run) complete(out Outcome) Outcome {
	if !r.current() {
		out.Superseded = true
		return out
	}

	r.o.store.SetResults(out.Results)
	r.setState(StateComplete)
	r.o.log.Info("search", "search complete", logger.Details{
		"generation": r.gen,
		"results":    len(out.Results),
		"elapsed_ms": out.Elapsed.Milliseconds(),
	})

	if h := r.o.hooks.OnSummary; h != nil {
		h(out.Summary, out.LinkMapping)
	}
	if h := r.o.hooks.OnComplete; h != nil {
		h(out)
	}
	return out
}

func (r *run) fail(out Outcome, err error) Outcome {
	out.State = StateFailed
	out.Err = err
	if !r.current() {
		out.Superseded = true
		return out
	}

	r.setState(StateFailed)
	r.o.log.Warn("search", "search failed", logger.Details{"generation": r.gen, "error": err.Error()})
	if h := r.o.hooks.OnError; h != nil {
		h(err)
	}
	return out
}
