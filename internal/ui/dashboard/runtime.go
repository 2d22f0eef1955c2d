// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragdash/internal/api"
	"github.com/jeranaias/ragdash/internal/chat"
	"github.com/jeranaias/ragdash/internal/citation"
	"github.com/jeranaias/ragdash/internal/config"
	"github.com/jeranaias/ragdash/internal/logger"
	"github.com/jeranaias/ragdash/internal/search"
	"github.com/jeranaias/ragdash/internal/storage"
)

// Backend is everything the dashboard needs from the RAG service.
// *api.Client implements it.
type Backend interface {
	search.Backend
	chat.Backend
	chat.HistoryBackend
	Config(ctx context.Context) (*api.RemoteConfig, error)
	Feedback(ctx context.Context, fb api.FeedbackRequest) error
}

// Prefs persists the announcement preference and search history.
// *storage.DB implements it.
type Prefs interface {
	HideAnnouncements(ctx context.Context) (bool, error)
	SetHideAnnouncements(ctx context.Context, hide bool) error
	RecordSearch(ctx context.Context, rec storage.SearchRecord) (string, error)
	PruneHistory(ctx context.Context, keep int) (int64, error)
}

// Deps are the dashboard's collaborators. Prefs may be nil.
type Deps struct {
	Backend Backend
	Prefs   Prefs
	Config  *config.Config
	Logger  *logger.Logger

	// ExportDir receives transcripts saved with the export key. Empty
	// means the working directory.
	ExportDir string
}

// eventBuffer bounds hook and observer output waiting for the UI loop.
const eventBuffer = 256

// requestTimeout bounds non-streaming calls made from the UI.
const requestTimeout = 2 * time.Minute

// runtimeEvent wraps a message produced off the UI goroutine.
type runtimeEvent struct {
	msg tea.Msg
}

// runtime is shared by every copy of the Model.
type runtime struct {
	backend Backend
	prefs   Prefs
	cfg     *config.Config
	log     *logger.Logger

	exportDir string

	store   *search.Store
	orch    *search.Orchestrator
	session *chat.Session

	events chan tea.Msg

	ctx      context.Context
	shutdown context.CancelFunc

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newRuntime(d Deps) *runtime {
	cfg := d.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := d.Logger
	if log == nil {
		log = logger.L()
	}

	ctx, shutdown := context.WithCancel(context.Background())
	rt := &runtime{
		backend:   d.Backend,
		prefs:     d.Prefs,
		cfg:       cfg,
		log:       log,
		exportDir: d.ExportDir,
		store:     search.NewStore(),
		events:    make(chan tea.Msg, eventBuffer),
		ctx:       ctx,
		shutdown:  shutdown,
	}
	rt.store.SetThreshold(cfg.Search.SimilarityThreshold)
	rt.store.OnResultsChanged(func(snap search.Snapshot) {
		rt.emit(resultsMsg{snap: snap})
	})

	rt.orch = search.NewOrchestrator(d.Backend, rt.store, rt.hooks(), cfg.OrchestratorOptions())
	rt.orch.SetLogger(log)

	// Answers are rendered by glamour, which understands markdown links.
	chatCfg := cfg.ChatSessionConfig()
	chatCfg.Citations = citation.Markdown
	rt.session = chat.NewSession(d.Backend, rt.store, chatCfg)
	return rt
}

// hooks forward orchestrator callbacks as UI messages tagged with the
// generation that produced them.
func (rt *runtime) hooks() search.Hooks {
	return search.Hooks{
		OnState: func(gen uint64, st search.State) {
			rt.emit(searchStateMsg{gen: gen, state: st})
		},
		OnStage: func(gen uint64, st search.Stage, text, newQuery string) {
			rt.emit(stageMsg{gen: gen, stage: st, text: text, newQuery: newQuery})
		},
	}
}

// emit queues msg for the UI loop without blocking the caller, which may
// be the UI loop itself (store observers run inside Update).
func (rt *runtime) emit(msg tea.Msg) {
	select {
	case rt.events <- msg:
	default:
		rt.log.Warn("dashboard", "event buffer full", nil)
		go func() {
			select {
			case rt.events <- msg:
			case <-rt.ctx.Done():
			}
		}()
	}
}

// listen waits for the next runtime event.
func (rt *runtime) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-rt.events:
			return runtimeEvent{msg: msg}
		case <-rt.ctx.Done():
			return nil
		}
	}
}

// beginSearch cancels any running search and returns a context for the
// next one.
func (rt *runtime) beginSearch() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(rt.ctx)
	rt.mu.Lock()
	if rt.cancel != nil {
		rt.cancel()
	}
	rt.cancel = cancel
	rt.mu.Unlock()
	return ctx, cancel
}

// cancelSearch stops the running search, if any.
func (rt *runtime) cancelSearch() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.cancel == nil {
		return false
	}
	rt.cancel()
	rt.cancel = nil
	return true
}

// close stops everything started by the runtime.
func (rt *runtime) close() {
	rt.cancelSearch()
	rt.shutdown()
}

func (rt *runtime) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(rt.ctx, requestTimeout)
}
