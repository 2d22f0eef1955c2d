// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragdash/internal/api"
	"github.com/jeranaias/ragdash/internal/chat"
	"github.com/jeranaias/ragdash/internal/citation"
	"github.com/jeranaias/ragdash/internal/export"
	"github.com/jeranaias/ragdash/internal/logger"
	"github.com/jeranaias/ragdash/internal/search"
	"github.com/jeranaias/ragdash/internal/ui/render"
	"github.com/jeranaias/ragdash/internal/ui/styles"
)

// =============================================================================
// MODEL
// =============================================================================

type focusArea int

const (
	focusSearch focusArea = iota
	focusChat
)

type lineRole int

const (
	roleUser lineRole = iota
	roleModel
	roleSystem
	roleError
)

// chatLine is one entry in the chat transcript. Lines with answer set
// pair with the user line before them and go away together on undo.
type chatLine struct {
	role   lineRole
	text   string
	answer bool
}

// stageLine is one live progress message from the stream.
type stageLine struct {
	stage search.Stage
	text  string
}

// Model is the dashboard's Bubble Tea model.
type Model struct {
	rt    *runtime
	theme *styles.Theme
	keys  KeyMap
	help  help.Model
	md    *render.Markdown

	searchIn  textinput.Model
	chatIn    textinput.Model
	resultsVP viewport.Model
	summaryVP viewport.Model
	chatVP    viewport.Model
	spinner   spinner.Model

	width, height int
	lay           layout
	focus         focusArea
	showHelp      bool

	// Search state
	params    search.Params
	gen       uint64
	searching bool
	stages    []stageLine
	snap      search.Snapshot
	last      *search.Outcome
	summary   string
	searchErr string

	// Chat state
	lines       []chatLine
	suggestions []string
	chatBusy    bool

	// Backend config
	announcements     []api.Announcement
	websites          []api.Website
	showAnnouncements bool

	status string
}

// New builds a dashboard model.
func New(d Deps) Model {
	rt := newRuntime(d)
	theme := styles.NewTheme()

	searchIn := textinput.New()
	searchIn.Prompt = "🔍 "
	searchIn.Placeholder = "輸入關鍵字搜尋公告…"
	searchIn.CharLimit = rt.cfg.Search.MaxQueryLength
	searchIn.Focus()

	chatIn := textinput.New()
	chatIn.Prompt = "› "
	chatIn.Placeholder = "詢問搜尋結果…"
	chatIn.CharLimit = rt.cfg.Chat.MaxMessageLength

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.StageText

	m := Model{
		rt:          rt,
		theme:       theme,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		md:          render.NewMarkdown(theme.GlamourStyle()),
		searchIn:    searchIn,
		chatIn:      chatIn,
		resultsVP:   viewport.New(0, 0),
		summaryVP:   viewport.New(0, 0),
		chatVP:      viewport.New(0, 0),
		spinner:     sp,
		params:      rt.cfg.SearchParams(""),
		snap:        rt.store.Snapshot(),
		lines:       []chatLine{{role: roleModel, text: chat.MsgWelcome}},
		suggestions: chat.DefaultSuggestions,
	}
	return m
}

// Close releases the runtime. The model must not be used afterwards.
func (m Model) Close() {
	m.rt.close()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.rt.listen(),
		m.rt.remoteConfigCmd(),
		m.rt.suggestionsCmd(),
	)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case runtimeEvent:
		next, cmd := m.Update(msg.msg)
		return next, tea.Batch(cmd, m.rt.listen())

	case searchStateMsg:
		if msg.gen < m.gen {
			return m, nil
		}
		if msg.gen > m.gen {
			m.gen = msg.gen
			m.stages = nil
			m.summary = ""
			m.searchErr = ""
		}
		if msg.state == search.StateSending || msg.state == search.StateStreaming {
			m.searching = true
		}
		m.refreshSummary()
		return m, nil

	case stageMsg:
		if msg.gen < m.gen {
			return m, nil
		}
		text := msg.text
		if msg.newQuery != "" {
			text += " → " + msg.newQuery
		}
		m.stages = append(m.stages, stageLine{stage: msg.stage, text: text})
		m.refreshSummary()
		return m, nil

	case searchDoneMsg:
		return m.finishSearch(msg.out), nil

	case resultsMsg:
		m.snap = msg.snap
		m.refreshResults()
		m.refreshChat()
		return m, nil

	case chatReplyMsg:
		m.chatBusy = false
		m.applyReply(msg.reply)
		return m, nil

	case suggestionsMsg:
		m.suggestions = msg.items
		m.refreshChat()
		return m, nil

	case chatClearedMsg:
		m.applyCleared(msg)
		return m, nil

	case remoteConfigMsg:
		m.applyRemoteConfig(msg)
		return m, nil

	case feedbackDoneMsg:
		if msg.err != nil {
			m.status = styles.RenderError("feedback failed: " + msg.err.Error())
		} else {
			m.status = styles.RenderSuccess("feedback sent (" + string(msg.kind) + ")")
		}
		return m, nil

	case prefSavedMsg:
		if msg.err != nil {
			m.status = styles.RenderError("could not save preference: " + msg.err.Error())
		} else {
			m.status = styles.RenderInfo("announcements hidden")
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.status = styles.RenderError("copy failed: " + msg.err.Error())
		} else {
			m.status = styles.RenderSuccess(fmt.Sprintf("copied %s (%d chars)", msg.what, msg.chars))
		}
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.status = styles.RenderError("export failed: " + msg.err.Error())
		} else {
			m.status = styles.RenderSuccess("exported to " + msg.path)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.searching && !m.chatBusy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.searching {
			m.refreshSummary()
		}
		return m, cmd
	}

	return m.updateInputs(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.rt.close()
		return m, tea.Quit
	}

	if m.showAnnouncements {
		switch {
		case key.Matches(msg, m.keys.HideForever):
			m.showAnnouncements = false
			return m, m.rt.hideAnnouncementsCmd()
		case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Submit), key.Matches(msg, m.keys.Announcements):
			m.showAnnouncements = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.resize()
		return m, nil

	case key.Matches(msg, m.keys.SwitchFocus):
		m.setFocus(1 - m.focus)
		return m, textinput.Blink

	case key.Matches(msg, m.keys.ThresholdUp):
		m.rt.store.SetThreshold(m.snap.Threshold + m.rt.cfg.UI.ThresholdStep)
		m.snap = m.rt.store.Snapshot()
		m.refreshResults()
		m.refreshChat()
		return m, nil

	case key.Matches(msg, m.keys.ThresholdDown):
		m.rt.store.SetThreshold(m.snap.Threshold - m.rt.cfg.UI.ThresholdStep)
		m.snap = m.rt.store.Snapshot()
		m.refreshResults()
		m.refreshChat()
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		if m.focus == focusSearch {
			m.resultsVP.HalfViewUp()
		} else {
			m.chatVP.HalfViewUp()
		}
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		if m.focus == focusSearch {
			m.resultsVP.HalfViewDown()
		} else {
			m.chatVP.HalfViewDown()
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleLLM):
		m.params.EnableLLM = !m.params.EnableLLM
		return m, nil

	case key.Matches(msg, m.keys.Suggestion):
		idx := int(msg.String()[len(msg.String())-1]-'0') - 1
		if idx < 0 || idx >= len(m.suggestions) {
			return m, nil
		}
		return m.sendChat(m.suggestions[idx])

	case key.Matches(msg, m.keys.ClearChat):
		return m, m.rt.clearChatCmd(false)

	case key.Matches(msg, m.keys.UndoTurn):
		return m, m.rt.clearChatCmd(true)

	case key.Matches(msg, m.keys.FeedbackGood), key.Matches(msg, m.keys.FeedbackBad):
		if m.last == nil || m.last.State != search.StateComplete {
			m.status = styles.RenderWarning("no completed search to rate")
			return m, nil
		}
		kind := api.FeedbackPositive
		if key.Matches(msg, m.keys.FeedbackBad) {
			kind = api.FeedbackNegative
		}
		return m, m.rt.feedbackCmd(kind, m.last.Params)

	case key.Matches(msg, m.keys.Copy):
		what, text := m.copyTarget()
		if text == "" {
			m.status = styles.RenderWarning("nothing to copy")
			return m, nil
		}
		return m, copyCmd(what, text)

	case key.Matches(msg, m.keys.Export):
		if m.last == nil || m.last.State != search.StateComplete {
			m.status = styles.RenderWarning("no completed search to export")
			return m, nil
		}
		t := export.NewTranscript(*m.last, m.snap, m.rt.session.History().Turns())
		return m, m.rt.exportCmd(t)

	case key.Matches(msg, m.keys.Announcements):
		if len(m.announcements) > 0 {
			m.showAnnouncements = true
		}
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		if m.searching && m.rt.cancelSearch() {
			m.status = styles.RenderWarning("search cancelled")
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.focus == focusSearch {
			return m.startSearch(m.searchIn.Value())
		}
		text := m.chatIn.Value()
		m.chatIn.Reset()
		return m.sendChat(text)
	}

	return m.updateInputs(msg)
}

// copyTarget is the last chat answer, or the summary when there is none.
func (m Model) copyTarget() (what, text string) {
	for i := len(m.lines) - 1; i >= 0; i-- {
		if m.lines[i].answer {
			return "answer", m.lines[i].text
		}
	}
	if m.summary != "" {
		return "summary", m.summary
	}
	return "", ""
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focus == focusSearch {
		m.searchIn, cmd = m.searchIn.Update(msg)
	} else {
		m.chatIn, cmd = m.chatIn.Update(msg)
	}
	return m, cmd
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	if f == focusSearch {
		m.chatIn.Blur()
		m.searchIn.Focus()
	} else {
		m.searchIn.Blur()
		m.chatIn.Focus()
	}
}

// =============================================================================
// SEARCH FLOW
// =============================================================================

// startSearch launches a search for query with the current parameters.
// A query that fails validation is reported in the status line and
// leaves any running search untouched.
func (m Model) startSearch(query string) (Model, tea.Cmd) {
	if _, err := search.ValidateInput("query", query, m.rt.cfg.Search.MaxQueryLength); err != nil {
		m.status = styles.RenderWarning(render.SearchError(err))
		return m, nil
	}
	p := m.params
	p.Query = query
	p.SelectedWebsites = append([]string(nil), m.params.SelectedWebsites...)
	m.status = ""
	m.searching = true
	return m, tea.Batch(m.rt.searchCmd(p), m.spinner.Tick)
}

// finishSearch applies a search outcome unless a newer search owns the
// screen.
func (m Model) finishSearch(out search.Outcome) Model {
	if out.Superseded || out.Generation < m.gen {
		return m
	}
	m.gen = out.Generation
	m.searching = false
	m.last = &out

	switch out.State {
	case search.StateComplete:
		m.searchErr = ""
		m.summary = out.Summary.Markdown(out.LinkMapping, citation.Markdown)
		m.status = styles.RenderSuccess(fmt.Sprintf("%d results in %s", len(out.Results), render.Elapsed(out.Elapsed)))
	default:
		m.searchErr = render.SearchError(out.Err)
		m.summary = ""
		if out.Err != nil {
			m.rt.log.Debug("dashboard", "search failed", logger.Details{"error": out.Err.Error()})
		}
	}
	m.snap = m.rt.store.Snapshot()
	m.refreshResults()
	m.refreshSummary()
	m.refreshChat()
	return m
}

// =============================================================================
// CHAT FLOW
// =============================================================================

func (m Model) sendChat(text string) (Model, tea.Cmd) {
	text = strings.TrimSpace(text)
	if text == "" || m.chatBusy {
		return m, nil
	}
	m.lines = append(m.lines, chatLine{role: roleUser, text: text})
	m.chatBusy = true
	m.refreshChat()
	return m, tea.Batch(m.rt.chatCmd(text), m.spinner.Tick)
}

func (m *Model) applyReply(r chat.Reply) {
	text := r.Text
	if text == "" && r.Err != nil {
		text = r.Err.Error()
	}

	switch r.Kind {
	case chat.ReplyAnswer:
		m.lines = append(m.lines, chatLine{role: roleModel, text: text, answer: true})
	case chat.ReplySearchFirst, chat.ReplyFiltered:
		m.lines = append(m.lines, chatLine{role: roleSystem, text: text})
	default:
		m.lines = append(m.lines, chatLine{role: roleError, text: text})
	}
	if len(r.Suggestions) > 0 {
		m.suggestions = r.Suggestions
	}
	m.refreshChat()
}

func (m *Model) applyCleared(msg chatClearedMsg) {
	if msg.err != nil {
		m.status = styles.RenderError("backend history: " + msg.err.Error())
	}
	if !msg.undo {
		m.lines = []chatLine{{role: roleModel, text: chat.MsgWelcome}}
		m.suggestions = chat.DefaultSuggestions
		m.refreshChat()
		return
	}
	if !msg.dropped {
		m.status = styles.RenderWarning("nothing to undo")
		return
	}
	// drop the last answered exchange and anything shown after it
	for i := len(m.lines) - 1; i > 0; i-- {
		if m.lines[i].answer && m.lines[i-1].role == roleUser {
			m.lines = m.lines[:i-1]
			break
		}
	}
	m.refreshChat()
}

// =============================================================================
// BACKEND CONFIG
// =============================================================================

func (m *Model) applyRemoteConfig(msg remoteConfigMsg) {
	if msg.err != nil {
		m.status = styles.RenderWarning("backend config unavailable")
		m.rt.log.Warn("dashboard", "backend config unavailable", logger.Details{"error": msg.err.Error()})
		return
	}
	if msg.cfg == nil {
		return
	}

	cfg := m.rt.cfg
	if cfg.Backend.SyncRemoteDefaults {
		changed := cfg.ApplyRemote(msg.cfg)
		for _, k := range changed {
			switch k {
			case "search.similarity_threshold":
				m.rt.store.SetThreshold(cfg.Search.SimilarityThreshold)
				m.snap = m.rt.store.Snapshot()
			case "chat.token_limit":
				m.rt.session.SetTokenLimit(cfg.Chat.TokenLimit)
			}
		}
		query := m.params.Query
		m.params = cfg.SearchParams(query)
	}

	m.websites = msg.cfg.Websites
	m.announcements = msg.cfg.Announcements
	if len(m.announcements) > 0 && !msg.hide && cfg.UI.ShowAnnouncements {
		m.showAnnouncements = true
	}
	m.refreshResults()
	m.refreshChat()
}

// =============================================================================
// RUN
// =============================================================================

// Run starts the dashboard in the alternate screen and blocks until the
// user quits or ctx is cancelled.
func Run(ctx context.Context, m Model) error {
	defer m.Close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
