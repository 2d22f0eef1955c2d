// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"context"
	"errors"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragdash/internal/api"
	"github.com/jeranaias/ragdash/internal/chat"
	"github.com/jeranaias/ragdash/internal/export"
	"github.com/jeranaias/ragdash/internal/logger"
	"github.com/jeranaias/ragdash/internal/search"
	"github.com/jeranaias/ragdash/internal/storage"
)

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// searchCmd runs one search to completion and records it.
func (rt *runtime) searchCmd(p search.Params) tea.Cmd {
	ctx, cancel := rt.beginSearch()
	keep := rt.cfg.Storage.HistoryLimit
	return func() tea.Msg {
		defer cancel()
		out := rt.orch.Search(ctx, p)
		rt.record(out, keep)
		return searchDoneMsg{out: out}
	}
}

// record stores finished, non-superseded searches. Local validation
// failures never reached the backend and cancelled searches were
// replaced or abandoned by the user; neither is kept.
func (rt *runtime) record(out search.Outcome, keep int) {
	if rt.prefs == nil || out.Superseded || search.IsValidation(out.Err) || errors.Is(out.Err, context.Canceled) {
		return
	}
	ctx, cancel := rt.requestContext()
	defer cancel()

	if _, err := rt.prefs.RecordSearch(ctx, storage.RecordFromOutcome(out)); err != nil {
		rt.log.Warn("dashboard", "could not record search", logger.Details{"error": err.Error()})
		return
	}
	if keep > 0 {
		if _, err := rt.prefs.PruneHistory(ctx, keep); err != nil {
			rt.log.Warn("dashboard", "could not prune history", logger.Details{"error": err.Error()})
		}
	}
}

// chatCmd sends one chat turn.
func (rt *runtime) chatCmd(message string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := rt.requestContext()
		defer cancel()
		return chatReplyMsg{message: message, reply: rt.session.Send(ctx, message)}
	}
}

// suggestionsCmd fetches the opening chat suggestions.
func (rt *runtime) suggestionsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := rt.requestContext()
		defer cancel()
		items := rt.session.InitialSuggestions(ctx)
		if len(items) == 0 {
			items = chat.DefaultSuggestions
		}
		return suggestionsMsg{items: items}
	}
}

// clearChatCmd clears the conversation, or only the last exchange.
func (rt *runtime) clearChatCmd(undo bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := rt.requestContext()
		defer cancel()
		if undo {
			dropped, err := rt.session.UndoLast(ctx)
			return chatClearedMsg{undo: true, dropped: dropped, err: err}
		}
		return chatClearedMsg{err: rt.session.Clear(ctx)}
	}
}

// remoteConfigCmd loads backend defaults and the announcement preference.
func (rt *runtime) remoteConfigCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := rt.requestContext()
		defer cancel()

		msg := remoteConfigMsg{}
		msg.cfg, msg.err = rt.backend.Config(ctx)
		if rt.prefs != nil {
			hide, err := rt.prefs.HideAnnouncements(ctx)
			if err != nil {
				rt.log.Warn("dashboard", "could not read prefs", logger.Details{"error": err.Error()})
			}
			msg.hide = hide
		}
		return msg
	}
}

// feedbackCmd rates the last search.
func (rt *runtime) feedbackCmd(kind api.FeedbackType, p search.Params) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := rt.requestContext()
		defer cancel()
		err := rt.backend.Feedback(ctx, api.FeedbackRequest{
			FeedbackType: kind,
			Query:        p.Query,
			SearchParams: api.NewSearchRequest(p),
		})
		return feedbackDoneMsg{kind: kind, err: err}
	}
}

// hideAnnouncementsCmd persists the "don't show again" choice.
func (rt *runtime) hideAnnouncementsCmd() tea.Cmd {
	return func() tea.Msg {
		if rt.prefs == nil {
			return prefSavedMsg{}
		}
		ctx, cancel := rt.requestContext()
		defer cancel()
		return prefSavedMsg{err: rt.prefs.SetHideAnnouncements(ctx, true)}
	}
}

// copyCmd puts text on the system clipboard.
func copyCmd(what, text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{what: what, chars: len([]rune(text)), err: clipboard.WriteAll(text)}
	}
}

// exportCmd writes the transcript under the export directory.
func (rt *runtime) exportCmd(t *export.Transcript) tea.Cmd {
	dir := rt.exportDir
	return func() tea.Msg {
		path, err := export.WriteFile(t, dir, "")
		if err != nil {
			rt.log.Warn("dashboard", "export failed", logger.Details{"error": err.Error()})
		}
		return exportedMsg{path: path, err: err}
	}
}
