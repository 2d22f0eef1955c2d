// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"github.com/jeranaias/ragdash/internal/api"
	"github.com/jeranaias/ragdash/internal/chat"
	"github.com/jeranaias/ragdash/internal/search"
)

// =============================================================================
// SEARCH MESSAGES
// =============================================================================

// searchStateMsg reports an orchestrator state change.
type searchStateMsg struct {
	gen   uint64
	state search.State
}

// stageMsg carries an intermediate stream stage.
type stageMsg struct {
	gen      uint64
	stage    search.Stage
	text     string
	newQuery string
}

// searchDoneMsg is the return value of the search command.
type searchDoneMsg struct {
	out search.Outcome
}

// resultsMsg is sent by the store observer.
type resultsMsg struct {
	snap search.Snapshot
}

// =============================================================================
// CHAT MESSAGES
// =============================================================================

type chatReplyMsg struct {
	message string
	reply   chat.Reply
}

type suggestionsMsg struct {
	items []string
}

type chatClearedMsg struct {
	undo    bool
	dropped bool
	err     error
}

// =============================================================================
// BACKEND + PREFS
// =============================================================================

type remoteConfigMsg struct {
	cfg  *api.RemoteConfig
	hide bool
	err  error
}

type feedbackDoneMsg struct {
	kind api.FeedbackType
	err  error
}

type prefSavedMsg struct {
	err error
}

type copiedMsg struct {
	what  string
	chars int
	err   error
}

type exportedMsg struct {
	path string
	err  error
}
