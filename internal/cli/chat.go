// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - The interactive "chat" command.
//
// Examples:
//   ragdash chat                        Start chatting (search with /search)
//   ragdash chat "copilot price"        Search first, then chat
//   printf '/search x\nhow much?\n' | ragdash chat
//
// Interactive Commands (during chat):
//   /search, /s <query>   Run a search; chat uses its active results
//   /threshold, /t [N]    Show or set the similarity threshold
//   /results, /r          List the current results
//   /clear, /c            Clear the conversation
//   /undo, /u             Drop the last exchange
//   /tokens               Show token usage
//   /help, /h             Show available commands
//   /quit, /q             Exit chat
//   1-5                   Ask a numbered suggestion
//   Ctrl+D                Exit chat

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ragdash/internal/api"
	"github.com/jeranaias/ragdash/internal/chat"
	"github.com/jeranaias/ragdash/internal/config"
	"github.com/jeranaias/ragdash/internal/search"
	"github.com/jeranaias/ragdash/internal/ui/render"
)

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line of user input.
type lineReader interface {
	ReadInput(prompt string) (string, error)
	Close()
}

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor whose history lives in historyFile.
func NewChatCLI(historyFile string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{line: line, historyFile: historyFile}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history (owner read/write only).
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// scannerInput reads plain lines from a pipe.
type scannerInput struct {
	sc *bufio.Scanner
}

func (s *scannerInput) ReadInput(string) (string, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.sc.Text(), nil
}

func (s *scannerInput) Close() {}

func (a *App) lineReader() lineReader {
	if f, ok := a.In.(*os.File); ok && f == os.Stdin && IsTTY() {
		dir, err := config.ConfigDir()
		if err != nil {
			dir = os.TempDir()
		}
		return NewChatCLI(filepath.Join(dir, "chat_history"))
	}
	return &scannerInput{sc: bufio.NewScanner(a.In)}
}

// =============================================================================
// COMMAND
// =============================================================================

func newChatCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [query]",
		Short: "Chat about search results",
		Long: `Start an interactive chat grounded in search results. The chat only
uses results at or above the similarity threshold. Start with a query
argument or run /search inside the chat.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), app, strings.Join(args, " "))
		},
	}
}

// chatREPL is one interactive chat session.
type chatREPL struct {
	app     *App
	cfg     *config.Config
	store   *search.Store
	orch    *search.Orchestrator
	session *chat.Session
	out     *presenter

	suggestions []string
	last        search.Outcome
}

func newChatREPL(app *App, client *api.Client, cfg *config.Config) *chatREPL {
	out := newPresenter(app.Out, cfg)
	stages := newPresenter(app.Err, cfg)

	store := search.NewStore()
	store.SetThreshold(cfg.Search.SimilarityThreshold)
	hooks := search.Hooks{
		OnSearching: stages.stage,
		OnChecking:  stages.stage,
		OnRewriting: func(text, newQuery string) {
			if newQuery != "" {
				text += " → " + newQuery
			}
			stages.stage(text)
		},
		OnRetrying:    stages.stage,
		OnSummarizing: stages.stage,
	}
	orch := search.NewOrchestrator(client, store, hooks, cfg.OrchestratorOptions())
	orch.SetLogger(app.Logger())

	chatCfg := cfg.ChatSessionConfig()
	chatCfg.Citations = out.cite

	return &chatREPL{
		app:     app,
		cfg:     cfg,
		store:   store,
		orch:    orch,
		session: chat.NewSession(client, store, chatCfg),
		out:     out,
	}
}

func runChat(ctx context.Context, app *App, query string) error {
	cfg, err := app.Config()
	if err != nil {
		return err
	}
	client, err := app.Client()
	if err != nil {
		return err
	}
	app.syncRemote(ctx, client, cfg)

	r := newChatREPL(app, client, cfg)
	in := app.lineReader()
	defer in.Close()

	r.printWelcome(ctx)
	if query != "" {
		r.search(ctx, query)
	}

	for {
		line, err := in.ReadInput(PromptStyle.Render("› "))
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			r.out.printf("\n")
			return nil
		}
		if err != nil {
			return &CommandError{Command: "chat", Reason: "could not read input", Err: err}
		}
		if ctx.Err() != nil {
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := r.handleSlash(ctx, line); quit {
				return nil
			}
			continue
		}
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(r.suggestions) {
			line = r.suggestions[n-1]
			r.out.printf("%s\n", DimStyle.Render("› "+line))
		}
		r.send(ctx, line)
	}
}

// =============================================================================
// ACTIONS
// =============================================================================

func (r *chatREPL) printWelcome(ctx context.Context) {
	r.out.printf("%s\n", TitleStyle.Render("ragdash chat"))
	r.out.printf("%s\n", DimStyle.Render("Backend: "+r.cfg.Backend.URL+"   /help for commands, Ctrl+D to exit"))
	r.out.printf("\n%s\n", r.out.renderMarkdown(chat.MsgWelcome))

	r.suggestions = r.session.InitialSuggestions(ctx)
	if len(r.suggestions) == 0 {
		r.suggestions = chat.DefaultSuggestions
	}
	r.printSuggestions()
}

func (r *chatREPL) printSuggestions() {
	for i, s := range r.suggestions {
		if i >= 5 {
			break
		}
		r.out.printf("  %s %s\n", DimStyle.Render(strconv.Itoa(i+1)+"."), s)
	}
}

func (r *chatREPL) search(ctx context.Context, query string) {
	p := r.cfg.SearchParams(query)
	out := r.orch.Search(ctx, p)
	recordSearch(ctx, r.app, out)
	if out.Err != nil {
		r.out.printf("%s\n", ErrorStyle.Render(render.SearchError(out.Err)))
		return
	}
	r.last = out
	snap := r.store.Snapshot()
	r.out.printf("%s\n\n", TitleStyle.Render(resultsHeading(query, snap, out.Elapsed)))
	r.out.results(snap, false)
	r.out.outcome(out)
	r.out.printf("\n%s\n", DimStyle.Render("chat "+chat.HeaderStatus(snap)))
}

func (r *chatREPL) send(ctx context.Context, text string) {
	reply := r.session.Send(ctx, text)
	msg := reply.Text
	if msg == "" && reply.Err != nil {
		msg = reply.Err.Error()
	}

	switch reply.Kind {
	case chat.ReplyAnswer:
		r.out.printf("%s\n", r.out.renderMarkdown(msg))
		for _, s := range reply.Sources {
			r.out.printf("%s\n", DimStyle.Render("  ↳ "+s.Title+"  "+s.Link))
		}
	case chat.ReplySearchFirst, chat.ReplyFiltered:
		r.out.printf("%s\n", WarningStyle.Render(stripEmphasis(msg)))
	default:
		r.out.printf("%s\n", ErrorStyle.Render(stripEmphasis(msg)))
	}

	if len(reply.Suggestions) > 0 {
		r.suggestions = reply.Suggestions
		r.printSuggestions()
	}
	if reply.Sent {
		r.out.printf("%s\n", DimStyle.Render(r.tokenLine()))
	}
}

func (r *chatREPL) tokenLine() string {
	if limit := r.session.TokenLimit(); limit > 0 {
		return fmt.Sprintf("tokens %d / %d", r.session.Tokens(), limit)
	}
	return fmt.Sprintf("tokens %d", r.session.Tokens())
}

// handleSlash runs one slash command and reports whether to exit.
func (r *chatREPL) handleSlash(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	name, rest := fields[0], strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch name {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h":
		r.printHelp()

	case "/search", "/s":
		if rest == "" {
			r.out.printf("%s\n", WarningStyle.Render("usage: /search <query>"))
			return false
		}
		r.search(ctx, rest)

	case "/threshold", "/t":
		if rest != "" {
			n, err := strconv.Atoi(strings.TrimSuffix(rest, "%"))
			if err != nil {
				r.out.printf("%s\n", WarningStyle.Render("usage: /threshold <0-100>"))
				return false
			}
			r.store.SetThreshold(n)
		}
		snap := r.store.Snapshot()
		r.out.printf("threshold %d%%  %s\n", snap.Threshold, chat.HeaderStatus(snap))

	case "/results", "/r":
		r.out.results(r.store.Snapshot(), true)

	case "/clear", "/c":
		if err := r.session.Clear(ctx); err != nil {
			r.out.printf("%s\n", WarningStyle.Render("backend history: "+err.Error()))
		}
		r.out.printf("%s\n", SuccessStyle.Render("conversation cleared"))

	case "/undo", "/u":
		dropped, err := r.session.UndoLast(ctx)
		switch {
		case !dropped:
			r.out.printf("%s\n", WarningStyle.Render("nothing to undo"))
		case err != nil:
			r.out.printf("%s\n", WarningStyle.Render("backend history: "+err.Error()))
		default:
			r.out.printf("%s\n", SuccessStyle.Render("last exchange removed"))
		}

	case "/tokens":
		r.out.printf("%s\n", r.tokenLine())

	case "/export", "/e":
		if err := exportTranscript(r.app, rest, r.last, r.store.Snapshot(), r.session.History().Turns()); err != nil {
			r.out.printf("%s\n", WarningStyle.Render(err.Error()))
		}

	default:
		r.out.printf("%s\n", WarningStyle.Render("unknown command "+name+" (try /help)"))
	}
	return false
}

func (r *chatREPL) printHelp() {
	cmds := [][2]string{
		{"/search <query>", "run a search; chat uses its active results"},
		{"/threshold [N]", "show or set the similarity threshold"},
		{"/results", "list the current results"},
		{"/clear", "clear the conversation"},
		{"/undo", "drop the last exchange"},
		{"/tokens", "show token usage"},
		{"/export [file]", "save results, summary and chat (.md or .json)"},
		{"/quit", "exit"},
		{"1-5", "ask a numbered suggestion"},
	}
	for _, c := range cmds {
		r.out.printf("  %s %s\n", RenderLabel(c[0]), c[1])
	}
}

// stripEmphasis drops markdown bold markers from fixed messages printed
// without the markdown renderer.
func stripEmphasis(s string) string {
	return strings.ReplaceAll(s, "**", "")
}
