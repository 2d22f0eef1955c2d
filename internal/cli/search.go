// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// search.go - The "search" command.
//
// Examples:
//   ragdash search "copilot price"
//   ragdash search "copilot price" --limit 10 --threshold 60 --all
//   ragdash search "copilot price" --site docs.example.com --since 2024-01-01
//   ragdash search "copilot price" --collection
//   ragdash search "copilot price" --raw | jq .
//   ragdash search "copilot price" -o report.md

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragdash/internal/api"
	"github.com/jeranaias/ragdash/internal/chat"
	"github.com/jeranaias/ragdash/internal/citation"
	"github.com/jeranaias/ragdash/internal/config"
	"github.com/jeranaias/ragdash/internal/export"
	"github.com/jeranaias/ragdash/internal/logger"
	"github.com/jeranaias/ragdash/internal/ndjson"
	"github.com/jeranaias/ragdash/internal/search"
	"github.com/jeranaias/ragdash/internal/storage"
	"github.com/jeranaias/ragdash/internal/ui/render"
)

type searchFlags struct {
	limit       int
	ratio       float64
	threshold   int
	noLLM       bool
	manualRatio bool
	noRerank    bool
	since       string
	until       string
	sites       []string
	collection  bool
	raw         bool
	all         bool
	export      string
}

func newSearchCmd(app *App) *cobra.Command {
	f := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the backend and print results and the AI summary",
		Long: `Stream one search from the backend. Stage messages go to stderr;
results at or above the similarity threshold and the AI summary go to
stdout.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, app, f, strings.Join(args, " "))
		},
	}
	fl := cmd.Flags()
	fl.IntVarP(&f.limit, "limit", "n", 0, "maximum results (default from config)")
	fl.Float64Var(&f.ratio, "semantic-ratio", 0, "semantic vs keyword weight, 0-1")
	fl.IntVarP(&f.threshold, "threshold", "t", 0, "similarity threshold percent, 0-100")
	fl.BoolVar(&f.noLLM, "no-llm", false, "skip the AI summary")
	fl.BoolVar(&f.manualRatio, "manual-ratio", false, "use --semantic-ratio as given instead of letting the backend choose")
	fl.BoolVar(&f.noRerank, "no-rerank", false, "disable keyword-weight reranking")
	fl.StringVar(&f.since, "since", "", "only results on or after this date (YYYY-MM-DD)")
	fl.StringVar(&f.until, "until", "", "only results on or before this date (YYYY-MM-DD)")
	fl.StringSliceVar(&f.sites, "site", nil, "restrict to these source websites (repeatable)")
	fl.BoolVar(&f.collection, "collection", false, "non-streaming collection search (no summary)")
	fl.BoolVar(&f.raw, "raw", false, "print the raw NDJSON stream")
	fl.BoolVarP(&f.all, "all", "a", false, "also list results below the threshold")
	fl.StringVarP(&f.export, "export", "o", "", "also write results and summary to a file (.md or .json)")
	return cmd
}

// params merges flags that were actually given over the configured
// defaults.
func (f *searchFlags) params(cmd *cobra.Command, cfg *config.Config, query string) search.Params {
	p := cfg.SearchParams(query)
	fl := cmd.Flags()
	if fl.Changed("limit") {
		p.Limit = f.limit
	}
	if fl.Changed("semantic-ratio") {
		p.SemanticRatio = f.ratio
	}
	if fl.Changed("no-llm") {
		p.EnableLLM = !f.noLLM
	}
	if fl.Changed("manual-ratio") {
		p.ManualSemanticRatio = f.manualRatio
	}
	if fl.Changed("no-rerank") {
		p.EnableKeywordWeightRerank = !f.noRerank
	}
	if fl.Changed("since") {
		p.StartDate = f.since
	}
	if fl.Changed("until") {
		p.EndDate = f.until
	}
	if fl.Changed("site") {
		p.SelectedWebsites = f.sites
	}
	return p
}

func (f *searchFlags) thresholdFor(cmd *cobra.Command, cfg *config.Config) int {
	if cmd.Flags().Changed("threshold") {
		return search.ClampThreshold(f.threshold)
	}
	return cfg.Search.SimilarityThreshold
}

func runSearch(cmd *cobra.Command, app *App, f *searchFlags, query string) error {
	ctx := cmd.Context()
	cfg, err := app.Config()
	if err != nil {
		return err
	}
	client, err := app.Client()
	if err != nil {
		return err
	}
	app.syncRemote(ctx, client, cfg)

	p := f.params(cmd, cfg, query)
	threshold := f.thresholdFor(cmd, cfg)

	switch {
	case f.raw:
		return runRawSearch(ctx, app, client, cfg, p)
	case f.collection:
		return runCollectionSearch(ctx, app, client, cfg, p, threshold, f)
	}

	pr := newPresenter(app.Out, cfg)
	stages := newPresenter(app.Err, cfg)
	if app.JSON {
		stages.w = io.Discard
	}

	store := search.NewStore()
	store.SetThreshold(threshold)
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

	out := orch.Search(ctx, p)
	recordSearch(ctx, app, out)
	if out.Err != nil {
		return &searchError{err: out.Err}
	}

	snap := store.Snapshot()
	if f.export != "" {
		if err := exportTranscript(app, f.export, out, snap, nil); err != nil {
			return err
		}
	}
	if app.JSON {
		return app.printJSON("search", newSearchOutput(out, snap, pr.cite))
	}

	pr.printf("%s\n\n", TitleStyle.Render(resultsHeading(query, snap, out.Elapsed)))
	pr.results(snap, f.all)
	pr.outcome(out)
	return nil
}

// exportTranscript writes a search and any chat turns to path. The
// confirmation goes to stderr so stdout stays parseable.
func exportTranscript(app *App, path string, out search.Outcome, snap search.Snapshot, turns []chat.Turn) error {
	written, err := export.WriteFile(export.NewTranscript(out, snap, turns), "", path)
	if err != nil {
		return &CommandError{Command: "export", Reason: "could not export", Err: err}
	}
	app.Logger().Info("cli", "exported transcript", logger.Details{"path": written})
	fmt.Fprintln(app.Err, SuccessStyle.Render("[OK] Exported to "+written))
	return nil
}

func resultsHeading(query string, snap search.Snapshot, elapsed time.Duration) string {
	h := `Results for "` + query + `" (` + itoa(len(snap.Active)) + "/" + itoa(len(snap.All)) +
		" at " + itoa(snap.Threshold) + "%)"
	if elapsed > 0 {
		h += " in " + render.Elapsed(elapsed)
	}
	return h
}

// searchError presents a failed search in the dashboard's wording while
// keeping the typed cause for exit codes.
type searchError struct {
	err error
}

func (e *searchError) Error() string { return render.SearchError(e.err) }
func (e *searchError) Unwrap() error { return e.err }

// recordSearch stores a search in the local history. Searches rejected
// locally never reached the backend and are not kept.
func recordSearch(ctx context.Context, app *App, out search.Outcome) {
	if out.Superseded || search.IsValidation(out.Err) || errors.Is(out.Err, context.Canceled) {
		return
	}
	db := app.optionalStore()
	if db == nil {
		return
	}
	cfg, _ := app.Config()
	if _, err := db.RecordSearch(ctx, storage.RecordFromOutcome(out)); err != nil {
		app.Logger().Warn("cli", "could not record search", logger.Details{"error": err.Error()})
		return
	}
	if cfg != nil && cfg.Storage.HistoryLimit > 0 {
		if _, err := db.PruneHistory(ctx, cfg.Storage.HistoryLimit); err != nil {
			app.Logger().Warn("cli", "could not prune history", logger.Details{"error": err.Error()})
		}
	}
}

// syncRemote merges backend defaults into cfg when enabled. Explicit
// user settings always win; failures only cost the defaults.
func (a *App) syncRemote(ctx context.Context, client *api.Client, cfg *config.Config) *api.RemoteConfig {
	if !cfg.Backend.SyncRemoteDefaults {
		return nil
	}
	remote, err := client.Config(ctx)
	if err != nil {
		a.Logger().Warn("cli", "backend config unavailable", logger.Details{"error": err.Error()})
		return nil
	}
	if changed := cfg.ApplyRemote(remote); len(changed) > 0 {
		a.Logger().Debug("cli", "applied backend defaults", logger.Details{"keys": changed})
	}
	return remote
}

// =============================================================================
// COLLECTION + RAW
// =============================================================================

func runCollectionSearch(ctx context.Context, app *App, client *api.Client, cfg *config.Config, p search.Params, threshold int, f *searchFlags) error {
	if _, err := search.ValidateInput("query", p.Query, cfg.Search.MaxQueryLength); err != nil {
		return err
	}
	start := time.Now()
	res, err := client.CollectionSearch(ctx, p)
	if err != nil {
		return &searchError{err: err}
	}

	store := search.NewStore()
	store.SetThreshold(threshold)
	store.SetResults(res.Results)
	snap := store.Snapshot()
	out := search.Outcome{Params: p, State: search.StateComplete, Results: res.Results, Intent: res.Intent, Elapsed: time.Since(start)}

	if f.export != "" {
		if err := exportTranscript(app, f.export, out, snap, nil); err != nil {
			return err
		}
	}

	pr := newPresenter(app.Out, cfg)
	if app.JSON {
		return app.printJSON("search", newSearchOutput(out, snap, pr.cite))
	}
	pr.printf("%s\n\n", TitleStyle.Render(resultsHeading(p.Query, snap, out.Elapsed)))
	pr.results(snap, f.all)
	if intent := render.Intent(res.Intent); intent != "" {
		pr.printf("\n%s\n", DimStyle.Render(intent))
	}
	return nil
}

// runRawSearch prints each stream record on its own line, highlighted on
// a color terminal.
func runRawSearch(ctx context.Context, app *App, client *api.Client, cfg *config.Config, p search.Params) error {
	query, err := search.ValidateInput("query", p.Query, cfg.Search.MaxQueryLength)
	if err != nil {
		return err
	}
	p.Query = query

	body, err := client.OpenSearchStream(ctx, p)
	if err != nil {
		return &searchError{err: err}
	}
	defer body.Close()

	color := ColorsEnabled() && isTerminalWriter(app.Out)
	reader := ndjson.NewReader(body, cfg.OrchestratorOptions().Stream)
	return reader.Process(ctx, func(raw json.RawMessage) bool {
		if err := writeJSONLine(app.Out, raw, color); err != nil {
			app.Logger().Warn("cli", "could not write record", logger.Details{"error": err.Error()})
			return false
		}
		return true
	})
}

// =============================================================================
// JSON OUTPUT
// =============================================================================

type resultOutput struct {
	Rank   int           `json:"rank"`
	Score  int           `json:"score"`
	Active bool          `json:"active"`
	Result search.Result `json:"result"`
}

type searchOutput struct {
	Query       string            `json:"query"`
	State       string            `json:"state"`
	ElapsedMS   int64             `json:"elapsed_ms"`
	Threshold   int               `json:"threshold"`
	Active      int               `json:"active"`
	Results     []resultOutput    `json:"results"`
	Summary     string            `json:"summary,omitempty"`
	Intent      *search.Intent    `json:"intent,omitempty"`
	LinkMapping map[string]string `json:"link_mapping,omitempty"`
}

func newSearchOutput(out search.Outcome, snap search.Snapshot, cite citation.Formatter) searchOutput {
	o := searchOutput{
		Query:       out.Params.Query,
		State:       out.State.String(),
		ElapsedMS:   out.Elapsed.Milliseconds(),
		Threshold:   snap.Threshold,
		Active:      len(snap.Active),
		Results:     make([]resultOutput, 0, len(snap.All)),
		Intent:      out.Intent,
		LinkMapping: out.LinkMapping,
	}
	for i, r := range snap.All {
		o.Results = append(o.Results, resultOutput{
			Rank:   i + 1,
			Score:  search.ScorePercent(r),
			Active: search.IsActive(r, snap.Threshold),
			Result: r,
		})
	}
	if !out.Summary.IsEmpty() {
		o.Summary = out.Summary.Markdown(out.LinkMapping, cite)
	}
	return o
}
