// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - The "history" command: searches kept in the local store.
//
// Examples:
//   ragdash history
//   ragdash history --limit 50
//   ragdash history --clear

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragdash/internal/util"
)

type historyEntry struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	State     string    `json:"state"`
	Error     string    `json:"error,omitempty"`
	Results   int       `json:"results"`
	ElapsedMS int64     `json:"elapsed_ms"`
	CreatedAt time.Time `json:"created_at"`
}

func newHistoryCmd(app *App) *cobra.Command {
	var (
		limit int
		clear bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent searches",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := app.Store()
			if err != nil {
				return err
			}

			if clear {
				if err := db.ClearHistory(ctx); err != nil {
					return &CommandError{Command: "history", Reason: "could not clear history", Err: err}
				}
				if app.JSON {
					return app.printJSON("history", map[string]bool{"cleared": true})
				}
				fmt.Fprintln(app.Out, SuccessStyle.Render("[OK] Search history cleared"))
				return nil
			}

			records, err := db.RecentSearches(ctx, limit)
			if err != nil {
				return &CommandError{Command: "history", Reason: "could not read history", Err: err}
			}
			if app.JSON {
				entries := make([]historyEntry, 0, len(records))
				for _, r := range records {
					entries = append(entries, historyEntry{
						ID:        r.ID,
						Query:     r.Query,
						State:     r.State,
						Error:     r.Error,
						Results:   r.ResultCount,
						ElapsedMS: r.Elapsed.Milliseconds(),
						CreatedAt: r.CreatedAt,
					})
				}
				return app.printJSON("history", entries)
			}

			if len(records) == 0 {
				fmt.Fprintln(app.Out, DimStyle.Render("No searches yet."))
				return nil
			}
			now := time.Now()
			queryW := TerminalWidth(app.Out) - 32
			if queryW < 20 {
				queryW = 20
			}
			for _, r := range records {
				state := SuccessStyle.Render(fmt.Sprintf("%-8s", r.State))
				if r.Error != "" {
					state = ErrorStyle.Render(fmt.Sprintf("%-8s", r.State))
				}
				fmt.Fprintf(app.Out, "%s  %s  %3d  %6s  %s\n",
					DimStyle.Render(fmt.Sprintf("%8s", formatAge(r.CreatedAt, now))),
					state,
					r.ResultCount,
					formatDurationShort(r.Elapsed),
					util.TruncateWidth(r.Query, queryW))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of searches to list (0 for all)")
	cmd.Flags().BoolVar(&clear, "clear", false, "delete the whole history")
	return cmd
}
