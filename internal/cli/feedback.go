// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// feedback.go - The "feedback" command rates the last completed search.
//
// Examples:
//   ragdash feedback good
//   ragdash feedback bad

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragdash/internal/api"
	"github.com/jeranaias/ragdash/internal/storage"
)

func parseFeedback(s string) (api.FeedbackType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "good", "positive", "up", "+":
		return api.FeedbackPositive, true
	case "bad", "negative", "down", "-":
		return api.FeedbackNegative, true
	}
	return "", false
}

func newFeedbackCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "feedback <good|bad>",
		Short:     "Rate the last completed search",
		Args:      usageArgs(cobra.ExactArgs(1)),
		ValidArgs: []string{"good", "bad"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := parseFeedback(args[0])
			if !ok {
				return usageError("feedback", "expected good or bad, got %q", args[0])
			}
			ctx := cmd.Context()
			db, err := app.Store()
			if err != nil {
				return err
			}
			last, err := db.LastSearch(ctx)
			if errors.Is(err, storage.ErrNotFound) {
				return &CommandError{Command: "feedback", Reason: "no completed search to rate", Err: err, Code: ExitNotFoundError}
			}
			if err != nil {
				return &CommandError{Command: "feedback", Reason: "could not read history", Err: err}
			}

			client, err := app.Client()
			if err != nil {
				return err
			}
			err = client.Feedback(ctx, api.FeedbackRequest{
				FeedbackType: kind,
				Query:        last.Query,
				SearchParams: last.Params,
			})
			if err != nil {
				return &CommandError{Command: "feedback", Reason: "feedback not sent", Err: err}
			}

			if app.JSON {
				return app.printJSON("feedback", map[string]string{"feedback_type": string(kind), "query": last.Query})
			}
			fmt.Fprintln(app.Out, SuccessStyle.Render(fmt.Sprintf("[OK] %s feedback sent for %q", kind, last.Query)))
			return nil
		},
	}
}
