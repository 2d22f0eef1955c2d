// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// clear.go - The "clear" command resets the backend's chat memory.
//
// Examples:
//   ragdash clear            Forget the whole conversation
//   ragdash clear --last     Forget only the last exchange

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd(app *App) *cobra.Command {
	var last bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the backend's chat history",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			what := "chat history"
			if last {
				what = "last chat turn"
				err = client.ClearLastLLMTurn(cmd.Context())
			} else {
				err = client.ClearLLMHistory(cmd.Context())
			}
			if err != nil {
				return &CommandError{Command: "clear", Reason: "could not clear " + what, Err: err}
			}
			if app.JSON {
				return app.printJSON("clear", map[string]string{"cleared": what})
			}
			fmt.Fprintln(app.Out, SuccessStyle.Render("[OK] Cleared "+what))
			return nil
		},
	}
	cmd.Flags().BoolVar(&last, "last", false, "only remove the last exchange")
	return cmd
}
