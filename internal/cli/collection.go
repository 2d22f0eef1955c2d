// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// collection.go - Collection maintenance: "upload", "clear-collection" and
// "stats".
//
// Examples:
//   ragdash upload notes.md handbook.pdf --collection docs
//   ragdash upload faq.txt --collection docs_hybrid --chunk-size 500
//   ragdash stats docs
//   ragdash clear-collection docs --yes

package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragdash/internal/api"
	"github.com/jeranaias/ragdash/internal/logger"
)

type uploadOutput struct {
	File   string            `json:"file"`
	Bytes  int64             `json:"bytes"`
	Result *api.UploadResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func newUploadCmd(app *App) *cobra.Command {
	var req api.UploadRequest
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload documents into a collection",
		Long: `Upload files into a backend collection. Mode defaults to Hybrid for
collections whose name contains "hybrid" and Dense otherwise.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.CollectionName == "" {
				return usageError("upload", "--collection is required")
			}
			client, err := app.Client()
			if err != nil {
				return err
			}

			outputs := make([]uploadOutput, 0, len(args))
			var firstErr error
			for _, path := range args {
				o := uploadOutput{File: path}
				if fi, err := os.Stat(path); err == nil {
					o.Bytes = fi.Size()
				}
				r := req
				r.FilePath = path
				res, err := client.Upload(cmd.Context(), r)
				o.Result = res
				if err != nil {
					o.Error = err.Error()
					if firstErr == nil {
						firstErr = err
					}
					app.Logger().Warn("cli", "upload failed", logger.Details{"file": path, "error": o.Error})
				}
				outputs = append(outputs, o)
				if !app.JSON {
					printUpload(app, o, req.CollectionName)
				}
			}

			if app.JSON {
				if err := app.printJSON("upload", outputs); err != nil {
					return err
				}
			}
			if firstErr != nil {
				return &CommandError{Command: "upload", Reason: "one or more uploads failed", Err: firstErr}
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&req.CollectionName, "collection", "", "target collection (required)")
	fl.StringVar(&req.Mode, "mode", "", "Dense or Hybrid")
	fl.IntVar(&req.ChunkSize, "chunk-size", 300, "chunk size, 50-4000")
	fl.StringVar(&req.EmbeddingModel, "embedding-model", "", "embedding model (backend default when empty)")
	return cmd
}

func printUpload(app *App, o uploadOutput, collection string) {
	name := o.File
	if o.Bytes > 0 {
		name += DimStyle.Render(" (" + formatBytes(o.Bytes) + ")")
	}
	if o.Error != "" {
		fmt.Fprintf(app.Out, "%s %s: %s\n", ErrorStyle.Render("[X]"), name, o.Error)
		return
	}
	fmt.Fprintf(app.Out, "%s %s: %s\n", SuccessStyle.Render("[OK]"), name, o.Result.Summary(collection))
}

func newClearCollectionCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear-collection <name>",
		Short: "Delete every document in a collection",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !yes {
				return usageError("clear-collection", "refusing to clear %q without --yes", name)
			}
			client, err := app.Client()
			if err != nil {
				return err
			}
			ack, err := client.ClearCollection(cmd.Context(), name)
			if err != nil {
				return &CommandError{Command: "clear-collection", Reason: "could not clear " + name, Err: err}
			}
			if ack.Error != "" {
				return &CommandError{Command: "clear-collection", Reason: ack.Error, Code: ExitBackendError}
			}
			if app.JSON {
				return app.printJSON("clear-collection", ack)
			}
			msg := ack.Message
			if msg == "" {
				msg = fmt.Sprintf("Collection %q cleared", name)
			}
			fmt.Fprintln(app.Out, SuccessStyle.Render("[OK] "+msg))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")
	return cmd
}

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <collection>",
		Short: "Show backend statistics for a collection",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			stats, err := client.CollectionStats(cmd.Context(), args[0])
			if err != nil {
				return &CommandError{Command: "stats", Reason: "could not read stats for " + args[0], Err: err}
			}
			if app.JSON {
				return app.printJSON("stats", stats)
			}

			fmt.Fprintln(app.Out, TitleStyle.Render("Collection "+args[0]))
			keys := make([]string, 0, len(stats))
			for k := range stats {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(app.Out, "  %s%v\n", RenderLabel(k+":"), stats[k])
			}
			return nil
		},
	}
}
