// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragdash/internal/logger"
	"github.com/jeranaias/ragdash/internal/ui/dashboard"
)

// annotationNoConfig marks commands that run without loading the
// configuration (and therefore without a log file).
const annotationNoConfig = "ragdash/no-config"

// NewRootCmd builds the command tree for app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "ragdash",
		Short: "Terminal client for a RAG search backend",
		Long: `ragdash searches a retrieval-augmented-generation backend, shows the
streamed results and AI summary, and chats about the results that pass
the similarity threshold.

Run without arguments to open the dashboard.`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd.Context(), app)
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[annotationNoConfig] != "" {
				return nil
			}
			return app.initLogger(cmd.HasParent())
		},
	}
	root.SetOut(app.Out)
	root.SetErr(app.Err)
	root.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &CommandError{Command: c.Name(), Reason: "invalid flags", Err: err, Code: ExitUsageError}
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&app.ConfigPath, "config", "c", "", "config file (default ~/.ragdash/config.toml)")
	pf.StringVar(&app.BackendURL, "backend", "", "backend URL (overrides backend.url)")
	pf.BoolVar(&app.JSON, "json", false, "print JSON")
	pf.BoolVarP(&app.Verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(
		newSearchCmd(app),
		newChatCmd(app),
		newFeedbackCmd(app),
		newClearCmd(app),
		newSourcesCmd(app),
		newAnnouncementsCmd(app),
		newHistoryCmd(app),
		newConfigCmd(app),
		newUploadCmd(app),
		newClearCollectionCmd(app),
		newStatsCmd(app),
		newVersionCmd(app),
	)
	return root
}

// usageArgs turns positional-argument failures into usage errors.
func usageArgs(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := v(cmd, args); err != nil {
			return &CommandError{Command: cmd.Name(), Reason: "invalid arguments", Err: err, Code: ExitUsageError}
		}
		return nil
	}
}

// Main runs the command line and returns the process exit code.
func Main(ctx context.Context, args []string) int {
	return NewApp().Run(ctx, args)
}

// Run executes args against app and returns the exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	root := NewRootCmd(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if cerr := a.Close(); cerr != nil && err == nil {
		a.Logger().Warn("cli", "close failed", logger.Details{"error": cerr.Error()})
	}
	if err != nil {
		w := a.Err
		if a.JSON {
			w = a.Out
		}
		DisplayError(w, err, a.JSON)
		return GetExitCode(err)
	}
	return ExitSuccess
}

func runDashboard(ctx context.Context, app *App) error {
	if err := RequiresTTY("open the dashboard"); err != nil {
		return &CommandError{Command: "ragdash", Reason: "dashboard unavailable", Err: err, Code: ExitUsageError}
	}
	cfg, err := app.Config()
	if err != nil {
		return err
	}
	client, err := app.Client()
	if err != nil {
		return err
	}

	deps := dashboard.Deps{Backend: client, Config: cfg, Logger: app.Logger()}
	if db := app.optionalStore(); db != nil {
		deps.Prefs = db
	}
	return dashboard.Run(ctx, dashboard.New(deps))
}
