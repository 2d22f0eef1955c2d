// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sources.go - The "sources" and "announcements" commands. Both read the
// backend's GET /api/config.
//
// Examples:
//   ragdash sources
//   ragdash announcements
//   ragdash announcements --hide     Stop showing them in the dashboard
//   ragdash announcements --show

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragdash/internal/api"
	"github.com/jeranaias/ragdash/internal/util"
)

func newSourcesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "sources",
		Aliases: []string{"websites"},
		Short:   "List the websites indexed by the backend",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			remote, err := fetchRemote(cmd, app)
			if err != nil {
				return err
			}
			return printSources(app, remote.Websites)
		},
	}
}

func fetchRemote(cmd *cobra.Command, app *App) (*api.RemoteConfig, error) {
	client, err := app.Client()
	if err != nil {
		return nil, err
	}
	remote, err := client.Config(cmd.Context())
	if err != nil {
		return nil, &CommandError{Command: cmd.Name(), Reason: "backend config unavailable", Err: err}
	}
	return remote, nil
}

func printSources(app *App, sites []api.Website) error {
	if app.JSON {
		if sites == nil {
			sites = []api.Website{}
		}
		return app.printJSON("sources", sites)
	}
	if len(sites) == 0 {
		fmt.Fprintln(app.Out, DimStyle.Render("The backend lists no sources."))
		return nil
	}

	width := TerminalWidth(app.Out)
	titleW := 28
	urlW := width - titleW - 24
	if urlW < 20 {
		urlW = 20
	}
	fmt.Fprintln(app.Out, TitleStyle.Render(fmt.Sprintf("Sources (%d)", len(sites))))
	fmt.Fprintf(app.Out, "%s  %s  %-10s  %s\n",
		util.FitWidth("TITLE", titleW), util.FitWidth("URL", urlW), "UPDATED", "COUNT")
	fmt.Fprintln(app.Out, RenderSeparator(titleW+urlW+24))
	for _, s := range sites {
		updated := s.UpdateDate
		if updated == "" {
			updated = "-"
		}
		fmt.Fprintf(app.Out, "%s  %s  %-10s  %d\n",
			util.FitWidth(s.Title, titleW),
			LinkStyle.Render(util.FitWidth(s.URL, urlW)),
			util.TruncateWidth(updated, 10),
			s.UpdateCount)
	}
	return nil
}

// =============================================================================
// ANNOUNCEMENTS
// =============================================================================

func newAnnouncementsCmd(app *App) *cobra.Command {
	var hide, show bool
	cmd := &cobra.Command{
		Use:     "announcements",
		Aliases: []string{"news"},
		Short:   "Show backend announcements",
		Long: `Show the announcements the dashboard displays at startup.
--hide stops the dashboard from showing them; --show turns them back on.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if hide && show {
				return usageError("announcements", "--hide and --show are mutually exclusive")
			}
			if hide || show {
				return setHideAnnouncements(cmd, app, hide)
			}
			remote, err := fetchRemote(cmd, app)
			if err != nil {
				return err
			}
			return printAnnouncements(app, remote.Announcements)
		},
	}
	cmd.Flags().BoolVar(&hide, "hide", false, "don't show announcements in the dashboard")
	cmd.Flags().BoolVar(&show, "show", false, "show announcements in the dashboard again")
	return cmd
}

func setHideAnnouncements(cmd *cobra.Command, app *App, hide bool) error {
	db, err := app.Store()
	if err != nil {
		return err
	}
	if err := db.SetHideAnnouncements(cmd.Context(), hide); err != nil {
		return &CommandError{Command: "announcements", Reason: "could not save preference", Err: err}
	}
	if app.JSON {
		return app.printJSON("announcements", map[string]bool{"hidden": hide})
	}
	msg := "[OK] Announcements will be shown at startup"
	if hide {
		msg = "[OK] Announcements hidden"
	}
	fmt.Fprintln(app.Out, SuccessStyle.Render(msg))
	return nil
}

func printAnnouncements(app *App, items []api.Announcement) error {
	if app.JSON {
		if items == nil {
			items = []api.Announcement{}
		}
		return app.printJSON("announcements", items)
	}
	if len(items) == 0 {
		fmt.Fprintln(app.Out, DimStyle.Render("No announcements."))
		return nil
	}

	cfg, err := app.Config()
	if err != nil {
		return err
	}
	pr := newPresenter(app.Out, cfg)
	for i, a := range items {
		if i > 0 {
			fmt.Fprintln(app.Out, RenderSeparator(pr.width))
		}
		var b strings.Builder
		if a.MainTitle != "" {
			b.WriteString("## " + a.MainTitle + "\n\n")
		}
		if a.Title != "" {
			b.WriteString("**" + a.Title + "**\n\n")
		}
		b.WriteString(string(a.Content))
		fmt.Fprintln(app.Out, pr.renderMarkdown(b.String()))
	}
	return nil
}
