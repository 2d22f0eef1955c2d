// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

type versionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{annotationNoConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			if app.JSON {
				return app.printJSON("version", info)
			}
			fmt.Fprintf(app.Out, "ragdash %s\n", info.Version)
			fmt.Fprintf(app.Out, "  %s%s\n", RenderLabel("Git commit:"), info.GitCommit)
			fmt.Fprintf(app.Out, "  %s%s\n", RenderLabel("Build date:"), info.BuildDate)
			fmt.Fprintf(app.Out, "  %s%s\n", RenderLabel("Go version:"), info.GoVersion)
			fmt.Fprintf(app.Out, "  %s%s\n", RenderLabel("Platform:"), info.Platform)
			return nil
		},
	}
}
