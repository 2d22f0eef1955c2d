// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - The "config" command.
//
// Subcommands:
//   show (default)        Display the effective configuration
//   get <key>             Print one value
//   set <key> <value>     Write one value to the config file
//   reset                 Replace the config file with defaults
//   keys                  List settable keys
//   path                  Show config, log and database locations
//   watch                 Report every reload of the config file
//
// Examples:
//   ragdash config
//   ragdash config get search.similarity_threshold
//   ragdash config set backend.url http://rag.internal:8000
//   ragdash config set search.selected_websites docs.example.com,blog.example.com
//   ragdash config show --json

package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragdash/internal/config"
)

// noConfig marks subcommands that must work while the config file is
// invalid, so it can be repaired.
var noConfig = map[string]string{annotationNoConfig: "true"}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(app)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Display the effective configuration",
			Args:  usageArgs(cobra.NoArgs),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigShow(app)
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one configuration value",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigGet(app, args[0])
			},
		},
		&cobra.Command{
			Use:         "set <key> <value>",
			Short:       "Write one value to the config file",
			Args:        usageArgs(cobra.ExactArgs(2)),
			Annotations: noConfig,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigSet(app, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:         "reset",
			Short:       "Replace the config file with defaults",
			Args:        usageArgs(cobra.NoArgs),
			Annotations: noConfig,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigReset(app)
			},
		},
		&cobra.Command{
			Use:         "keys",
			Short:       "List settable keys",
			Args:        usageArgs(cobra.NoArgs),
			Annotations: noConfig,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigKeys(app)
			},
		},
		&cobra.Command{
			Use:         "path",
			Short:       "Show config, log and database locations",
			Args:        usageArgs(cobra.NoArgs),
			Annotations: noConfig,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigPath(app)
			},
		},
		&cobra.Command{
			Use:   "watch",
			Short: "Report every reload of the config file until interrupted",
			Args:  usageArgs(cobra.NoArgs),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigWatch(cmd, app)
			},
		},
	)
	return cmd
}

// configFile is the file config commands read and write.
func (a *App) configFile() (string, error) {
	if a.ConfigPath != "" {
		return a.ConfigPath, nil
	}
	path, err := config.ConfigPath()
	if err != nil {
		return "", &CommandError{Command: "config", Reason: "no config location", Err: err, Code: ExitConfigError}
	}
	return path, nil
}

// =============================================================================
// SHOW / GET / KEYS
// =============================================================================

func runConfigShow(app *App) error {
	cfg, err := app.Config()
	if err != nil {
		return err
	}
	if app.JSON {
		return app.printJSON("config show", cfg)
	}

	path, _ := app.configFile()
	fmt.Fprintln(app.Out, TitleStyle.Render("ragdash configuration"))
	fmt.Fprintln(app.Out, RenderSeparator(0))

	section := ""
	for _, key := range config.Keys() {
		sec, name := splitKey(key)
		if sec != section {
			if section != "" {
				fmt.Fprintln(app.Out)
			}
			fmt.Fprintln(app.Out, LabelStyle.UnsetWidth().Bold(true).Render("["+sec+"]"))
			section = sec
		}
		v, _ := cfg.Get(key)
		line := "  " + RenderLabel(name) + formatValue(v)
		if cfg.IsExplicit(key) {
			line += DimStyle.Render("  (set)")
		}
		fmt.Fprintln(app.Out, line)
	}
	fmt.Fprintln(app.Out, RenderSeparator(0))
	fmt.Fprintf(app.Out, "Config file: %s\n", path)
	return nil
}

func runConfigGet(app *App, key string) error {
	cfg, err := app.Config()
	if err != nil {
		return err
	}
	v, err := cfg.Get(key)
	if err != nil {
		return usageError("config get", "%v", err)
	}
	if app.JSON {
		return app.printJSON("config get", map[string]interface{}{"key": key, "value": v, "explicit": cfg.IsExplicit(key)})
	}
	fmt.Fprintln(app.Out, formatValue(v))
	return nil
}

func runConfigKeys(app *App) error {
	keys := config.Keys()
	if app.JSON {
		return app.printJSON("config keys", keys)
	}
	for _, k := range keys {
		fmt.Fprintln(app.Out, k)
	}
	return nil
}

func splitKey(key string) (section, name string) {
	if i := strings.Index(key, "."); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "general", key
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case string:
		if x == "" {
			return DimStyle.Render("(not set)")
		}
		return x
	case []string:
		if len(x) == 0 {
			return DimStyle.Render("(none)")
		}
		return strings.Join(x, ",")
	default:
		return fmt.Sprint(v)
	}
}

// =============================================================================
// SET / RESET
// =============================================================================

// runConfigSet edits the file alone so environment and --backend
// overrides are never written back.
func runConfigSet(app *App, key, value string) error {
	path, err := app.configFile()
	if err != nil {
		return err
	}
	cfg, err := config.ReadFile(path)
	if err != nil {
		return &CommandError{Command: "config set", Reason: "could not read config file", Err: err, Code: ExitConfigError}
	}
	if err := cfg.Set(key, value); err != nil {
		return usageError("config set", "%v", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return &CommandError{Command: "config set", Reason: "value rejected", Err: err, Code: ExitConfigError}
	}
	if err := config.SaveTo(cfg, path); err != nil {
		return &CommandError{Command: "config set", Reason: "could not save config", Err: err, Code: ExitGeneralError}
	}

	v, _ := cfg.Get(key)
	if app.JSON {
		return app.printJSON("config set", map[string]interface{}{"key": key, "value": v, "path": path})
	}
	fmt.Fprintln(app.Out, SuccessStyle.Render(fmt.Sprintf("[OK] %s = %s", key, formatValue(v))))
	return nil
}

func runConfigReset(app *App) error {
	path, err := app.configFile()
	if err != nil {
		return err
	}
	if err := config.SaveTo(config.Default(), path); err != nil {
		return &CommandError{Command: "config reset", Reason: "could not save config", Err: err, Code: ExitGeneralError}
	}
	if app.JSON {
		return app.printJSON("config reset", map[string]string{"path": path})
	}
	fmt.Fprintln(app.Out, SuccessStyle.Render("[OK] Configuration reset to defaults"))
	fmt.Fprintf(app.Out, "Config file: %s\n", path)
	return nil
}

// =============================================================================
// PATH / WATCH
// =============================================================================

func runConfigPath(app *App) error {
	path, err := app.configFile()
	if err != nil {
		return err
	}
	_, statErr := os.Stat(path)
	exists := statErr == nil

	paths := map[string]string{"config": path}
	if cfg, err := app.Config(); err == nil {
		paths["log"] = cfg.LogPath()
		paths["database"] = cfg.StoragePath()
	}

	if app.JSON {
		return app.printJSON("config path", map[string]interface{}{"paths": paths, "exists": exists})
	}
	names := make([]string, 0, len(paths))
	for k := range paths {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(app.Out, "%s%s\n", RenderLabel(k), paths[k])
	}
	if !exists {
		fmt.Fprintln(app.Err, WarningStyle.Render("Note: config file does not exist yet; defaults are in use"))
	}
	return nil
}

func runConfigWatch(cmd *cobra.Command, app *App) error {
	path, err := app.configFile()
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Err, "Watching %s (Ctrl+C to stop)\n", path)
	return config.Watch(cmd.Context(), path, func(cfg *config.Config, err error) {
		if err != nil {
			fmt.Fprintln(app.Out, ErrorStyle.Render("[X] "+err.Error()))
			return
		}
		app.SetConfig(cfg)
		fmt.Fprintln(app.Out, SuccessStyle.Render("[OK] reloaded")+DimStyle.Render(" backend "+cfg.Backend.URL))
	})
}
