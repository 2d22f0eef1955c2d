// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"io"
	"os"

	"github.com/jeranaias/ragdash/internal/api"
	"github.com/jeranaias/ragdash/internal/config"
	"github.com/jeranaias/ragdash/internal/logger"
	"github.com/jeranaias/ragdash/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App holds what the commands of one invocation share. Collaborators are
// created lazily so that commands like "version" never touch the disk or
// the network.
type App struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Global flags
	ConfigPath string
	BackendURL string
	JSON       bool
	Verbose    bool

	cfg     *config.Config
	log     *logger.Logger
	client  *api.Client
	db      *storage.DB
}

// NewApp returns an App on the process's standard streams.
func NewApp() *App {
	return &App{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Config loads the configuration on first use.
func (a *App) Config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	var (
		cfg *config.Config
		err error
	)
	if a.ConfigPath != "" {
		cfg, err = config.LoadFrom(a.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &CommandError{Command: "config", Reason: "could not load configuration", Err: err, Code: ExitConfigError}
	}
	if a.BackendURL != "" {
		if err := cfg.Set("backend.url", a.BackendURL); err != nil {
			return nil, &CommandError{Command: "config", Reason: "invalid --backend", Err: err, Code: ExitUsageError}
		}
	}
	config.SetGlobal(cfg)
	a.cfg = cfg
	return cfg, nil
}

// SetConfig injects a configuration (tests).
func (a *App) SetConfig(cfg *config.Config) {
	a.cfg = cfg
}

// initLogger installs the process logger. The dashboard owns the
// terminal, so console output is only enabled for plain commands, and
// only with --verbose.
func (a *App) initLogger(console bool) error {
	cfg, err := a.Config()
	if err != nil {
		return err
	}
	opts := cfg.LoggerOptions(console && a.Verbose)
	if a.Verbose {
		opts.Level = "debug"
	}
	opts.ConsoleWriter = a.Err
	a.log = logger.New(opts)
	logger.SetGlobal(a.log)
	return nil
}

// Logger returns the process logger.
func (a *App) Logger() *logger.Logger {
	if a.log == nil {
		return logger.L()
	}
	return a.log
}

// Client returns the backend client.
func (a *App) Client() (*api.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	cc := cfg.ClientConfig()
	cc.UserAgent = "ragdash/" + Version
	client, err := api.NewClient(cc)
	if err != nil {
		return nil, &CommandError{Command: "backend", Reason: "invalid backend URL", Err: err, Code: ExitConfigError}
	}
	a.client = client
	return client, nil
}

// Store opens the local database.
func (a *App) Store() (*storage.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(cfg.StoragePath())
	if err != nil {
		return nil, &CommandError{Command: "storage", Reason: "could not open local store", Err: err, Code: ExitGeneralError}
	}
	a.db = db
	return db, nil
}

// optionalStore is Store for callers that work without one.
func (a *App) optionalStore() *storage.DB {
	db, err := a.Store()
	if err != nil {
		a.Logger().Warn("cli", "local store unavailable", logger.Details{"error": err.Error()})
		return nil
	}
	return db
}

// Close releases everything the App opened.
func (a *App) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
		a.db = nil
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return errors.Join(errs...)
}
