// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/ragdash/internal/logger"
)

// watchDebounce coalesces the burst of events editors emit on save.
const watchDebounce = 150 * time.Millisecond

// Watch reloads path whenever it changes and calls fn with the result.
// An invalid file is reported as a non-nil error; fn is not called with a
// nil config and an error at the same time. Watch blocks until ctx is done.
//
// The parent directory is watched so atomic rename-on-save is seen.
func Watch(ctx context.Context, path string, fn func(*Config, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config watch %s: %w", filepath.Dir(abs), err)
	}

	var (
		timer  *time.Timer
		fire   <-chan time.Time
		target = filepath.Clean(abs)
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			cfg, err := LoadFrom(abs)
			if err != nil {
				logger.L().Warn("config", "reload failed", logger.Details{"path": abs, "error": err.Error()})
				fn(nil, err)
				continue
			}
			logger.L().Info("config", "reloaded", logger.Details{"path": abs})
			fn(cfg, nil)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.L().Warn("config", "watch error", logger.Details{"error": err.Error()})
		}
	}
}
