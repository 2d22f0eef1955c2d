// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists ragdash's local state in SQLite.
//
// Two tables are kept: prefs, a small key/value table holding UI
// preferences such as hideAnnouncementModal, and search_history, one row
// per finished search with its parameters in wire form.
//
// # Usage
//
//	db, err := storage.Open(cfg.StoragePath())
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	hide, _ := db.HideAnnouncements(ctx)
//	_, _ = db.RecordSearch(ctx, storage.RecordFromOutcome(outcome))
package storage
