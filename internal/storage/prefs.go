// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
)

// PrefHideAnnouncementModal suppresses the startup announcements.
const PrefHideAnnouncementModal = "hideAnnouncementModal"

// Pref returns the raw value stored under key, or ErrNotFound.
func (s *DB) Pref(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

// SetPref upserts key.
func (s *DB) SetPref(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prefs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UnixMilli())
	return err
}

// DeletePref removes key. Removing a missing key is not an error.
func (s *DB) DeletePref(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM prefs WHERE key = ?`, key)
	return err
}

// BoolPref reads a boolean preference. Missing or unparsable values are false.
func (s *DB) BoolPref(ctx context.Context, key string) (bool, error) {
	v, err := s.Pref(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	b, _ := strconv.ParseBool(v)
	return b, nil
}

// SetBoolPref stores a boolean preference as "true" or "false".
func (s *DB) SetBoolPref(ctx context.Context, key string, v bool) error {
	return s.SetPref(ctx, key, strconv.FormatBool(v))
}

// HideAnnouncements reports whether the announcement modal is suppressed.
func (s *DB) HideAnnouncements(ctx context.Context) (bool, error) {
	return s.BoolPref(ctx, PrefHideAnnouncementModal)
}

// SetHideAnnouncements sets or clears the announcement suppression.
func (s *DB) SetHideAnnouncements(ctx context.Context, hide bool) error {
	return s.SetBoolPref(ctx, PrefHideAnnouncementModal, hide)
}
