// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/ragdash/internal/api"
	"github.com/jeranaias/ragdash/internal/search"
)

// SearchRecord is one finished search.
type SearchRecord struct {
	ID          string
	Query       string
	Params      api.SearchRequest
	State       string
	Error       string
	ResultCount int
	Elapsed     time.Duration
	CreatedAt   time.Time
}

// RecordFromOutcome converts an orchestrator outcome into a record.
func RecordFromOutcome(o search.Outcome) SearchRecord {
	rec := SearchRecord{
		Query:       o.Params.Query,
		Params:      api.NewSearchRequest(o.Params),
		State:       o.State.String(),
		ResultCount: len(o.Results),
		Elapsed:     o.Elapsed,
	}
	if o.Err != nil {
		rec.Error = o.Err.Error()
	}
	return rec
}

// SearchParams rebuilds search parameters from the stored wire form.
func (r SearchRecord) SearchParams() search.Params {
	p := search.Params{
		Query:                     r.Params.Query,
		Limit:                     r.Params.Limit,
		SemanticRatio:             r.Params.SemanticRatio,
		EnableLLM:                 r.Params.EnableLLM,
		ManualSemanticRatio:       r.Params.ManualSemanticRatio,
		EnableKeywordWeightRerank: r.Params.EnableKeywordWeightRerank,
		SelectedWebsites:          append([]string(nil), r.Params.SelectedWebsites...),
	}
	if r.Params.StartDate != nil {
		p.StartDate = *r.Params.StartDate
	}
	if r.Params.EndDate != nil {
		p.EndDate = *r.Params.EndDate
	}
	return p
}

// RecordSearch inserts rec, assigning an id and timestamp when unset.
func (s *DB) RecordSearch(ctx context.Context, rec SearchRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO search_history (id, query, params, state, error, result_count, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Query, string(params), rec.State, rec.Error,
		rec.ResultCount, rec.Elapsed.Milliseconds(), rec.CreatedAt.UnixMilli())
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// RecentSearches returns up to limit records, newest first. limit <= 0
// means no limit.
func (s *DB) RecentSearches(ctx context.Context, limit int) ([]SearchRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, params, state, error, result_count, elapsed_ms, created_at
		FROM search_history ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LastSearch returns the newest completed search, or ErrNotFound.
func (s *DB) LastSearch(ctx context.Context) (SearchRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, query, params, state, error, result_count, elapsed_ms, created_at
		FROM search_history WHERE state = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		search.StateComplete.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SearchRecord{}, ErrNotFound
	}
	return rec, err
}

// PruneHistory keeps the newest keep records and deletes the rest.
func (s *DB) PruneHistory(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM search_history WHERE rowid NOT IN (
			SELECT rowid FROM search_history ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearHistory deletes every record.
func (s *DB) ClearHistory(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM search_history`)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(sc scanner) (SearchRecord, error) {
	var (
		rec       SearchRecord
		params    string
		elapsedMs int64
		createdMs int64
	)
	if err := sc.Scan(&rec.ID, &rec.Query, &params, &rec.State, &rec.Error,
		&rec.ResultCount, &elapsedMs, &createdMs); err != nil {
		return SearchRecord{}, err
	}
	if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
		return SearchRecord{}, fmt.Errorf("decode params for %s: %w", rec.ID, err)
	}
	rec.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	rec.CreatedAt = time.UnixMilli(createdMs)
	return rec, nil
}
