// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/ragdash/internal/chat"
	"github.com/jeranaias/ragdash/internal/citation"
	"github.com/jeranaias/ragdash/internal/search"
	"github.com/jeranaias/ragdash/internal/util"
)

// ErrEmpty is returned for a transcript with neither results nor turns.
var ErrEmpty = errors.New("export: nothing to export")

// =============================================================================
// TRANSCRIPT
// =============================================================================

// ExportedResult is one result with its display score and threshold state.
type ExportedResult struct {
	Rank   int           `json:"rank"`
	Score  int           `json:"score"`
	Active bool          `json:"active"`
	Result search.Result `json:"result"`
}

// Transcript is everything worth keeping from one search session.
type Transcript struct {
	Query     string            `json:"query"`
	Params    search.Params     `json:"params"`
	Threshold int               `json:"threshold"`
	Results   []ExportedResult  `json:"results"`
	Summary   string            `json:"summary,omitempty"`
	Links     map[string]string `json:"link_mapping,omitempty"`
	Turns     []chat.Turn       `json:"turns,omitempty"`
	Elapsed   time.Duration     `json:"elapsed_ns"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewTranscript captures a finished search, the store state it left and
// the conversation so far. Summary citations are rendered as markdown
// links.
func NewTranscript(out search.Outcome, snap search.Snapshot, turns []chat.Turn) *Transcript {
	t := &Transcript{
		Query:     out.Params.Query,
		Params:    out.Params,
		Threshold: snap.Threshold,
		Links:     out.LinkMapping,
		Turns:     turns,
		Elapsed:   out.Elapsed,
		CreatedAt: time.Now(),
	}
	for i, r := range snap.All {
		t.Results = append(t.Results, ExportedResult{
			Rank:   i + 1,
			Score:  search.ScorePercent(r),
			Active: search.IsActive(r, snap.Threshold),
			Result: r,
		})
	}
	if !out.Summary.IsEmpty() {
		t.Summary = out.Summary.Markdown(out.LinkMapping, citation.Markdown)
	}
	return t
}

// Empty reports whether there is nothing to write.
func (t *Transcript) Empty() bool {
	return t == nil || (len(t.Results) == 0 && len(t.Turns) == 0 && t.Summary == "")
}

// =============================================================================
// EXPORTERS
// =============================================================================

// Exporter renders a transcript in one file format.
type Exporter interface {
	Export(t *Transcript) ([]byte, error)

	// FileExtension includes the dot, e.g. ".md".
	FileExtension() string
}

// ForPath picks the exporter for path's extension; anything but .json
// is Markdown.
func ForPath(path string) Exporter {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSONExporter{}
	}
	return MarkdownExporter{}
}

// WriteFile exports t to path. An empty path, or a directory, gets a
// generated Markdown file name. Returns the path written.
func WriteFile(t *Transcript, dir, path string) (string, error) {
	if t.Empty() {
		return "", ErrEmpty
	}
	if path == "" {
		path = DefaultFilename(t, ".md")
	} else if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, DefaultFilename(t, ".md"))
	}
	if dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	data, err := ForPath(path).Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// DefaultFilename is ragdash_<query>_<timestamp><ext>.
func DefaultFilename(t *Transcript, ext string) string {
	return fmt.Sprintf("ragdash_%s_%s%s", sanitizeFilename(t.Query), t.CreatedAt.Format("20060102_150405"), ext)
}

// sanitizeFilename replaces characters that are invalid in file names on
// any platform and caps the length at 50 runes.
func sanitizeFilename(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) > 50 {
		runes = runes[:50]
	}

	out := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r), r < 32, r == 127:
			out = append(out, '-')
		case r == ' ' || r == '\t':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "search"
	}
	return string(out)
}
