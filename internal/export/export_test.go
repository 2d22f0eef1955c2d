// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragdash/internal/chat"
	"github.com/jeranaias/ragdash/internal/search"
)

func sampleTranscript() *Transcript {
	results := []search.Result{
		{ID: "a", Title: "Pricing *update*", Link: "http://a", Website: "docs", YearMonth: "2024-05", RelevanceScore: 0.9},
		{ID: "b", Title: "Old notice", RelevanceScore: 0.2},
	}
	out := search.Outcome{
		Params:      search.Params{Query: "copilot: price", Limit: 5, SemanticRatio: 0.5, EnableLLM: true},
		State:       search.StateComplete,
		Results:     results,
		LinkMapping: map[string]string{"1": "http://a"},
		Elapsed:     1500 * time.Millisecond,
	}
	snap := search.Snapshot{All: results, Active: results[:1], Threshold: 50, Dimmed: true}
	turns := []chat.Turn{
		{Role: chat.RoleUser, Content: "how much?"},
		{Role: chat.RoleModel, Content: "10 dollars [1]"},
	}
	t := NewTranscript(out, snap, turns)
	t.CreatedAt = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	return t
}

func TestNewTranscript(t *testing.T) {
	tr := sampleTranscript()

	assert.Equal(t, "copilot: price", tr.Query)
	assert.Equal(t, 50, tr.Threshold)
	require.Len(t, tr.Results, 2)
	assert.Equal(t, 1, tr.Results[0].Rank)
	assert.Equal(t, 90, tr.Results[0].Score)
	assert.True(t, tr.Results[0].Active)
	assert.False(t, tr.Results[1].Active)
	assert.Empty(t, tr.Summary)
	assert.False(t, tr.Empty())
}

func TestTranscript_Empty(t *testing.T) {
	var nilT *Transcript
	assert.True(t, nilT.Empty())
	assert.True(t, (&Transcript{Query: "x"}).Empty())

	_, err := MarkdownExporter{}.Export(&Transcript{})
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = WriteFile(&Transcript{}, t.TempDir(), "x.md")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestMarkdownExporter(t *testing.T) {
	tr := sampleTranscript()
	tr.Summary = "It costs [[1]](http://a)."

	data, err := MarkdownExporter{}.Export(tr)
	require.NoError(t, err)
	md := string(data)

	assert.True(t, strings.HasPrefix(md, "---\n"))
	assert.Contains(t, md, `query: "copilot: price"`)
	assert.Contains(t, md, "date: 2025-03-04T05:06:07Z")
	assert.Contains(t, md, "elapsed: 1.5s")
	assert.Contains(t, md, "# copilot: price\n")
	assert.Contains(t, md, "limit 5 · semantic ratio 0.50 · threshold 50%")
	assert.Contains(t, md, "## Summary\n\nIt costs [[1]](http://a).")
	assert.Contains(t, md, `1. [Pricing \*update\*](http://a) (90%)`)
	assert.Contains(t, md, "<sub>docs · 2024-05</sub>")
	assert.Contains(t, md, "2. ~~Old notice~~ (20%, below threshold)")
	assert.Contains(t, md, "### You\n\nhow much?")
	assert.Contains(t, md, "### Assistant\n\n10 dollars [1]")
	assert.Contains(t, md, "March 4, 2025")
	assert.Equal(t, ".md", MarkdownExporter{}.FileExtension())
}

func TestJSONExporter(t *testing.T) {
	data, err := JSONExporter{}.Export(sampleTranscript())
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "copilot: price", m["query"])
	assert.Equal(t, float64(50), m["threshold"])
	assert.Len(t, m["results"], 2)
	assert.Len(t, m["turns"], 2)
	assert.Equal(t, ".json", JSONExporter{}.FileExtension())
}

func TestForPath(t *testing.T) {
	tests := []struct {
		path string
		want Exporter
	}{
		{"out.json", JSONExporter{}},
		{"OUT.JSON", JSONExporter{}},
		{"out.md", MarkdownExporter{}},
		{"out.txt", MarkdownExporter{}},
		{"out", MarkdownExporter{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ForPath(tt.path))
		})
	}
}

func TestWriteFile(t *testing.T) {
	tr := sampleTranscript()
	dir := t.TempDir()

	t.Run("explicit path", func(t *testing.T) {
		path, err := WriteFile(tr, "", filepath.Join(dir, "nested", "a.json"))
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, json.Valid(data))
	})

	t.Run("relative to dir", func(t *testing.T) {
		path, err := WriteFile(tr, dir, "b.md")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "b.md"), path)
	})

	t.Run("directory gets a generated name", func(t *testing.T) {
		path, err := WriteFile(tr, "", dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "ragdash_copilot-_price_20250304_050607.md"), path)
		assert.FileExists(t, path)
	})
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"copilot price", "copilot_price"},
		{`a/b\c:d*e?f"g<h>i|j`, "a-b-c-d-e-f-g-h-i-j"},
		{"  ", "search"},
		{"價格", "價格"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain", escapeYAML("plain"))
	assert.Equal(t, `"a: b"`, escapeYAML("a: b"))
	assert.Equal(t, `"say \"hi\""`, escapeYAML(`say "hi"`))
	assert.Equal(t, `"line\nbreak"`, escapeYAML("line\nbreak"))
}
