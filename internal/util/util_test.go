// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "config.toml")

	require.NoError(t, AtomicWriteFile(path, []byte("one"), 0600))
	require.NoError(t, AtomicWriteFile(path, []byte("two"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestAtomicWriteFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, AtomicWriteFile(path, nil, 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestStringWidth(t *testing.T) {
	assert.Equal(t, 5, StringWidth("hello"))
	assert.Equal(t, 4, StringWidth("公告"))
	assert.Equal(t, 0, StringWidth(""))
}

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"ascii cut", "hello world", 8, "hello w…"},
		{"cjk cut", "最新價格公告", 7, "最新價…"},
		{"zero", "hello", 0, ""},
		{"tiny", "hello", 1, "h"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateWidth(tt.in, tt.width)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, StringWidth(got), tt.width)
		})
	}
}

func TestFitWidth(t *testing.T) {
	assert.Equal(t, "ab   ", FitWidth("ab", 5))
	assert.Equal(t, "公告 ", FitWidth("公告", 5))
	assert.Equal(t, 6, StringWidth(FitWidth("很長的標題文字", 6)))
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", OneLine("  a\n\n b\t\tc  "))
	assert.Equal(t, "", OneLine(" \n "))
	assert.Equal(t, "公告 內容", OneLine("公告\r\n內容"))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "line one…", Excerpt("line one\nline two", 9))
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "  a\n\n  b", Indent("a\n\nb", "  "))
}
