// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ndjson

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader yields the given chunks one Read at a time.
type chunkReader struct {
	chunks []string
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	if n < len(c.chunks[0]) {
		c.chunks[0] = c.chunks[0][n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func collect(t *testing.T, r *Reader) []string {
	t.Helper()
	var out []string
	err := r.Process(context.Background(), func(rec json.RawMessage) bool {
		out = append(out, string(rec))
		return true
	})
	require.NoError(t, err)
	return out
}

func quiet() Options {
	return Options{OnParseError: func(*ParseError) {}}
}

func TestReaderReassemblesSplitLines(t *testing.T) {
	r := NewReader(&chunkReader{chunks: []string{`{"a":1}` + "\n" + `{"b"`, `:2}` + "\n"}}, quiet())
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, collect(t, r))
}

func TestReaderAnySplitPoint(t *testing.T) {
	payload := `{"a":1}` + "\n" + `{"b":2}` + "\n"
	for i := 0; i <= len(payload); i++ {
		r := NewReader(&chunkReader{chunks: []string{payload[:i], payload[i:]}}, quiet())
		got := collect(t, r)
		if len(got) != 2 || got[0] != `{"a":1}` || got[1] != `{"b":2}` {
			t.Errorf("split at %d: got %v", i, got)
		}
	}

	r := NewReader(iotest.OneByteReader(strings.NewReader(payload)), quiet())
	assert.Len(t, collect(t, r), 2)
}

func TestReaderSkipsMalformedLine(t *testing.T) {
	var reported []*ParseError
	opts := Options{OnParseError: func(e *ParseError) { reported = append(reported, e) }}

	src := `{"stage":"searching"}` + "\n" + `DEBUG: not json` + "\n" + `{"stage":"complete"}` + "\n"
	r := NewReader(strings.NewReader(src), opts)

	got := collect(t, r)
	assert.Equal(t, []string{`{"stage":"searching"}`, `{"stage":"complete"}`}, got)
	require.Len(t, reported, 1)
	assert.Equal(t, 2, reported[0].Line)
	assert.True(t, strings.HasPrefix(reported[0].Error(), "ndjson: malformed line 2: "), reported[0].Error())
	assert.Equal(t, 1, r.Skipped())
}

func TestParseErrorLineNumbers(t *testing.T) {
	var reported []*ParseError
	opts := Options{OnParseError: func(e *ParseError) { reported = append(reported, e) }}

	src := strings.Repeat(`{"ok":true}`+"\n", 11) + "oops\n"
	got := collect(t, NewReader(strings.NewReader(src), opts))

	assert.Len(t, got, 11)
	require.Len(t, reported, 1)
	assert.Equal(t, 12, reported[0].Line)
	assert.Contains(t, reported[0].Error(), "malformed line 12: ")
}

func TestReaderTrailingSegment(t *testing.T) {
	src := `{"a":1}` + "\n" + `{"b":2}`

	tests := []struct {
		name  string
		flush bool
		want  []string
	}{
		{"dropped by default", false, []string{`{"a":1}`}},
		{"flushed when enabled", true, []string{`{"a":1}`, `{"b":2}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := quiet()
			opts.FlushTrailing = tt.flush
			r := NewReader(strings.NewReader(src), opts)
			assert.Equal(t, tt.want, collect(t, r))
		})
	}
}

func TestReaderBlankLinesAndCRLF(t *testing.T) {
	src := "\n" + `{"a":1}` + "\r\n\n" + `{"b":2}` + "\r\n"
	r := NewReader(strings.NewReader(src), quiet())
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, collect(t, r))
	assert.Equal(t, 0, r.Skipped())
}

func TestReaderNotRestartable(t *testing.T) {
	r := NewReader(strings.NewReader(`{"a":1}`+"\n"), quiet())
	collect(t, r)

	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.ErrorIs(t, r.Process(context.Background(), func(json.RawMessage) bool { return true }), ErrReaderDone)
}

func TestReaderStopsWhenCallbackDeclines(t *testing.T) {
	src := `{"n":1}` + "\n" + `{"n":2}` + "\n" + `{"n":3}` + "\n"
	r := NewReader(strings.NewReader(src), quiet())

	count := 0
	err := r.Process(context.Background(), func(json.RawMessage) bool {
		count++
		return count < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rec, err := r.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":3}`, string(rec))
}

func TestReaderContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReader(strings.NewReader(`{"a":1}`+"\n"), quiet())
	err := r.Process(ctx, func(json.RawMessage) bool { return true })
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestReaderSourceError(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewReader(iotest.ErrReader(boom), quiet())
	err := r.Process(context.Background(), func(json.RawMessage) bool { return true })
	assert.ErrorIs(t, err, boom)
}

func TestReaderLineTooLong(t *testing.T) {
	opts := quiet()
	opts.MaxLineBytes = 8
	r := NewReader(strings.NewReader(`{"aaaaaaaaaaaa":1}`+"\n"), opts)
	_, err := r.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 8 bytes")
}
