// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ndjson

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/jeranaias/ragdash/internal/logger"
)

// ErrReaderDone is returned by Process when the reader was already drained.
var ErrReaderDone = errors.New("ndjson: reader already consumed")

// ParseError describes a line that was not valid JSON.
type ParseError struct {
	Line  int
	Text  string
	Cause error
}

func (e *ParseError) Error() string {
	return "ndjson: malformed line " + strconv.Itoa(e.Line) + ": " + e.Cause.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Options controls Reader behaviour.
type Options struct {
	// FlushTrailing parses a final segment that has no terminating
	// newline. Off by default: the backend always terminates records.
	FlushTrailing bool

	// OnParseError is called for each skipped line. Defaults to logging.
	OnParseError func(*ParseError)

	// MaxLineBytes caps a single line. Zero means 4 MiB.
	MaxLineBytes int
}

// Reader yields one JSON record per newline-terminated line.
// A Reader is single-pass and not safe for concurrent use.
type Reader struct {
	src     *bufio.Reader
	opts    Options
	lineNo  int
	skipped int
	done    bool
}

// NewReader wraps r.
func NewReader(r io.Reader, opts Options) *Reader {
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = 4 << 20
	}
	if opts.OnParseError == nil {
		opts.OnParseError = logParseError
	}
	return &Reader{
		src:  bufio.NewReader(r),
		opts: opts,
	}
}

// Next returns the next valid record, or io.EOF once the source is
// exhausted. Malformed lines are reported to OnParseError and skipped.
func (r *Reader) Next() (json.RawMessage, error) {
	for {
		if r.done {
			return nil, io.EOF
		}

		line, err := r.readLine()
		if err != nil && !errors.Is(err, io.EOF) {
			r.done = true
			return nil, err
		}

		terminated := err == nil
		if !terminated {
			r.done = true
			if !r.opts.FlushTrailing {
				return nil, io.EOF
			}
		}

		rec, ok := r.decode(line)
		if ok {
			return rec, nil
		}
		if !terminated {
			return nil, io.EOF
		}
	}
}

// Process drains the stream, calling fn for each record until fn returns
// false, the source ends or ctx is cancelled. Reaching the end of the
// source is not an error.
func (r *Reader) Process(ctx context.Context, fn func(json.RawMessage) bool) error {
	if r.done {
		return ErrReaderDone
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		if !fn(rec) {
			return nil
		}
	}
}

// Skipped reports how many malformed lines were dropped so far.
func (r *Reader) Skipped() int {
	return r.skipped
}

// readLine returns the next line without its terminator. It returns
// io.EOF together with the unterminated remainder at end of input.
func (r *Reader) readLine() ([]byte, error) {
	var buf []byte
	for {
		chunk, err := r.src.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > r.opts.MaxLineBytes {
			return nil, errors.New("ndjson: line exceeds " + strconv.Itoa(r.opts.MaxLineBytes) + " bytes")
		}
		if err == nil {
			r.lineNo++
			return buf[:len(buf)-1], nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			if len(buf) > 0 {
				r.lineNo++
			}
			return buf, io.EOF
		}
		return nil, err
	}
}

func (r *Reader) decode(line []byte) (json.RawMessage, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, false
	}
	if !json.Valid(line) {
		r.skipped++
		var v interface{}
		cause := json.Unmarshal(line, &v)
		if cause == nil {
			cause = errors.New("invalid JSON")
		}
		r.opts.OnParseError(&ParseError{Line: r.lineNo, Text: truncate(string(line), 200), Cause: cause})
		return nil, false
	}
	out := make(json.RawMessage, len(line))
	copy(out, line)
	return out, true
}

func logParseError(e *ParseError) {
	logger.L().Warn("ndjson", "skipping malformed stream line", logger.Details{
		"line":  e.Line,
		"text":  e.Text,
		"error": e.Cause.Error(),
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
