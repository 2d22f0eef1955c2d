// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// highlight.go - JSON highlighting for raw stream output.

package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// highlightJSON applies terminal syntax highlighting to one JSON document.
// On any failure the input is returned unchanged.
func highlightJSON(src string) string {
	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, src)
	if err != nil {
		return src
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return src
	}
	return buf.String()
}

// writeJSONLine writes raw compacted to a single line, highlighted when
// color is set.
func writeJSONLine(w io.Writer, raw json.RawMessage, color bool) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	line := buf.String()
	if color {
		line = highlightJSON(line)
	}
	_, err := io.WriteString(w, line+"\n")
	return err
}
