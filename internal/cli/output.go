// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// output.go - Plain-terminal rendering of results, summaries and answers.

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/ragdash/internal/citation"
	"github.com/jeranaias/ragdash/internal/config"
	"github.com/jeranaias/ragdash/internal/search"
	"github.com/jeranaias/ragdash/internal/ui/render"
	"github.com/jeranaias/ragdash/internal/ui/styles"
	"github.com/jeranaias/ragdash/internal/util"
)

// presenter writes human-readable output. Markdown goes through glamour
// only on a color terminal; otherwise it is printed as-is.
type presenter struct {
	w        io.Writer
	width    int
	markdown bool
	md       *render.Markdown
	cite     citation.Formatter
}

func newPresenter(w io.Writer, cfg *config.Config) *presenter {
	tty := isTerminalWriter(w)
	width := DefaultTerminalWidth
	if tty {
		width = TerminalWidth(w)
	}
	if cfg.UI.WordWrap > 0 && cfg.UI.WordWrap < width {
		width = cfg.UI.WordWrap
	}

	p := &presenter{
		w:        w,
		width:    width,
		markdown: tty && ColorsEnabled() && cfg.UI.RenderMarkdown,
		cite:     cfg.CitationFormatter(),
	}
	switch {
	case p.markdown:
		p.md = render.NewMarkdown(styles.NewTheme().GlamourStyle())
		p.cite = citation.Markdown
	case !tty && cfg.Chat.CitationStyle == "terminal":
		// escape sequences are noise in a pipe
		p.cite = citation.Markdown
	}
	return p
}

func (p *presenter) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format, args...)
}

// renderMarkdown renders src for display.
func (p *presenter) renderMarkdown(src string) string {
	if p.markdown {
		return p.md.Render(src, p.width)
	}
	return strings.TrimSpace(src)
}

// results prints the ranked results. Dimmed results are listed only
// when showDimmed is set; otherwise a one-line note counts them.
func (p *presenter) results(snap search.Snapshot, showDimmed bool) {
	if len(snap.All) == 0 {
		p.printf("%s\n", DimStyle.Render("No results."))
		return
	}

	hidden := 0
	for _, c := range render.Cards(snap, p.width-7) {
		if !c.Active && !showDimmed {
			hidden++
			continue
		}
		rank := fmt.Sprintf("[No.%d]", c.Rank)
		if !c.Active {
			p.printf("%s %s  %s\n", DimStyle.Render(rank), DimStyle.Render(c.Title), DimStyle.Render(c.Score))
			continue
		}
		p.printf("%s %s  %s\n", TitleStyle.Render(rank), c.Title, ScoreStyle.Render(c.Score))
		indent := strings.Repeat(" ", util.StringWidth(rank)+1)
		if c.Meta != "" {
			p.printf("%s%s\n", indent, DimStyle.Render(c.Meta))
		}
		if c.Link != "" {
			p.printf("%s%s\n", indent, LinkStyle.Render(c.Link))
		}
		if c.Snippet != "" {
			p.printf("%s\n", util.Indent(c.Snippet, indent))
		}
	}
	if hidden > 0 {
		p.printf("%s\n", DimStyle.Render(fmt.Sprintf("%d result(s) below the %d%% threshold hidden (--all to show)", hidden, snap.Threshold)))
	}
}

// outcome prints the intent and summary of a completed search.
func (p *presenter) outcome(out search.Outcome) {
	if intent := render.Intent(out.Intent); intent != "" {
		p.printf("\n%s\n", DimStyle.Render(util.TruncateWidth(intent, p.width)))
	}
	if out.Summary.IsEmpty() {
		if !out.Params.EnableLLM {
			return
		}
		p.printf("\n%s\n", DimStyle.Render("No summary."))
		return
	}
	p.printf("\n%s\n%s\n", RenderSeparator(min(p.width, 70)), p.renderMarkdown(out.Summary.Markdown(out.LinkMapping, p.cite)))
}

// stage prints one live stage message.
func (p *presenter) stage(text string) {
	if text == "" {
		return
	}
	p.printf("%s\n", WarningStyle.Render("· "+text))
}
