// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/ragdash/internal/chat"
)

// MarkdownExporter writes a readable report with a YAML front matter
// block.
type MarkdownExporter struct{}

// FileExtension returns ".md".
func (MarkdownExporter) FileExtension() string { return ".md" }

// Export renders t as Markdown.
func (MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	if t.Empty() {
		return nil, ErrEmpty
	}

	var sb strings.Builder

	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "query: %s\n", escapeYAML(t.Query))
	fmt.Fprintf(&sb, "date: %s\n", t.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "threshold: %d\n", t.Threshold)
	fmt.Fprintf(&sb, "results: %d\n", len(t.Results))
	if t.Elapsed > 0 {
		fmt.Fprintf(&sb, "elapsed: %s\n", t.Elapsed.Round(time.Millisecond))
	}
	sb.WriteString("generator: ragdash\n")
	sb.WriteString("---\n\n")

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(t.Query))
	writeParams(&sb, t)

	if t.Summary != "" {
		sb.WriteString("## Summary\n\n")
		sb.WriteString(strings.TrimSpace(t.Summary))
		sb.WriteString("\n\n")
	}

	if len(t.Results) > 0 {
		sb.WriteString("## Results\n\n")
		for _, r := range t.Results {
			title := escapeMarkdown(r.Result.Title)
			if r.Result.Link != "" {
				title = "[" + title + "](" + r.Result.Link + ")"
			}
			line := fmt.Sprintf("%d. %s (%d%%)", r.Rank, title, r.Score)
			if !r.Active {
				line = fmt.Sprintf("%d. ~~%s~~ (%d%%, below threshold)", r.Rank, title, r.Score)
			}
			sb.WriteString(line + "\n")
			if meta := resultMeta(r); meta != "" {
				sb.WriteString("   <sub>" + meta + "</sub>\n")
			}
		}
		sb.WriteString("\n")
	}

	if len(t.Turns) > 0 {
		sb.WriteString("## Conversation\n\n")
		for i, turn := range t.Turns {
			fmt.Fprintf(&sb, "### %s\n\n%s\n\n", roleLabel(turn.Role), strings.TrimSpace(turn.Content))
			if i < len(t.Turns)-1 && turn.Role == chat.RoleModel {
				sb.WriteString("---\n\n")
			}
		}
	}

	fmt.Fprintf(&sb, "*Exported from ragdash on %s*\n", t.CreatedAt.Format("January 2, 2006 at 3:04 PM"))
	return []byte(sb.String()), nil
}

func writeParams(sb *strings.Builder, t *Transcript) {
	p := t.Params
	parts := []string{
		fmt.Sprintf("limit %d", p.Limit),
		fmt.Sprintf("semantic ratio %.2f", p.SemanticRatio),
		fmt.Sprintf("threshold %d%%", t.Threshold),
	}
	if !p.EnableLLM {
		parts = append(parts, "AI summary off")
	}
	if p.StartDate != "" || p.EndDate != "" {
		parts = append(parts, fmt.Sprintf("dates %s..%s", p.StartDate, p.EndDate))
	}
	if len(p.SelectedWebsites) > 0 {
		parts = append(parts, "sources "+strings.Join(p.SelectedWebsites, ", "))
	}
	sb.WriteString("- " + strings.Join(parts, " · ") + "\n\n")
}

func resultMeta(r ExportedResult) string {
	var meta []string
	for _, s := range []string{r.Result.Website, r.Result.YearMonth, r.Result.Workspace} {
		if s != "" {
			meta = append(meta, s)
		}
	}
	return strings.Join(meta, " · ")
}

func roleLabel(r chat.Role) string {
	switch r {
	case chat.RoleUser:
		return "You"
	case chat.RoleModel:
		return "Assistant"
	case "":
		return "Unknown"
	}
	return string(r)
}

// =============================================================================
// ESCAPING
// =============================================================================

// escapeMarkdown escapes characters that would break titles and headings.
func escapeMarkdown(s string) string {
	return strings.NewReplacer("#", `\#`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`).Replace(s)
}

// escapeYAML quotes values containing YAML specials.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`).Replace(s)
		return `"` + s + `"`
	}
	return s
}
