// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragdash/internal/chat"
	"github.com/jeranaias/ragdash/internal/search"
	"github.com/jeranaias/ragdash/internal/ui/render"
	"github.com/jeranaias/ragdash/internal/util"
)

// =============================================================================
// LAYOUT
// =============================================================================

// wideLayoutWidth switches from stacked panels to two columns.
const wideLayoutWidth = 100

// panel borders take one cell on each side plus one cell of padding.
const panelChrome = 4

type box struct{ w, h int }

type layout struct {
	wide    bool
	search  box
	results box
	summary box
	chat    box
}

func computeLayout(width, height, helpHeight int) layout {
	body := height - 2 - helpHeight // header + status bar
	if body < 12 {
		body = 12
	}
	const searchH = 4

	var l layout
	if width >= wideLayoutWidth {
		left := width * 11 / 20
		right := width - left
		summaryH := body * 2 / 5
		l = layout{
			wide:    true,
			search:  box{left, searchH},
			results: box{left, body - searchH},
			summary: box{right, summaryH},
			chat:    box{right, body - summaryH},
		}
	} else {
		rest := body - searchH
		resultsH := rest * 3 / 10
		summaryH := rest * 3 / 10
		l = layout{
			search:  box{width, searchH},
			results: box{width, resultsH},
			summary: box{width, summaryH},
			chat:    box{width, rest - resultsH - summaryH},
		}
	}
	return l
}

func atLeast(n, min int) int {
	if n < min {
		return min
	}
	return n
}

func (m *Model) resize() {
	helpH := 0
	if m.showHelp {
		helpH = lipgloss.Height(m.help.View(m.keys))
	}
	m.lay = computeLayout(m.width, m.height, helpH)
	m.help.Width = m.width

	m.searchIn.Width = atLeast(m.lay.search.w-panelChrome-4, 10)
	m.chatIn.Width = atLeast(m.lay.chat.w-panelChrome-4, 10)

	m.resultsVP.Width = atLeast(m.lay.results.w-panelChrome, 10)
	m.resultsVP.Height = atLeast(m.lay.results.h-3, 1)
	m.summaryVP.Width = atLeast(m.lay.summary.w-panelChrome, 10)
	m.summaryVP.Height = atLeast(m.lay.summary.h-3, 1)
	m.chatVP.Width = atLeast(m.lay.chat.w-panelChrome, 10)
	m.chatVP.Height = atLeast(m.lay.chat.h-5, 1) // title, suggestions, input

	m.refreshResults()
	m.refreshSummary()
	m.refreshChat()
}

// =============================================================================
// PANEL CONTENT
// =============================================================================

func (m *Model) refreshResults() {
	w := m.resultsVP.Width
	if w <= 0 {
		return
	}
	if len(m.snap.All) == 0 {
		msg := "輸入關鍵字並按 Enter 開始搜尋"
		if m.last != nil && m.last.State == search.StateComplete {
			msg = "沒有找到相關結果"
		}
		m.resultsVP.SetContent(m.theme.Muted.Render(msg))
		return
	}

	t := m.theme
	var b strings.Builder
	for i, c := range render.Cards(m.snap, w) {
		if i > 0 {
			b.WriteString("\n")
		}
		rank := "[No." + strconv.Itoa(c.Rank) + "] "
		score := " " + c.Score
		title := util.TruncateWidth(c.Title, w-util.StringWidth(rank)-util.StringWidth(score))
		pad := w - util.StringWidth(rank) - util.StringWidth(title) - util.StringWidth(score)
		if pad < 0 {
			pad = 0
		}

		if c.Active {
			b.WriteString(t.ResultRank.Render(rank) + t.ResultTitle.Render(title) +
				strings.Repeat(" ", pad) + t.ScoreActive.Render(score) + "\n")
			if c.Meta != "" {
				b.WriteString(t.ResultMeta.Render(c.Meta) + "\n")
			}
			if c.Link != "" {
				b.WriteString(t.ResultMeta.Render(c.Link) + "\n")
			}
			if c.Snippet != "" {
				b.WriteString(t.ResultSnippet.Render(c.Snippet) + "\n")
			}
			continue
		}

		b.WriteString(t.ResultDimmed.Render(rank+title+strings.Repeat(" ", pad)) + t.ScoreDimmed.Render(score) + "\n")
		if c.Meta != "" {
			b.WriteString(t.ResultDimmed.Render(c.Meta) + "\n")
		}
	}
	m.resultsVP.SetContent(strings.TrimRight(b.String(), "\n"))
}

func (m *Model) refreshSummary() {
	w := m.summaryVP.Width
	if w <= 0 {
		return
	}
	t := m.theme
	var parts []string

	if m.searching {
		head := m.spinner.View() + " " + t.StageText.Render("搜尋中…")
		parts = append(parts, head)
		for _, s := range m.stages {
			if s.text == "" {
				continue
			}
			parts = append(parts, t.StageText.Render("· "+util.TruncateWidth(s.text, w-2)))
		}
	}

	if m.searchErr != "" {
		parts = append(parts, t.ErrorText.Render(lipgloss.NewStyle().Width(w).Render(m.searchErr)))
	}

	if !m.searching && m.last != nil && m.last.State == search.StateComplete {
		if intent := render.Intent(m.last.Intent); intent != "" {
			parts = append(parts, t.IntentLine.Render(util.TruncateWidth(intent, w)))
		}
		switch {
		case m.summary != "":
			parts = append(parts, m.md.Render(m.summary, w))
		case !m.last.Params.EnableLLM:
			parts = append(parts, t.Muted.Render("AI 摘要已關閉"))
		default:
			parts = append(parts, t.Muted.Render("沒有摘要"))
		}
	}

	if len(parts) == 0 {
		parts = append(parts, t.Muted.Render("搜尋後這裡會顯示 AI 摘要"))
	}
	m.summaryVP.SetContent(strings.Join(parts, "\n"))
	m.summaryVP.GotoTop()
}

func (m *Model) refreshChat() {
	w := m.chatVP.Width
	if w <= 0 {
		return
	}
	t := m.theme
	wrap := lipgloss.NewStyle().Width(w)

	var parts []string
	for _, l := range m.lines {
		switch l.role {
		case roleUser:
			parts = append(parts, t.UserTurn.Render(wrap.Render("你："+l.text)))
		case roleModel:
			parts = append(parts, m.md.Render(l.text, w))
		case roleSystem:
			parts = append(parts, t.SystemTurn.Render(wrap.Render(stripEmphasis(l.text))))
		case roleError:
			parts = append(parts, t.ErrorText.Render(wrap.Render(stripEmphasis(l.text))))
		}
	}
	if m.chatBusy {
		parts = append(parts, m.spinner.View()+" "+t.Muted.Render("思考中…"))
	}
	m.chatVP.SetContent(strings.Join(parts, "\n"))
	m.chatVP.GotoBottom()
}

// stripEmphasis drops markdown bold markers from fixed messages shown
// without the markdown renderer.
func stripEmphasis(s string) string {
	return strings.ReplaceAll(s, "**", "")
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "loading…"
	}
	if m.showAnnouncements {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.viewAnnouncements())
	}

	left := lipgloss.JoinVertical(lipgloss.Left, m.viewSearch(), m.viewResults())
	right := lipgloss.JoinVertical(lipgloss.Left, m.viewSummary(), m.viewChat())

	var body string
	if m.lay.wide {
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, left, right)
	}

	sections := []string{m.viewHeader(), body, m.viewStatus()}
	if m.showHelp {
		sections = append(sections, m.help.View(m.keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) panel(title, content string, b box, focused bool) string {
	style := m.theme.Panel
	if focused {
		style = m.theme.PanelFocused
	}
	body := content
	if title != "" {
		body = m.theme.PanelTitle.Render(title) + "\n" + content
	}
	return style.Width(atLeast(b.w-2, 1)).Height(atLeast(b.h-2, 1)).Render(body)
}

func (m Model) viewHeader() string {
	t := m.theme
	left := t.HeaderBrand.Render("ragdash") + " " + t.HeaderInfo.Render(m.rt.cfg.Backend.URL)
	right := t.HeaderInfo.Render(m.tokenInfo())
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return t.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) tokenInfo() string {
	used := m.rt.session.Tokens()
	limit := m.rt.session.TokenLimit()
	if limit <= 0 {
		return fmt.Sprintf("tokens %d", used)
	}
	s := fmt.Sprintf("tokens %d / %d", used, limit)
	if used*10 >= limit*9 {
		return m.theme.TokenHigh.Render(s)
	}
	return s
}

func (m Model) viewSearch() string {
	p := m.params
	llm := "on"
	if !p.EnableLLM {
		llm = "off"
	}
	info := fmt.Sprintf("limit %d · semantic %.2f · AI %s", p.Limit, p.SemanticRatio, llm)
	if p.StartDate != "" || p.EndDate != "" {
		info += " · " + p.StartDate + "~" + p.EndDate
	}
	if n := len(p.SelectedWebsites); n > 0 {
		info += fmt.Sprintf(" · %d sources", n)
	} else if n := len(m.websites); n > 0 {
		info += fmt.Sprintf(" · all %d sources", n)
	}
	content := m.searchIn.View() + "\n" + m.theme.ParamsLine.Render(util.TruncateWidth(info, atLeast(m.lay.search.w-panelChrome, 1)))
	return m.panel("", content, m.lay.search, m.focus == focusSearch)
}

func (m Model) viewResults() string {
	t := m.theme
	filled, empty := render.Gauge(m.snap.Threshold, 10)
	title := fmt.Sprintf("結果 %d/%d  閾值 %d%% ", len(m.snap.Active), len(m.snap.All), m.snap.Threshold) +
		t.Gauge.Render(filled) + t.GaugeEmpty.Render(empty)
	return m.panel(title, m.resultsVP.View(), m.lay.results, m.focus == focusSearch)
}

func (m Model) viewSummary() string {
	return m.panel("AI 摘要", m.summaryVP.View(), m.lay.summary, false)
}

func (m Model) viewChat() string {
	t := m.theme
	title := "AI 助手 " + t.ChatStatus.Render(chat.HeaderStatus(m.snap))

	var sugg []string
	for i, s := range m.suggestions {
		if i >= 5 {
			break
		}
		sugg = append(sugg, fmt.Sprintf("%d.%s", i+1, s))
	}
	suggLine := t.Muted.Render(util.TruncateWidth(strings.Join(sugg, "  "), atLeast(m.lay.chat.w-panelChrome, 1)))

	content := m.chatVP.View() + "\n" + suggLine + "\n" + m.chatIn.View()
	return m.panel(title, content, m.lay.chat, m.focus == focusChat)
}

func (m Model) viewStatus() string {
	status := m.status
	if status == "" {
		status = m.theme.Muted.Render("F1 help · tab switch · C-↑/C-↓ threshold · C-c quit")
	}
	return m.theme.StatusBar.Width(m.width).Render(status)
}

func (m Model) viewAnnouncements() string {
	t := m.theme
	width := atLeast(m.width*2/3, 30)
	text := lipgloss.NewStyle().Width(width - 6)

	var parts []string
	for _, a := range m.announcements {
		if a.MainTitle != "" {
			parts = append(parts, t.ModalTitle.Render(a.MainTitle))
		}
		if a.Title != "" {
			parts = append(parts, t.ResultTitle.Render(a.Title))
		}
		if s := string(a.Content); s != "" {
			parts = append(parts, text.Render(s))
		}
		parts = append(parts, "")
	}
	parts = append(parts, t.Muted.Render("esc 關閉 · F3 不再顯示"))
	return t.Modal.Width(width).Render(strings.Join(parts, "\n"))
}
