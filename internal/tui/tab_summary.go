package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/davidschlachter/lychnos/internal/cli"
	"github.com/davidschlachter/lychnos/internal/pacing"
	"github.com/davidschlachter/lychnos/internal/pipeline"
	"github.com/davidschlachter/lychnos/internal/tui/components"
	"github.com/davidschlachter/lychnos/internal/tui/theme"
)

// summaryState tracks the category list cursor and the open detail view.
type summaryState struct {
	cursor int

	detail        *pipeline.CategoryDetail
	detailLoading bool
	detailErr     error
	detailName    string
}

func (s *summaryState) move(delta, n int) {
	s.cursor += delta
	s.clamp(n)
}

func (s *summaryState) clamp(n int) {
	if n == 0 {
		s.cursor = 0
		return
	}
	s.cursor = min(max(s.cursor, 0), n-1)
}

func (s *summaryState) closeDetail() {
	s.detail = nil
	s.detailErr = nil
	s.detailLoading = false
}

func (s summaryState) detailOpen() bool {
	return s.detail != nil || s.detailLoading || s.detailErr != nil
}

// updateSummaryKey handles keys specific to the summary tab. ok is false
// when the key should fall through to the global bindings.
func (a App) updateSummaryKey(key string) (m tea.Model, cmd tea.Cmd, ok bool) {
	n := len(a.overview.Rows)

	if a.summary.detailOpen() {
		switch key {
		case "esc", "backspace":
			a.summary.closeDetail()
			return a, nil, true
		}
		return a, nil, false
	}

	switch key {
	case "j", "down":
		a.summary.move(1, n)
		return a, nil, true
	case "k", "up":
		a.summary.move(-1, n)
		return a, nil, true
	case "g", "home":
		a.summary.cursor = 0
		a.summary.clamp(n)
		return a, nil, true
	case "G", "end":
		a.summary.cursor = n - 1
		a.summary.clamp(n)
		return a, nil, true
	case "enter":
		if n == 0 || a.reports == nil {
			return a, nil, true
		}
		row := a.overview.Rows[a.summary.cursor]
		if row.CategoryBudgetID == 0 {
			return a, nil, true
		}
		a.summary.detailLoading = true
		a.summary.detailName = row.Name
		return a, tea.Batch(fetchDetailCmd(a.reports, row.CategoryBudgetID, a.now()), a.spinner.Tick), true
	}
	return a, nil, false
}

// Fixed column widths of the summary table; the bar takes what remains.
const (
	colName    = 18
	colMoney   = 11
	colLeft    = 12
	colPace    = 10
	colGaps    = 5
	minBarCols = 8
)

func (a App) renderSummaryTab(cw, h int) string {
	if a.overviewErr != nil {
		return renderError("Budget", a.overviewErr, cw)
	}
	if a.summary.detailOpen() {
		return a.renderCategoryDetail(cw)
	}

	ov := a.overview
	var b strings.Builder

	var target, actual float64
	for _, r := range ov.Rows {
		target += r.Amount.InexactFloat64()
		actual += r.Sum.InexactFloat64()
	}
	counts := pipeline.StatusCounts(ov.Rows)

	t := theme.Active
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Period elapsed", Value: cli.FormatPercent(ov.Elapsed), Delta: cli.FormatPeriod(ov.Budget.Start, ov.Budget.End)},
		{Label: "Net target", Value: cli.FormatDollars(target), Delta: fmt.Sprintf("%d categories", len(ov.Rows))},
		{Label: "Net actual", Value: cli.FormatDollars(actual), Delta: fmt.Sprintf("%.0f%% of target", safePct(actual, target))},
		{Label: "Needs attention", Value: fmt.Sprintf("%d", counts[pacing.StatusCaution]+counts[pacing.StatusDanger]),
			Delta: fmt.Sprintf("%d danger", counts[pacing.StatusDanger]), Color: t.StatusColor(worstStatus(counts))},
	}, cw))
	b.WriteString("\n")

	cardsH := lipgloss.Height(b.String())
	b.WriteString(components.ContentCard("Categories", a.renderSummaryTable(cw, h-cardsH-4), cw))
	return b.String()
}

func safePct(actual, target float64) float64 {
	if target == 0 {
		return 0
	}
	return actual / target * 100
}

func worstStatus(counts map[pacing.Status]int) pacing.Status {
	switch {
	case counts[pacing.StatusDanger] > 0:
		return pacing.StatusDanger
	case counts[pacing.StatusCaution] > 0:
		return pacing.StatusCaution
	}
	return pacing.StatusOnTrack
}

// renderSummaryTable draws the category rows that fit in maxLines, keeping
// the cursor in view.
func (a App) renderSummaryTable(cw, maxLines int) string {
	t := theme.Active
	rows := a.overview.Rows
	iw := components.CardInnerWidth(cw)
	barW := max(iw-colName-2*colMoney-colLeft-colPace-colGaps, minBarCols)

	headStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)

	if len(rows) == 0 {
		return dimStyle.Render("No category targets in this budget. Add one with `lychnos target set`.")
	}

	var b strings.Builder
	prefix := fmt.Sprintf("%-*s %*s %*s %*s %*s ", colName, "Category", colMoney, "Target", colMoney, "Actual", colLeft, "Left/mo", colPace, "Pace")
	b.WriteString(headStyle.Render(prefix))
	b.WriteString(components.ElapsedRuler(a.overview.Elapsed, barW))
	b.WriteString("\n")

	// Keep the cursor visible given each row's bar height.
	avail := max(maxLines-2, 1)
	cursor := min(a.summary.cursor, len(rows)-1)
	offset := 0
	for offset < cursor && linesBetween(rows, offset, cursor) > avail {
		offset++
	}

	used := 0
	for i := offset; i < len(rows); i++ {
		r := rows[i]
		height := max(r.Bar.Height, 1)
		if used > 0 && used+height > avail {
			break
		}
		used += height

		selected := i == cursor
		bg := t.Surface
		if selected {
			bg = t.SurfaceHover
		}
		cell := func(s string, w int, color lipgloss.Color, left bool) string {
			style := lipgloss.NewStyle().Foreground(color).Background(bg)
			if left {
				return style.Render(fmt.Sprintf("%-*s", w, truncStr(s, w)))
			}
			return style.Render(fmt.Sprintf("%*s", w, truncStr(s, w)))
		}
		gap := lipgloss.NewStyle().Background(bg).Render(" ")

		nameColor := t.TextPrimary
		if selected {
			nameColor = t.AccentBright
		}

		left, pace := "—", "—"
		leftColor, paceColor := t.TextDim, t.TextDim
		if !r.NoTarget {
			left = cli.FormatAllowance(r.Allowance)
			leftColor = t.StatusColor(r.Allowance.Status)
			pace = cli.FormatPace(r.Pace)
			paceColor = t.StatusColor(r.Pace.Status)
		}

		first := cell(r.Name, colName, nameColor, true) + gap +
			cell(cli.FormatDollars(r.Amount.InexactFloat64()), colMoney, t.TextMuted, false) + gap +
			cell(cli.FormatDollars(r.Sum.InexactFloat64()), colMoney, t.TextPrimary, false) + gap +
			cell(left, colLeft, leftColor, false) + gap +
			cell(pace, colPace, paceColor, false) + gap
		blank := lipgloss.NewStyle().Background(bg).Render(strings.Repeat(" ", lipgloss.Width(first)))

		var bar []string
		if r.NoTarget {
			bar = []string{space.Render(strings.Repeat(" ", barW))}
		} else {
			bar = strings.Split(components.FillBar(r.Bar, barW), "\n")
		}
		for j, line := range bar {
			if j == 0 {
				b.WriteString(first)
			} else {
				b.WriteString(blank)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	shown := fmt.Sprintf("%d-%d of %d", offset+1, offset+countFitting(rows[offset:], avail), len(rows))
	b.WriteString(dimStyle.Render("[j/k] select  [Enter] monthly breakdown  " + shown))
	return b.String()
}

// linesBetween counts the bar rows from index from through to, inclusive.
func linesBetween(rows []pipeline.CategoryPacing, from, to int) int {
	n := 0
	for i := from; i <= to && i < len(rows); i++ {
		n += max(rows[i].Bar.Height, 1)
	}
	return n
}

func countFitting(rows []pipeline.CategoryPacing, avail int) int {
	used, n := 0, 0
	for _, r := range rows {
		h := max(r.Bar.Height, 1)
		if n > 0 && used+h > avail {
			break
		}
		used += h
		n++
	}
	return n
}

func (a App) renderCategoryDetail(cw int) string {
	t := theme.Active
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	if a.summary.detailLoading {
		spin := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Render(a.spinner.View())
		return components.ContentCard(a.summary.detailName, spin+labelStyle.Render(" Loading monthly totals..."), cw)
	}
	if a.summary.detailErr != nil {
		return renderError(a.summary.detailName, a.summary.detailErr, cw)
	}

	d := a.summary.detail
	row := d.Pacing
	var b strings.Builder

	metrics := []components.Metric{
		{Label: "Target", Value: cli.FormatMoney(d.Amount)},
		{Label: "Actual", Value: cli.FormatMoney(d.Sum), Delta: cli.FormatPercent(row.Elapsed) + " elapsed"},
	}
	if !row.NoTarget {
		metrics = append(metrics,
			components.Metric{Label: "Left per month", Value: cli.FormatAllowance(row.Allowance), Color: t.StatusColor(row.Allowance.Status)},
			components.Metric{Label: "Pace today", Value: cli.FormatPace(row.Pace), Color: t.StatusColor(row.Pace.Status)},
		)
	}
	b.WriteString(components.MetricCardRow(metrics, cw))
	b.WriteString("\n")

	iw := components.CardInnerWidth(cw)
	var body strings.Builder
	if len(d.Totals) == 0 {
		body.WriteString(dimStyle.Render("No months in this budget yet."))
	} else {
		bars := make([]components.HBar, 0, len(d.Totals))
		nets := make([]float64, 0, len(d.Totals))
		for _, m := range d.Totals {
			net := m.Net().InexactFloat64()
			color := t.Green
			if net < 0 {
				color = t.Orange
			}
			bars = append(bars, components.HBar{
				Label: m.Start.Format("Jan 2006"),
				Value: abs(net),
				Text:  cli.FormatMoney(m.Net()),
				Color: color,
			})
			nets = append(nets, abs(net))
		}
		body.WriteString(components.HBarChart(bars, iw))
		body.WriteString("\n\n")
		body.WriteString(labelStyle.Render("Trend  "))
		body.WriteString(components.Sparkline(nets, t.Accent))
	}
	b.WriteString(components.ContentCard(fmt.Sprintf("%s · monthly net", d.Name), body.String(), cw))
	b.WriteString("\n")

	info := labelStyle.Render("Period ") + valueStyle.Render(cli.FormatPeriod(d.Start, d.End)) +
		dimStyle.Render("   [Esc] back")
	b.WriteString(components.ContentCard("", info, cw))
	return b.String()
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
