package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/davidschlachter/lychnos/internal/tui/theme"
)

// Sparkline renders a unicode sparkline from non-negative values.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := values[0]
	for _, v := range values[1:] {
		peak = math.Max(peak, v)
	}
	if peak <= 0 {
		peak = 1
	}

	var buf strings.Builder
	for _, v := range values {
		idx := int(v / peak * float64(len(blocks)-1))
		idx = min(max(idx, 0), len(blocks)-1)
		buf.WriteRune(blocks[idx])
	}

	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(buf.String())
}

// HBar is one labelled row of a horizontal bar chart.
type HBar struct {
	Label string
	Value float64 // magnitude drawn
	Text  string  // value text printed after the bar
	Color lipgloss.Color
}

// HBarChart renders one horizontal bar per row, scaled to the largest value,
// inside width columns.
func HBarChart(rows []HBar, width int) string {
	if len(rows) == 0 {
		return ""
	}
	t := theme.Active

	labelW, textW := 0, 0
	peak := 0.0
	for _, r := range rows {
		labelW = max(labelW, lipgloss.Width(r.Label))
		textW = max(textW, lipgloss.Width(r.Text))
		peak = math.Max(peak, r.Value)
	}
	if peak <= 0 {
		peak = 1
	}

	barW := max(width-labelW-textW-2, 4)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	textStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	emptyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	lines := make([]string, len(rows))
	for i, r := range rows {
		filled := int(math.Round(math.Max(r.Value, 0) / peak * float64(barW)))
		color := r.Color
		if color == "" {
			color = t.Accent
		}
		barStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)

		lines[i] = labelStyle.Render(fmt.Sprintf("%-*s ", labelW, r.Label)) +
			barStyle.Render(strings.Repeat("█", filled)) +
			emptyStyle.Render(strings.Repeat("░", barW-filled)) +
			textStyle.Render(fmt.Sprintf(" %*s", textW, r.Text))
	}
	return strings.Join(lines, "\n")
}
