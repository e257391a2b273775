package cli

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/davidschlachter/lychnos/internal/pacing"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorBlue      = lipgloss.Color("#4385BE")
	ColorYellow    = lipgloss.Color("#D0A215")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// StatusColor maps a pacing status to its terminal color.
func StatusColor(s pacing.Status) lipgloss.Color {
	switch s {
	case pacing.StatusCaution:
		return ColorYellow
	case pacing.StatusDanger:
		return ColorRed
	case pacing.StatusCelebratory:
		return ColorGreen
	default:
		return ColorBlue
	}
}

// Colorize renders s in the color of status.
func Colorize(s string, status pacing.Status) string {
	return lipgloss.NewStyle().Foreground(StatusColor(status)).Render(s)
}

// Muted renders s in the muted text color.
func Muted(s string) string {
	return mutedStyle.Render(s)
}

// Table represents a bordered text table for CLI output. Cells may carry
// their own styling; widths are measured without escape sequences.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int // optional column widths, auto-calculated if nil
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	width := 55
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(width).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// pad aligns a possibly styled cell to width w.
func pad(cell string, w int, right bool) string {
	gap := w - lipgloss.Width(cell)
	if gap < 0 {
		gap = 0
	}
	if right {
		return " " + strings.Repeat(" ", gap) + cell + " "
	}
	return " " + cell + strings.Repeat(" ", gap) + " "
}

func rule(widths []int, left, mid, right string) string {
	var b strings.Builder
	b.WriteString(dimStyle.Render(left))
	for i, w := range widths {
		b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
		if i < len(widths)-1 {
			b.WriteString(dimStyle.Render(mid))
		}
	}
	b.WriteString(dimStyle.Render(right))
	b.WriteString("\n")
	return b.String()
}

// RenderTable renders a bordered table with headers and rows. A row holding
// the single cell "---" renders as a separator. The first column is left
// aligned and the rest right aligned.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}

	widths := make([]int, numCols)
	if t.Widths != nil {
		copy(widths, t.Widths)
	} else {
		for i, h := range t.Headers {
			widths[i] = max(widths[i], lipgloss.Width(h))
		}
		for _, row := range t.Rows {
			for i, cell := range row {
				if i < numCols {
					widths[i] = max(widths[i], lipgloss.Width(cell))
				}
			}
		}
	}

	var b strings.Builder

	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	b.WriteString(rule(widths, "╭", "┬", "╮"))

	if len(t.Headers) > 0 {
		b.WriteString(dimStyle.Render("│"))
		for i, h := range t.Headers {
			b.WriteString(headerStyle.Render(pad(h, widths[i], false)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
		b.WriteString(rule(widths, "├", "┼", "┤"))
	}

	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			b.WriteString(rule(widths, "├", "┼", "┤"))
			continue
		}

		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(valueStyle.Render(pad(cell, widths[i], i > 0)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
	}

	b.WriteString(rule(widths, "╰", "┴", "╯"))
	return b.String()
}

// RenderFillBar draws a category progress bar of the given width, colored by
// tier, with a tick at the elapsed marker.
func RenderFillBar(bar pacing.Bar, width int) string {
	if width <= 0 {
		return ""
	}

	cells := []rune(strings.Repeat("░", width))
	filled := int(math.Round(pacing.Clamp(bar.Fill) / 100 * float64(width)))
	for i := 0; i < filled && i < width; i++ {
		cells[i] = '█'
	}

	marker := int(math.Round(pacing.Clamp(bar.Marker) / 100 * float64(width)))
	if marker >= width {
		marker = width - 1
	}

	var b strings.Builder
	style := lipgloss.NewStyle().Foreground(StatusColor(bar.Tier))
	b.WriteString(style.Render(string(cells[:marker])))
	b.WriteString(headerStyle.Render("│"))
	if marker+1 < width {
		b.WriteString(style.Render(string(cells[marker+1:])))
	}
	return b.String()
}

// RenderSparkline generates a unicode block sparkline from a series of
// magnitudes.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	top := values[0]
	for _, v := range values[1:] {
		top = math.Max(top, v)
	}
	if top <= 0 {
		top = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int(v / top * float64(len(blocks)-1))
		idx = min(max(idx, 0), len(blocks)-1)
		b.WriteRune(blocks[idx])
	}
	return b.String()
}

// RenderStatusLegend renders the status color key shown under reports.
func RenderStatusLegend() string {
	parts := make([]string, 0, 4)
	for _, s := range []pacing.Status{pacing.StatusOnTrack, pacing.StatusCaution, pacing.StatusDanger, pacing.StatusCelebratory} {
		parts = append(parts, Colorize("■", s)+" "+Muted(s.String()))
	}
	return fmt.Sprintf("  %s", strings.Join(parts, "   "))
}
