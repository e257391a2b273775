package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/davidschlachter/lychnos/internal/pacing"
	"github.com/davidschlachter/lychnos/internal/tui/theme"
)

// FillBar renders a category bar colored by its tier. Taller bars repeat the
// row Height times.
func FillBar(bar pacing.Bar, width int) string {
	t := theme.Active
	if width < 4 {
		width = 4
	}

	p := progress.New(
		progress.WithSolidFill(string(t.StatusColor(bar.Tier))),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	p.EmptyColor = string(t.TextDim)

	row := p.ViewAs(pacing.Clamp(bar.Fill) / 100)
	rows := make([]string, max(bar.Height, 1))
	for i := range rows {
		rows[i] = row
	}
	return strings.Join(rows, "\n")
}

// ElapsedRuler renders a marker line of the given width pointing at the
// elapsed position, labelled "today".
func ElapsedRuler(elapsed float64, width int) string {
	t := theme.Active
	if width < 1 {
		return ""
	}

	pos := int(pacing.Clamp(elapsed) / 100 * float64(width-1))
	style := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)

	const label = "today "
	if pos >= len(label) {
		return space.Render(strings.Repeat(" ", pos-len(label))) +
			style.Render(label+"▼") +
			space.Render(strings.Repeat(" ", width-pos-1))
	}
	return space.Render(strings.Repeat(" ", pos)) +
		style.Render("▼ today") +
		space.Render(strings.Repeat(" ", max(width-pos-len("▼ today"), 0)))
}
