package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/davidschlachter/lychnos/internal/tui/theme"
)

// RenderStatusBar renders the bottom status bar. label names the budget on
// screen and dataAge how long ago the data was fetched.
func RenderStatusBar(width int, label, dataAge string, refreshing, autoRefresh bool) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.SurfaceHover).
		Width(width)

	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceHover)

	left := " [?]help  [r]efresh  [q]uit"
	if label != "" {
		left += "   " + accent.Render(label)
	}

	right := ""
	switch {
	case refreshing:
		right = "refreshing… "
	case dataAge != "":
		right = fmt.Sprintf("updated %s ago ", dataAge)
	}
	if autoRefresh {
		right = "⟳ " + right
	}

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return style.Render(left + fmt.Sprintf("%*s", padding, "") + right)
}
