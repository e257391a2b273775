package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/davidschlachter/lychnos/internal/tui/theme"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int // position of the shortcut letter in the name (-1 if not in name)
}

// Tabs defines all available tabs.
var Tabs = []Tab{
	{Name: "Summary", Key: 's', KeyPos: 0},
	{Name: "Big Picture", Key: 'b', KeyPos: 0},
	{Name: "Settings", Key: 'x', KeyPos: -1},
}

const tabPadding = 1

// tabLabel returns the unstyled text drawn for a tab.
func tabLabel(tab Tab, active bool) string {
	switch {
	case active:
		return tab.Name
	case tab.KeyPos >= 0 && tab.KeyPos < len(tab.Name):
		return tab.Name[:tab.KeyPos] + "[" + string(tab.Name[tab.KeyPos]) + "]" + tab.Name[tab.KeyPos+1:]
	default:
		return tab.Name + "[" + string(tab.Key) + "]"
	}
}

// TabVisualWidth returns the rendered width of a tab, padding included.
func TabVisualWidth(tab Tab, active bool) int {
	return lipgloss.Width(tabLabel(tab, active)) + 2*tabPadding
}

// RenderTabBar renders the tab bar with the given active index.
func RenderTabBar(activeIdx int, width int) string {
	t := theme.Active

	activeStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(true).
		Padding(0, tabPadding)

	inactiveStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Padding(0, tabPadding)

	sep := lipgloss.NewStyle().Background(t.Background).Render(" ")

	parts := make([]string, len(Tabs))
	for i, tab := range Tabs {
		if i == activeIdx {
			parts[i] = activeStyle.Render(tabLabel(tab, true))
		} else {
			parts[i] = inactiveStyle.Render(tabLabel(tab, false))
		}
	}

	row := strings.Join(parts, sep)
	return lipgloss.NewStyle().Background(t.Background).Width(width).Render(row)
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
