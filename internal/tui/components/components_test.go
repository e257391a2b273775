package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/davidschlachter/lychnos/internal/pacing"
	"github.com/davidschlachter/lychnos/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRowSumsToTotal(t *testing.T) {
	for _, total := range []int{80, 81, 119, 180} {
		widths := LayoutRow(total, 3)
		sum := 0
		for _, w := range widths {
			sum += w
		}
		if sum != total {
			t.Fatalf("LayoutRow(%d, 3) = %v, sums to %d", total, widths, sum)
		}
	}
	if LayoutRow(10, 0) != nil {
		t.Fatal("LayoutRow with n=0 should be nil")
	}
}

func TestCardRowBackgroundFill(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := len(strings.Split(shortCard, "\n"))
	tallLines := len(strings.Split(tallCard, "\n"))
	if shortLines >= tallLines {
		t.Fatal("Test setup error: short card should be shorter than tall card")
	}

	joined := CardRow([]string{tallCard, shortCard})
	lines := strings.Split(joined, "\n")
	if len(lines) != tallLines {
		t.Errorf("Joined height should match tallest card: got %d, want %d", len(lines), tallLines)
	}

	for i, line := range lines {
		if w := lipgloss.Width(line); w != 44 {
			t.Errorf("line %d width = %d, want 44", i, w)
		}
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	row := MetricCardRow([]Metric{
		{Label: "Net worth", Value: "$100,000"},
		{Label: "Savings rate", Value: "33%", Delta: "12 months", Color: theme.Active.Green},
		{Label: "Years", Value: "22.9"},
	}, 90)

	for i, line := range strings.Split(row, "\n") {
		if w := lipgloss.Width(line); w != 90 {
			t.Errorf("line %d width = %d, want 90", i, w)
		}
	}
}

func TestFillBarHeight(t *testing.T) {
	out := FillBar(pacing.Bar{Fill: 40, Tier: pacing.StatusCaution, Height: 3}, 20)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d rows, want 3", len(lines))
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w != 20 {
			t.Errorf("row %d width = %d, want 20", i, w)
		}
	}

	if n := len(strings.Split(FillBar(pacing.Bar{Fill: 10}, 20), "\n")); n != 1 {
		t.Fatalf("zero height should still draw one row, got %d", n)
	}
}

func TestElapsedRulerWidth(t *testing.T) {
	for _, elapsed := range []float64{0, 3, 50, 99, 100} {
		if w := lipgloss.Width(ElapsedRuler(elapsed, 30)); w != 30 {
			t.Errorf("ElapsedRuler(%v, 30) width = %d", elapsed, w)
		}
	}
}

func TestHBarChartScalesToPeak(t *testing.T) {
	out := HBarChart([]HBar{
		{Label: "Jan", Value: 100, Text: "$100"},
		{Label: "Feb", Value: 50, Text: "$50"},
	}, 31)

	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	full := strings.Count(lines[0], "█")
	half := strings.Count(lines[1], "█")
	if full == 0 || half*2 != full {
		t.Fatalf("bar lengths %d and %d are not proportional", full, half)
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w != 31 {
			t.Errorf("line %d width = %d, want 31", i, w)
		}
	}
}

func TestTabIdxByKey(t *testing.T) {
	if got := TabIdxByKey('b'); got != 1 {
		t.Fatalf("TabIdxByKey('b') = %d, want 1", got)
	}
	if got := TabIdxByKey('z'); got != -1 {
		t.Fatalf("TabIdxByKey('z') = %d, want -1", got)
	}
}

func TestStatusBarWidth(t *testing.T) {
	out := RenderStatusBar(100, "2024-01-01 → 2024-12-31", "3m", false, true)
	if w := lipgloss.Width(out); w != 100 {
		t.Fatalf("status bar width = %d, want 100", w)
	}
}
