package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/davidschlachter/lychnos/internal/cli"
	"github.com/davidschlachter/lychnos/internal/pacing"
	"github.com/davidschlachter/lychnos/internal/tui/components"
	"github.com/davidschlachter/lychnos/internal/tui/theme"
)

func (a App) renderBigPictureTab(cw int) string {
	if a.bigPictureErr != nil {
		return renderError("Big Picture", a.bigPictureErr, cw)
	}

	t := theme.Active
	s := a.bigPicture.Snapshot
	p := a.bigPicture.Projection
	var b strings.Builder

	yearsColor := t.TextPrimary
	switch {
	case !p.YearsOK:
		yearsColor = t.Orange
	case p.Years == 0:
		yearsColor = t.GreenBright
	}

	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Net worth", Value: cli.FormatMoney(s.NetWorth)},
		{Label: "Savings rate", Value: cli.FormatSavingsRate(p.TwelveMonths), Delta: "last 12 months", Color: rateColor(p.TwelveMonths)},
		{Label: "Savings rate", Value: cli.FormatSavingsRate(p.ThreeMonths), Delta: "last 3 months", Color: rateColor(p.ThreeMonths)},
		{Label: "Years to target", Value: cli.FormatYears(p, a.now()), Color: yearsColor},
	}, cw))
	b.WriteString("\n")

	halves := components.LayoutRow(cw, 2)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	headStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Bold(true)

	// Left: income and spending by window.
	lw := components.CardInnerWidth(halves[0])
	colW := max((lw-12)/2, 10)
	line := func(label string, three, twelve string) string {
		return labelStyle.Render(fmt.Sprintf("%-12s", label)) +
			valueStyle.Render(fmt.Sprintf("%*s%*s", colW, three, colW, twelve))
	}
	var flows strings.Builder
	flows.WriteString(headStyle.Render(fmt.Sprintf("%-12s%*s%*s", "", colW, "3 months", colW, "12 months")))
	flows.WriteString("\n")
	flows.WriteString(line("Income", cli.FormatMoney(s.Income3Months), cli.FormatMoney(s.Income12Months)))
	flows.WriteString("\n")
	flows.WriteString(line("Expenses", cli.FormatMoney(s.Expenses3Months), cli.FormatMoney(s.Expenses12Months)))
	flows.WriteString("\n")
	flows.WriteString(line("Taxes", cli.FormatMoney(s.Taxes3Months), cli.FormatMoney(s.Taxes12Months)))
	flows.WriteString("\n")
	flows.WriteString(line("Net income", cli.FormatDollars(p.ThreeMonths.NetIncome), cli.FormatDollars(p.TwelveMonths.NetIncome)))
	flows.WriteString("\n")
	flows.WriteString(line("Net expenses", cli.FormatDollars(p.ThreeMonths.NetExpenses), cli.FormatDollars(p.TwelveMonths.NetExpenses)))

	// Right: projection inputs, with net worth against the corpus as a bar.
	rw := components.CardInnerWidth(halves[1])
	var proj strings.Builder
	proj.WriteString(labelStyle.Render("Corpus needed  ") + valueStyle.Render(cli.FormatDollars(p.CorpusDisplay)))
	proj.WriteString("\n")
	proj.WriteString(labelStyle.Render("Saved per year ") + valueStyle.Render(cli.FormatDollars(p.AnnualSaved)))
	proj.WriteString("\n\n")
	proj.WriteString(labelStyle.Render("Progress toward corpus"))
	proj.WriteString("\n")
	fill := 0.0
	if p.CorpusNeeded > 0 {
		fill = pacing.Clamp(s.NetWorth.InexactFloat64() / p.CorpusNeeded * 100)
	}
	tier := pacing.StatusOnTrack
	if fill >= 100 {
		tier = pacing.StatusCelebratory
	}
	proj.WriteString(components.FillBar(pacing.Bar{Fill: fill, Tier: tier, Height: 1}, rw))
	proj.WriteString("\n")
	proj.WriteString(labelStyle.Render(cli.FormatPercent(fill)))

	b.WriteString(components.CardRow([]string{
		components.ContentCard("Cash Flow", flows.String(), halves[0]),
		components.ContentCard("Projection", proj.String(), halves[1]),
	}))
	return b.String()
}

func rateColor(w pacing.Window) lipgloss.Color {
	t := theme.Active
	switch {
	case !w.RateOK:
		return t.TextDim
	case w.SavingsRate < 0:
		return t.Red
	case w.SavingsRate >= 50:
		return t.GreenBright
	}
	return t.TextPrimary
}

