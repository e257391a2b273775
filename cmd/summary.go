package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/davidschlachter/lychnos/internal/cli"
	"github.com/davidschlachter/lychnos/internal/pacing"
	"github.com/davidschlachter/lychnos/internal/pipeline"
)

const summaryBarWidth = 20

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Pacing of every category in a budget",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, newLogger(cfg, os.Stderr, true))
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext()
	defer cancel()

	now := time.Now()
	progress("Fetching category totals from Firefly...")
	ov, err := a.reports.Overview(ctx, flagBudget, now)
	if errors.Is(err, pipeline.ErrNoCurrentBudget) {
		fmt.Println("\n  No budget covers today.")
		fmt.Println("  Create one with `lychnos budget create --start 2024-01-01 --end 2024-12-31`.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("BUDGET  %s", cli.FormatPeriod(ov.Budget.Start, ov.Budget.End))))
	fmt.Println()

	if len(ov.Rows) == 0 {
		fmt.Println("  No category targets in this budget.")
		fmt.Printf("  Add one with `lychnos target set --budget %d <category> <amount>`.\n", ov.Budget.ID)
		return nil
	}

	fmt.Print(cli.RenderTable(summaryTable(ov)))
	fmt.Println()
	fmt.Printf("  %s of the period elapsed (│ marks today)\n", cli.FormatPercent(ov.Elapsed))
	if counts := pipeline.StatusCounts(ov.Rows); counts[pacing.StatusDanger]+counts[pacing.StatusCaution] > 0 {
		fmt.Printf("  %s, %s\n",
			cli.Colorize(fmt.Sprintf("%d danger", counts[pacing.StatusDanger]), pacing.StatusDanger),
			cli.Colorize(fmt.Sprintf("%d caution", counts[pacing.StatusCaution]), pacing.StatusCaution))
	}
	fmt.Println(cli.RenderStatusLegend())
	fmt.Println()
	return nil
}

// summaryTable lays out one row per category followed by net totals.
func summaryTable(ov pipeline.Overview) cli.Table {
	rows := make([][]string, 0, len(ov.Rows)+2)
	var target, actual float64

	for _, r := range ov.Rows {
		target += r.Amount.InexactFloat64()
		actual += r.Sum.InexactFloat64()

		left, pace, bar := cli.Muted("—"), cli.Muted("—"), cli.Muted("no target")
		if !r.NoTarget {
			left = cli.Colorize(cli.FormatAllowance(r.Allowance), r.Allowance.Status)
			pace = cli.Colorize(cli.FormatPace(r.Pace), r.Pace.Status)
			bar = cli.RenderFillBar(r.Bar, summaryBarWidth)
		}

		rows = append(rows, []string{
			fmt.Sprintf("%s %s", r.Name, cli.Muted(fmt.Sprintf("#%d", r.CategoryBudgetID))),
			cli.FormatDollars(r.Amount.InexactFloat64()),
			cli.FormatDollars(r.Sum.InexactFloat64()),
			left,
			pace,
			bar,
		})
	}

	rows = append(rows, []string{"---"})
	rows = append(rows, []string{
		"Net",
		cli.FormatDollars(target),
		cli.FormatDollars(actual),
		"", "", "",
	})

	return cli.Table{
		Headers: []string{"Category", "Target", "Actual", "Left/mo", "Pace", "Progress"},
		Rows:    rows,
	}
}
