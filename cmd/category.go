package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/davidschlachter/lychnos/internal/cli"
)

var categoryCmd = &cobra.Command{
	Use:   "category <category-budget-id>",
	Short: "Month-by-month totals and pacing for one category target",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategory,
}

func init() {
	rootCmd.AddCommand(categoryCmd)
}

func runCategory(_ *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid category budget id %q", args[0])
	}

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

	progress("Fetching monthly totals from Firefly...")
	d, err := a.reports.CategoryDetail(ctx, id, time.Now())
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("%s  %s", d.Name, cli.FormatPeriod(d.Start, d.End))))
	fmt.Println()

	rows := make([][]string, 0, len(d.Totals)+2)
	nets := make([]float64, 0, len(d.Totals))
	for _, m := range d.Totals {
		rows = append(rows, []string{
			m.Start.Format("Jan 2006"),
			cli.FormatMoney(m.Earned),
			cli.FormatMoney(m.Spent),
			cli.FormatMoney(m.Net()),
		})
		nets = append(nets, m.Net().Abs().InexactFloat64())
	}
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{"Total", "", "", cli.FormatMoney(d.Sum)})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Month", "Earned", "Spent", "Net"},
		Rows:    rows,
	}))
	fmt.Println()

	p := d.Pacing
	fmt.Printf("  Target:          %s\n", cli.FormatMoney(d.Amount))
	fmt.Printf("  Elapsed:         %s\n", cli.FormatPercent(p.Elapsed))
	if p.NoTarget {
		fmt.Printf("  %s\n", cli.Muted("No target set for this category."))
	} else {
		fmt.Printf("  Left per month:  %s\n", cli.Colorize(cli.FormatAllowance(p.Allowance), p.Allowance.Status))
		fmt.Printf("  Pace today:      %s\n", cli.Colorize(cli.FormatPace(p.Pace), p.Pace.Status))
		fmt.Printf("  Progress:        %s\n", cli.RenderFillBar(p.Bar, summaryBarWidth))
	}
	if len(nets) > 1 {
		fmt.Printf("  Monthly trend:   %s\n", cli.RenderSparkline(nets))
	}
	fmt.Println()
	return nil
}
