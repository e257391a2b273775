package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/davidschlachter/lychnos/internal/cli"
	"github.com/davidschlachter/lychnos/internal/pipeline"
)

var bigPictureCmd = &cobra.Command{
	Use:     "bigpicture",
	Aliases: []string{"bp"},
	Short:   "Net worth, savings rates and years until savings cover expenses",
	RunE:    runBigPicture,
}

func init() {
	rootCmd.AddCommand(bigPictureCmd)
}

func runBigPicture(_ *cobra.Command, _ []string) error {
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
	progress("Fetching income, expenses and balances from Firefly...")
	bp, err := a.reports.BigPicture(ctx, now)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("BIG PICTURE"))
	fmt.Println()
	fmt.Print(cli.RenderTable(bigPictureTable(bp)))
	fmt.Println()

	p := bp.Projection
	fmt.Printf("  Net worth:         %s\n", cli.FormatMoney(bp.Snapshot.NetWorth))
	fmt.Printf("  Corpus needed:     %s\n", cli.FormatDollars(p.CorpusDisplay))
	fmt.Printf("  Saved per year:    %s\n", cli.FormatDollars(p.AnnualSaved))
	fmt.Printf("  Years to corpus:   %s\n", cli.FormatYears(p, now))
	fmt.Println()
	return nil
}

func bigPictureTable(bp pipeline.BigPicture) cli.Table {
	s, p := bp.Snapshot, bp.Projection
	return cli.Table{
		Headers: []string{"", "3 months", "12 months"},
		Rows: [][]string{
			{"Income", cli.FormatMoney(s.Income3Months), cli.FormatMoney(s.Income12Months)},
			{"Expenses", cli.FormatMoney(s.Expenses3Months), cli.FormatMoney(s.Expenses12Months)},
			{"Taxes", cli.FormatMoney(s.Taxes3Months), cli.FormatMoney(s.Taxes12Months)},
			{"---"},
			{"Net income", cli.FormatDollars(p.ThreeMonths.NetIncome), cli.FormatDollars(p.TwelveMonths.NetIncome)},
			{"Net expenses", cli.FormatDollars(p.ThreeMonths.NetExpenses), cli.FormatDollars(p.TwelveMonths.NetExpenses)},
			{"Savings rate", cli.FormatSavingsRate(p.ThreeMonths), cli.FormatSavingsRate(p.TwelveMonths)},
		},
	}
}
