package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/davidschlachter/lychnos/internal/cli"
	"github.com/davidschlachter/lychnos/internal/config"
	"github.com/davidschlachter/lychnos/internal/model"
	"github.com/davidschlachter/lychnos/internal/store"
)

var (
	flagBudgetStart string
	flagBudgetEnd   string
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage budget periods",
}

var budgetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List budget periods",
	Args:  cobra.NoArgs,
	RunE:  runBudgetList,
}

var budgetCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a budget period",
	Args:  cobra.NoArgs,
	RunE:  runBudgetCreate,
}

var budgetDeleteCmd = &cobra.Command{
	Use:   "delete <budget-id>",
	Short: "Delete a budget period and its category targets",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetDelete,
}

func init() {
	year := time.Now().Year()
	budgetCreateCmd.Flags().StringVar(&flagBudgetStart, "start", fmt.Sprintf("%d-01-01", year), "First day of the budget (YYYY-MM-DD)")
	budgetCreateCmd.Flags().StringVar(&flagBudgetEnd, "end", fmt.Sprintf("%d-12-31", year), "Last day of the budget, inclusive (YYYY-MM-DD)")

	budgetCmd.AddCommand(budgetListCmd, budgetCreateCmd, budgetDeleteCmd)
	rootCmd.AddCommand(budgetCmd)
}

// withStore opens the budget database for commands that don't talk to
// Firefly.
func withStore(fn func(ctx context.Context, cfg config.Config, st *store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx, cancel := commandContext()
	defer cancel()
	return fn(ctx, cfg, st)
}

func runBudgetList(_ *cobra.Command, _ []string) error {
	return withStore(func(ctx context.Context, _ config.Config, st *store.Store) error {
		budgets, err := st.ListBudgets(ctx)
		if err != nil {
			return err
		}
		if len(budgets) == 0 {
			fmt.Println("\n  No budgets yet. Create one with `lychnos budget create`.")
			return nil
		}

		now := time.Now()
		rows := make([][]string, 0, len(budgets))
		for _, b := range budgets {
			current := ""
			if b.Period().Contains(now) {
				current = "●"
			}
			targets, err := st.ListTargets(ctx, b.ID)
			if err != nil {
				return err
			}
			rows = append(rows, []string{
				strconv.FormatInt(b.ID, 10),
				b.Start.In(time.Local).Format(time.DateOnly),
				b.End.In(time.Local).Format(time.DateOnly),
				strconv.Itoa(len(targets)),
				current,
			})
		}

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Budgets",
			Headers: []string{"ID", "Start", "End", "Targets", "Current"},
			Rows:    rows,
		}))
		fmt.Println()
		return nil
	})
}

func runBudgetCreate(_ *cobra.Command, _ []string) error {
	return withStore(func(ctx context.Context, cfg config.Config, st *store.Store) error {
		loc, err := config.Location(cfg)
		if err != nil {
			return err
		}
		start, end, err := parsePeriod(flagBudgetStart, flagBudgetEnd, loc)
		if err != nil {
			return err
		}

		b, err := st.CreateBudget(ctx, start, end, model.Monthly)
		if err != nil {
			return err
		}
		fmt.Printf("  Created budget %d (%s)\n", b.ID, cli.FormatPeriod(start, end))
		return nil
	})
}

func runBudgetDelete(_ *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid budget id %q", args[0])
	}
	return withStore(func(ctx context.Context, _ config.Config, st *store.Store) error {
		if err := st.DeleteBudget(ctx, id); err != nil {
			return fmt.Errorf("budget %d: %w", id, err)
		}
		fmt.Printf("  Deleted budget %d\n", id)
		return nil
	})
}

// parsePeriod turns inclusive YYYY-MM-DD bounds into a budget period running
// from midnight on the first day to 23:59:59 on the last, in loc.
func parsePeriod(startStr, endStr string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(time.DateOnly, startStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", startStr, err)
	}
	endDay, err := time.ParseInLocation(time.DateOnly, endStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", endStr, err)
	}
	end := endDay.AddDate(0, 0, 1).Add(-time.Second)
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s is after end %s: %w", startStr, endStr, store.ErrInvalidPeriod)
	}
	return start, end, nil
}
