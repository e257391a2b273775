package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/davidschlachter/lychnos/internal/cli"
	"github.com/davidschlachter/lychnos/internal/config"
	"github.com/davidschlachter/lychnos/internal/firefly"
	"github.com/davidschlachter/lychnos/internal/model"
	"github.com/davidschlachter/lychnos/internal/pipeline"
	"github.com/davidschlachter/lychnos/internal/store"
)

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Manage per-category targets",
	Long: "Targets are signed: positive amounts are income goals, negative amounts are " +
		"spending ceilings and zero tracks a category without a target.",
}

var targetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the targets of a budget",
	Args:  cobra.NoArgs,
	RunE:  runTargetList,
}

var targetSetCmd = &cobra.Command{
	Use:     "set <category> <amount>",
	Short:   "Set a category's target (category may be a Firefly id or name)",
	Example: "  lychnos target set Salary 60000\n  lychnos target set Groceries -- -6000",
	Args:    cobra.ExactArgs(2),
	RunE:    runTargetSet,
}

var targetDeleteCmd = &cobra.Command{
	Use:   "delete <category-budget-id>",
	Short: "Delete a category target",
	Args:  cobra.ExactArgs(1),
	RunE:  runTargetDelete,
}

func init() {
	targetCmd.AddCommand(targetListCmd, targetSetCmd, targetDeleteCmd)
	rootCmd.AddCommand(targetCmd)
}

// resolveBudget returns the --budget budget, or the one covering today.
func resolveBudget(ctx context.Context, st *store.Store) (model.Budget, error) {
	if flagBudget != 0 {
		b, err := st.GetBudget(ctx, flagBudget)
		if err != nil {
			return b, fmt.Errorf("budget %d: %w", flagBudget, err)
		}
		return b, nil
	}
	b, err := st.CurrentBudget(ctx, time.Now())
	if errors.Is(err, store.ErrNotFound) {
		return b, fmt.Errorf("%w (pass --budget)", pipeline.ErrNoCurrentBudget)
	}
	if err != nil {
		return b, err
	}
	return b, nil
}

// fetchCategories lists Firefly categories, or returns nil when Firefly is
// not configured.
func fetchCategories(ctx context.Context, cfg config.Config) ([]model.Category, error) {
	client, err := firefly.NewClient(firefly.Config{
		URL:        config.GetFireflyURL(cfg),
		Token:      config.GetFireflyToken(cfg),
		HTTPClient: newHTTPClient(),
	})
	if err != nil {
		return nil, err
	}
	return client.Categories(ctx)
}

// resolveCategory accepts a numeric Firefly category id or a category name.
func resolveCategory(ctx context.Context, cfg config.Config, arg string) (int, error) {
	if id, err := strconv.Atoi(arg); err == nil {
		if id <= 0 {
			return 0, fmt.Errorf("invalid category id %d", id)
		}
		return id, nil
	}

	cats, err := fetchCategories(ctx, cfg)
	if err != nil {
		return 0, fmt.Errorf("looking up category %q: %w", arg, err)
	}
	for _, c := range cats {
		if strings.EqualFold(c.Name, arg) {
			return c.ID, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", arg, pipeline.ErrUnknownCategory)
}

func runTargetList(_ *cobra.Command, _ []string) error {
	return withStore(func(ctx context.Context, cfg config.Config, st *store.Store) error {
		b, err := resolveBudget(ctx, st)
		if err != nil {
			return err
		}
		targets, err := st.ListTargets(ctx, b.ID)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			fmt.Printf("\n  Budget %d has no targets. Add one with `lychnos target set <category> <amount>`.\n", b.ID)
			return nil
		}

		names := map[int]string{}
		if cats, err := fetchCategories(ctx, cfg); err == nil {
			for _, c := range cats {
				names[c.ID] = c.Name
			}
		} else {
			progress("Category names unavailable: %v", err)
		}

		rows := make([][]string, 0, len(targets))
		for _, t := range targets {
			name := names[t.CategoryID]
			if name == "" {
				name = cli.Muted("?")
			}
			rows = append(rows, []string{
				strconv.FormatInt(t.ID, 10),
				fmt.Sprintf("%s %s", name, cli.Muted(fmt.Sprintf("(%d)", t.CategoryID))),
				cli.FormatMoney(t.Amount),
				targetKind(t.Amount),
			})
		}

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("Budget %d  %s", b.ID, cli.FormatPeriod(b.Start, b.End)),
			Headers: []string{"ID", "Category", "Amount", "Kind"},
			Rows:    rows,
		}))
		fmt.Println()
		return nil
	})
}

func targetKind(amount decimal.Decimal) string {
	switch amount.Sign() {
	case 1:
		return "income"
	case -1:
		return "expense"
	default:
		return "no target"
	}
}

func runTargetSet(_ *cobra.Command, args []string) error {
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[1], err)
	}

	return withStore(func(ctx context.Context, cfg config.Config, st *store.Store) error {
		b, err := resolveBudget(ctx, st)
		if err != nil {
			return err
		}
		categoryID, err := resolveCategory(ctx, cfg, args[0])
		if err != nil {
			return err
		}

		t, err := st.UpsertTarget(ctx, b.ID, categoryID, amount)
		if err != nil {
			return err
		}
		fmt.Printf("  Set target %d: category %d → %s (%s) in budget %d\n",
			t.ID, t.CategoryID, cli.FormatMoney(t.Amount), targetKind(t.Amount), b.ID)
		return nil
	})
}

func runTargetDelete(_ *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid category budget id %q", args[0])
	}
	return withStore(func(ctx context.Context, _ config.Config, st *store.Store) error {
		if err := st.DeleteTarget(ctx, id); err != nil {
			return fmt.Errorf("target %d: %w", id, err)
		}
		fmt.Printf("  Deleted target %d\n", id)
		return nil
	})
}
