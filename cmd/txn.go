package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/davidschlachter/lychnos/internal/cli"
	"github.com/davidschlachter/lychnos/internal/config"
	"github.com/davidschlachter/lychnos/internal/firefly"
)

var (
	flagTxnPage     int
	flagTxnCategory string
	flagTxnFrom     string
	flagTxnTo       string
	flagTxnDate     string
)

var txnCmd = &cobra.Command{
	Use:     "txn",
	Aliases: []string{"transaction"},
	Short:   "List and record Firefly transactions",
}

var txnListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent transactions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runTxnList,
}

var txnAddCmd = &cobra.Command{
	Use:   "add <amount> <description>",
	Short: "Record a transaction",
	Long: "Record a transaction in Firefly. Accounts may be ids or names; an unknown\n" +
		"destination name becomes a new expense account and an unknown source name a\n" +
		"new revenue account. A running daemon is told to refresh the category.",
	Example: `  lychnos txn add 54.20 "Weekly shop" --category Groceries --from Chequing --to Grocer`,
	Args:    cobra.ExactArgs(2),
	RunE:    runTxnAdd,
}

func init() {
	txnListCmd.Flags().IntVar(&flagTxnPage, "page", 1, "Page to show")

	txnAddCmd.Flags().StringVar(&flagTxnCategory, "category", "", "Category id or name")
	txnAddCmd.Flags().StringVar(&flagTxnFrom, "from", "", "Source account id or name")
	txnAddCmd.Flags().StringVar(&flagTxnTo, "to", "", "Destination account id or name")
	txnAddCmd.Flags().StringVar(&flagTxnDate, "date", "", "Transaction date, YYYY-MM-DD (default: today)")
	_ = txnAddCmd.MarkFlagRequired("category")
	_ = txnAddCmd.MarkFlagRequired("from")
	_ = txnAddCmd.MarkFlagRequired("to")

	txnCmd.AddCommand(txnListCmd, txnAddCmd)
	rootCmd.AddCommand(txnCmd)
}

// withClient runs fn with a Firefly client built from the config.
func withClient(fn func(ctx context.Context, cfg config.Config, client *firefly.Client) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := firefly.NewClient(firefly.Config{
		URL:         config.GetFireflyURL(cfg),
		Token:       config.GetFireflyToken(cfg),
		TaxCategory: cfg.General.TaxCategory,
		HTTPClient:  newHTTPClient(),
	})
	if err != nil {
		return fmt.Errorf("%w (run `lychnos setup` or set FIREFLY_URL and FIREFLY_TOKEN)", err)
	}

	ctx, cancel := commandContext()
	defer cancel()
	return fn(ctx, cfg, client)
}

func runTxnList(_ *cobra.Command, _ []string) error {
	return withClient(func(ctx context.Context, cfg config.Config, client *firefly.Client) error {
		loc, err := config.Location(cfg)
		if err != nil {
			return err
		}
		page, err := client.ListTransactions(ctx, flagTxnPage)
		if err != nil {
			return err
		}
		if len(page.Groups) == 0 {
			fmt.Println("\n  No transactions on this page.")
			return nil
		}

		var rows [][]string
		for _, g := range page.Groups {
			for _, t := range g.Attributes.Transactions {
				category := t.CategoryName
				if category == "" {
					category = cli.Muted("none")
				}
				rows = append(rows, []string{
					g.ID,
					t.Date.In(loc).Format(time.DateOnly),
					truncate(t.Description, 32),
					category,
					cli.FormatMoney(t.Signed()),
					cli.Muted(truncate(t.SourceName, 16) + " → " + truncate(t.DestinationName, 16)),
				})
			}
		}

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("Transactions  page %d of %d", page.Page, max(page.TotalPages, 1)),
			Headers: []string{"ID", "Date", "Description", "Category", "Amount", "Accounts"},
			Rows:    rows,
		}))
		if page.Page < page.TotalPages {
			fmt.Printf("  More with `lychnos txn list --page %d`\n", page.Page+1)
		}
		fmt.Println()
		return nil
	})
}

func runTxnAdd(_ *cobra.Command, args []string) error {
	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[0], err)
	}

	return withClient(func(ctx context.Context, cfg config.Config, client *firefly.Client) error {
		loc, err := config.Location(cfg)
		if err != nil {
			return err
		}
		date := time.Now().In(loc)
		if flagTxnDate != "" {
			if date, err = time.ParseInLocation(time.DateOnly, flagTxnDate, loc); err != nil {
				return fmt.Errorf("invalid date %q: %w", flagTxnDate, err)
			}
		}

		categoryID, err := resolveCategory(ctx, cfg, flagTxnCategory)
		if err != nil {
			return err
		}

		txn := firefly.Transaction{
			Date:        date,
			Amount:      amount,
			Description: args[1],
			CategoryID:  strconv.Itoa(categoryID),
		}
		txn.SourceID, txn.SourceName = accountRef(flagTxnFrom)
		txn.DestinationID, txn.DestinationName = accountRef(flagTxnTo)

		group, err := client.CreateTransaction(ctx, txn)
		if err != nil {
			return err
		}
		kind := txn.Type
		if len(group.Attributes.Transactions) > 0 {
			kind = group.Attributes.Transactions[0].Type
		}
		fmt.Printf("  Recorded %s %s (%s) as transaction %s\n", kind, cli.FormatMoney(amount), args[1], group.ID)

		if err := notifyDaemon(ctx, cfg, categoryID); err != nil {
			progress("Daemon not refreshed: %v", err)
		}
		return nil
	})
}

// accountRef splits a --from/--to value into an account id or a name.
func accountRef(v string) (id, name string) {
	if _, err := strconv.Atoi(v); err == nil {
		return v, ""
	}
	return "", v
}

// notifyDaemon asks a running daemon to drop its cached totals for the
// category. A daemon that isn't running is not an error.
func notifyDaemon(ctx context.Context, cfg config.Config, categoryID int) error {
	if pid, err := readPID(flagDaemonPIDFile); err != nil || !processAlive(pid) {
		return nil
	}
	addr, _ := daemonSettings(cfg)
	if st, err := readState(statePath(flagDaemonPIDFile)); err == nil && st.Addr != "" {
		addr = st.Addr
	}

	u := "http://" + addr + "/api/cache/invalidate?" + url.Values{"category": {strconv.Itoa(categoryID)}}.Encode()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, addr)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
