package firefly

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/davidschlachter/lychnos/internal/model"
)

// Upstream is the set of Firefly calls the big picture and the cache need.
// *Client implements it.
type Upstream interface {
	Categories(ctx context.Context) ([]model.Category, error)
	ListCategoryTotals(ctx context.Context, start, end time.Time) ([]model.CategoryTotal, error)
	FetchCategoryTotal(ctx context.Context, categoryID int, start, end time.Time) (model.CategoryTotal, error)
	Insight(ctx context.Context, kind InsightKind, start, end time.Time) (decimal.Decimal, error)
	Accounts(ctx context.Context, accountType string) ([]Account, error)
	TaxCategory() string
}

// TaxCategory is the name of the category treated as taxes.
func (c *Client) TaxCategory() string {
	return c.taxCategory
}

// BigPicture assembles net worth and trailing three and twelve month totals
// as of now.
func (c *Client) BigPicture(ctx context.Context, now time.Time) (model.FinancialSnapshot, error) {
	return buildSnapshot(ctx, c, now)
}

func buildSnapshot(ctx context.Context, src Upstream, now time.Time) (model.FinancialSnapshot, error) {
	var s model.FinancialSnapshot

	taxID, err := findCategory(ctx, src, src.TaxCategory())
	if err != nil {
		return s, err
	}

	threeMonths := now.AddDate(0, -3, 0)
	twelveMonths := now.AddDate(-1, 0, 0)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		accounts, err := src.Accounts(gctx, AccountAsset)
		if err != nil {
			return fmt.Errorf("listing asset accounts: %w", err)
		}
		for _, a := range accounts {
			if a.Attributes.Type != AccountAsset {
				continue
			}
			s.NetWorth = s.NetWorth.Add(a.Attributes.CurrentBalance)
		}
		return nil
	})

	insight := func(dst *decimal.Decimal, kind InsightKind, from time.Time) {
		g.Go(func() error {
			v, err := src.Insight(gctx, kind, from, now)
			if err != nil {
				return fmt.Errorf("%s since %s: %w", kind, from.Format(dateLayout), err)
			}
			*dst = v
			return nil
		})
	}
	insight(&s.Income3Months, InsightIncome, threeMonths)
	insight(&s.Expenses3Months, InsightExpense, threeMonths)
	insight(&s.Income12Months, InsightIncome, twelveMonths)
	insight(&s.Expenses12Months, InsightExpense, twelveMonths)

	taxes := func(dst *decimal.Decimal, from time.Time) {
		g.Go(func() error {
			t, err := src.FetchCategoryTotal(gctx, taxID, from, now)
			if err != nil {
				return fmt.Errorf("tax totals since %s: %w", from.Format(dateLayout), err)
			}
			*dst = t.Net()
			return nil
		})
	}
	taxes(&s.Taxes3Months, threeMonths)
	taxes(&s.Taxes12Months, twelveMonths)

	if err := g.Wait(); err != nil {
		return model.FinancialSnapshot{}, fmt.Errorf("firefly: big picture: %w", err)
	}
	return s, nil
}

func findCategory(ctx context.Context, src Upstream, name string) (int, error) {
	cats, err := src.Categories(ctx)
	if err != nil {
		return 0, err
	}
	for _, c := range cats {
		if strings.EqualFold(c.Name, name) {
			return c.ID, nil
		}
	}
	return 0, fmt.Errorf("firefly: tax category %q: %w", name, ErrNotFound)
}
