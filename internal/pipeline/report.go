// Package pipeline joins stored budget targets with Firefly totals and runs
// the pacing engine over the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/davidschlachter/lychnos/internal/interval"
	"github.com/davidschlachter/lychnos/internal/model"
	"github.com/davidschlachter/lychnos/internal/store"
)

var (
	// ErrNoCurrentBudget is returned when no budget covers the requested date.
	ErrNoCurrentBudget = errors.New("pipeline: no budget covers the current date")
	// ErrUnsupportedInterval is returned for budgets not reported monthly.
	ErrUnsupportedInterval = errors.New("pipeline: only monthly reporting intervals are supported")
	// ErrUnknownCategory is returned when a target names a category Firefly
	// does not know.
	ErrUnknownCategory = errors.New("pipeline: unknown category")
)

// fetchConcurrency bounds parallel monthly total requests.
const fetchConcurrency = 6

// Source is the Firefly data reports are built from. Both *firefly.Client
// and *firefly.Cache implement it.
type Source interface {
	Categories(ctx context.Context) ([]model.Category, error)
	ListCategoryTotals(ctx context.Context, start, end time.Time) ([]model.CategoryTotal, error)
	FetchCategoryTotal(ctx context.Context, categoryID int, start, end time.Time) (model.CategoryTotal, error)
	BigPicture(ctx context.Context, now time.Time) (model.FinancialSnapshot, error)
}

// Budgets is the stored budget data reports need. *store.Store implements it.
type Budgets interface {
	GetBudget(ctx context.Context, id int64) (model.Budget, error)
	CurrentBudget(ctx context.Context, now time.Time) (model.Budget, error)
	ListTargets(ctx context.Context, budgetID int64) ([]model.CategoryTarget, error)
	GetTarget(ctx context.Context, id int64) (model.CategoryTarget, error)
}

// Reports builds category summaries and the big picture.
type Reports struct {
	src     Source
	budgets Budgets
	loc     *time.Location
}

// New returns a Reports reading from src and budgets. Monthly intervals are
// computed in loc, or the local zone if loc is nil.
func New(src Source, budgets Budgets, loc *time.Location) *Reports {
	if loc == nil {
		loc = time.Local
	}
	return &Reports{src: src, budgets: budgets, loc: loc}
}

// ResolveBudget returns the budget with the given id, or the budget covering
// now when id is 0.
func (r *Reports) ResolveBudget(ctx context.Context, id int64, now time.Time) (model.Budget, error) {
	if id != 0 {
		return r.budgets.GetBudget(ctx, id)
	}
	b, err := r.budgets.CurrentBudget(ctx, now)
	if errors.Is(err, store.ErrNotFound) {
		return b, ErrNoCurrentBudget
	}
	return b, err
}

// ListCategorySummaries returns one summary per target in the budget, with
// Sum set to the category's net activity over the whole budget period.
func (r *Reports) ListCategorySummaries(ctx context.Context, budget model.Budget) ([]model.CategorySummary, error) {
	targets, err := r.budgets.ListTargets(ctx, budget.ID)
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}
	if len(targets) == 0 {
		return []model.CategorySummary{}, nil
	}

	totals, err := r.src.ListCategoryTotals(ctx, budget.Start, budget.End)
	if err != nil {
		return nil, fmt.Errorf("listing category totals: %w", err)
	}
	byID := make(map[int]model.CategoryTotal, len(totals))
	for _, t := range totals {
		byID[t.ID] = t
	}

	names, err := r.categoryNames(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.CategorySummary, 0, len(targets))
	for _, t := range targets {
		cs := model.CategorySummary{
			ID:               t.CategoryID,
			Name:             names[t.CategoryID],
			CategoryBudgetID: t.ID,
			Amount:           t.Amount,
			Start:            budget.Start,
			End:              budget.End,
		}
		if total, ok := byID[t.CategoryID]; ok {
			cs.Name = total.Name
			cs.Sum = total.Net()
		}
		out = append(out, cs)
	}
	return out, nil
}

// FetchCategorySummary returns a target's summary broken down by month, up
// to the month containing now. Sum is the total of the monthly nets.
func (r *Reports) FetchCategorySummary(ctx context.Context, targetID int64, now time.Time) (model.CategorySummaryDetail, error) {
	var d model.CategorySummaryDetail

	target, err := r.budgets.GetTarget(ctx, targetID)
	if err != nil {
		return d, err
	}
	budget, err := r.budgets.GetBudget(ctx, target.BudgetID)
	if err != nil {
		return d, err
	}
	if budget.ReportingInterval != model.Monthly {
		return d, fmt.Errorf("budget %d interval %d: %w", budget.ID, budget.ReportingInterval, ErrUnsupportedInterval)
	}

	names, err := r.categoryNames(ctx)
	if err != nil {
		return d, err
	}
	name, ok := names[target.CategoryID]
	if !ok {
		return d, fmt.Errorf("category %d: %w", target.CategoryID, ErrUnknownCategory)
	}

	d.CategorySummary = model.CategorySummary{
		ID:               target.CategoryID,
		Name:             name,
		CategoryBudgetID: target.ID,
		Amount:           target.Amount,
		Start:            budget.Start,
		End:              budget.End,
	}

	intervals := interval.Monthly(budget.Start, budget.End, now, r.loc)
	d.Totals = make([]model.MonthlyTotal, len(intervals))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, iv := range intervals {
		g.Go(func() error {
			t, err := r.src.FetchCategoryTotal(gctx, target.CategoryID, iv.Start, iv.End)
			if err != nil {
				return fmt.Errorf("totals for %s: %w", iv.Start.Format(time.DateOnly), err)
			}
			d.Totals[i] = model.MonthlyTotal{Start: iv.Start, End: iv.End, Earned: t.Earned, Spent: t.Spent}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return d, err
	}

	sum := decimal.Zero
	for _, t := range d.Totals {
		sum = sum.Add(t.Net())
	}
	d.Sum = sum
	return d, nil
}

func (r *Reports) categoryNames(ctx context.Context) (map[int]string, error) {
	cats, err := r.src.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	names := make(map[int]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}
