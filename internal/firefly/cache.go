package firefly

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/davidschlachter/lychnos/internal/interval"
	"github.com/davidschlachter/lychnos/internal/model"
)

// warmConcurrency bounds parallel requests while prefetching.
const warmConcurrency = 4

type rangeKey struct {
	start, end int64
}

type totalKey struct {
	category int
	rangeKey
}

func keyFor(start, end time.Time) rangeKey {
	return rangeKey{start: start.Unix(), end: end.Unix()}
}

// Cache memoizes category lists and totals in front of an Upstream. Firefly
// can take seconds per request, and totals only change when transactions are
// recorded, so entries live until invalidated.
//
// Insight and account lookups are not cached.
type Cache struct {
	up  Upstream
	log zerolog.Logger

	mu         sync.Mutex
	categories []model.Category
	lists      map[rangeKey][]model.CategoryTotal
	totals     map[totalKey]model.CategoryTotal
}

// NewCache wraps up with an in-memory cache.
func NewCache(up Upstream, log zerolog.Logger) *Cache {
	return &Cache{
		up:     up,
		log:    log.With().Str("component", "firefly-cache").Logger(),
		lists:  make(map[rangeKey][]model.CategoryTotal),
		totals: make(map[totalKey]model.CategoryTotal),
	}
}

// Categories returns the cached category list, fetching it once.
func (c *Cache) Categories(ctx context.Context) ([]model.Category, error) {
	c.mu.Lock()
	cached := c.categories
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	c.log.Debug().Msg("refreshing categories")
	cats, err := c.up.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []model.Category{}
	}

	c.mu.Lock()
	c.categories = cats
	c.mu.Unlock()
	return cats, nil
}

// ListCategoryTotals returns cached totals for all categories in a range.
func (c *Cache) ListCategoryTotals(ctx context.Context, start, end time.Time) ([]model.CategoryTotal, error) {
	k := keyFor(start, end)

	c.mu.Lock()
	cached, ok := c.lists[k]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	c.log.Debug().Time("start", start).Time("end", end).Msg("refreshing category totals")
	totals, err := c.up.ListCategoryTotals(ctx, start, end)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.lists[k] = totals
	c.mu.Unlock()
	return totals, nil
}

// FetchCategoryTotal returns the cached total for one category in a range.
func (c *Cache) FetchCategoryTotal(ctx context.Context, categoryID int, start, end time.Time) (model.CategoryTotal, error) {
	k := totalKey{category: categoryID, rangeKey: keyFor(start, end)}

	c.mu.Lock()
	cached, ok := c.totals[k]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	c.log.Debug().Int("category", categoryID).Time("start", start).Time("end", end).Msg("refreshing category total")
	total, err := c.up.FetchCategoryTotal(ctx, categoryID, start, end)
	if err != nil {
		return total, err
	}

	c.mu.Lock()
	c.totals[k] = total
	c.mu.Unlock()
	return total, nil
}

// Insight passes through to the upstream.
func (c *Cache) Insight(ctx context.Context, kind InsightKind, start, end time.Time) (decimal.Decimal, error) {
	return c.up.Insight(ctx, kind, start, end)
}

// Accounts passes through to the upstream.
func (c *Cache) Accounts(ctx context.Context, accountType string) ([]Account, error) {
	return c.up.Accounts(ctx, accountType)
}

// TaxCategory passes through to the upstream.
func (c *Cache) TaxCategory() string {
	return c.up.TaxCategory()
}

// BigPicture builds a snapshot using the cached category list. Tax totals
// run up to now, so they go straight to the upstream.
func (c *Cache) BigPicture(ctx context.Context, now time.Time) (model.FinancialSnapshot, error) {
	return buildSnapshot(ctx, rollingTotals{c}, now)
}

// rollingTotals bypasses the memo for totals whose range ends at the current
// instant and would never be requested again.
type rollingTotals struct {
	*Cache
}

func (r rollingTotals) FetchCategoryTotal(ctx context.Context, categoryID int, start, end time.Time) (model.CategoryTotal, error) {
	return r.up.FetchCategoryTotal(ctx, categoryID, start, end)
}

// Invalidate drops entries touched by a new transaction in categoryID dated
// now: every total for that category, and every range starting in now's year.
func (c *Cache) Invalidate(categoryID int, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	year := now.Year()
	inYear := func(k rangeKey) bool {
		return time.Unix(k.start, 0).In(now.Location()).Year() == year
	}

	dropped := 0
	for k := range c.totals {
		if k.category == categoryID || inYear(k.rangeKey) {
			delete(c.totals, k)
			dropped++
		}
	}
	for k := range c.lists {
		if inYear(k) {
			delete(c.lists, k)
			dropped++
		}
	}
	c.log.Debug().Int("category", categoryID).Int("dropped", dropped).Msg("invalidated cache")
}

// Reset empties the cache.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories = nil
	c.lists = make(map[rangeKey][]model.CategoryTotal)
	c.totals = make(map[totalKey]model.CategoryTotal)
}

// Warm prefetches the totals every budget report needs: the category list,
// per-budget totals and per-target monthly totals.
func (c *Cache) Warm(ctx context.Context, budgets []model.Budget, targets []model.CategoryTarget, now time.Time, loc *time.Location) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)

	g.Go(func() error {
		_, err := c.Categories(gctx)
		return err
	})

	for _, b := range budgets {
		g.Go(func() error {
			_, err := c.ListCategoryTotals(gctx, b.Start, b.End)
			return err
		})
		for _, t := range targets {
			if t.BudgetID != b.ID {
				continue
			}
			for _, iv := range interval.Monthly(b.Start, b.End, now, loc) {
				g.Go(func() error {
					_, err := c.FetchCategoryTotal(gctx, t.CategoryID, iv.Start, iv.End)
					return err
				})
			}
		}
	}

	err := g.Wait()
	if err != nil {
		c.log.Warn().Err(err).Msg("cache warm incomplete")
		return err
	}
	c.log.Info().Int("budgets", len(budgets)).Int("targets", len(targets)).Msg("cache warmed")
	return nil
}
