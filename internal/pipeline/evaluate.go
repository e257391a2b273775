package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/davidschlachter/lychnos/internal/model"
	"github.com/davidschlachter/lychnos/internal/pacing"
)

// CategoryPacing is a category summary with its pacing metrics.
type CategoryPacing struct {
	model.CategorySummary
	Elapsed   float64          `json:"elapsed"`
	NoTarget  bool             `json:"no_target"`
	Allowance pacing.Allowance `json:"allowance"`
	Bar       pacing.Bar       `json:"bar"`
	Pace      pacing.Pace      `json:"pace"`
}

// Evaluate runs the pacing engine for one summary as of now. A zero target
// yields a row with NoTarget set and no allowance, bar or pace figures.
func Evaluate(s model.CategorySummary, now time.Time) CategoryPacing {
	row := CategoryPacing{
		CategorySummary: s,
		Elapsed:         pacing.Clamp(pacing.ElapsedFraction(now, s.Start, s.End)),
	}

	target := s.Amount.InexactFloat64()
	if target == 0 {
		row.NoTarget = true
		row.Bar = pacing.Bar{Marker: row.Elapsed, Height: 1}
		return row
	}
	actual := s.Sum.InexactFloat64()

	row.Allowance = pacing.MonthlyAllowance(target, actual, row.Elapsed)
	row.Bar = pacing.FillBar(target, actual, row.Elapsed)
	row.Pace = pacing.DailyPace(target, actual, row.Elapsed)
	return row
}

// severity ranks statuses from least to most urgent.
var severity = map[pacing.Status]int{
	pacing.StatusOnTrack:     0,
	pacing.StatusCelebratory: 1,
	pacing.StatusCaution:     2,
	pacing.StatusDanger:      3,
}

// Status is the most severe of the row's allowance, bar and pace states.
// Rows without a target are on track.
func (r CategoryPacing) Status() pacing.Status {
	if r.NoTarget {
		return pacing.StatusOnTrack
	}
	worst := r.Allowance.Status
	for _, s := range []pacing.Status{r.Bar.Tier, r.Pace.Status} {
		if severity[s] > severity[worst] {
			worst = s
		}
	}
	return worst
}

// StatusCounts tallies rows by Status.
func StatusCounts(rows []CategoryPacing) map[pacing.Status]int {
	counts := make(map[pacing.Status]int, len(severity))
	for _, r := range rows {
		counts[r.Status()]++
	}
	return counts
}

// EvaluateAll evaluates every summary and orders the rows by category name.
func EvaluateAll(summaries []model.CategorySummary, now time.Time) []CategoryPacing {
	rows := make([]CategoryPacing, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, Evaluate(s, now))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := strings.ToLower(rows[i].Name), strings.ToLower(rows[j].Name)
		if a != b {
			return a < b
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}

// Overview is the evaluated state of a whole budget.
type Overview struct {
	Budget  model.Budget     `json:"budget"`
	Elapsed float64          `json:"elapsed"`
	Rows    []CategoryPacing `json:"categories"`
}

// Overview resolves the budget (0 for the current one), lists its category
// summaries and evaluates them.
func (r *Reports) Overview(ctx context.Context, budgetID int64, now time.Time) (Overview, error) {
	b, err := r.ResolveBudget(ctx, budgetID, now)
	if err != nil {
		return Overview{}, err
	}
	summaries, err := r.ListCategorySummaries(ctx, b)
	if err != nil {
		return Overview{}, fmt.Errorf("budget %d: %w", b.ID, err)
	}
	return Overview{
		Budget:  b,
		Elapsed: pacing.Clamp(pacing.ElapsedFraction(now, b.Start, b.End)),
		Rows:    EvaluateAll(summaries, now),
	}, nil
}

// CategoryDetail is one target's monthly breakdown with its pacing row.
type CategoryDetail struct {
	model.CategorySummaryDetail
	Pacing CategoryPacing `json:"pacing"`
}

// CategoryDetail fetches and evaluates a single target.
func (r *Reports) CategoryDetail(ctx context.Context, targetID int64, now time.Time) (CategoryDetail, error) {
	d, err := r.FetchCategorySummary(ctx, targetID, now)
	if err != nil {
		return CategoryDetail{}, err
	}
	return CategoryDetail{CategorySummaryDetail: d, Pacing: Evaluate(d.CategorySummary, now)}, nil
}

// BigPicture is the financial snapshot with its long-horizon projection.
type BigPicture struct {
	Snapshot   model.FinancialSnapshot `json:"snapshot"`
	Projection pacing.Projection       `json:"projection"`
	TargetYear int                     `json:"target_year,omitempty"`
}

// BigPicture fetches the snapshot as of now and projects it.
func (r *Reports) BigPicture(ctx context.Context, now time.Time) (BigPicture, error) {
	s, err := r.src.BigPicture(ctx, now)
	if err != nil {
		return BigPicture{}, err
	}
	bp := BigPicture{Snapshot: s, Projection: pacing.Project(s)}
	if bp.Projection.YearsOK {
		bp.TargetYear = bp.Projection.TargetYear(now)
	}
	return bp, nil
}
