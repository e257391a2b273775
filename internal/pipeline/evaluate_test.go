package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/davidschlachter/lychnos/internal/model"
	"github.com/davidschlachter/lychnos/internal/pacing"
)

// summaryAt builds a summary whose period is 400 hours long, with now placed
// at the given elapsed percentage.
func summaryAt(target, actual int64, elapsed float64) (model.CategorySummary, time.Time) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(400 * time.Hour)
	now := start.Add(time.Duration(elapsed * 4 * float64(time.Hour)))
	return model.CategorySummary{
		ID:     1,
		Name:   "Category",
		Amount: decimal.NewFromInt(target),
		Sum:    decimal.NewFromInt(actual),
		Start:  start,
		End:    end,
	}, now
}

func TestEvaluate_IncomeOnTrack(t *testing.T) {
	s, now := summaryAt(1200, 300, 25)
	row := Evaluate(s, now)

	assert.InDelta(t, 25, row.Elapsed, 1e-9)
	assert.False(t, row.NoTarget)
	assert.Equal(t, 100, row.Allowance.Value)
	assert.Equal(t, pacing.StatusOnTrack, row.Allowance.Status)
	assert.InDelta(t, 25, row.Bar.Fill, 1e-9)
	assert.Equal(t, pacing.StatusOnTrack, row.Pace.Status)
}

func TestEvaluate_ExpenseRefund(t *testing.T) {
	s, now := summaryAt(-500, 200, 40)
	row := Evaluate(s, now)

	assert.Zero(t, row.Bar.Fill)
	assert.Equal(t, pacing.StatusOnTrack, row.Bar.Tier)
}

func TestEvaluate_ZeroTarget(t *testing.T) {
	s, now := summaryAt(0, -75, 60)
	row := Evaluate(s, now)

	assert.True(t, row.NoTarget)
	assert.Equal(t, pacing.Allowance{}, row.Allowance)
	assert.Equal(t, pacing.Pace{}, row.Pace)
	assert.InDelta(t, 60, row.Bar.Marker, 1e-9)
}

func TestEvaluate_AfterPeriodEnds(t *testing.T) {
	s, _ := summaryAt(-1000, -400, 0)
	row := Evaluate(s, s.End.Add(48*time.Hour))

	assert.Equal(t, 100.0, row.Elapsed)
	assert.Equal(t, 600, row.Allowance.Value)
}

func TestEvaluateAll_SortsByName(t *testing.T) {
	a, now := summaryAt(-100, -10, 50)
	a.Name, a.ID = "utilities", 3
	b := a
	b.Name, b.ID = "Dining", 2
	c := a
	c.Name, c.ID = "dining", 1

	rows := EvaluateAll([]model.CategorySummary{a, b, c}, now)
	assert.Equal(t, []int{1, 2, 3}, []int{rows[0].ID, rows[1].ID, rows[2].ID})
}

func TestCategoryPacingStatus(t *testing.T) {
	tests := []struct {
		name           string
		target, actual int64
		elapsed        float64
		want           pacing.Status
	}{
		{"on track", -1200, -400, 40, pacing.StatusOnTrack},
		{"pace within a month of expected", -1200, -500, 40, pacing.StatusCaution},
		{"bar past the one month buffer", -1200, -700, 40, pacing.StatusDanger},
		{"income goal exceeded", 1000, 1500, 50, pacing.StatusCelebratory},
		{"no target", 0, -700, 40, pacing.StatusOnTrack},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, now := summaryAt(tt.target, tt.actual, tt.elapsed)
			row := Evaluate(s, now)
			assert.Equal(t, tt.want, row.Status())
		})
	}
}

func TestCategoryPacingStatus_AllowanceAloneNeverCautions(t *testing.T) {
	s, now := summaryAt(-1200, -700, 40)
	row := Evaluate(s, now)

	assert.Equal(t, pacing.StatusOnTrack, row.Allowance.Status)
	assert.Equal(t, pacing.StatusCaution, row.Bar.Tier)
	assert.Equal(t, pacing.StatusDanger, row.Status())
}

func TestStatusCounts(t *testing.T) {
	var summaries []model.CategorySummary
	var now time.Time
	for i, c := range []struct {
		target, actual int64
	}{
		{-1200, -400}, {-1200, -500}, {-1200, -700}, {0, -50},
	} {
		s, n := summaryAt(c.target, c.actual, 40)
		s.ID, s.Name = i+1, fmt.Sprintf("c%d", i)
		summaries = append(summaries, s)
		now = n
	}

	counts := StatusCounts(EvaluateAll(summaries, now))
	assert.Equal(t, 2, counts[pacing.StatusOnTrack])
	assert.Equal(t, 1, counts[pacing.StatusCaution])
	assert.Equal(t, 1, counts[pacing.StatusDanger])
}
