package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportingInterval controls how a budget's totals are broken down.
type ReportingInterval int

const (
	// Monthly is the only interval reports support today.
	Monthly ReportingInterval = iota
)

// BudgetPeriod is the span a set of category targets applies to.
type BudgetPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the period is non-empty.
func (p BudgetPeriod) Valid() bool {
	return p.Start.Before(p.End)
}

// Contains reports whether t falls strictly inside the period.
func (p BudgetPeriod) Contains(t time.Time) bool {
	return t.After(p.Start) && t.Before(p.End)
}

// Budget is a stored budget period.
type Budget struct {
	ID                int64             `json:"id"`
	Start             time.Time         `json:"start"`
	End               time.Time         `json:"end"`
	ReportingInterval ReportingInterval `json:"reporting_interval"`
}

// Period returns the budget's boundaries.
func (b Budget) Period() BudgetPeriod {
	return BudgetPeriod{Start: b.Start, End: b.End}
}

// CategoryTarget is the signed target for one category within a budget.
// Positive amounts are income goals, negative amounts expense ceilings and
// zero means no target was set.
type CategoryTarget struct {
	ID         int64           `json:"id"`
	BudgetID   int64           `json:"budget"`
	CategoryID int             `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
}
