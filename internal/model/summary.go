package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is a Firefly category.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CategoryTotal is what a category earned and spent over a date range.
// Spent is zero or negative.
type CategoryTotal struct {
	ID     int             `json:"id"`
	Name   string          `json:"name"`
	Start  time.Time       `json:"start"`
	End    time.Time       `json:"end"`
	Earned decimal.Decimal `json:"earned"`
	Spent  decimal.Decimal `json:"spent"`
}

// Net is Earned plus Spent.
func (t CategoryTotal) Net() decimal.Decimal {
	return t.Earned.Add(t.Spent)
}

// MonthlyTotal is one month of a category's activity.
type MonthlyTotal struct {
	Start  time.Time       `json:"start"`
	End    time.Time       `json:"end"`
	Earned decimal.Decimal `json:"earned"`
	Spent  decimal.Decimal `json:"spent"`
}

// Net is Earned plus Spent.
func (m MonthlyTotal) Net() decimal.Decimal {
	return m.Earned.Add(m.Spent)
}

// CategorySummary pairs a category's target with its actual sum over the
// budget period.
type CategorySummary struct {
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	CategoryBudgetID int64           `json:"category_budget_id"`
	Amount           decimal.Decimal `json:"amount"`
	Sum              decimal.Decimal `json:"sum"`
	Start            time.Time       `json:"start"`
	End              time.Time       `json:"end"`
}

// CategorySummaryDetail is a summary with its month-by-month breakdown.
type CategorySummaryDetail struct {
	CategorySummary
	Totals []MonthlyTotal `json:"totals"`
}

// FinancialSnapshot holds trailing income, expense and tax totals along with
// current net worth. Expenses are negative; taxes are signed as recorded.
type FinancialSnapshot struct {
	NetWorth         decimal.Decimal `json:"net_worth"`
	Income3Months    decimal.Decimal `json:"income_three_months"`
	Expenses3Months  decimal.Decimal `json:"expenses_three_months"`
	Taxes3Months     decimal.Decimal `json:"taxes_three_months"`
	Income12Months   decimal.Decimal `json:"income_twelve_months"`
	Expenses12Months decimal.Decimal `json:"expenses_twelve_months"`
	Taxes12Months    decimal.Decimal `json:"taxes_twelve_months"`
}
