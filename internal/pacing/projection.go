package pacing

import (
	"math"
	"time"

	"github.com/davidschlachter/lychnos/internal/model"
)

const (
	returnRate     = 0.04
	withdrawalRate = 0.04
	corpusRounding = 1000
)

// Window summarizes income and spending over a trailing window.
type Window struct {
	NetIncome   float64 `json:"net_income"`   // income with taxes removed
	NetExpenses float64 `json:"net_expenses"` // expenses with taxes removed, negative
	SavingsRate int     `json:"savings_rate"` // percent of net income kept
	RateOK      bool    `json:"savings_rate_ok"`
}

// Projection is the long-horizon savings outlook.
type Projection struct {
	ThreeMonths  Window `json:"three_months"`
	TwelveMonths Window `json:"twelve_months"`

	CorpusNeeded  float64 `json:"corpus_needed"`  // savings that would cover a year of expenses forever
	CorpusDisplay float64 `json:"corpus_display"` // CorpusNeeded rounded to the nearest thousand
	AnnualSaved   float64 `json:"annual_saved"`

	// Years until net worth reaches CorpusNeeded, assuming AnnualSaved is
	// added each year and everything compounds at a fixed real return.
	Years   float64 `json:"years"`
	YearsOK bool    `json:"years_ok"`
}

// TargetYear is the calendar year the corpus would be reached. Only
// meaningful when YearsOK is set.
func (p Projection) TargetYear(now time.Time) int {
	return now.Year() + int(round(p.Years))
}

// Project computes savings rates, the corpus needed for a sustainable
// withdrawal, and the years until that corpus is reached.
func Project(s model.FinancialSnapshot) Projection {
	p := Projection{
		ThreeMonths: window(
			s.Income3Months.InexactFloat64(),
			s.Expenses3Months.InexactFloat64(),
			s.Taxes3Months.InexactFloat64(),
		),
		TwelveMonths: window(
			s.Income12Months.InexactFloat64(),
			s.Expenses12Months.InexactFloat64(),
			s.Taxes12Months.InexactFloat64(),
		),
	}

	p.CorpusNeeded = -p.TwelveMonths.NetExpenses / withdrawalRate
	p.CorpusDisplay = round(p.CorpusNeeded/corpusRounding) * corpusRounding
	p.AnnualSaved = p.TwelveMonths.NetIncome + p.TwelveMonths.NetExpenses

	p.Years, p.YearsOK = yearsToCorpus(p.AnnualSaved, p.CorpusNeeded, s.NetWorth.InexactFloat64())
	return p
}

func window(income, expenses, taxes float64) Window {
	w := Window{
		NetIncome:   income + taxes,
		NetExpenses: expenses - taxes,
	}
	if w.NetIncome != 0 {
		w.SavingsRate = int(round((w.NetIncome + w.NetExpenses) / w.NetIncome * 100))
		w.RateOK = true
	}
	return w
}

// yearsToCorpus solves the annuity equation for the number of years. A
// net worth already at or above the corpus yields zero years. When net
// worth can never grow toward the corpus no year count exists.
func yearsToCorpus(annualSaved, corpus, netWorth float64) (float64, bool) {
	for _, v := range []float64{annualSaved, corpus, netWorth} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
	}
	if netWorth >= corpus {
		return 0, true
	}

	d := returnRate / (1 + returnRate)
	growth := annualSaved + d*netWorth
	if growth <= 0 {
		return 0, false
	}
	arg := (annualSaved + corpus*d) / growth
	if math.IsNaN(arg) || math.IsInf(arg, 0) || arg <= 0 {
		return 0, false
	}

	y := math.Log(arg) / math.Log(1+returnRate)
	if math.IsNaN(y) || math.IsInf(y, 0) || y < 0 {
		return 0, false
	}
	return y, true
}
