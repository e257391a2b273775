// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davidschlachter/lychnos/internal/pacing"
)

// ExceededMarker replaces the monthly allowance of an income category that
// already passed its goal.
const ExceededMarker = "✓ goal met"

// FormatDollars formats a value as whole dollars with separators.
// e.g., 1234.5 -> "$1,235", -500 -> "-$500"
func FormatDollars(v float64) string {
	n := int64(math.Round(v))
	if n < 0 {
		return "-$" + FormatNumber(-n)
	}
	return "$" + FormatNumber(n)
}

// FormatMoney formats a decimal amount with cents.
// e.g., -1234.5 -> "-$1,234.50"
func FormatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	whole, cents, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return d.StringFixed(2)
	}
	out := "$" + FormatNumber(n) + "." + cents
	if d.IsNegative() {
		return "-" + out
	}
	return out
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-100 value as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f)
}

// FormatAllowance formats the left-per-month column.
func FormatAllowance(a pacing.Allowance) string {
	if a.Exceeded {
		return ExceededMarker
	}
	return FormatDollars(float64(a.Value))
}

// FormatPace formats today's over/under-pace amount.
func FormatPace(p pacing.Pace) string {
	return p.Sign + FormatDollars(float64(p.Amount))
}

// FormatSavingsRate formats a window's savings rate, or "n/a" without income.
func FormatSavingsRate(w pacing.Window) string {
	if !w.RateOK {
		return "n/a"
	}
	return fmt.Sprintf("%d%%", w.SavingsRate)
}

// FormatYears formats the years-to-corpus figure with its target year.
func FormatYears(p pacing.Projection, now time.Time) string {
	if !p.YearsOK {
		return "cannot project"
	}
	if p.Years == 0 {
		return "reached"
	}
	return fmt.Sprintf("%.1f years (%d)", p.Years, p.TargetYear(now))
}

// FormatPeriod formats a budget period as "2024-01-01 → 2024-12-31".
func FormatPeriod(start, end time.Time) string {
	return start.Format(time.DateOnly) + " → " + end.Format(time.DateOnly)
}
