package pacing

import "math"

// Allowance is the "left per month" figure for a category.
type Allowance struct {
	// Value is the amount left per month. It is negative when the category
	// is pacing off target, and 0 when the magnitude is below the noise band.
	Value int `json:"value"`
	// Exceeded is set for income categories that already passed their goal;
	// renderers show a success marker instead of Value.
	Exceeded bool `json:"exceeded"`
	// Overrun reports that the remaining allowance flipped sign relative to
	// the target.
	Overrun bool   `json:"overrun"`
	Status  Status `json:"status"`
}

// MonthlyAllowance spreads what is left of target over the months remaining
// in the period. elapsed is a percentage in [0, 100]; target must be non-zero.
func MonthlyAllowance(target, actual, elapsed float64) Allowance {
	if elapsed > 100 {
		elapsed = 100
	}

	var left float64
	if elapsed > lastStretch {
		left = round(target - actual)
	} else {
		monthsLeft := 12 * (1 - elapsed/100)
		left = round((target - actual) / monthsLeft)
		if left == 0 {
			left = 1
		}
	}

	a := Allowance{Status: StatusOnTrack}
	a.Overrun = sign(left) != sign(target)

	switch {
	case a.Overrun && target > 0:
		a.Status = StatusCelebratory
		a.Exceeded = true
	case a.Overrun && math.Abs(left) > dangerMagnitude:
		a.Status = StatusDanger
	}

	magnitude := math.Abs(left)
	switch {
	case magnitude < zeroBand:
		a.Value = 0
	case a.Overrun:
		a.Value = -int(magnitude)
	default:
		a.Value = int(magnitude)
	}
	return a
}
