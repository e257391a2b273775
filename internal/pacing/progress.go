package pacing

import (
	"math"
	"time"
)

// ElapsedFraction returns the percentage of the period [start, end] that has
// passed at now, capped at 100. Absolute differences are used, so a now
// before start yields a small positive value rather than an error.
//
// start must differ from end; periods are validated before they get here.
func ElapsedFraction(now, start, end time.Time) float64 {
	elapsed := math.Abs(float64(now.Sub(start)))
	total := math.Abs(float64(end.Sub(start)))

	f := elapsed / total * 100
	if f > 100 {
		f = 100
	}
	return f
}

// Clamp limits an elapsed fraction to [0, 100]. NaN clamps to 0.
func Clamp(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 100:
		return 100
	default:
		return f
	}
}
