package pacing

import "math"

// Bar describes how a category's progress bar should be drawn.
type Bar struct {
	Fill   float64 `json:"fill"`   // percent of the bar filled, in [0, 100]
	Tier   Status  `json:"tier"`
	Marker float64 `json:"marker"` // elapsed percentage, drawn as a vertical tick
	Height int     `json:"height"` // rows
}

const (
	heightStep = 5000
	maxHeight  = 3
)

// FillBar computes the fill and tier of a category progress bar.
func FillBar(target, actual, elapsed float64) Bar {
	b := Bar{
		Tier:   StatusOnTrack,
		Marker: elapsed,
		Height: barHeight(target),
	}

	switch {
	case actual < 0 && target > 0:
		b.Fill = 100
		b.Tier = StatusDanger
		return b
	case actual > 0 && target < 0:
		b.Fill = 0
		return b
	}

	raw := actual / target * 100
	switch {
	case raw > 100:
		b.Fill = 100
		if actual > 0 {
			b.Tier = StatusCelebratory
		} else {
			b.Tier = StatusDanger
		}
		return b
	case target < 0 && math.Abs(actual/target) > oneMonth+elapsed/100:
		b.Tier = StatusCaution
	}
	b.Fill = Clamp(raw)
	return b
}

// barHeight gives larger expense categories a taller bar. Income bars are
// always a single row.
func barHeight(target float64) int {
	if target > 0 {
		return 1
	}
	h := 1 + int(math.Floor(math.Abs(target)/heightStep))
	if h > maxHeight {
		h = maxHeight
	}
	return h
}
