package pacing

import "math"

// Pace is the over/under-pace readout for today.
type Pace struct {
	// Amount is how far actual is from where it should be at this point of
	// the period, rounded to whole units.
	Amount int `json:"amount"`
	// Sign is "-" when actual is ahead of the expected amount, "" otherwise.
	Sign   string `json:"sign"`
	Status Status `json:"status"`
}

// DailyPace compares actual against the linear expectation target*elapsed.
func DailyPace(target, actual, elapsed float64) Pace {
	expected := target * elapsed / 100
	p := Pace{
		Amount: int(round(math.Abs(actual - expected))),
		Status: StatusOnTrack,
	}

	if math.Abs(actual) <= math.Abs(expected) {
		return p
	}

	p.Sign = "-"
	switch {
	case target > 0:
		p.Status = StatusCelebratory
	case math.Abs(actual) <= math.Abs(target)*(elapsed/100+oneMonth):
		p.Status = StatusCaution
	default:
		p.Status = StatusDanger
	}
	return p
}
