// Package pacing computes how a budget category is tracking against its
// target inside a budget period, and projects long-run savings from trailing
// income and expense totals.
//
// Every function here is pure: it reads only its arguments, performs no I/O
// and is safe to call concurrently.
package pacing

import "math"

// Status is the abstract pacing state of a category. Renderers map it to
// concrete colors.
type Status int

const (
	StatusOnTrack Status = iota
	StatusCaution
	StatusDanger
	StatusCelebratory
)

var statusStrings = [...]string{
	StatusOnTrack:     "on-track",
	StatusCaution:     "caution",
	StatusDanger:      "danger",
	StatusCelebratory: "celebratory",
}

func (s Status) String() string {
	if int(s) < 0 || int(s) >= len(statusStrings) {
		return ""
	}
	return statusStrings[s]
}

// MarshalText encodes the status by name so JSON payloads stay readable.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	// oneMonth is the buffer, as a fraction of a yearly period, that spending
	// may run ahead of elapsed time before it is flagged.
	oneMonth = 1.0 / 12.0

	// lastStretch is the elapsed percentage after which the remaining
	// allowance is no longer spread over the months left.
	lastStretch = 91.667

	// dangerMagnitude is the smallest per-month overrun shown as danger.
	dangerMagnitude = 10

	// zeroBand hides per-month values too small to be meaningful.
	zeroBand = 2
)

// round rounds half up, so -2.5 becomes -2 and 2.5 becomes 3.
func round(x float64) float64 {
	return math.Floor(x + 0.5)
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
