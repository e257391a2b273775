// Package interval splits a budget period into reporting intervals.
package interval

import "time"

// Interval is one reporting interval. End is the last second of the interval.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Monthly returns one interval per calendar month from start up to the
// earlier of end and the close of now's month. The first interval begins at
// start exactly; later ones begin at midnight on the first of the month. Every
// interval ends at 23:59:59 on the last day of its month, in loc.
func Monthly(start, end, now time.Time, loc *time.Location) []Interval {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	horizon := endOfMonth(now.Year(), now.Month(), loc)

	var out []Interval
	for d := start; d.Before(end) && d.Before(horizon); {
		y, m, _ := d.In(loc).Date()
		out = append(out, Interval{Start: d, End: endOfMonth(y, m, loc)})
		d = time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
	}
	return out
}

func endOfMonth(y int, m time.Month, loc *time.Location) time.Time {
	// Day 0 of the next month normalizes to the last day of m.
	return time.Date(y, m+1, 0, 23, 59, 59, 0, loc)
}
