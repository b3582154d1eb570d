// Package streak computes streaks and completion statistics from the
// calendar days on which a habit was logged.
//
// All functions work on civil dates: a time.Time is reduced to its year,
// month and day in its own location, so callers decide what "today" means by
// choosing the location of the instant they pass in.
package streak

import (
	"math"
	"time"
)

// Day returns the calendar day of t, in t's location, as UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daySet(dates []time.Time) map[time.Time]struct{} {
	set := make(map[time.Time]struct{}, len(dates))
	for _, d := range dates {
		set[Day(d)] = struct{}{}
	}
	return set
}

// Current counts consecutive logged days ending today. A habit that has not
// been logged today has a streak of 0 regardless of earlier runs.
func Current(dates []time.Time, today time.Time) int {
	logged := daySet(dates)

	streak := 0
	for expected := Day(today); ; expected = expected.AddDate(0, 0, -1) {
		if _, ok := logged[expected]; !ok {
			return streak
		}
		streak++
	}
}

// Best returns the longest run of consecutive logged days in history.
func Best(dates []time.Time) int {
	logged := daySet(dates)

	best := 0
	for d := range logged {
		// Only count runs from their first day.
		if _, ok := logged[d.AddDate(0, 0, -1)]; ok {
			continue
		}
		run := 1
		for next := d.AddDate(0, 0, 1); ; next = next.AddDate(0, 0, 1) {
			if _, ok := logged[next]; !ok {
				break
			}
			run++
		}
		if run > best {
			best = run
		}
	}
	return best
}

// Stats describes completion over an inclusive date range.
type Stats struct {
	CompletedDays  int
	TotalDays      int
	CompletionRate int // percent, rounded
}

// Period computes completion statistics for start..end inclusive. Dates
// outside the range are ignored and repeated dates count once.
func Period(dates []time.Time, start, end time.Time) Stats {
	start, end = Day(start), Day(end)
	if end.Before(start) {
		return Stats{}
	}

	total := int(end.Sub(start).Hours()/24) + 1
	completed := 0
	for d := range daySet(dates) {
		if !d.Before(start) && !d.After(end) {
			completed++
		}
	}

	return Stats{
		CompletedDays:  completed,
		TotalDays:      total,
		CompletionRate: Rate(completed, total),
	}
}

// LastDays computes statistics for the n days ending today.
func LastDays(dates []time.Time, today time.Time, n int) Stats {
	if n <= 0 {
		return Stats{}
	}
	end := Day(today)
	return Period(dates, end.AddDate(0, 0, -(n-1)), end)
}

// Rate returns completed/total as a rounded integer percentage, or 0 when
// total is not positive.
func Rate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
