// Package timeutil converts between the terminal's UTC clock and the
// configured local display time (UTC plus a fixed hour offset).
//
// Local times are naive: they are carried as time.Time values in time.UTC
// whose wall clock reads local display time. Every storage and terminal
// boundary converts explicitly with a Shift; nothing downstream mixes the
// two conventions.
package timeutil

import "time"

// Shift is the configured local display offset, in whole hours east of UTC.
type Shift int

// LocalToUTC converts a naive local display time to the UTC instant it
// denotes.
func (s Shift) LocalToUTC(local time.Time) time.Time {
	return local.Add(-time.Duration(s) * time.Hour)
}

// UTCToLocal converts a UTC instant to naive local display time.
func (s Shift) UTCToLocal(utc time.Time) time.Time {
	return utc.Add(time.Duration(s) * time.Hour)
}

// LocalToUnix converts a naive local display time to a Unix timestamp in
// seconds.
func (s Shift) LocalToUnix(local time.Time) int64 {
	return s.LocalToUTC(local).Unix()
}

// UnixToLocal converts a Unix timestamp in seconds to naive local display
// time.
func (s Shift) UnixToLocal(ts int64) time.Time {
	return s.UTCToLocal(time.Unix(ts, 0).UTC())
}

// StartOfDay truncates t to 00:00:00 of the same calendar day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59 of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// MonthStart returns the first instant of the given calendar month.
func MonthStart(year, month int) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the last second of the given calendar month.
func MonthEnd(year, month int) time.Time {
	return MonthStart(year, month).AddDate(0, 1, 0).Add(-time.Second)
}

// NextMonth advances a (year, month) pair by one calendar month.
func NextMonth(year, month int) (int, int) {
	if month == 12 {
		return year + 1, 1
	}
	return year, month + 1
}

// MonthsBetween enumerates every (year, month) pair whose calendar month
// intersects [from, to], inclusive, in ascending order.
func MonthsBetween(from, to time.Time) [][2]int {
	var months [][2]int
	year, month := from.Year(), int(from.Month())
	endYear, endMonth := to.Year(), int(to.Month())
	for year < endYear || (year == endYear && month <= endMonth) {
		months = append(months, [2]int{year, month})
		year, month = NextMonth(year, month)
	}
	return months
}
