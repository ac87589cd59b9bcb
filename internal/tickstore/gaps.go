package tickstore

import (
	"log"
	"time"

	"github.com/avolkov/trade-dashboard/internal/models"
	"github.com/avolkov/trade-dashboard/internal/timeutil"
)

// Staleness tolerances, in seconds. The month-end and to-date windows
// absorb non-trading weekends and holidays at month boundaries; the
// current-month window absorbs the terminal not returning ticks exactly
// up to the requested instant.
const (
	currentDayTolerance = 5 * 60
	monthEndTolerance   = 3 * 24 * 3600
	toDateTolerance     = 1 * 24 * 3600
)

// MissingMonths reports, in ascending order, every calendar month
// intersecting the local-time window [from, to] that is absent from
// coverage or stale relative to the horizon the request needs.
//
// A month is stale when:
//   - it is the current month and the last tick falls short of the end of
//     the previous local day by more than the tolerance (the still-forming
//     current day is never loaded);
//   - it is a past month and the last tick is more than 3 days short of
//     the month end AND more than 1 day short of the requested to — both
//     must hold, so quiet month ends do not trigger refetches.
//
// Future months are always reported; they cannot have data yet.
// now is the current naive local time, injected for testability.
func MissingMonths(ranges []models.MonthRange, from, to, now time.Time, shift timeutil.Shift) [][2]int {
	coverage := make(map[[2]int]models.MonthRange)
	for _, r := range ranges {
		key := [2]int{r.Year, r.Month}
		if _, ok := coverage[key]; !ok {
			coverage[key] = r
		}
	}

	var missing [][2]int
	for _, ym := range timeutil.MonthsBetween(from, to) {
		year, month := ym[0], ym[1]

		r, ok := coverage[ym]
		if !ok || r.LastTickTime == 0 {
			missing = append(missing, ym)
			continue
		}

		switch {
		case year == now.Year() && month == int(now.Month()):
			yesterdayEnd := timeutil.StartOfDay(now).Add(-time.Second)
			if r.LastTickTime < shift.LocalToUnix(yesterdayEnd)-currentDayTolerance {
				missing = append(missing, ym)
			}
		case year > now.Year() || (year == now.Year() && month > int(now.Month())):
			log.Printf("tickstore: future month %d-%02d requested for %s, marking missing", year, month, r.Symbol)
			missing = append(missing, ym)
		default:
			shortOfMonthEnd := shift.LocalToUnix(timeutil.MonthEnd(year, month)) - r.LastTickTime
			shortOfTo := shift.LocalToUnix(to) - r.LastTickTime
			if shortOfMonthEnd > monthEndTolerance && shortOfTo > toDateTolerance {
				missing = append(missing, ym)
			}
		}
	}
	return missing
}
