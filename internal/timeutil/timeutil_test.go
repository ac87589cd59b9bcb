package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShiftConversions(t *testing.T) {
	shift := Shift(3)

	t.Run("local to UTC subtracts the offset", func(t *testing.T) {
		local := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
		utc := shift.LocalToUTC(local)
		assert.Equal(t, time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC), utc)
	})

	t.Run("round trip through unix seconds", func(t *testing.T) {
		local := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
		ts := shift.LocalToUnix(local)
		assert.Equal(t, local, shift.UnixToLocal(ts))
	})

	t.Run("zero shift is identity", func(t *testing.T) {
		local := time.Date(2024, 3, 15, 12, 34, 56, 0, time.UTC)
		assert.Equal(t, local, Shift(0).LocalToUTC(local))
		assert.Equal(t, local.Unix(), Shift(0).LocalToUnix(local))
	})

	t.Run("negative shift", func(t *testing.T) {
		local := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
		utc := Shift(-5).LocalToUTC(local)
		assert.Equal(t, time.Date(2024, 3, 15, 17, 0, 0, 0, time.UTC), utc)
	})
}

func TestDayBounds(t *testing.T) {
	at := time.Date(2024, 3, 15, 13, 45, 12, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), StartOfDay(at))
	assert.Equal(t, time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC), EndOfDay(at))
}

func TestMonthHelpers(t *testing.T) {
	t.Run("month end handles December", func(t *testing.T) {
		assert.Equal(t, time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC), MonthEnd(2024, 12))
	})

	t.Run("next month rolls the year", func(t *testing.T) {
		y, m := NextMonth(2024, 12)
		assert.Equal(t, 2025, y)
		assert.Equal(t, 1, m)
	})

	t.Run("months between spans a year boundary", func(t *testing.T) {
		from := time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)
		to := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
		months := MonthsBetween(from, to)
		assert.Equal(t, [][2]int{{2024, 11}, {2024, 12}, {2025, 1}, {2025, 2}}, months)
	})

	t.Run("single month", func(t *testing.T) {
		from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC)
		assert.Equal(t, [][2]int{{2024, 5}}, MonthsBetween(from, to))
	})
}
