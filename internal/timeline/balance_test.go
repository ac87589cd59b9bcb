package timeline

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/avolkov/trade-dashboard/internal/models"
	"github.com/avolkov/trade-dashboard/internal/timeutil"
)

var balanceShift = timeutil.Shift(3)

func localTime(day, hour, minute int) time.Time {
	return time.Date(2024, 6, day, hour, minute, 0, 0, time.UTC)
}

func TestBalanceAtDate(t *testing.T) {
	deals := []models.Deal{
		{Ticket: 1, Type: models.DealTypeBalance, Time: balanceShift.LocalToUnix(localTime(1, 9, 0)), Profit: 10000},
		{Ticket: 2, Type: models.DealTypeSell, Entry: models.DealEntryOut,
			Time: balanceShift.LocalToUnix(localTime(3, 12, 0)), Profit: 250, Commission: -8, Swap: -2},
		{Ticket: 3, Type: models.DealTypeBuy, Entry: models.DealEntryOut,
			Time: balanceShift.LocalToUnix(localTime(5, 18, 30)), Profit: -40},
	}

	t.Run("no deals returns initial", func(t *testing.T) {
		got := BalanceAtDate(localTime(10, 0, 0), nil, decimal.NewFromInt(500), BalanceExact, balanceShift)
		assert.True(t, got.Equal(decimal.NewFromInt(500)))
	})

	t.Run("balance deal contributes profit only", func(t *testing.T) {
		got := BalanceAtDate(localTime(2, 0, 0), deals, decimal.Decimal{}, BalanceExact, balanceShift)
		assert.True(t, got.Equal(decimal.NewFromInt(10000)))
	})

	t.Run("trading deal folds commission and swap", func(t *testing.T) {
		got := BalanceAtDate(localTime(4, 0, 0), deals, decimal.Decimal{}, BalanceExact, balanceShift)
		assert.True(t, got.Equal(decimal.NewFromInt(10240)), got.String())
	})

	t.Run("deals past the target are ignored", func(t *testing.T) {
		got := BalanceAtDate(localTime(5, 18, 0), deals, decimal.Decimal{}, BalanceExact, balanceShift)
		assert.True(t, got.Equal(decimal.NewFromInt(10240)))
	})

	t.Run("start of day excludes same-day deals", func(t *testing.T) {
		got := BalanceAtDate(localTime(3, 15, 0), deals, decimal.Decimal{}, BalanceStartOfDay, balanceShift)
		assert.True(t, got.Equal(decimal.NewFromInt(10000)))
	})

	t.Run("end of day includes the whole day", func(t *testing.T) {
		got := BalanceAtDate(localTime(5, 1, 0), deals, decimal.Decimal{}, BalanceEndOfDay, balanceShift)
		assert.True(t, got.Equal(decimal.NewFromInt(10200)))
	})
}
