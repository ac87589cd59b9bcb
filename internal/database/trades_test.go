package database

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/trade-dashboard/internal/models"
)

func TestTradesRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	const accountID = "12345@Test-Server"
	entryTime := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	openTrade := func(positionID int64) *models.AggregatedTrade {
		return &models.AggregatedTrade{
			TicketID:   positionID * 10,
			PositionID: positionID,
			Magic:      7,
			Symbol:     "EURUSD",
			Direction:  models.DirectionBuy,
			Volume:     0.1,
			EntryTime:  entryTime,
			EntryPrice: 1.1000,
		}
	}

	closeTrade := func(trade *models.AggregatedTrade, profit string) {
		exitTime := trade.EntryTime.Add(time.Hour)
		exitPrice := 1.1050
		trade.ExitTime = &exitTime
		trade.ExitPrice = &exitPrice
		trade.Profit, _ = decimal.NewFromString(profit)
		trade.IsClosed = true
	}

	t.Run("UpsertAggregatedTrade reports the open to closed transition", func(t *testing.T) {
		testDB.TruncateAll(t)

		trade := openTrade(1)
		newlyClosed, err := testDB.UpsertAggregatedTrade(accountID, trade)
		require.NoError(t, err)
		assert.False(t, newlyClosed)

		// Re-upserting an open trade is not a transition.
		newlyClosed, err = testDB.UpsertAggregatedTrade(accountID, trade)
		require.NoError(t, err)
		assert.False(t, newlyClosed)

		closeTrade(trade, "45")
		newlyClosed, err = testDB.UpsertAggregatedTrade(accountID, trade)
		require.NoError(t, err)
		assert.True(t, newlyClosed)

		// Re-upserting a closed trade is not a transition either.
		newlyClosed, err = testDB.UpsertAggregatedTrade(accountID, trade)
		require.NoError(t, err)
		assert.False(t, newlyClosed)
	})

	t.Run("trade arriving already closed counts as newly closed", func(t *testing.T) {
		testDB.TruncateAll(t)

		trade := openTrade(2)
		closeTrade(trade, "12.50")
		newlyClosed, err := testDB.UpsertAggregatedTrade(accountID, trade)
		require.NoError(t, err)
		assert.True(t, newlyClosed)
	})

	t.Run("GetOpenTrades returns only open trades", func(t *testing.T) {
		testDB.TruncateAll(t)

		open := openTrade(3)
		_, err := testDB.UpsertAggregatedTrade(accountID, open)
		require.NoError(t, err)

		closed := openTrade(4)
		closeTrade(closed, "45")
		_, err = testDB.UpsertAggregatedTrade(accountID, closed)
		require.NoError(t, err)

		trades, err := testDB.GetOpenTrades(accountID)
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, int64(3), trades[0].PositionID)
		assert.Nil(t, trades[0].ExitTime)
	})

	t.Run("GetTradesByDateRange round trips money fields", func(t *testing.T) {
		testDB.TruncateAll(t)

		trade := openTrade(5)
		closeTrade(trade, "45")
		trade.Commission, _ = decimal.NewFromString("-4")
		trade.Swap, _ = decimal.NewFromString("-1")
		trade.Comment = "open | close"
		_, err := testDB.UpsertAggregatedTrade(accountID, trade)
		require.NoError(t, err)

		trades, err := testDB.GetTradesByDateRange(accountID, entryTime.Add(-time.Hour), entryTime.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, trades, 1)

		got := trades[0]
		assert.True(t, got.Profit.Equal(decimal.NewFromInt(45)), got.Profit.String())
		assert.True(t, got.Commission.Equal(decimal.NewFromInt(-4)))
		assert.True(t, got.Swap.Equal(decimal.NewFromInt(-1)))
		assert.Equal(t, "open | close", got.Comment)
		require.NotNil(t, got.ExitPrice)
		assert.InDelta(t, 1.1050, *got.ExitPrice, 1e-9)
		require.NotNil(t, got.ExitTime)
		assert.True(t, got.ExitTime.Equal(entryTime.Add(time.Hour)))
	})

	t.Run("GetTradesByMagic", func(t *testing.T) {
		testDB.TruncateAll(t)

		wanted := openTrade(6)
		_, err := testDB.UpsertAggregatedTrade(accountID, wanted)
		require.NoError(t, err)

		other := openTrade(7)
		other.Magic = 99
		_, err = testDB.UpsertAggregatedTrade(accountID, other)
		require.NoError(t, err)

		trades, err := testDB.GetTradesByMagic(accountID, 7, 10)
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, int64(6), trades[0].PositionID)
	})

	t.Run("GetTradeStats", func(t *testing.T) {
		testDB.TruncateAll(t)

		for i, profit := range []string{"100", "50", "-30"} {
			trade := openTrade(int64(10 + i))
			closeTrade(trade, profit)
			_, err := testDB.UpsertAggregatedTrade(accountID, trade)
			require.NoError(t, err)
		}
		// Open trades are excluded from stats.
		_, err := testDB.UpsertAggregatedTrade(accountID, openTrade(20))
		require.NoError(t, err)

		stats, err := testDB.GetTradeStats(accountID)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.TotalTrades)
		assert.Equal(t, 2, stats.WinningTrades)
		assert.Equal(t, 1, stats.LosingTrades)
		assert.True(t, stats.TotalProfit.Equal(decimal.NewFromInt(120)), stats.TotalProfit.String())
		assert.True(t, stats.AvgWin.Equal(decimal.NewFromInt(75)))
		assert.True(t, stats.AvgLoss.Equal(decimal.NewFromInt(-30)))
	})
}
