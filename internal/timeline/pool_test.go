package timeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/trade-dashboard/internal/models"
)

// stubPrices serves fixed window extremes and one fixed boundary quote.
type stubPrices struct {
	high, low  float64
	haveExtent bool
	quote      models.Quote
	haveQuote  bool
	err        error
}

func (s *stubPrices) HighLow(_ context.Context, _ string, _, _ time.Time) (float64, float64, bool, error) {
	return s.high, s.low, s.haveExtent, s.err
}

func (s *stubPrices) PriceAt(_ context.Context, _ string, _ time.Time) (models.Quote, bool, error) {
	return s.quote, s.haveQuote, s.err
}

type stubSpecs map[string]models.SymbolSpec

func (s stubSpecs) SymbolSpec(_ context.Context, symbol string) (models.SymbolSpec, error) {
	spec, ok := s[symbol]
	if !ok {
		return models.SymbolSpec{}, fmt.Errorf("no specification for %s", symbol)
	}
	return spec, nil
}

func TestAggregatePositions(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, AggregatePositions(nil))
	})

	t.Run("mixed symbols refused", func(t *testing.T) {
		assert.Nil(t, AggregatePositions([]models.Position{
			{Symbol: "EURUSD", Direction: models.DirectionBuy, Volume: 1, OpenPrice: 1.1},
			{Symbol: "GBPUSD", Direction: models.DirectionBuy, Volume: 1, OpenPrice: 1.25},
		}))
	})

	t.Run("mixed directions refused", func(t *testing.T) {
		assert.Nil(t, AggregatePositions([]models.Position{
			{Symbol: "EURUSD", Direction: models.DirectionBuy, Volume: 1, OpenPrice: 1.1},
			{Symbol: "EURUSD", Direction: models.DirectionSell, Volume: 1, OpenPrice: 1.1},
		}))
	})

	t.Run("zero total volume refused", func(t *testing.T) {
		assert.Nil(t, AggregatePositions([]models.Position{
			{Symbol: "EURUSD", Direction: models.DirectionBuy, Volume: 0, OpenPrice: 1.1},
		}))
	})

	t.Run("volume-weighted average", func(t *testing.T) {
		agg := AggregatePositions([]models.Position{
			{Symbol: "EURUSD", Direction: models.DirectionBuy, Volume: 1.0, OpenPrice: 1.1000},
			{Symbol: "EURUSD", Direction: "BUY", Volume: 3.0, OpenPrice: 1.2000},
		})
		require.NotNil(t, agg)
		assert.Equal(t, models.DirectionBuy, agg.Direction)
		assert.InDelta(t, 4.0, agg.TotalVolume, 1e-9)
		assert.InDelta(t, 1.1750, agg.AveragePrice, 1e-9)
		assert.Equal(t, 2, agg.Count)
	})
}

func TestAnalyzePoolEmpty(t *testing.T) {
	analyzer := NewAnalyzer(&stubPrices{}, stubSpecs{}, 100)
	analysis, err := analyzer.AnalyzePool(context.Background(), nil, localTime(10, 0, 0), localTime(10, 12, 0))
	require.NoError(t, err)
	require.NotNil(t, analysis)
	assert.Empty(t, analysis.Aggregated)
	assert.Zero(t, analysis.TotalMargin)
}

func TestAnalyzePoolHedged(t *testing.T) {
	prices := &stubPrices{
		high: 1.1150, low: 1.0950, haveExtent: true,
		quote: models.Quote{Bid: 1.1050, Ask: 1.1052}, haveQuote: true,
	}
	analyzer := NewAnalyzer(prices, stubSpecs{"EURUSD": eurusdSpec}, 100)

	positions := []models.Position{
		{Symbol: "EURUSD", Direction: models.DirectionBuy, Volume: 1.0, OpenPrice: 1.1000},
		{Symbol: "EURUSD", Direction: models.DirectionSell, Volume: 0.5, OpenPrice: 1.1100},
	}
	analysis, err := analyzer.AnalyzePool(context.Background(), positions, localTime(10, 0, 0), localTime(10, 12, 0))
	require.NoError(t, err)
	require.Len(t, analysis.Aggregated, 2)

	// Hedged margin reserves only the larger side: max(1000, 500).
	assert.InDelta(t, 1000.0, analysis.TotalMargin, 1e-9)

	// Buy worst at the low (-50), Sell worst at the high (-25).
	assert.InDelta(t, -75.0, analysis.TotalWorstEquity, 1e-6)

	// Buy closes at bid (+50), Sell at ask (+24).
	assert.InDelta(t, 74.0, analysis.TotalStartEquity, 1e-6)
	assert.InDelta(t, 74.0, analysis.TotalLastEquity, 1e-6)

	buy := analysis.Aggregated[0]
	assert.Equal(t, models.DirectionBuy, buy.Direction)
	assert.True(t, buy.HasExtent)
	assert.InDelta(t, 1.1150, buy.High, 1e-9)
	assert.InDelta(t, -50.0, buy.WorstPL, 1e-6)
}

func TestAnalyzePoolSumsUnhedgedMargins(t *testing.T) {
	prices := &stubPrices{
		high: 1.30, low: 1.10, haveExtent: true,
		quote: models.Quote{Bid: 1.20, Ask: 1.21}, haveQuote: true,
	}
	analyzer := NewAnalyzer(prices, stubSpecs{"EURUSD": eurusdSpec, "GBPUSD": eurusdSpec}, 100)

	positions := []models.Position{
		{Symbol: "EURUSD", Direction: models.DirectionBuy, Volume: 1.0, OpenPrice: 1.20},
		{Symbol: "GBPUSD", Direction: models.DirectionBuy, Volume: 0.5, OpenPrice: 1.20},
	}
	analysis, err := analyzer.AnalyzePool(context.Background(), positions, localTime(10, 0, 0), localTime(10, 12, 0))
	require.NoError(t, err)
	assert.InDelta(t, 1500.0, analysis.TotalMargin, 1e-9)
}

func TestAnalyzePoolDegradesOnMissingData(t *testing.T) {
	analyzer := NewAnalyzer(&stubPrices{}, stubSpecs{"EURUSD": eurusdSpec}, 100)

	positions := []models.Position{
		{Symbol: "EURUSD", Direction: models.DirectionBuy, Volume: 1.0, OpenPrice: 1.1000},
	}
	analysis, err := analyzer.AnalyzePool(context.Background(), positions, localTime(10, 0, 0), localTime(10, 12, 0))
	require.NoError(t, err)
	require.Len(t, analysis.Aggregated, 1)

	// Margin needs no tick data; every equity figure degrades to zero.
	assert.InDelta(t, 1000.0, analysis.TotalMargin, 1e-9)
	assert.Zero(t, analysis.TotalWorstEquity)
	assert.Zero(t, analysis.TotalStartEquity)
	assert.Zero(t, analysis.TotalLastEquity)
	assert.False(t, analysis.Aggregated[0].HasExtent)
}

func TestAnalyzePoolSkipsUnknownDirections(t *testing.T) {
	analyzer := NewAnalyzer(&stubPrices{}, stubSpecs{"EURUSD": eurusdSpec}, 100)
	analysis, err := analyzer.AnalyzePool(context.Background(), []models.Position{
		{Symbol: "EURUSD", Direction: "CreditFacility", Volume: 1.0, OpenPrice: 1.1},
	}, localTime(10, 0, 0), localTime(10, 12, 0))
	require.NoError(t, err)
	assert.Empty(t, analysis.Aggregated)
}
