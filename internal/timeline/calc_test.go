package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avolkov/trade-dashboard/internal/models"
)

var eurusdSpec = models.SymbolSpec{
	Symbol:       "EURUSD",
	Digits:       5,
	Point:        0.0001,
	TickValue:    1.0,
	ContractSize: 100000,
	CalcMode:     models.CalcModeForex,
}

var indexSpec = models.SymbolSpec{
	Symbol:       "DE40",
	Digits:       2,
	Point:        0.01,
	ContractSize: 1,
	CalcMode:     models.CalcModeCFD,
}

func TestMargin(t *testing.T) {
	t.Run("forex ignores price", func(t *testing.T) {
		assert.InDelta(t, 1000.0, Margin(eurusdSpec, 1.0, 1.1000, 100), 1e-9)
		assert.InDelta(t, 1000.0, Margin(eurusdSpec, 1.0, 1.2500, 100), 1e-9)
	})

	t.Run("cfd scales with price", func(t *testing.T) {
		assert.InDelta(t, 180.0, Margin(indexSpec, 1.0, 18000, 100), 1e-9)
	})

	t.Run("explicit initial margin wins", func(t *testing.T) {
		spec := indexSpec
		spec.MarginInitial = 5000
		assert.InDelta(t, 100.0, Margin(spec, 2.0, 18000, 100), 1e-9)
	})

	t.Run("non-positive leverage treated as one", func(t *testing.T) {
		assert.InDelta(t, 100000.0, Margin(eurusdSpec, 1.0, 1.1000, 0), 1e-9)
		assert.InDelta(t, 100000.0, Margin(eurusdSpec, 1.0, 1.1000, -5), 1e-9)
	})
}

func TestProfitLoss(t *testing.T) {
	t.Run("forex buy", func(t *testing.T) {
		// 50 points in favor at 1.0 per point per lot.
		got := ProfitLoss(eurusdSpec, 0.1, 1.1000, models.DirectionBuy, 1.1050)
		assert.InDelta(t, 5.0, got, 1e-9)
	})

	t.Run("forex sell flips the sign", func(t *testing.T) {
		got := ProfitLoss(eurusdSpec, 0.1, 1.1000, models.DirectionSell, 1.1050)
		assert.InDelta(t, -5.0, got, 1e-9)
	})

	t.Run("forex missing tick value falls back to one", func(t *testing.T) {
		spec := eurusdSpec
		spec.TickValue = 0
		got := ProfitLoss(spec, 1.0, 1.1000, models.DirectionBuy, 1.1010)
		assert.InDelta(t, 10.0, got, 1e-6)
	})

	t.Run("cfd buy", func(t *testing.T) {
		got := ProfitLoss(indexSpec, 2.0, 18000, models.DirectionBuy, 18050)
		assert.InDelta(t, 100.0, got, 1e-9)
	})

	t.Run("cfd sell loss", func(t *testing.T) {
		got := ProfitLoss(indexSpec, 2.0, 18000, models.DirectionSell, 18050)
		assert.InDelta(t, -100.0, got, 1e-9)
	})
}
