package timeline

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/avolkov/trade-dashboard/internal/models"
)

// PriceSource answers price queries over the tick archive, filling gaps
// as needed.
type PriceSource interface {
	HighLow(ctx context.Context, symbol string, from, to time.Time) (high, low float64, ok bool, err error)
	PriceAt(ctx context.Context, symbol string, at time.Time) (models.Quote, bool, error)
}

// SpecSource supplies venue contract specifications.
type SpecSource interface {
	SymbolSpec(ctx context.Context, symbol string) (models.SymbolSpec, error)
}

// AggregatePositions collapses same-symbol, same-direction positions
// into one volume-weighted position. Returns nil on empty input, mixed
// symbols, mixed directions, or non-positive total volume: those signal
// a caller error, not a data condition.
func AggregatePositions(positions []models.Position) *models.AggregatedPosition {
	if len(positions) == 0 {
		return nil
	}

	symbol := positions[0].Symbol
	direction := positions[0].Direction
	var totalVolume, totalPriceVolume float64
	for _, p := range positions {
		if p.Symbol != symbol || !strings.EqualFold(p.Direction, direction) {
			log.Printf("timeline: refusing to aggregate mixed positions (%s %s vs %s %s)",
				symbol, direction, p.Symbol, p.Direction)
			return nil
		}
		totalVolume += p.Volume
		totalPriceVolume += p.OpenPrice * p.Volume
	}
	if totalVolume <= 0 {
		return nil
	}

	return &models.AggregatedPosition{
		Symbol:       symbol,
		Direction:    direction,
		TotalVolume:  totalVolume,
		AveragePrice: totalPriceVolume / totalVolume,
		Count:        len(positions),
	}
}

// Analyzer computes margin and equity figures for position pools.
type Analyzer struct {
	prices   PriceSource
	specs    SpecSource
	leverage int64
}

// NewAnalyzer returns an Analyzer using the given price and spec
// sources and account leverage.
func NewAnalyzer(prices PriceSource, specs SpecSource, leverage int64) *Analyzer {
	return &Analyzer{prices: prices, specs: specs, leverage: leverage}
}

// AnalyzePool groups a pool snapshot by symbol and direction and
// computes, per symbol, the margin requirement and three floating
// equity figures over [timeIn, timeOut]: at the window start, at the
// window end, and at the worst-case extreme (Buy evaluated at the
// window low, Sell at the high). Hedged symbols reserve the larger of
// the two single-direction margins and their equities offset by signed
// summation. Missing tick data degrades the affected equity to zero
// with a warning; margin is computed regardless.
func (a *Analyzer) AnalyzePool(ctx context.Context, positions []models.Position, timeIn, timeOut time.Time) (*models.PoolAnalysis, error) {
	analysis := &models.PoolAnalysis{Aggregated: []models.AggregatedPosition{}}
	if len(positions) == 0 {
		return analysis, nil
	}

	type sideKey struct{ symbol, direction string }
	sides := make(map[sideKey][]models.Position)
	var symbols []string
	seen := make(map[string]bool)
	for _, p := range positions {
		direction := normalizeDirection(p.Direction)
		if direction == "" {
			log.Printf("timeline: skipping position with unknown direction %q for %s", p.Direction, p.Symbol)
			continue
		}
		sides[sideKey{p.Symbol, direction}] = append(sides[sideKey{p.Symbol, direction}], p)
		if !seen[p.Symbol] {
			seen[p.Symbol] = true
			symbols = append(symbols, p.Symbol)
		}
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		buy := AggregatePositions(sides[sideKey{symbol, models.DirectionBuy}])
		sell := AggregatePositions(sides[sideKey{symbol, models.DirectionSell}])
		if buy == nil && sell == nil {
			continue
		}

		spec, err := a.specs.SymbolSpec(ctx, symbol)
		if err != nil {
			log.Printf("timeline: no specification for %s, margin and equity degraded to zero: %v", symbol, err)
			spec = models.SymbolSpec{Symbol: symbol}
		}

		high, low, haveExtent, err := a.prices.HighLow(ctx, symbol, timeIn, timeOut)
		if err != nil {
			return nil, err
		}
		if !haveExtent {
			log.Printf("timeline: no tick data for %s in %s - %s, worst equity degraded to zero",
				symbol, timeIn.Format("2006-01-02 15:04:05"), timeOut.Format("2006-01-02 15:04:05"))
		}

		startQuote, haveStart, err := a.prices.PriceAt(ctx, symbol, timeIn)
		if err != nil {
			return nil, err
		}
		endQuote, haveEnd, err := a.prices.PriceAt(ctx, symbol, timeOut)
		if err != nil {
			return nil, err
		}
		if !haveStart || !haveEnd {
			log.Printf("timeline: missing boundary price for %s, start/end equity degraded to zero", symbol)
		}

		var margins, worst, start, last [2]float64
		for i, side := range [2]*models.AggregatedPosition{buy, sell} {
			if side == nil {
				continue
			}
			margins[i] = Margin(spec, side.TotalVolume, side.AveragePrice, a.leverage)

			// A Buy pool closes at bid and is worst at the window low; a
			// Sell pool closes at ask and is worst at the high.
			extreme, closeAt := low, func(q models.Quote) float64 { return q.Bid }
			if side.Direction == models.DirectionSell {
				extreme, closeAt = high, func(q models.Quote) float64 { return q.Ask }
			}

			if haveExtent {
				worst[i] = ProfitLoss(spec, side.TotalVolume, side.AveragePrice, side.Direction, extreme)
				side.High = high
				side.Low = low
				side.HasExtent = true
				side.WorstPL = worst[i]
			}
			if haveStart {
				start[i] = ProfitLoss(spec, side.TotalVolume, side.AveragePrice, side.Direction, closeAt(startQuote))
			}
			if haveEnd {
				last[i] = ProfitLoss(spec, side.TotalVolume, side.AveragePrice, side.Direction, closeAt(endQuote))
			}

			analysis.Aggregated = append(analysis.Aggregated, *side)
		}

		if buy != nil && sell != nil {
			// Hedged: the venue reserves margin for the larger side only,
			// and the two sides' floating results offset.
			analysis.TotalMargin += max64(margins[0], margins[1])
		} else {
			analysis.TotalMargin += margins[0] + margins[1]
		}
		analysis.TotalWorstEquity += worst[0] + worst[1]
		analysis.TotalStartEquity += start[0] + start[1]
		analysis.TotalLastEquity += last[0] + last[1]
	}

	return analysis, nil
}

func normalizeDirection(direction string) string {
	switch strings.ToUpper(direction) {
	case "BUY", "0":
		return models.DirectionBuy
	case "SELL", "1":
		return models.DirectionSell
	}
	return ""
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
