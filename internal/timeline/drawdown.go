package timeline

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/avolkov/trade-dashboard/internal/models"
	"github.com/avolkov/trade-dashboard/internal/timeutil"
)

// TradeDrawdown returns the worst floating result a closed trade saw
// between entry and exit: the trade evaluated at the window low for Buy,
// at the high for Sell. ok is false when no tick data covers the
// holding period.
func (a *Analyzer) TradeDrawdown(ctx context.Context, trade models.AggregatedTrade, shift timeutil.Shift) (float64, bool, error) {
	if !trade.IsClosed || trade.ExitTime == nil {
		return 0, false, errors.New("trade is still open")
	}

	spec, err := a.specs.SymbolSpec(ctx, trade.Symbol)
	if err != nil {
		return 0, false, err
	}

	entry := shift.UTCToLocal(trade.EntryTime)
	exit := shift.UTCToLocal(*trade.ExitTime)
	if !exit.After(entry) {
		exit = entry.Add(time.Second)
	}

	high, low, ok, err := a.prices.HighLow(ctx, trade.Symbol, entry, exit)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		log.Printf("timeline: no tick data for %s in %s - %s, drawdown unknown",
			trade.Symbol, entry.Format("2006-01-02 15:04:05"), exit.Format("2006-01-02 15:04:05"))
		return 0, false, nil
	}

	extreme := low
	if trade.Direction == models.DirectionSell {
		extreme = high
	}
	return ProfitLoss(spec, trade.Volume, trade.EntryPrice, trade.Direction, extreme), true, nil
}
