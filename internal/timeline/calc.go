// Package timeline replays aggregated deal history to reconstruct the
// open-position pool at arbitrary instants, and analyzes pool snapshots:
// margin requirement, worst-case and boundary floating equity, and a
// running realized-balance ledger.
package timeline

import (
	"github.com/avolkov/trade-dashboard/internal/models"
)

// Margin returns the capital the venue reserves for lots of symbol at
// price, given the account leverage. An explicit initial-margin figure
// in the specification wins; otherwise forex margin is contract-sized
// without price, CFD margin scales with price.
func Margin(spec models.SymbolSpec, lots, price float64, leverage int64) float64 {
	if leverage <= 0 {
		leverage = 1
	}
	if spec.MarginInitial > 0 {
		return lots * spec.MarginInitial / float64(leverage)
	}
	if spec.CalcMode == models.CalcModeForex {
		return lots * spec.ContractSize / float64(leverage)
	}
	return lots * spec.ContractSize * price / float64(leverage)
}

// ProfitLoss returns the signed deposit-currency result of closing lots
// opened at priceOpen once the market reaches priceTarget. Negative
// means loss.
func ProfitLoss(spec models.SymbolSpec, lots, priceOpen float64, direction string, priceTarget float64) float64 {
	diff := priceTarget - priceOpen
	if direction == models.DirectionSell {
		diff = priceOpen - priceTarget
	}

	if spec.CalcMode == models.CalcModeForex && spec.Point > 0 {
		tickValue := spec.TickValue
		if tickValue <= 0 {
			tickValue = 1.0
		}
		return diff / spec.Point * tickValue * lots
	}
	return diff * spec.ContractSize * lots
}
