package timeline

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avolkov/trade-dashboard/internal/models"
	"github.com/avolkov/trade-dashboard/internal/timeutil"
)

// BalanceMode selects which instant of the target date anchors a
// balance computation.
type BalanceMode int

const (
	// BalanceExact uses the target instant as given.
	BalanceExact BalanceMode = iota
	// BalanceStartOfDay anchors at 00:00:00 of the target's day.
	BalanceStartOfDay
	// BalanceEndOfDay anchors at 23:59:59 of the target's day.
	BalanceEndOfDay
)

// BalanceAtDate replays the deal history and returns the realized
// balance at the local-time target instant. Balance-type deals
// contribute their profit; trading deals contribute profit plus
// commission plus swap. Deals after the target are ignored. With no
// qualifying deals the initial balance is returned unchanged.
func BalanceAtDate(target time.Time, deals []models.Deal, initial decimal.Decimal, mode BalanceMode, shift timeutil.Shift) decimal.Decimal {
	switch mode {
	case BalanceStartOfDay:
		target = timeutil.StartOfDay(target)
	case BalanceEndOfDay:
		target = timeutil.EndOfDay(target)
	}
	targetUnix := shift.LocalToUnix(target)

	sorted := make([]models.Deal, len(deals))
	copy(sorted, deals)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	balance := initial
	for _, d := range sorted {
		if d.Time > targetUnix {
			break
		}
		if d.Type == models.DealTypeBalance {
			balance = balance.Add(decimal.NewFromFloat(d.Profit))
			continue
		}
		balance = balance.
			Add(decimal.NewFromFloat(d.Profit)).
			Add(decimal.NewFromFloat(d.Commission)).
			Add(decimal.NewFromFloat(d.Swap))
	}
	return balance
}
