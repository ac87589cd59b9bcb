package timeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avolkov/trade-dashboard/internal/models"
	"github.com/avolkov/trade-dashboard/internal/timeutil"
)

const (
	// Deals executed within this window of a group's first deal belong
	// to the same group: brokers split one logical action into several
	// near-simultaneous executions.
	groupWindow = 2 // seconds

	// Volume deltas at or below this are rounding noise, not a pool
	// composition change.
	poolChangeThreshold = 0.001

	volumeEpsilon = 1e-8
)

// Timeline reconstructs the open-position pool over a time window by
// replaying deal history.
type Timeline struct {
	analyzer *Analyzer
	shift    timeutil.Shift
}

// NewTimeline returns a Timeline analyzing pool snapshots with analyzer
// and interpreting window boundaries in the given local timeshift.
func NewTimeline(analyzer *Analyzer, shift timeutil.Shift) *Timeline {
	return &Timeline{analyzer: analyzer, shift: shift}
}

// positionState is one open position being tracked through replay.
// Partial closes reduce volume at the running average price.
type positionState struct {
	symbol      string
	direction   string
	volume      float64
	priceVolume float64
}

func (s *positionState) averagePrice() float64 {
	if s.volume <= 0 {
		return 0
	}
	return s.priceVolume / s.volume
}

// poolKey identifies one side of one symbol in the pool.
type poolKey struct {
	symbol    string
	direction string
}

// PositionsTimeline replays the deal history over [from, to] (local
// display time) and returns one segment per contiguous span with an
// unchanged pool composition. Deals before from are replayed silently to
// establish the pool at the window start; the first segment's balance is
// the realized balance at that instant. Groups of deals executed within
// two seconds of each other are applied atomically, and groups that only
// move the balance fold into the current segment instead of opening a
// new one. With a non-empty magics list only positions carrying one of
// those strategy ids participate.
func (t *Timeline) PositionsTimeline(ctx context.Context, from, to time.Time, magics []int64, deals []models.Deal, initial decimal.Decimal) ([]models.TimelineSegment, error) {
	fromUnix := t.shift.LocalToUnix(from)
	toUnix := t.shift.LocalToUnix(to)

	trading := relevantDeals(deals, magics)
	sort.SliceStable(trading, func(i, j int) bool {
		if trading[i].Time == trading[j].Time {
			return trading[i].Ticket < trading[j].Ticket
		}
		return trading[i].Time < trading[j].Time
	})

	// Replay everything before the window to recover the pool standing
	// open at from; balance effects of those deals are already part of
	// the balance-at-date figure.
	pool := make(map[int64]*positionState)
	var window []models.Deal
	for _, d := range trading {
		switch {
		case d.Time < fromUnix:
			applyDeal(pool, d)
		case d.Time <= toUnix:
			window = append(window, d)
		}
	}
	groups := groupDeals(window)

	balance := BalanceAtDate(from, deals, initial, BalanceExact, t.shift)

	segments := []models.TimelineSegment{{
		TimeIn:      from,
		TimeOut:     to,
		Balance:     balance,
		PoolChanges: "Initial state",
	}}
	pools := [][]models.Position{poolPositions(pool)}

	composition := poolComposition(pool)
	for _, g := range groups {
		var delta decimal.Decimal
		for _, d := range g.deals {
			delta = delta.Add(applyDeal(pool, d))
		}
		balance = balance.Add(delta)

		next := poolComposition(pool)
		parts := poolChangeParts(composition, next)
		if len(parts) == 0 {
			// Balance moved but the pool did not: fold into the
			// current segment.
			last := &segments[len(segments)-1]
			last.Balance = balance
			last.BalanceChange = last.BalanceChange.Add(delta)
			continue
		}

		at := t.shift.UnixToLocal(g.at)
		segments[len(segments)-1].TimeOut = at

		changes := strings.Join(parts, ", ")
		if len(next) == 0 {
			changes = "Empty pool"
		}
		segments = append(segments, models.TimelineSegment{
			TimeIn:        at,
			TimeOut:       to,
			Balance:       balance,
			BalanceChange: delta,
			PoolChanges:   changes,
		})
		pools = append(pools, poolPositions(pool))
		composition = next
	}

	for i := range segments {
		analysis, err := t.analyzer.AnalyzePool(ctx, pools[i], segments[i].TimeIn, segments[i].TimeOut)
		if err != nil {
			return nil, fmt.Errorf("failed to analyze pool segment %d: %w", i, err)
		}
		segments[i].Aggregated = analysis.Aggregated
		segments[i].TotalMargin = analysis.TotalMargin
		segments[i].WorstEquity = analysis.TotalWorstEquity
		segments[i].StartEquity = analysis.TotalStartEquity
		segments[i].LastEquity = analysis.TotalLastEquity
	}
	return segments, nil
}

// relevantDeals drops balance operations and, when magics is non-empty,
// deals belonging to positions outside the listed strategies. A deal
// participates when its own magic is listed or when its position's
// magic is; a position's magic is the first non-zero one any of its
// deals reported, so a manual close carrying magic zero cannot hide its
// strategy's position.
func relevantDeals(deals []models.Deal, magics []int64) []models.Deal {
	var trading []models.Deal
	positionMagic := make(map[int64]int64)
	for _, d := range deals {
		if d.Type == models.DealTypeBalance {
			continue
		}
		trading = append(trading, d)
		if d.Magic != 0 && positionMagic[dealPositionID(d)] == 0 {
			positionMagic[dealPositionID(d)] = d.Magic
		}
	}
	if len(magics) == 0 {
		return trading
	}

	wanted := make(map[int64]bool, len(magics))
	for _, m := range magics {
		wanted[m] = true
	}
	filtered := trading[:0]
	for _, d := range trading {
		if wanted[d.Magic] || wanted[positionMagic[dealPositionID(d)]] {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

func dealPositionID(d models.Deal) int64 {
	if d.PositionID != 0 {
		return d.PositionID
	}
	return d.Ticket
}

// applyDeal mutates the pool for one deal and returns its realized
// balance effect. Entry deals add volume at the deal price and realize
// only swap. Exit deals reduce volume at the running average price and,
// when they actually close volume, realize profit, swap and commission
// for both legs; exits against an unknown position realize swap only.
// Other entry kinds are left to the reporting side and ignored here.
func applyDeal(pool map[int64]*positionState, d models.Deal) decimal.Decimal {
	swap := decimal.NewFromFloat(d.Swap)

	switch d.Entry {
	case models.DealEntryIn:
		id := dealPositionID(d)
		st := pool[id]
		if st == nil {
			st = &positionState{symbol: d.Symbol, direction: models.DirectionFromType(d.Type)}
			pool[id] = st
		}
		st.volume += d.Volume
		st.priceVolume += d.Price * d.Volume
		return swap

	case models.DealEntryOut:
		id := dealPositionID(d)
		st := pool[id]
		if st == nil {
			return swap
		}
		closeVolume := math.Min(d.Volume, st.volume)
		if closeVolume <= 0 {
			return swap
		}
		avg := st.averagePrice()
		st.volume -= closeVolume
		st.priceVolume = avg * st.volume
		if st.volume <= volumeEpsilon {
			delete(pool, id)
		}
		return decimal.NewFromFloat(d.Profit).
			Add(swap).
			Add(decimal.NewFromFloat(d.Commission).Mul(decimal.NewFromInt(2)))
	}
	return decimal.Decimal{}
}

type dealGroup struct {
	at    int64
	deals []models.Deal
}

// groupDeals splits time-ordered deals into groups; a deal joins the
// current group while it executed within groupWindow seconds of the
// group's first deal.
func groupDeals(deals []models.Deal) []dealGroup {
	var groups []dealGroup
	for _, d := range deals {
		if n := len(groups); n > 0 && d.Time-groups[n-1].at <= groupWindow {
			groups[n-1].deals = append(groups[n-1].deals, d)
			continue
		}
		groups = append(groups, dealGroup{at: d.Time, deals: []models.Deal{d}})
	}
	return groups
}

// poolComposition maps each (symbol, direction) side to its total open
// volume.
func poolComposition(pool map[int64]*positionState) map[poolKey]float64 {
	comp := make(map[poolKey]float64, len(pool))
	for _, st := range pool {
		comp[poolKey{st.symbol, st.direction}] += st.volume
	}
	return comp
}

// poolChangeParts describes the volume deltas between two compositions,
// one "%+.2f SYMBOL Direction" entry per changed side in symbol order.
// An empty result means the compositions are equal.
func poolChangeParts(before, after map[poolKey]float64) []string {
	keys := make([]poolKey, 0, len(before)+len(after))
	seen := make(map[poolKey]bool)
	for k := range before {
		seen[k] = true
		keys = append(keys, k)
	}
	for k := range after {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].symbol == keys[j].symbol {
			return keys[i].direction < keys[j].direction
		}
		return keys[i].symbol < keys[j].symbol
	})

	var parts []string
	for _, k := range keys {
		delta := after[k] - before[k]
		if math.Abs(delta) > poolChangeThreshold {
			parts = append(parts, fmt.Sprintf("%+.2f %s %s", delta, k.symbol, k.direction))
		}
	}
	return parts
}

// poolPositions snapshots the pool as position records, ordered by
// symbol then direction for stable output.
func poolPositions(pool map[int64]*positionState) []models.Position {
	positions := make([]models.Position, 0, len(pool))
	for _, st := range pool {
		positions = append(positions, models.Position{
			Symbol:    st.symbol,
			Direction: st.direction,
			Volume:    st.volume,
			OpenPrice: st.averagePrice(),
		})
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Symbol == positions[j].Symbol {
			if positions[i].Direction == positions[j].Direction {
				return positions[i].Volume < positions[j].Volume
			}
			return positions[i].Direction < positions[j].Direction
		}
		return positions[i].Symbol < positions[j].Symbol
	})
	return positions
}
