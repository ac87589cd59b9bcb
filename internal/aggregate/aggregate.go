// Package aggregate folds raw terminal deal events into one logical
// trade per position.
package aggregate

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avolkov/trade-dashboard/internal/models"
)

// Deals groups deal events by position id (falling back to ticket when a
// deal carries no position id) and folds every group into one
// AggregatedTrade. The entry event is the earliest in/in-out deal, the
// exit event the latest out/out-by/in-out deal; money totals are sums
// over the whole group and Profit is the net result including commission
// and swap. Results are ordered by entry time.
func Deals(deals []models.Deal) []models.AggregatedTrade {
	byPosition := make(map[int64][]models.Deal)
	for _, d := range deals {
		id := d.PositionID
		if id == 0 {
			id = d.Ticket
		}
		byPosition[id] = append(byPosition[id], d)
	}

	var trades []models.AggregatedTrade
	for positionID, events := range byPosition {
		sort.SliceStable(events, func(i, j int) bool { return events[i].Time < events[j].Time })

		entry := events[0]
		for _, e := range events {
			if e.Entry == models.DealEntryIn || e.Entry == models.DealEntryInOut {
				entry = e
				break
			}
		}

		var exit *models.Deal
		for i := len(events) - 1; i >= 0; i-- {
			e := events[i]
			if e.Entry == models.DealEntryOut || e.Entry == models.DealEntryOutBy || e.Entry == models.DealEntryInOut {
				exit = &events[i]
				break
			}
		}

		var profit, commission, swap decimal.Decimal
		for _, e := range events {
			profit = profit.Add(decimal.NewFromFloat(e.Profit))
			commission = commission.Add(decimal.NewFromFloat(e.Commission))
			swap = swap.Add(decimal.NewFromFloat(e.Swap))
		}

		trade := models.AggregatedTrade{
			TicketID:   entry.Ticket,
			PositionID: positionID,
			Magic:      resolveMagic(events),
			Symbol:     entry.Symbol,
			Direction:  models.DirectionFromType(entry.Type),
			Volume:     entry.Volume,
			EntryTime:  time.Unix(entry.Time, 0).UTC(),
			EntryPrice: entry.Price,
			Profit:     profit.Add(commission).Add(swap),
			Commission: commission,
			Swap:       swap,
			Comment:    resolveComment(events, entry, exit),
			IsClosed:   exit != nil,
		}
		if exit != nil {
			trade.TicketID = exit.Ticket
			if trade.Symbol == "" {
				trade.Symbol = exit.Symbol
			}
			exitTime := time.Unix(exit.Time, 0).UTC()
			exitPrice := exit.Price
			trade.ExitTime = &exitTime
			trade.ExitPrice = &exitPrice
		}
		trades = append(trades, trade)
	}

	sort.Slice(trades, func(i, j int) bool {
		if trades[i].EntryTime.Equal(trades[j].EntryTime) {
			return trades[i].PositionID < trades[j].PositionID
		}
		return trades[i].EntryTime.Before(trades[j].EntryTime)
	})
	return trades
}

// resolveMagic picks the first non-zero strategy id among the events.
func resolveMagic(events []models.Deal) int64 {
	for _, e := range events {
		if e.Magic != 0 {
			return e.Magic
		}
	}
	return 0
}

// resolveComment prefers the entry and exit comments joined when they
// differ, either one alone, then the most recent non-empty comment in
// the group.
func resolveComment(events []models.Deal, entry models.Deal, exit *models.Deal) string {
	entryComment := strings.TrimSpace(entry.Comment)
	var exitComment string
	if exit != nil {
		exitComment = strings.TrimSpace(exit.Comment)
	}

	switch {
	case entryComment != "" && exitComment != "":
		if entryComment == exitComment {
			return entryComment
		}
		return entryComment + " | " + exitComment
	case entryComment != "":
		return entryComment
	case exitComment != "":
		return exitComment
	}

	for i := len(events) - 1; i >= 0; i-- {
		if c := strings.TrimSpace(events[i].Comment); c != "" {
			return c
		}
	}
	return ""
}
