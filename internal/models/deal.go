package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Deal type constants (terminal-side execution event types).
const (
	DealTypeBuy     = 0
	DealTypeSell    = 1
	DealTypeBalance = 2
)

// Deal entry-kind constants.
const (
	DealEntryIn    = 0
	DealEntryOut   = 1
	DealEntryInOut = 2
	DealEntryOutBy = 3
)

// Direction constants for positions and aggregated trades.
const (
	DirectionBuy  = "Buy"
	DirectionSell = "Sell"
)

// Deal is one broker-side execution event as reported by the terminal.
// Time is a Unix timestamp in seconds, UTC.
type Deal struct {
	Ticket     int64   `json:"ticket"`
	PositionID int64   `json:"position_id"`
	Magic      int64   `json:"magic"`
	Symbol     string  `json:"symbol"`
	Type       int     `json:"type"`
	Entry      int     `json:"entry"`
	Time       int64   `json:"time"`
	Price      float64 `json:"price"`
	Volume     float64 `json:"volume"`
	Profit     float64 `json:"profit"`
	Commission float64 `json:"commission"`
	Swap       float64 `json:"swap"`
	Comment    string  `json:"comment"`
}

// DirectionFromType maps a deal type to a position direction. Balance
// operations and unknown types map to the empty string.
func DirectionFromType(dealType int) string {
	switch dealType {
	case DealTypeBuy:
		return DirectionBuy
	case DealTypeSell:
		return DirectionSell
	default:
		return ""
	}
}

// AggregatedTrade is one logical trade folded from all deals sharing a
// position id. Profit is the net result including commission and swap.
type AggregatedTrade struct {
	TicketID   int64           `json:"ticket_id"`
	PositionID int64           `json:"position_id"`
	Magic      int64           `json:"magic"`
	Symbol     string          `json:"symbol"`
	Direction  string          `json:"direction"`
	Volume     float64         `json:"volume"`
	EntryTime  time.Time       `json:"entry_time"`
	EntryPrice float64         `json:"entry_price"`
	ExitTime   *time.Time      `json:"exit_time,omitempty"`
	ExitPrice  *float64        `json:"exit_price,omitempty"`
	Profit     decimal.Decimal `json:"profit"`
	Commission decimal.Decimal `json:"commission"`
	Swap       decimal.Decimal `json:"swap"`
	Comment    string          `json:"comment,omitempty"`
	IsClosed   bool            `json:"is_closed"`
}

// DealEvent is the Kafka payload for externally recorded deal events.
type DealEvent struct {
	EventType string    `json:"event_type"`
	AccountID string    `json:"account_id"`
	Source    string    `json:"source"`
	Deal      Deal      `json:"deal"`
	Timestamp time.Time `json:"timestamp"`
}

// SyncEvent is published after a deal-history sync completes.
type SyncEvent struct {
	EventType   string    `json:"event_type"`
	AccountID   string    `json:"account_id"`
	DealsSynced int       `json:"deals_synced"`
	NewlyClosed []int64   `json:"newly_closed,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
