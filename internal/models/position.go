package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is one open holding as fed into pool aggregation: symbol,
// direction, lot volume and the (possibly volume-weighted) open price.
type Position struct {
	Symbol    string  `json:"symbol"`
	Direction string  `json:"direction"`
	Volume    float64 `json:"volume"`
	OpenPrice float64 `json:"price_open"`
}

// AggregatedPosition is the volume-weighted collapse of all same-symbol,
// same-direction positions in a pool.
type AggregatedPosition struct {
	Symbol       string  `json:"symbol"`
	Direction    string  `json:"direction"`
	TotalVolume  float64 `json:"total_volume"`
	AveragePrice float64 `json:"average_price"`
	Count        int     `json:"positions_count"`

	// Window extremes and the worst-case P/L, populated by pool analysis
	// when tick data is available for the window.
	High      float64 `json:"high,omitempty"`
	Low       float64 `json:"low,omitempty"`
	WorstPL   float64 `json:"worst_profit_loss"`
	HasExtent bool    `json:"has_extent"`
}

// PoolAnalysis summarizes one position pool over a time window.
// Equity figures are signed: negative means loss.
type PoolAnalysis struct {
	Aggregated       []AggregatedPosition `json:"aggregated_positions"`
	TotalMargin      float64              `json:"total_margin"`
	TotalWorstEquity float64              `json:"total_worst_equity"`
	TotalStartEquity float64              `json:"total_start_equity"`
	TotalLastEquity  float64              `json:"total_last_equity"`
}

// TimelineSegment is one contiguous span during which the pool's
// (symbol, direction) -> volume composition did not change. Times are in
// local display time.
type TimelineSegment struct {
	TimeIn        time.Time            `json:"time_in"`
	TimeOut       time.Time            `json:"time_out"`
	Aggregated    []AggregatedPosition `json:"aggregated_positions"`
	TotalMargin   float64              `json:"total_margin"`
	WorstEquity   float64              `json:"total_worst_equity"`
	StartEquity   float64              `json:"total_start_equity"`
	LastEquity    float64              `json:"total_last_equity"`
	Balance       decimal.Decimal      `json:"balance"`
	BalanceChange decimal.Decimal      `json:"balance_change"`
	PoolChanges   string               `json:"pool_changes"`
}
