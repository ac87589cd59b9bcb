package models

// Tick is one bid/ask quote observation for a symbol.
// Time is a Unix timestamp in seconds, UTC (terminal clock).
type Tick struct {
	Time   int64   `json:"time"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Volume int64   `json:"volume"`
	Flags  uint32  `json:"flags"`
}

// MonthRange describes tick coverage for one symbol and calendar month.
// FirstTickTime/LastTickTime are Unix timestamps in seconds, UTC.
type MonthRange struct {
	Symbol        string `json:"symbol"`
	Year          int    `json:"year"`
	Month         int    `json:"month"`
	FirstTickTime int64  `json:"first_tick_time"`
	LastTickTime  int64  `json:"last_tick_time"`
	TickCount     int64  `json:"tick_count"`
}

// Quote is a bid/ask pair at some instant.
type Quote struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}

// Margin calculation modes reported by the venue's symbol specification.
const (
	CalcModeForex = 0
	CalcModeCFD   = 1
)

// SymbolSpec carries the venue-provided contract specification used for
// margin and profit/loss math.
type SymbolSpec struct {
	Symbol        string  `json:"symbol"`
	Digits        int     `json:"digits"`
	Point         float64 `json:"point"`
	TickSize      float64 `json:"tick_size"`
	TickValue     float64 `json:"tick_value"`
	ContractSize  float64 `json:"contract_size"`
	MarginInitial float64 `json:"margin_initial"`
	CalcMode      int     `json:"calc_mode"`
}

// AccountSnapshot is the live account state reported by the terminal.
type AccountSnapshot struct {
	Login    int64   `json:"login"`
	Server   string  `json:"server"`
	Currency string  `json:"currency"`
	Leverage int64   `json:"leverage"`
	Balance  float64 `json:"balance"`
	Equity   float64 `json:"equity"`
}
