package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avolkov/trade-dashboard/internal/models"
)

// UpsertAggregatedTrade writes the folded view of one position and
// reports whether this write transitioned the trade from open to
// closed (or recorded it as closed for the first time).
func (db *DB) UpsertAggregatedTrade(accountID string, t *models.AggregatedTrade) (bool, error) {
	var wasClosed bool
	existed := true
	err := db.conn.QueryRow(
		`SELECT is_closed FROM aggregated_trades WHERE account_id = $1 AND position_id = $2`,
		accountID, t.PositionID,
	).Scan(&wasClosed)
	if err == sql.ErrNoRows {
		existed = false
	} else if err != nil {
		return false, fmt.Errorf("failed to check existing trade: %w", err)
	}

	query := `
		INSERT INTO aggregated_trades (
			account_id, position_id, ticket_id, magic, symbol, direction, volume,
			entry_time, entry_price, exit_time, exit_price,
			profit, commission, swap, comment, is_closed, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
		ON CONFLICT (account_id, position_id) DO UPDATE SET
			ticket_id = EXCLUDED.ticket_id,
			magic = EXCLUDED.magic,
			symbol = EXCLUDED.symbol,
			direction = EXCLUDED.direction,
			volume = EXCLUDED.volume,
			entry_time = EXCLUDED.entry_time,
			entry_price = EXCLUDED.entry_price,
			exit_time = EXCLUDED.exit_time,
			exit_price = EXCLUDED.exit_price,
			profit = EXCLUDED.profit,
			commission = EXCLUDED.commission,
			swap = EXCLUDED.swap,
			comment = EXCLUDED.comment,
			is_closed = EXCLUDED.is_closed,
			updated_at = EXCLUDED.updated_at
	`
	_, err = db.conn.Exec(query,
		accountID, t.PositionID, t.TicketID, t.Magic, t.Symbol, t.Direction, t.Volume,
		t.EntryTime, t.EntryPrice, t.ExitTime, t.ExitPrice,
		t.Profit, t.Commission, t.Swap, t.Comment, t.IsClosed, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert aggregated trade: %w", err)
	}

	newlyClosed := t.IsClosed && (!existed || !wasClosed)
	return newlyClosed, nil
}

// GetOpenTrades retrieves the account's open trades ordered by entry
// time.
func (db *DB) GetOpenTrades(accountID string) ([]*models.AggregatedTrade, error) {
	query := selectTrades + `
		WHERE account_id = $1 AND NOT is_closed
		ORDER BY entry_time ASC
	`
	return db.scanTrades(db.conn.Query(query, accountID))
}

// GetTradesByDateRange retrieves trades entered within [start, end],
// newest first.
func (db *DB) GetTradesByDateRange(accountID string, start, end time.Time) ([]*models.AggregatedTrade, error) {
	query := selectTrades + `
		WHERE account_id = $1 AND entry_time >= $2 AND entry_time <= $3
		ORDER BY entry_time DESC
	`
	return db.scanTrades(db.conn.Query(query, accountID, start, end))
}

// GetTradesByMagic retrieves trades carrying one strategy id, newest
// first.
func (db *DB) GetTradesByMagic(accountID string, magic int64, limit int) ([]*models.AggregatedTrade, error) {
	query := selectTrades + `
		WHERE account_id = $1 AND magic = $2
		ORDER BY entry_time DESC
		LIMIT $3
	`
	return db.scanTrades(db.conn.Query(query, accountID, magic, limit))
}

const selectTrades = `
	SELECT position_id, ticket_id, magic, symbol, direction, volume,
	       entry_time, entry_price, exit_time, exit_price,
	       profit, commission, swap, comment, is_closed
	FROM aggregated_trades
`

func (db *DB) scanTrades(rows *sql.Rows, err error) ([]*models.AggregatedTrade, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []*models.AggregatedTrade
	for rows.Next() {
		var t models.AggregatedTrade
		var exitTime sql.NullTime
		var exitPrice sql.NullFloat64

		err := rows.Scan(
			&t.PositionID, &t.TicketID, &t.Magic, &t.Symbol, &t.Direction, &t.Volume,
			&t.EntryTime, &t.EntryPrice, &exitTime, &exitPrice,
			&t.Profit, &t.Commission, &t.Swap, &t.Comment, &t.IsClosed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		if exitTime.Valid {
			at := exitTime.Time.UTC()
			t.ExitTime = &at
		}
		if exitPrice.Valid {
			price := exitPrice.Float64
			t.ExitPrice = &price
		}
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

// TradeStats aggregates closed-trade performance for an account.
type TradeStats struct {
	TotalTrades   int             `json:"total_trades"`
	WinningTrades int             `json:"winning_trades"`
	LosingTrades  int             `json:"losing_trades"`
	WinRate       decimal.Decimal `json:"win_rate"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	AvgWin        decimal.Decimal `json:"avg_win"`
	AvgLoss       decimal.Decimal `json:"avg_loss"`
}

// GetTradeStats computes win/loss statistics over the account's closed
// trades.
func (db *DB) GetTradeStats(accountID string) (*TradeStats, error) {
	query := `
		SELECT
			COUNT(*) as total_trades,
			COUNT(*) FILTER (WHERE profit > 0) as winning_trades,
			COUNT(*) FILTER (WHERE profit < 0) as losing_trades,
			COALESCE(SUM(profit), 0) as total_profit,
			COALESCE(AVG(profit) FILTER (WHERE profit > 0), 0) as avg_win,
			COALESCE(AVG(profit) FILTER (WHERE profit < 0), 0) as avg_loss
		FROM aggregated_trades
		WHERE account_id = $1 AND is_closed
	`
	var stats TradeStats
	err := db.conn.QueryRow(query, accountID).Scan(
		&stats.TotalTrades, &stats.WinningTrades, &stats.LosingTrades,
		&stats.TotalProfit, &stats.AvgWin, &stats.AvgLoss,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get trade stats: %w", err)
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = decimal.NewFromInt(int64(stats.WinningTrades)).
			Div(decimal.NewFromInt(int64(stats.TotalTrades))).
			Mul(decimal.NewFromInt(100))
	}
	return &stats, nil
}
