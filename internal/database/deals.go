package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/avolkov/trade-dashboard/internal/models"
)

// CreateDeal inserts one raw deal event into the audit trail.
func (db *DB) CreateDeal(accountID string, d *models.Deal) error {
	query := `
		INSERT INTO deals (
			account_id, ticket, position_id, magic, symbol, deal_type, entry,
			deal_time, price, volume, profit, commission, swap, comment, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`
	_, err := db.conn.Exec(query,
		accountID, d.Ticket, d.PositionID, d.Magic, d.Symbol, d.Type, d.Entry,
		d.Time, d.Price, d.Volume, d.Profit, d.Commission, d.Swap, d.Comment, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}
	return nil
}

// DealExists checks whether a deal ticket was already recorded for the
// account.
func (db *DB) DealExists(accountID string, ticket int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM deals WHERE account_id = $1 AND ticket = $2)`
	var exists bool
	err := db.conn.QueryRow(query, accountID, ticket).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check deal existence: %w", err)
	}
	return exists, nil
}

// GetDeals retrieves the account's deals in [fromTime, toTime] (Unix
// seconds, inclusive), ordered by execution time then ticket.
func (db *DB) GetDeals(accountID string, fromTime, toTime int64) ([]models.Deal, error) {
	query := `
		SELECT ticket, position_id, magic, symbol, deal_type, entry,
		       deal_time, price, volume, profit, commission, swap, comment
		FROM deals
		WHERE account_id = $1 AND deal_time >= $2 AND deal_time <= $3
		ORDER BY deal_time ASC, ticket ASC
	`
	return db.scanDeals(db.conn.Query(query, accountID, fromTime, toTime))
}

// GetDealsByPosition retrieves every deal belonging to one position.
func (db *DB) GetDealsByPosition(accountID string, positionID int64) ([]models.Deal, error) {
	query := `
		SELECT ticket, position_id, magic, symbol, deal_type, entry,
		       deal_time, price, volume, profit, commission, swap, comment
		FROM deals
		WHERE account_id = $1 AND position_id = $2
		ORDER BY deal_time ASC, ticket ASC
	`
	return db.scanDeals(db.conn.Query(query, accountID, positionID))
}

// LastDealTime returns the execution time of the account's most recent
// deal, or ok=false when no deals are stored.
func (db *DB) LastDealTime(accountID string) (int64, bool, error) {
	query := `SELECT MAX(deal_time) FROM deals WHERE account_id = $1`
	var last sql.NullInt64
	if err := db.conn.QueryRow(query, accountID).Scan(&last); err != nil {
		return 0, false, fmt.Errorf("failed to get last deal time: %w", err)
	}
	return last.Int64, last.Valid, nil
}

func (db *DB) scanDeals(rows *sql.Rows, err error) ([]models.Deal, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		var d models.Deal
		err := rows.Scan(
			&d.Ticket, &d.PositionID, &d.Magic, &d.Symbol, &d.Type, &d.Entry,
			&d.Time, &d.Price, &d.Volume, &d.Profit, &d.Commission, &d.Swap, &d.Comment,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}
