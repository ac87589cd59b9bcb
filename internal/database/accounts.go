package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/avolkov/trade-dashboard/internal/models"
)

// UpsertAccount records the latest account snapshot, keyed by account id.
func (db *DB) UpsertAccount(accountID string, snapshot models.AccountSnapshot) error {
	query := `
		INSERT INTO accounts (account_id, login, server, currency, leverage, balance, equity, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (account_id) DO UPDATE SET
			login = EXCLUDED.login,
			server = EXCLUDED.server,
			currency = EXCLUDED.currency,
			leverage = EXCLUDED.leverage,
			balance = EXCLUDED.balance,
			equity = EXCLUDED.equity,
			updated_at = EXCLUDED.updated_at
	`
	_, err := db.conn.Exec(query, accountID, snapshot.Login, snapshot.Server, snapshot.Currency,
		snapshot.Leverage, snapshot.Balance, snapshot.Equity, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

// GetAccount retrieves the stored snapshot for an account id.
func (db *DB) GetAccount(accountID string) (*models.AccountSnapshot, error) {
	query := `
		SELECT login, server, currency, leverage, balance, equity
		FROM accounts
		WHERE account_id = $1
	`
	var snapshot models.AccountSnapshot
	err := db.conn.QueryRow(query, accountID).Scan(
		&snapshot.Login, &snapshot.Server, &snapshot.Currency,
		&snapshot.Leverage, &snapshot.Balance, &snapshot.Equity,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account not found: %s", accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &snapshot, nil
}
