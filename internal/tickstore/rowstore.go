package tickstore

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/avolkov/trade-dashboard/internal/models"
)

// RowStore is the uncompressed backend: one row per tick, keyed by
// (symbol, time).
type RowStore struct {
	db   *sql.DB
	path string
}

func (s *RowStore) init() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS ticks (
			symbol TEXT NOT NULL,
			time INTEGER NOT NULL,
			bid REAL NOT NULL,
			ask REAL NOT NULL,
			volume INTEGER NOT NULL DEFAULT 0,
			flags INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (symbol, time)
		)`,
		rangesDDL,
	}
	for _, q := range ddl {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to init tick schema: %w", err)
		}
	}
	return nil
}

// Path returns the archive file path.
func (s *RowStore) Path() string { return s.path }

// Close closes the underlying database handle.
func (s *RowStore) Close() error { return s.db.Close() }

// SaveTicks inserts ticks, ignoring any (symbol, time) pair already
// stored, and folds the genuinely new ticks into the monthly coverage
// index. Returns the number of rows actually inserted.
func (s *RowStore) SaveTicks(symbol string, ticks []models.Tick) (int64, error) {
	if len(ticks) == 0 {
		return 0, nil
	}

	lock := lockFor(s.path)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin tick save: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO ticks (symbol, time, bid, ask, volume, flags)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare tick insert: %w", err)
	}
	defer stmt.Close()

	months := make(map[[2]int]*monthSpan)
	var inserted int64
	for _, t := range ticks {
		res, err := stmt.Exec(symbol, t.Time, t.Bid, t.Ask, t.Volume, t.Flags)
		if err != nil {
			return 0, fmt.Errorf("failed to insert tick for %s: %w", symbol, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read insert result: %w", err)
		}
		if n == 0 {
			continue
		}
		inserted++

		key := monthKey(t.Time)
		if span, ok := months[key]; ok {
			span.add(t.Time)
		} else {
			months[key] = &monthSpan{first: t.Time, last: t.Time, count: 1}
		}
	}

	if err := mergeMonthSpans(tx, symbol, months); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit tick save: %w", err)
	}

	log.Printf("tickstore: saved %d/%d ticks for %s, %d months touched", inserted, len(ticks), symbol, len(months))
	return inserted, nil
}

// Ticks returns ticks in [fromTime, toTime] inclusive, ordered by time.
func (s *RowStore) Ticks(symbol string, fromTime, toTime int64) ([]models.Tick, error) {
	rows, err := s.db.Query(`
		SELECT time, bid, ask, volume, flags
		FROM ticks
		WHERE symbol = ? AND time >= ? AND time <= ?
		ORDER BY time
	`, symbol, fromTime, toTime)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticks for %s: %w", symbol, err)
	}
	defer rows.Close()

	var ticks []models.Tick
	for rows.Next() {
		var t models.Tick
		if err := rows.Scan(&t.Time, &t.Bid, &t.Ask, &t.Volume, &t.Flags); err != nil {
			return nil, fmt.Errorf("failed to scan tick: %w", err)
		}
		ticks = append(ticks, t)
	}
	return ticks, rows.Err()
}

// Ranges returns all monthly coverage records for a symbol.
func (s *RowStore) Ranges(symbol string) ([]models.MonthRange, error) {
	return queryRanges(s.db, symbol)
}

// FirstAvailableMonth returns the earliest covered (year, month), or
// ok=false when the symbol has no coverage at all.
func (s *RowStore) FirstAvailableMonth(symbol string) (int, int, bool, error) {
	return queryFirstMonth(s.db, symbol)
}

// RecomputeRanges rebuilds the coverage index for a symbol from the raw
// tick rows.
func (s *RowStore) RecomputeRanges(symbol string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin range rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tick_ranges WHERE symbol = ?`, symbol); err != nil {
		return fmt.Errorf("failed to clear ranges for %s: %w", symbol, err)
	}
	_, err = tx.Exec(`
		INSERT INTO tick_ranges (symbol, year, month, first_tick_time, last_tick_time, tick_count)
		SELECT symbol,
			CAST(strftime('%Y', time, 'unixepoch') AS INTEGER),
			CAST(strftime('%m', time, 'unixepoch') AS INTEGER),
			MIN(time), MAX(time), COUNT(*)
		FROM ticks
		WHERE symbol = ?
		GROUP BY strftime('%Y', time, 'unixepoch'), strftime('%m', time, 'unixepoch')
	`, symbol)
	if err != nil {
		return fmt.Errorf("failed to rebuild ranges for %s: %w", symbol, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit range rebuild: %w", err)
	}
	return nil
}

// Stats reports archive totals for monitoring.
func (s *RowStore) Stats() (Stats, error) {
	var st Stats
	err := s.db.QueryRow(`SELECT COUNT(DISTINCT symbol), COUNT(*) FROM ticks`).Scan(&st.Symbols, &st.Ticks)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read tick stats: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tick_ranges`).Scan(&st.Months); err != nil {
		return Stats{}, fmt.Errorf("failed to read range stats: %w", err)
	}
	st.FileBytes = fileBytes(s.path)
	return st, nil
}
