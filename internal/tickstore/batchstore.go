package tickstore

import (
	"database/sql"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/avolkov/trade-dashboard/internal/models"
)

// BatchStore is the compressed backend: each (symbol, calendar day) of
// ticks is packed into one compressed blob. A re-save for a day replaces
// the day's batch wholesale, so coverage for touched months is recomputed
// from batch metadata rather than merged incrementally.
type BatchStore struct {
	db   *sql.DB
	path string
}

func (s *BatchStore) init() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS tick_batches (
			symbol TEXT NOT NULL,
			batch_date INTEGER NOT NULL,
			batch_start_time INTEGER NOT NULL,
			batch_end_time INTEGER NOT NULL,
			compressed_data BLOB NOT NULL,
			tick_count INTEGER NOT NULL,
			PRIMARY KEY (symbol, batch_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_symbol_time
			ON tick_batches (symbol, batch_start_time, batch_end_time)`,
		rangesDDL,
	}
	for _, q := range ddl {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to init batch schema: %w", err)
		}
	}
	return nil
}

// Path returns the archive file path.
func (s *BatchStore) Path() string { return s.path }

// Close closes the underlying database handle.
func (s *BatchStore) Close() error { return s.db.Close() }

// batchDate encodes a UTC timestamp's calendar day as YYYYMMDD.
func batchDate(ts int64) int {
	at := time.Unix(ts, 0).UTC()
	return at.Year()*10000 + int(at.Month())*100 + at.Day()
}

// SaveTicks groups ticks by calendar day, compresses each day and
// replaces the stored batch for it, then recomputes coverage for every
// month touched. Returns the number of ticks written.
func (s *BatchStore) SaveTicks(symbol string, ticks []models.Tick) (int64, error) {
	if len(ticks) == 0 {
		return 0, nil
	}

	days := make(map[int][]models.Tick)
	months := make(map[[2]int]bool)
	for _, t := range ticks {
		day := batchDate(t.Time)
		days[day] = append(days[day], t)
		months[monthKey(t.Time)] = true
	}

	lock := lockFor(s.path)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin batch save: %w", err)
	}
	defer tx.Rollback()

	var written int64
	for day, batch := range days {
		sort.Slice(batch, func(i, j int) bool { return batch[i].Time < batch[j].Time })

		blob, err := encodeTicks(batch)
		if err != nil {
			return 0, err
		}
		_, err = tx.Exec(`
			INSERT OR REPLACE INTO tick_batches
			(symbol, batch_date, batch_start_time, batch_end_time, compressed_data, tick_count)
			VALUES (?, ?, ?, ?, ?, ?)
		`, symbol, day, batch[0].Time, batch[len(batch)-1].Time, blob, len(batch))
		if err != nil {
			return 0, fmt.Errorf("failed to store batch %s/%d: %w", symbol, day, err)
		}
		written += int64(len(batch))
	}

	// Wholesale day replacement invalidates incremental counting, so
	// rebuild each touched month from the batch metadata.
	for key := range months {
		if err := rebuildMonth(tx, symbol, key[0], key[1]); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch save: %w", err)
	}

	log.Printf("tickstore: saved %d ticks for %s in %d daily batches", written, symbol, len(days))
	return written, nil
}

func rebuildMonth(tx *sql.Tx, symbol string, year, month int) error {
	lowDate := year*10000 + month*100 + 1
	highDate := year*10000 + month*100 + 31

	var first, last, count sql.NullInt64
	err := tx.QueryRow(`
		SELECT MIN(batch_start_time), MAX(batch_end_time), SUM(tick_count)
		FROM tick_batches
		WHERE symbol = ? AND batch_date >= ? AND batch_date <= ?
	`, symbol, lowDate, highDate).Scan(&first, &last, &count)
	if err != nil {
		return fmt.Errorf("failed to rebuild month %d-%02d: %w", year, month, err)
	}
	if !count.Valid || count.Int64 == 0 {
		_, err := tx.Exec(`DELETE FROM tick_ranges WHERE symbol = ? AND year = ? AND month = ?`, symbol, year, month)
		if err != nil {
			return fmt.Errorf("failed to clear month %d-%02d: %w", year, month, err)
		}
		return nil
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO tick_ranges
		(symbol, year, month, first_tick_time, last_tick_time, tick_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`, symbol, year, month, first.Int64, last.Int64, count.Int64)
	if err != nil {
		return fmt.Errorf("failed to update month %d-%02d: %w", year, month, err)
	}
	return nil
}

// Ticks decompresses every batch overlapping [fromTime, toTime] and
// filters to the exact window. Batches are whole-day units; there is no
// partial decompression.
func (s *BatchStore) Ticks(symbol string, fromTime, toTime int64) ([]models.Tick, error) {
	rows, err := s.db.Query(`
		SELECT compressed_data
		FROM tick_batches
		WHERE symbol = ? AND batch_end_time >= ? AND batch_start_time <= ?
		ORDER BY batch_start_time
	`, symbol, fromTime, toTime)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches for %s: %w", symbol, err)
	}
	defer rows.Close()

	var ticks []models.Tick
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batch, err := decodeTicks(blob)
		if err != nil {
			return nil, err
		}
		for _, t := range batch {
			if t.Time >= fromTime && t.Time <= toTime {
				ticks = append(ticks, t)
			}
		}
	}
	return ticks, rows.Err()
}

// Ranges returns all monthly coverage records for a symbol.
func (s *BatchStore) Ranges(symbol string) ([]models.MonthRange, error) {
	return queryRanges(s.db, symbol)
}

// FirstAvailableMonth returns the earliest covered (year, month), or
// ok=false when the symbol has no coverage at all.
func (s *BatchStore) FirstAvailableMonth(symbol string) (int, int, bool, error) {
	return queryFirstMonth(s.db, symbol)
}

// RecomputeRanges rebuilds the coverage index for a symbol from batch
// metadata.
func (s *BatchStore) RecomputeRanges(symbol string) error {
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
		SELECT symbol, batch_date / 10000, (batch_date / 100) % 100,
			MIN(batch_start_time), MAX(batch_end_time), SUM(tick_count)
		FROM tick_batches
		WHERE symbol = ?
		GROUP BY batch_date / 10000, (batch_date / 100) % 100
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
func (s *BatchStore) Stats() (Stats, error) {
	var st Stats
	var ticks sql.NullInt64
	err := s.db.QueryRow(`SELECT COUNT(DISTINCT symbol), COALESCE(SUM(tick_count), 0) FROM tick_batches`).Scan(&st.Symbols, &ticks)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read batch stats: %w", err)
	}
	st.Ticks = ticks.Int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tick_ranges`).Scan(&st.Months); err != nil {
		return Stats{}, fmt.Errorf("failed to read range stats: %w", err)
	}
	st.FileBytes = fileBytes(s.path)
	return st, nil
}
