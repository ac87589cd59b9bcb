// Package tickstore persists per-venue tick history in SQLite files, one
// file per trading server, with a derived monthly coverage index used for
// gap detection. Two interchangeable backends are provided: a row-per-tick
// layout and a compressed layout that packs each calendar day of ticks
// into one deflate-compressed blob.
package tickstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/avolkov/trade-dashboard/internal/models"
)

// Stats summarizes one venue archive.
type Stats struct {
	Symbols   int   `json:"symbols"`
	Ticks     int64 `json:"ticks"`
	Months    int   `json:"months"`
	FileBytes int64 `json:"file_bytes"`
}

// Backend is the storage contract shared by both archive layouts. Saves
// are idempotent per (symbol, time); range queries are inclusive and
// ordered by time; RecomputeRanges rebuilds the coverage index from raw
// storage for repair.
type Backend interface {
	SaveTicks(symbol string, ticks []models.Tick) (int64, error)
	Ticks(symbol string, fromTime, toTime int64) ([]models.Tick, error)
	Ranges(symbol string) ([]models.MonthRange, error)
	FirstAvailableMonth(symbol string) (year, month int, ok bool, err error)
	RecomputeRanges(symbol string) error
	Stats() (Stats, error)
	Path() string
	Close() error
}

// Open opens the archive file for a venue, creating the data directory,
// the file, and the schema on first use.
func Open(dataDir, server string, compressed bool) (Backend, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create tick data dir: %w", err)
	}
	path := filepath.Join(dataDir, safeFileName(server)+".db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tick db %s: %w", path, err)
	}

	if compressed {
		s := &BatchStore{db: db, path: path}
		if err := s.init(); err != nil {
			db.Close()
			return nil, err
		}
		return s, nil
	}
	s := &RowStore{db: db, path: path}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func safeFileName(server string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(server)
}

const rangesDDL = `
	CREATE TABLE IF NOT EXISTS tick_ranges (
		symbol TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		first_tick_time INTEGER NOT NULL,
		last_tick_time INTEGER NOT NULL,
		tick_count INTEGER NOT NULL,
		PRIMARY KEY (symbol, year, month)
	)
`

// monthSpan accumulates min/max/count for one calendar month of a save.
type monthSpan struct {
	first, last int64
	count       int64
}

func monthKey(ts int64) [2]int {
	at := time.Unix(ts, 0).UTC()
	return [2]int{at.Year(), int(at.Month())}
}

func (m *monthSpan) add(ts int64) {
	if ts < m.first {
		m.first = ts
	}
	if ts > m.last {
		m.last = ts
	}
	m.count++
}

// mergeMonthSpans folds freshly inserted spans into the coverage index,
// taking min/max against any existing record and adding counts.
func mergeMonthSpans(tx *sql.Tx, symbol string, months map[[2]int]*monthSpan) error {
	for key, span := range months {
		var first, last, count int64
		err := tx.QueryRow(`
			SELECT first_tick_time, last_tick_time, tick_count FROM tick_ranges
			WHERE symbol = ? AND year = ? AND month = ?
		`, symbol, key[0], key[1]).Scan(&first, &last, &count)
		switch {
		case err == sql.ErrNoRows:
			first, last, count = span.first, span.last, span.count
		case err != nil:
			return fmt.Errorf("failed to read month range %d-%02d: %w", key[0], key[1], err)
		default:
			if span.first < first {
				first = span.first
			}
			if span.last > last {
				last = span.last
			}
			count += span.count
		}

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO tick_ranges
			(symbol, year, month, first_tick_time, last_tick_time, tick_count)
			VALUES (?, ?, ?, ?, ?, ?)
		`, symbol, key[0], key[1], first, last, count)
		if err != nil {
			return fmt.Errorf("failed to update month range %d-%02d: %w", key[0], key[1], err)
		}
	}
	return nil
}

func queryRanges(db *sql.DB, symbol string) ([]models.MonthRange, error) {
	rows, err := db.Query(`
		SELECT symbol, year, month, first_tick_time, last_tick_time, tick_count
		FROM tick_ranges
		WHERE symbol = ?
		ORDER BY year, month
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get ranges for %s: %w", symbol, err)
	}
	defer rows.Close()

	var ranges []models.MonthRange
	for rows.Next() {
		var r models.MonthRange
		if err := rows.Scan(&r.Symbol, &r.Year, &r.Month, &r.FirstTickTime, &r.LastTickTime, &r.TickCount); err != nil {
			return nil, fmt.Errorf("failed to scan range: %w", err)
		}
		ranges = append(ranges, r)
	}
	return ranges, rows.Err()
}

func queryFirstMonth(db *sql.DB, symbol string) (int, int, bool, error) {
	var year, month int
	err := db.QueryRow(`
		SELECT year, month FROM tick_ranges
		WHERE symbol = ?
		ORDER BY year, month
		LIMIT 1
	`, symbol).Scan(&year, &month)
	if err == sql.ErrNoRows {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to get first month for %s: %w", symbol, err)
	}
	return year, month, true, nil
}

func fileBytes(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
