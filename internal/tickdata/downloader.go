// Package tickdata keeps the tick archive filled: it detects which
// calendar months of a requested window are missing or stale, fetches
// exactly those from the terminal feed, and answers price queries over
// the stored series. All exported methods take and return naive local
// display time; UTC conversion happens at the store and feed boundaries.
package tickdata

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/avolkov/trade-dashboard/internal/feed"
	"github.com/avolkov/trade-dashboard/internal/models"
	"github.com/avolkov/trade-dashboard/internal/tickstore"
	"github.com/avolkov/trade-dashboard/internal/timeutil"
)

const (
	maxFetchAttempts = 3
	retryBackoff     = 500 * time.Millisecond
)

// Downloader fills archive gaps for one venue from the terminal feed.
type Downloader struct {
	store  tickstore.Backend
	feed   feed.Feed
	server string
	shift  timeutil.Shift
	cache  *QuoteCache

	// Injectable for tests. now returns the current naive local time;
	// sleep pauses between gap-fill retries.
	now   func() time.Time
	sleep func(time.Duration)
}

// New returns a Downloader over one venue archive.
func New(store tickstore.Backend, f feed.Feed, server string, shift timeutil.Shift) *Downloader {
	return &Downloader{
		store:  store,
		feed:   f,
		server: server,
		shift:  shift,
		now:    func() time.Time { return shift.UTCToLocal(time.Now().UTC()) },
		sleep:  time.Sleep,
	}
}

// UseQuoteCache attaches an optional point-in-time quote cache.
func (d *Downloader) UseQuoteCache(c *QuoteCache) { d.cache = c }

// DownloadResult reports what one download pass did.
type DownloadResult struct {
	Server          string   `json:"server"`
	Symbol          string   `json:"symbol"`
	TicksDownloaded int64    `json:"ticks_downloaded"`
	MonthsProcessed [][2]int `json:"months_processed"`
	Errors          []string `json:"errors"`
}

// MissingMonths reports which calendar months of the local-time window
// [from, to] are absent or stale in the archive.
func (d *Downloader) MissingMonths(symbol string, from, to time.Time) ([][2]int, error) {
	ranges, err := d.store.Ranges(symbol)
	if err != nil {
		return nil, err
	}
	return tickstore.MissingMonths(ranges, from, to, d.now(), d.shift), nil
}

// DownloadAndSave fetches ticks from the feed and commits them to the
// archive.
//
// With autoFill, the window is widened to one continuous span: from the
// start of the earliest missing month through now (when the archive is
// empty) or up to the earliest month already available (so no hole is
// left between old and new data), fetched one calendar month at a time.
// Months with partial data fetch only from their last stored tick
// forward. A failed month is recorded and does not abort the rest; the
// last failure is returned after the pass completes.
//
// Without autoFill, exactly [from, to] is fetched, except that a request
// ending on a local day boundary (23:59:59) is extended to the start of
// the next UTC day so offset arithmetic cannot truncate boundary ticks.
func (d *Downloader) DownloadAndSave(ctx context.Context, symbol string, from, to time.Time, autoFill bool) (*DownloadResult, error) {
	result := &DownloadResult{Server: d.server, Symbol: symbol}

	if !autoFill {
		err := d.fetchSpan(ctx, symbol, from, to, result)
		return result, err
	}

	missing, err := d.MissingMonths(symbol, from, to)
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		return result, nil
	}

	spanStart := timeutil.MonthStart(missing[0][0], missing[0][1])
	var spanEnd time.Time
	firstYear, firstMonth, haveData, err := d.store.FirstAvailableMonth(symbol)
	if err != nil {
		return nil, err
	}
	if !haveData {
		spanEnd = d.now()
		log.Printf("tickdata: no archive data for %s on %s, downloading %d-%02d through now",
			symbol, d.server, missing[0][0], missing[0][1])
	} else {
		spanEnd = timeutil.MonthStart(firstYear, firstMonth).Add(-time.Second)
		log.Printf("tickdata: downloading %s on %s from %d-%02d up to first available month %d-%02d",
			symbol, d.server, missing[0][0], missing[0][1], firstYear, firstMonth)
	}

	ranges, err := d.store.Ranges(symbol)
	if err != nil {
		return nil, err
	}
	coverage := make(map[[2]int]models.MonthRange)
	for _, r := range ranges {
		coverage[[2]int{r.Year, r.Month}] = r
	}

	var lastErr error
	for _, ym := range timeutil.MonthsBetween(spanStart, spanEnd) {
		year, month := ym[0], ym[1]
		now := d.now()
		isCurrent := year == now.Year() && month == int(now.Month())

		var monthFrom, monthTo time.Time
		if r, ok := coverage[ym]; ok && r.LastTickTime != 0 {
			// Partial month: continue from the tick after the last stored one.
			monthFrom = d.shift.UnixToLocal(r.LastTickTime).Add(time.Second)
			if isCurrent {
				monthTo = now
			} else {
				monthTo = timeutil.MonthEnd(year, month)
			}
			if !monthFrom.Before(monthTo) {
				continue
			}
		} else {
			monthFrom = timeutil.MonthStart(year, month)
			monthTo = timeutil.MonthEnd(year, month)
			if monthTo.After(now) {
				monthTo = now
			}
		}

		if err := d.fetchSpan(ctx, symbol, monthFrom, monthTo, result); err != nil {
			lastErr = err
			continue
		}
		result.MonthsProcessed = append(result.MonthsProcessed, ym)
	}
	return result, lastErr
}

// fetchSpan fetches one local-time span from the feed and saves it.
func (d *Downloader) fetchSpan(ctx context.Context, symbol string, from, to time.Time, result *DownloadResult) error {
	now := d.now()
	if to.After(now) {
		to = now
	}

	// A 23:59:59 local end truncates ticks stamped inside the offset
	// window; ask through the next UTC day start instead.
	if to.Hour() == 23 && to.Minute() == 59 && to.Second() == 59 {
		nextDayUTC := timeutil.StartOfDay(d.shift.LocalToUTC(to)).AddDate(0, 0, 1)
		extended := d.shift.UTCToLocal(nextDayUTC)
		if !extended.After(now) {
			to = extended
		}
	}

	ticks, err := d.feed.Ticks(ctx, symbol, d.shift.LocalToUTC(from), d.shift.LocalToUTC(to))
	if err != nil {
		msg := fmt.Sprintf("fetch %s %s - %s: %v", symbol, from.Format("2006-01-02"), to.Format("2006-01-02"), err)
		result.Errors = append(result.Errors, msg)
		log.Printf("tickdata: %s", msg)
		return fmt.Errorf("failed to fetch ticks for %s: %w", symbol, err)
	}
	if len(ticks) == 0 {
		log.Printf("tickdata: no ticks for %s on %s in %s - %s", symbol, d.server,
			from.Format("2006-01-02 15:04:05"), to.Format("2006-01-02 15:04:05"))
		return nil
	}

	saved, err := d.store.SaveTicks(symbol, ticks)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return err
	}
	result.TicksDownloaded += saved
	return nil
}

// GetOrFetch answers a tick range query from the archive, filling any
// missing months first. The request horizon is capped at the end of the
// previous local day: the still-forming current day is never served.
//
// The missing-month check retries up to 3 times with a short backoff to
// absorb races with concurrent downloaders; a fetch error is propagated
// only after the final attempt. If months remain missing without a fetch
// error (weekend, holiday, dead symbol), the archive answers with
// whatever it has.
func (d *Downloader) GetOrFetch(ctx context.Context, symbol string, from, to time.Time) ([]models.Tick, error) {
	now := d.now()
	todayStart := timeutil.StartOfDay(now)
	if !to.Before(todayStart) {
		to = todayStart.Add(-time.Second)
	}

	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		missing, err := d.MissingMonths(symbol, from, to)
		if err != nil {
			return nil, err
		}
		if len(missing) == 0 {
			break
		}
		if attempt > 0 {
			d.sleep(retryBackoff)
		}
		log.Printf("tickdata: missing months for %s on %s: %v (attempt %d/%d)",
			symbol, d.server, missing, attempt+1, maxFetchAttempts)

		first, last := missing[0], missing[len(missing)-1]
		downloadFrom := timeutil.MonthStart(first[0], first[1])

		var downloadTo time.Time
		currentOrFuture := last[0] > now.Year() || (last[0] == now.Year() && last[1] >= int(now.Month()))
		if currentOrFuture {
			// Fetch through the next UTC day start so the previous local
			// day is complete, but never into the current local day.
			yesterdayEnd := todayStart.Add(-time.Second)
			nextDayUTC := timeutil.StartOfDay(d.shift.LocalToUTC(yesterdayEnd)).AddDate(0, 0, 1)
			downloadTo = d.shift.UTCToLocal(nextDayUTC)
			if downloadTo.After(todayStart) {
				downloadTo = yesterdayEnd
			}
		} else {
			downloadTo = timeutil.MonthEnd(last[0], last[1])
			if downloadTo.After(now) {
				downloadTo = now
			}
		}

		if _, err := d.DownloadAndSave(ctx, symbol, downloadFrom, downloadTo, false); err != nil {
			log.Printf("tickdata: download failed for %s (attempt %d/%d): %v", symbol, attempt+1, maxFetchAttempts, err)
			if attempt == maxFetchAttempts-1 {
				return nil, err
			}
		}
	}

	return d.store.Ticks(symbol, d.shift.LocalToUnix(from), d.shift.LocalToUnix(to))
}
