// Package sync pulls deal history from the terminal feed, persists it,
// rebuilds the aggregated trade view, and announces completed syncs.
package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/avolkov/trade-dashboard/internal/aggregate"
	"github.com/avolkov/trade-dashboard/internal/feed"
	"github.com/avolkov/trade-dashboard/internal/models"
	"github.com/avolkov/trade-dashboard/internal/tickdata"
	"github.com/avolkov/trade-dashboard/internal/timeutil"
)

// Sink is the persistence surface the service writes to.
type Sink interface {
	UpsertAccount(accountID string, snapshot models.AccountSnapshot) error
	CreateDeal(accountID string, d *models.Deal) error
	DealExists(accountID string, ticket int64) (bool, error)
	GetDeals(accountID string, fromTime, toTime int64) ([]models.Deal, error)
	LastDealTime(accountID string) (int64, bool, error)
	UpsertAggregatedTrade(accountID string, t *models.AggregatedTrade) (bool, error)
}

// Publisher announces completed syncs.
type Publisher interface {
	PublishSyncCompleted(ctx context.Context, accountID string, dealsSynced int, newlyClosed []int64) error
}

// Backfiller fills tick archive gaps for traded symbols after a sync.
type Backfiller interface {
	MissingMonths(symbol string, from, to time.Time) ([][2]int, error)
	DownloadAndSave(ctx context.Context, symbol string, from, to time.Time, autoFill bool) (*tickdata.DownloadResult, error)
}

// Service runs the feed-to-database sync cycle.
type Service struct {
	feed         feed.Feed
	sink         Sink
	publisher    Publisher
	backfill     Backfiller
	workers      int
	shift        timeutil.Shift
	historyStart time.Time // UTC
}

// NewService returns a sync service reading deals no older than
// historyStart (UTC).
func NewService(f feed.Feed, sink Sink, shift timeutil.Shift, historyStart time.Time) *Service {
	return &Service{
		feed:         f,
		sink:         sink,
		shift:        shift,
		historyStart: historyStart,
		workers:      1,
	}
}

// UsePublisher makes the service announce completed syncs.
func (s *Service) UsePublisher(p Publisher) { s.publisher = p }

// UseBackfiller makes the service backfill tick history for traded
// symbols after each sync, with up to workers concurrent downloads.
func (s *Service) UseBackfiller(b Backfiller, workers int) {
	if workers < 1 {
		workers = 1
	}
	s.backfill = b
	s.workers = workers
}

// Result summarizes one sync cycle.
type Result struct {
	AccountID   string
	DealsSynced int
	NewlyClosed []int64
	Backfilled  []string
}

// SyncOnce runs one sync cycle: refresh the account snapshot, ingest
// new deals since the last stored one, rebuild every aggregated trade
// from the full history, backfill tick data for the traded symbols, and
// publish a sync event.
func (s *Service) SyncOnce(ctx context.Context) (*Result, error) {
	account, err := s.feed.Account(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account snapshot: %w", err)
	}
	accountID := fmt.Sprintf("%d@%s", account.Login, account.Server)

	if err := s.sink.UpsertAccount(accountID, account); err != nil {
		return nil, err
	}

	fromUTC := s.historyStart
	if last, ok, err := s.sink.LastDealTime(accountID); err != nil {
		return nil, err
	} else if ok {
		fromUTC = time.Unix(last+1, 0).UTC()
	}
	now := time.Now().UTC()

	deals, err := s.feed.Deals(ctx, fromUTC, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}

	result := &Result{AccountID: accountID}
	for i := range deals {
		exists, err := s.sink.DealExists(accountID, deals[i].Ticket)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		if err := s.sink.CreateDeal(accountID, &deals[i]); err != nil {
			return nil, err
		}
		result.DealsSynced++
	}

	history, err := s.sink.GetDeals(accountID, s.historyStart.Unix(), now.Unix())
	if err != nil {
		return nil, err
	}
	var trading []models.Deal
	for _, d := range history {
		if d.Type != models.DealTypeBalance {
			trading = append(trading, d)
		}
	}

	trades := aggregate.Deals(trading)
	for i := range trades {
		newlyClosed, err := s.sink.UpsertAggregatedTrade(accountID, &trades[i])
		if err != nil {
			return nil, err
		}
		if newlyClosed {
			result.NewlyClosed = append(result.NewlyClosed, trades[i].PositionID)
		}
	}

	if s.backfill != nil {
		result.Backfilled = s.backfillSymbols(ctx, trades)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishSyncCompleted(ctx, accountID, result.DealsSynced, result.NewlyClosed); err != nil {
			log.Printf("sync: failed to publish sync event for %s: %v", accountID, err)
		}
	}

	log.Printf("sync: %s synced %d deals, %d trades, %d newly closed",
		accountID, result.DealsSynced, len(trades), len(result.NewlyClosed))
	return result, nil
}

// backfillSymbols downloads missing tick months for every traded symbol
// using the bounded worker pool. Failures are logged per symbol and do
// not abort the sync.
func (s *Service) backfillSymbols(ctx context.Context, trades []models.AggregatedTrade) []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, t := range trades {
		if t.Symbol != "" && !seen[t.Symbol] {
			seen[t.Symbol] = true
			symbols = append(symbols, t.Symbol)
		}
	}
	if len(symbols) == 0 {
		return nil
	}

	from := s.shift.UTCToLocal(s.historyStart)
	to := s.shift.UTCToLocal(time.Now().UTC())

	errs := runJobs(ctx, symbols, s.workers, func(ctx context.Context, symbol string) error {
		missing, err := s.backfill.MissingMonths(symbol, from, to)
		if err != nil {
			return err
		}
		if len(missing) == 0 {
			return nil
		}
		_, err = s.backfill.DownloadAndSave(ctx, symbol, from, to, true)
		return err
	})

	var done []string
	for _, symbol := range symbols {
		if err := errs[symbol]; err != nil {
			log.Printf("sync: tick backfill failed for %s: %v", symbol, err)
			continue
		}
		done = append(done, symbol)
	}
	return done
}

// Run repeats SyncOnce every interval until the context is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.SyncOnce(ctx); err != nil {
			log.Printf("sync: cycle failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
