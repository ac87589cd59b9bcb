package tickdata

import (
	"context"
	"log"
	"time"

	"github.com/avolkov/trade-dashboard/internal/models"
)

const priceLookback = time.Minute

// HighLow returns the highest ask and lowest bid over the local-time
// window [from, to], filling archive gaps first. ok is false when the
// window holds no ticks, which is a normal condition for non-trading
// days.
func (d *Downloader) HighLow(ctx context.Context, symbol string, from, to time.Time) (high, low float64, ok bool, err error) {
	ticks, err := d.GetOrFetch(ctx, symbol, from, to)
	if err != nil {
		return 0, 0, false, err
	}
	if len(ticks) == 0 {
		log.Printf("tickdata: no ticks for %s in %s - %s, high/low unavailable",
			symbol, from.Format("2006-01-02"), to.Format("2006-01-02"))
		return 0, 0, false, nil
	}

	high, low = ticks[0].Ask, ticks[0].Bid
	for _, t := range ticks[1:] {
		if t.Ask > high {
			high = t.Ask
		}
		if t.Bid < low {
			low = t.Bid
		}
	}
	return high, low, true, nil
}

// PriceAt returns the bid/ask of the most recent tick at or before the
// local-time instant at, searching a 1-minute lookback window. An
// instant in the future falls back to the last tick of the past hour.
// ok is false when no tick qualifies.
func (d *Downloader) PriceAt(ctx context.Context, symbol string, at time.Time) (models.Quote, bool, error) {
	now := d.now()

	var from, to, compare time.Time
	if at.After(now) {
		from, to, compare = now.Add(-time.Hour), now, now
	} else {
		from, to, compare = at.Add(-priceLookback), at, at
	}

	if d.cache != nil {
		if q, ok := d.cache.Get(ctx, d.server, symbol, d.shift.LocalToUnix(compare)); ok {
			return q, true, nil
		}
	}

	ticks, err := d.GetOrFetch(ctx, symbol, from, to)
	if err != nil {
		return models.Quote{}, false, err
	}

	compareUnix := d.shift.LocalToUnix(compare)
	var best *models.Tick
	for i := range ticks {
		if ticks[i].Time <= compareUnix {
			best = &ticks[i]
		} else {
			break
		}
	}
	if best == nil {
		log.Printf("tickdata: no tick at or before %s for %s", compare.Format("2006-01-02 15:04:05"), symbol)
		return models.Quote{}, false, nil
	}

	q := models.Quote{Bid: best.Bid, Ask: best.Ask}
	if d.cache != nil {
		d.cache.Set(ctx, d.server, symbol, compareUnix, q)
	}
	return q, true, nil
}
