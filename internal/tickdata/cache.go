package tickdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avolkov/trade-dashboard/internal/models"
)

const quoteCacheTTL = 24 * time.Hour

// QuoteCache memoizes point-in-time quotes in Redis. Historical quotes
// never change, so a long TTL is safe; any cache failure degrades to a
// miss.
type QuoteCache struct {
	client *redis.Client
}

// NewQuoteCache connects a quote cache to Redis.
func NewQuoteCache(addr, password string, db int) *QuoteCache {
	return &QuoteCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Ping verifies the Redis connection.
func (c *QuoteCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping quote cache: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *QuoteCache) Close() error { return c.client.Close() }

// quoteKey buckets the instant to the minute: PriceAt resolves to the
// most recent tick anyway, so sub-minute lookups share one entry.
func quoteKey(server, symbol string, at int64) string {
	return fmt.Sprintf("quote:%s:%s:%d", server, symbol, at-at%60)
}

// Get returns the cached quote for (server, symbol, at), if any.
func (c *QuoteCache) Get(ctx context.Context, server, symbol string, at int64) (models.Quote, bool) {
	raw, err := c.client.Get(ctx, quoteKey(server, symbol, at)).Bytes()
	if err == redis.Nil {
		return models.Quote{}, false
	}
	if err != nil {
		log.Printf("tickdata: quote cache read failed for %s: %v", symbol, err)
		return models.Quote{}, false
	}

	var q models.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		log.Printf("tickdata: corrupt quote cache entry for %s: %v", symbol, err)
		return models.Quote{}, false
	}
	return q, true
}

// Set stores a quote for (server, symbol, at).
func (c *QuoteCache) Set(ctx context.Context, server, symbol string, at int64, q models.Quote) {
	raw, err := json.Marshal(q)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, quoteKey(server, symbol, at), raw, quoteCacheTTL).Err(); err != nil {
		log.Printf("tickdata: quote cache write failed for %s: %v", symbol, err)
	}
}
