// Package feed abstracts the trading terminal as a data source. The
// engine only ever pulls four things from it: tick history, deal
// history, symbol specifications and the live account snapshot.
// Connection lifecycle, authentication and process discovery belong to
// the implementation, not to callers.
package feed

import (
	"context"
	"time"

	"github.com/avolkov/trade-dashboard/internal/models"
)

// Feed supplies terminal data. All time arguments are UTC instants;
// implementations must not apply any local display offset.
type Feed interface {
	// Ticks returns all ticks for symbol in [fromUTC, toUTC]. An empty
	// result is a normal condition (weekend, holiday), not an error.
	Ticks(ctx context.Context, symbol string, fromUTC, toUTC time.Time) ([]models.Tick, error)

	// Deals returns the deal history in [fromUTC, toUTC], ordered by time.
	Deals(ctx context.Context, fromUTC, toUTC time.Time) ([]models.Deal, error)

	// SymbolSpec returns the venue contract specification for a symbol.
	SymbolSpec(ctx context.Context, symbol string) (models.SymbolSpec, error)

	// Account returns the live account snapshot.
	Account(ctx context.Context) (models.AccountSnapshot, error)
}
