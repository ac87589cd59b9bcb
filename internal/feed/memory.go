package feed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avolkov/trade-dashboard/internal/models"
)

// TickRequest records one Ticks call made against a Memory feed.
type TickRequest struct {
	Symbol  string
	FromUTC time.Time
	ToUTC   time.Time
}

// Memory is an in-memory Feed for tests and offline replays. Safe for
// concurrent use.
type Memory struct {
	mu       sync.Mutex
	ticks    map[string][]models.Tick
	deals    []models.Deal
	specs    map[string]models.SymbolSpec
	account  models.AccountSnapshot
	tickErr  error
	requests []TickRequest
}

// NewMemory returns an empty Memory feed.
func NewMemory() *Memory {
	return &Memory{
		ticks: make(map[string][]models.Tick),
		specs: make(map[string]models.SymbolSpec),
	}
}

// AddTicks seeds tick history for a symbol.
func (m *Memory) AddTicks(symbol string, ticks ...models.Tick) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks[symbol] = append(m.ticks[symbol], ticks...)
	sort.Slice(m.ticks[symbol], func(i, j int) bool {
		return m.ticks[symbol][i].Time < m.ticks[symbol][j].Time
	})
}

// AddDeals seeds deal history.
func (m *Memory) AddDeals(deals ...models.Deal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deals = append(m.deals, deals...)
	sort.Slice(m.deals, func(i, j int) bool { return m.deals[i].Time < m.deals[j].Time })
}

// SetSpec seeds a symbol specification.
func (m *Memory) SetSpec(spec models.SymbolSpec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.specs[spec.Symbol] = spec
}

// SetAccount seeds the account snapshot.
func (m *Memory) SetAccount(a models.AccountSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.account = a
}

// FailTicks makes every subsequent Ticks call return err. Pass nil to
// restore normal behavior.
func (m *Memory) FailTicks(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickErr = err
}

// TickRequests returns every Ticks call seen so far.
func (m *Memory) TickRequests() []TickRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TickRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Ticks implements Feed.
func (m *Memory) Ticks(_ context.Context, symbol string, fromUTC, toUTC time.Time) ([]models.Tick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, TickRequest{Symbol: symbol, FromUTC: fromUTC, ToUTC: toUTC})
	if m.tickErr != nil {
		return nil, m.tickErr
	}

	var out []models.Tick
	for _, t := range m.ticks[symbol] {
		if t.Time >= fromUTC.Unix() && t.Time <= toUTC.Unix() {
			out = append(out, t)
		}
	}
	return out, nil
}

// Deals implements Feed.
func (m *Memory) Deals(_ context.Context, fromUTC, toUTC time.Time) ([]models.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Deal
	for _, d := range m.deals {
		if d.Time >= fromUTC.Unix() && d.Time <= toUTC.Unix() {
			out = append(out, d)
		}
	}
	return out, nil
}

// SymbolSpec implements Feed.
func (m *Memory) SymbolSpec(_ context.Context, symbol string) (models.SymbolSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, ok := m.specs[symbol]
	if !ok {
		return models.SymbolSpec{}, fmt.Errorf("symbol not found: %s", symbol)
	}
	return spec, nil
}

// Account implements Feed.
func (m *Memory) Account(_ context.Context) (models.AccountSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.account, nil
}
