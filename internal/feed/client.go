package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avolkov/trade-dashboard/internal/models"
)

// Client is a Feed backed by a terminal bridge exposing the feed over
// HTTP with JSON payloads.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for the bridge at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Ticks implements Feed.
func (c *Client) Ticks(ctx context.Context, symbol string, fromUTC, toUTC time.Time) ([]models.Tick, error) {
	query := url.Values{
		"symbol": {symbol},
		"from":   {strconv.FormatInt(fromUTC.Unix(), 10)},
		"to":     {strconv.FormatInt(toUTC.Unix(), 10)},
	}
	var ticks []models.Tick
	if err := c.get(ctx, "/ticks", query, &ticks); err != nil {
		return nil, err
	}
	return ticks, nil
}

// Deals implements Feed.
func (c *Client) Deals(ctx context.Context, fromUTC, toUTC time.Time) ([]models.Deal, error) {
	query := url.Values{
		"from": {strconv.FormatInt(fromUTC.Unix(), 10)},
		"to":   {strconv.FormatInt(toUTC.Unix(), 10)},
	}
	var deals []models.Deal
	if err := c.get(ctx, "/deals", query, &deals); err != nil {
		return nil, err
	}
	return deals, nil
}

// SymbolSpec implements Feed.
func (c *Client) SymbolSpec(ctx context.Context, symbol string) (models.SymbolSpec, error) {
	var spec models.SymbolSpec
	err := c.get(ctx, "/spec", url.Values{"symbol": {symbol}}, &spec)
	return spec, err
}

// Account implements Feed.
func (c *Client) Account(ctx context.Context) (models.AccountSnapshot, error) {
	var snapshot models.AccountSnapshot
	err := c.get(ctx, "/account", nil, &snapshot)
	return snapshot, err
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call feed bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed bridge returned %s for %s", resp.Status, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode feed response: %w", err)
	}
	return nil
}
