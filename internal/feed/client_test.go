package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/trade-dashboard/internal/models"
)

func TestClient(t *testing.T) {
	from := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ticks":
			assert.Equal(t, "EURUSD", r.URL.Query().Get("symbol"))
			assert.Equal(t, "1718010000", r.URL.Query().Get("from"))
			json.NewEncoder(w).Encode([]models.Tick{
				{Time: from.Unix(), Bid: 1.1000, Ask: 1.1002},
			})
		case "/deals":
			json.NewEncoder(w).Encode([]models.Deal{
				{Ticket: 101, Symbol: "EURUSD", Time: from.Unix()},
			})
		case "/spec":
			assert.Equal(t, "EURUSD", r.URL.Query().Get("symbol"))
			json.NewEncoder(w).Encode(models.SymbolSpec{Symbol: "EURUSD", Digits: 5, Point: 0.0001})
		case "/account":
			json.NewEncoder(w).Encode(models.AccountSnapshot{Login: 12345, Server: "Test-Server"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	t.Run("Ticks", func(t *testing.T) {
		ticks, err := client.Ticks(ctx, "EURUSD", from, to)
		require.NoError(t, err)
		require.Len(t, ticks, 1)
		assert.InDelta(t, 1.1000, ticks[0].Bid, 1e-9)
	})

	t.Run("Deals", func(t *testing.T) {
		deals, err := client.Deals(ctx, from, to)
		require.NoError(t, err)
		require.Len(t, deals, 1)
		assert.Equal(t, int64(101), deals[0].Ticket)
	})

	t.Run("SymbolSpec", func(t *testing.T) {
		spec, err := client.SymbolSpec(ctx, "EURUSD")
		require.NoError(t, err)
		assert.Equal(t, 5, spec.Digits)
	})

	t.Run("Account", func(t *testing.T) {
		account, err := client.Account(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(12345), account.Login)
	})
}

func TestClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "terminal disconnected", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Account(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
