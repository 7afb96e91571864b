package service

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sinfolonokojo/mt5-monitor/internal/agent"
	"github.com/Sinfolonokojo/mt5-monitor/internal/aggregator"
	"github.com/Sinfolonokojo/mt5-monitor/internal/cache"
	"github.com/Sinfolonokojo/mt5-monitor/internal/config"
	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
	"github.com/Sinfolonokojo/mt5-monitor/internal/routing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTradeService(t *testing.T, handler http.Handler) (*TradeService, *cache.SmartCache) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	pool := agent.NewPool()
	t.Cleanup(pool.Close)

	registry := agent.NewRegistry([]config.AgentConfig{{Name: "agent-1", URL: srv.URL}}, pool, 2*time.Second)
	snapshots := cache.New(time.Minute)
	agg := aggregator.New(registry, routing.NewMap(), nil, testLogger())

	return NewTradeService(agg, snapshots, testLogger()), snapshots
}

func TestCloseInvalidatesOnlyTargetAccount(t *testing.T) {
	svc, snapshots := newTradeService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts":
			w.Write([]byte(`[{"account_id":100,"status":"connected"},
			                 {"account_id":200,"status":"connected"}]`))
		case "/positions/close":
			w.Write([]byte(`{"success":true,"message":"closed"}`))
		}
	}))

	snapshots.SetAccounts([]domain.AccountSnapshot{{AccountID: 100}, {AccountID: 200}})

	res, err := svc.Close(context.Background(), 100, domain.CloseRequest{Ticket: 1001})
	require.NoError(t, err)
	assert.True(t, res.Success)

	_, ok := snapshots.GetAccount(100)
	assert.False(t, ok)
	_, ok = snapshots.GetAccount(200)
	assert.True(t, ok)
}

func TestRejectedCommandKeepsCacheEntry(t *testing.T) {
	svc, snapshots := newTradeService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts":
			w.Write([]byte(`[{"account_id":100,"status":"connected"}]`))
		case "/positions/open":
			w.Write([]byte(`{"success":false,"message":"market closed"}`))
		}
	}))

	snapshots.SetAccounts([]domain.AccountSnapshot{{AccountID: 100}})

	res, err := svc.Open(context.Background(), 100, domain.OpenRequest{
		Symbol: "EURUSD", Lots: 0.1, Side: domain.SideBuy,
	})
	require.NoError(t, err)
	assert.False(t, res.Success)

	_, ok := snapshots.GetAccount(100)
	assert.True(t, ok)
}

func TestPositionsDegradeToEmptyListWhenAgentDies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"account_id":100,"status":"connected"}]`))
	}))

	pool := agent.NewPool()
	t.Cleanup(pool.Close)
	registry := agent.NewRegistry([]config.AgentConfig{{Name: "agent-1", URL: srv.URL}}, pool, 2*time.Second)
	agg := aggregator.New(registry, routing.NewMap(), nil, testLogger())
	svc := NewTradeService(agg, cache.New(time.Minute), testLogger())

	// Populate routing while the agent is healthy, then kill it.
	_, err := agg.ResolveOwner(context.Background(), 100)
	require.NoError(t, err)
	srv.Close()

	positions, err := svc.Positions(context.Background(), 100)
	require.NoError(t, err)
	assert.Empty(t, positions)
	assert.NotNil(t, positions)
}

func TestTradeForUnknownAccount(t *testing.T) {
	svc, _ := newTradeService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))

	_, err := svc.Close(context.Background(), 999, domain.CloseRequest{Ticket: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
