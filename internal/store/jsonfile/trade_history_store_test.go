package jsonfile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
)

func trade(position uint64, profit float64, exit time.Time) domain.TradeRecord {
	return domain.TradeRecord{
		PositionID: position,
		Symbol:     "EURUSD",
		Side:       "BUY",
		Lot:        1,
		Profit:     profit,
		Commission: -3.5,
		ExitTime:   exit,
	}
}

func TestHistoryMergeByPosition(t *testing.T) {
	s, err := NewTradeHistoryStore(filepath.Join(t.TempDir(), "trades.json"), testLogger())
	require.NoError(t, err)

	now := time.Now().UTC()

	first, err := s.UpdateTrades(100, []domain.TradeRecord{
		trade(1, 10, now.Add(-2*time.Hour)),
		trade(2, 20, now.Add(-time.Hour)),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, first.TotalTrades)

	// Position 2 reappears with updated numbers; last writer wins.
	merged, err := s.UpdateTrades(100, []domain.TradeRecord{
		trade(2, 25, now.Add(-time.Hour)),
		trade(3, 5, now),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, merged.TotalTrades)
	assert.InDelta(t, 40.0, merged.TotalProfit, 1e-9)
	assert.InDelta(t, -10.5, merged.TotalCommission, 1e-9)
	assert.True(t, merged.Cached)

	// Newest exit first.
	require.Len(t, merged.Trades, 3)
	assert.Equal(t, uint64(3), merged.Trades[0].PositionID)
}

func TestHistoryLastSyncTime(t *testing.T) {
	s, err := NewTradeHistoryStore(filepath.Join(t.TempDir(), "trades.json"), testLogger())
	require.NoError(t, err)

	_, ok := s.LastSyncTime(100)
	assert.False(t, ok)

	_, err = s.UpdateTrades(100, []domain.TradeRecord{trade(1, 10, time.Now().UTC())})
	require.NoError(t, err)

	sync, ok := s.LastSyncTime(100)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().UTC(), sync, time.Minute)
}

func TestHistorySummaryNeverSynced(t *testing.T) {
	s, err := NewTradeHistoryStore(filepath.Join(t.TempDir(), "trades.json"), testLogger())
	require.NoError(t, err)

	hist := s.Summary(100)
	assert.False(t, hist.Cached)
	assert.Empty(t, hist.Trades)
	assert.Equal(t, uint64(100), hist.AccountID)
}

func TestHistoryClearAccount(t *testing.T) {
	s, err := NewTradeHistoryStore(filepath.Join(t.TempDir(), "trades.json"), testLogger())
	require.NoError(t, err)

	_, err = s.UpdateTrades(100, []domain.TradeRecord{trade(1, 10, time.Now().UTC())})
	require.NoError(t, err)

	removed, err := s.ClearAccount(100)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.ClearAccount(100)
	require.NoError(t, err)
	assert.False(t, removed)
}
