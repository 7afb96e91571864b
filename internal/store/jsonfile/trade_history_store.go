package jsonfile

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
)

// accountHistory is the persisted per-account trade bucket.
type accountHistory struct {
	Trades          []domain.TradeRecord `json:"trades"`
	TotalTrades     int                  `json:"total_trades"`
	TotalProfit     float64              `json:"total_profit"`
	TotalCommission float64              `json:"total_commission"`
	LastSyncTime    time.Time            `json:"last_sync_time"`
}

// TradeHistoryStore persists merged trade history per account, keyed by
// position id within each account. Merges are last-writer-wins by position.
type TradeHistoryStore struct {
	mu     sync.Mutex
	path   string
	cache  map[string]accountHistory
	logger *slog.Logger
}

// NewTradeHistoryStore loads (or initialises) the trade cache file at path.
func NewTradeHistoryStore(path string, logger *slog.Logger) (*TradeHistoryStore, error) {
	s := &TradeHistoryStore{
		path:   path,
		cache:  make(map[string]accountHistory),
		logger: logger.With(slog.String("component", "trade_history_store")),
	}
	if err := load(path, &s.cache); err != nil {
		return nil, err
	}
	s.logger.Info("loaded trade history", slog.Int("accounts", len(s.cache)))
	return s, nil
}

// LastSyncTime returns the time of the last merge for an account, or false
// when the account has never been synced.
func (s *TradeHistoryStore) LastSyncTime(accountID uint64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.cache[key(accountID)]
	if !ok || h.LastSyncTime.IsZero() {
		return time.Time{}, false
	}
	return h.LastSyncTime, true
}

// CachedTrades returns the stored trades for an account.
func (s *TradeHistoryStore) CachedTrades(accountID uint64) []domain.TradeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.cache[key(accountID)]
	if !ok {
		return nil
	}
	out := make([]domain.TradeRecord, len(h.Trades))
	copy(out, h.Trades)
	return out
}

// UpdateTrades merges new trades into the account's history (new entries
// overwrite existing ones with the same position id), recomputes the
// aggregate profit and commission, stamps the sync time, and persists.
func (s *TradeHistoryStore) UpdateTrades(accountID uint64, newTrades []domain.TradeRecord) (domain.TradeHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := key(accountID)
	existing := s.cache[id]

	byPosition := make(map[uint64]domain.TradeRecord, len(existing.Trades)+len(newTrades))
	for _, t := range existing.Trades {
		byPosition[t.PositionID] = t
	}
	for _, t := range newTrades {
		byPosition[t.PositionID] = t
	}

	merged := make([]domain.TradeRecord, 0, len(byPosition))
	for _, t := range byPosition {
		merged = append(merged, t)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ExitTime.After(merged[j].ExitTime)
	})

	var profit, commission float64
	for _, t := range merged {
		profit += t.Profit
		commission += t.Commission
	}

	now := time.Now().UTC()
	s.cache[id] = accountHistory{
		Trades:          merged,
		TotalTrades:     len(merged),
		TotalProfit:     round2(profit),
		TotalCommission: round2(commission),
		LastSyncTime:    now,
	}

	if err := save(s.path, s.cache); err != nil {
		return domain.TradeHistory{}, err
	}

	s.logger.Info("merged trade history",
		slog.Uint64("account_id", accountID),
		slog.Int("new_trades", len(newTrades)),
		slog.Int("total_trades", len(merged)),
	)

	return s.summaryLocked(accountID), nil
}

// Summary returns the merged history for an account; Cached is false when
// the account has never been synced.
func (s *TradeHistoryStore) Summary(accountID uint64) domain.TradeHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked(accountID)
}

func (s *TradeHistoryStore) summaryLocked(accountID uint64) domain.TradeHistory {
	h, ok := s.cache[key(accountID)]
	if !ok {
		return domain.TradeHistory{AccountID: accountID, Trades: []domain.TradeRecord{}}
	}
	hist := domain.TradeHistory{
		AccountID:       accountID,
		Trades:          h.Trades,
		TotalTrades:     h.TotalTrades,
		TotalProfit:     h.TotalProfit,
		TotalCommission: h.TotalCommission,
		Cached:          true,
	}
	if !h.LastSyncTime.IsZero() {
		t := h.LastSyncTime
		hist.LastSyncTime = &t
	}
	return hist
}

// ClearAccount drops one account's history and persists. Returns false when
// nothing was stored.
func (s *TradeHistoryStore) ClearAccount(accountID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := key(accountID)
	if _, ok := s.cache[id]; !ok {
		return false, nil
	}
	delete(s.cache, id)
	if err := save(s.path, s.cache); err != nil {
		return false, err
	}
	return true, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
