// Package service implements the application operations behind the HTTP
// handlers: fleet reads, overlay updates, trade history sync, and the trade
// proxy.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sinfolonokojo/mt5-monitor/internal/aggregator"
	"github.com/Sinfolonokojo/mt5-monitor/internal/cache"
	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
	"github.com/Sinfolonokojo/mt5-monitor/internal/store/jsonfile"
)

// initialHistoryDays is the lookback window for an account's first trade
// history sync.
const initialHistoryDays = 30

// Broadcaster pushes fleet events to connected UI clients. The ws hub
// satisfies it.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// AccountService serves fleet snapshots from the cache, falling back to a
// full aggregation when the cache is cold, and owns the locally persisted
// phase and vs_group overlays.
type AccountService struct {
	agg       *aggregator.Aggregator
	cache     *cache.SmartCache
	phases    *jsonfile.PhaseStore
	vs        *jsonfile.VSStore
	history   *jsonfile.TradeHistoryStore
	broadcast Broadcaster
	logger    *slog.Logger
}

// NewAccountService wires the account read/overlay paths. broadcast may be
// nil.
func NewAccountService(
	agg *aggregator.Aggregator,
	c *cache.SmartCache,
	phases *jsonfile.PhaseStore,
	vs *jsonfile.VSStore,
	history *jsonfile.TradeHistoryStore,
	broadcast Broadcaster,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		agg:       agg,
		cache:     c,
		phases:    phases,
		vs:        vs,
		history:   history,
		broadcast: broadcast,
		logger:    logger.With(slog.String("component", "account_service")),
	}
}

// List returns the aggregated fleet view. A fresh cache is served as-is;
// forceRefresh or a cold cache triggers a full aggregation.
func (s *AccountService) List(ctx context.Context, forceRefresh bool) domain.AggregatedAccounts {
	if !forceRefresh {
		if cached, ok := s.cache.GetAllAccounts(); ok {
			return domain.Aggregate(cached)
		}
	}
	return domain.Aggregate(s.refreshAll(ctx))
}

// Get returns one account snapshot, serving from cache when possible.
func (s *AccountService) Get(ctx context.Context, accountID uint64) (domain.AccountSnapshot, error) {
	if snap, ok := s.cache.GetAccount(accountID); ok {
		return snap, nil
	}

	for _, snap := range s.refreshAll(ctx) {
		if snap.AccountID == accountID {
			return snap, nil
		}
	}
	return domain.AccountSnapshot{}, fmt.Errorf("account %d: %w", accountID, domain.ErrNotFound)
}

// AgentStatuses returns the per-agent status vector, refreshing when the
// cache holds none.
func (s *AccountService) AgentStatuses(ctx context.Context) []domain.AgentStatus {
	if statuses, ok := s.cache.GetAgentStatuses(); ok {
		return statuses
	}
	s.refreshAll(ctx)
	statuses, _ := s.cache.GetAgentStatuses()
	return statuses
}

// refreshAll runs a full aggregation, applies the phase and vs_group
// overlays, repopulates the cache, and announces the refresh.
func (s *AccountService) refreshAll(ctx context.Context) []domain.AccountSnapshot {
	snapshots, statuses := s.agg.FetchAllAgents(ctx)

	vsGroups := s.vs.All()
	for i := range snapshots {
		snapshots[i].Phase = s.phases.Get(snapshots[i].AccountID)
		snapshots[i].VSGroup = vsGroups[snapshots[i].AccountID]
	}

	s.cache.SetAccounts(snapshots)
	s.cache.SetAgentStatuses(statuses)

	if s.broadcast != nil {
		s.broadcast.Broadcast("accounts_refreshed", map[string]any{
			"accounts": len(snapshots),
			"agents":   len(statuses),
		})
	}
	return snapshots
}

// UpdatePhase persists a new phase overlay and patches the cached snapshot in
// place without invalidating it.
func (s *AccountService) UpdatePhase(accountID uint64, phase string) error {
	if err := s.phases.Update(accountID, phase); err != nil {
		return err
	}
	s.cache.UpdateAccountField(accountID, func(a *domain.AccountSnapshot) {
		a.Phase = phase
	})
	s.logger.Info("phase updated", slog.Uint64("account_id", accountID), slog.String("phase", phase))
	return nil
}

// UpdateVS assigns the account to a vs group (two accounts per group at most)
// and patches the cached snapshot in place.
func (s *AccountService) UpdateVS(accountID uint64, group string) error {
	if err := s.vs.Update(accountID, group); err != nil {
		return err
	}
	s.cache.UpdateAccountField(accountID, func(a *domain.AccountSnapshot) {
		a.VSGroup = group
	})
	s.logger.Info("vs group updated", slog.Uint64("account_id", accountID), slog.String("vs_group", group))
	return nil
}

// TradeHistory returns the merged trade history for an account. Unless the
// caller forces a sync, a previously synced account fetches only trades since
// its last sync; a never-synced account fetches the initial lookback window.
func (s *AccountService) TradeHistory(ctx context.Context, accountID uint64, forceRefresh bool) (domain.TradeHistory, error) {
	var fromDate *time.Time
	days := initialHistoryDays

	if lastSync, ok := s.history.LastSyncTime(accountID); ok && !forceRefresh {
		fromDate = &lastSync
		days = 0
	}

	fetched, err := s.agg.FetchTradeHistory(ctx, accountID, fromDate, days)
	if err != nil {
		// Serve the cached merge when the agent is unreachable but we have
		// synced before.
		if cached := s.history.Summary(accountID); cached.Cached {
			s.logger.Warn("trade history fetch failed, serving cache",
				slog.Uint64("account_id", accountID),
				slog.String("error", err.Error()),
			)
			return cached, nil
		}
		return domain.TradeHistory{}, err
	}

	return s.history.UpdateTrades(accountID, fetched.Trades)
}

// ClearCache drops every cached snapshot and agent status. The account-agent
// routing survives so trade routing keeps working until the next aggregation.
func (s *AccountService) ClearCache() {
	s.cache.Clear()
	s.logger.Info("cache cleared")
}

// CacheStats exposes the cache counters.
func (s *AccountService) CacheStats() cache.Stats {
	return s.cache.Stats()
}
