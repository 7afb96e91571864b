// Package aggregator fans out to every configured agent in parallel, merges
// the snapshot results, tracks per-agent failures, and triggers best-effort
// auto-recovery on agents that keep reporting disconnected or unreachable.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Sinfolonokojo/mt5-monitor/internal/agent"
	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
	"github.com/Sinfolonokojo/mt5-monitor/internal/routing"
)

// defaultRecoveryThreshold is the consecutive-failure count that triggers a
// POST /refresh on the agent.
const defaultRecoveryThreshold = 2

// Notifier receives operational events (auto-recovery). The notify package
// satisfies it.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Aggregator coordinates fleet-wide snapshot fetches.
type Aggregator struct {
	registry *agent.Registry
	routes   *routing.Map
	logger   *slog.Logger
	notifier Notifier

	recoveryThreshold int
	recoveryWait      time.Duration

	mu            sync.Mutex
	failureCounts map[string]int
}

// New creates an Aggregator. notifier may be nil.
func New(registry *agent.Registry, routes *routing.Map, notifier Notifier, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		registry:          registry,
		routes:            routes,
		logger:            logger.With(slog.String("component", "aggregator")),
		notifier:          notifier,
		recoveryThreshold: defaultRecoveryThreshold,
		recoveryWait:      2 * time.Second,
		failureCounts:     make(map[string]int),
	}
}

// SetRecovery overrides the failure threshold and post-refresh wait. Test
// hook.
func (a *Aggregator) SetRecovery(threshold int, wait time.Duration) {
	a.recoveryThreshold = threshold
	a.recoveryWait = wait
}

// FetchAllAgents calls every agent's snapshot endpoint in parallel, stamps
// each snapshot with its owner, repopulates the routing map, and returns the
// flat snapshot list plus a per-agent status vector. One failing agent never
// fails the fleet; its status entry records the failure mode. Output order
// follows completion order and must not be relied upon.
func (a *Aggregator) FetchAllAgents(ctx context.Context) ([]domain.AccountSnapshot, []domain.AgentStatus) {
	clients := a.registry.All()
	a.logger.Info("fetching from all agents", slog.Int("agents", len(clients)))

	var (
		mu        sync.Mutex
		snapshots []domain.AccountSnapshot
		statuses  []domain.AgentStatus
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range clients {
		g.Go(func() error {
			accounts, state := a.fetchAgent(ctx, c)

			for i := range accounts {
				accounts[i].OwnerAgent = c.Name()
			}

			mu.Lock()
			snapshots = append(snapshots, accounts...)
			statuses = append(statuses, domain.AgentStatus{
				AgentName:     c.Name(),
				AgentURL:      c.BaseURL(),
				Status:        state,
				AccountsCount: len(accounts),
				LastChecked:   time.Now().UTC(),
			})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // per-agent failures are folded into statuses, never returned

	a.routes.UpdateBulk(snapshots)

	a.logger.Info("aggregation complete",
		slog.Int("accounts", len(snapshots)),
		slog.Int("agents", len(statuses)),
	)
	return snapshots, statuses
}

// fetchAgent fetches one agent's snapshots and classifies the outcome.
//
// Failure accounting:
//   - connected body        -> online, counter reset
//   - disconnected body     -> online, counter++; at threshold: refresh,
//     wait, refetch once, counter reset
//   - timeout               -> timeout, counter++ (no auto-refresh)
//   - unreachable           -> offline, counter++; at threshold: refresh and
//     reset without waiting for a retry
//   - anything else         -> error, counter++
func (a *Aggregator) fetchAgent(ctx context.Context, c *agent.Client) ([]domain.AccountSnapshot, string) {
	accounts, err := c.GetAccounts(ctx)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTimeout):
			a.logger.Error("agent timed out", slog.String("agent", c.Name()))
			a.recordFailure(c.Name())
			return nil, domain.AgentTimeout
		case errors.Is(err, domain.ErrAgentUnavailable):
			a.logger.Error("agent unreachable", slog.String("agent", c.Name()))
			if a.recordFailure(c.Name()) >= a.recoveryThreshold {
				a.triggerRecovery(ctx, c)
			}
			return nil, domain.AgentOffline
		default:
			a.logger.Error("agent fetch failed",
				slog.String("agent", c.Name()),
				slog.String("error", err.Error()),
			)
			a.recordFailure(c.Name())
			return nil, domain.AgentError
		}
	}

	if len(accounts) > 0 && accounts[0].Status == domain.AccountDisconnected {
		a.logger.Warn("agent reported disconnected account", slog.String("agent", c.Name()))

		if a.recordFailure(c.Name()) >= a.recoveryThreshold {
			a.triggerRecovery(ctx, c)

			// Give the terminal a moment to reconnect, then refetch once.
			select {
			case <-time.After(a.recoveryWait):
			case <-ctx.Done():
				return accounts, domain.AgentOnline
			}

			if retried, retryErr := c.GetAccounts(ctx); retryErr == nil {
				a.logger.Info("retry after recovery succeeded", slog.String("agent", c.Name()))
				accounts = retried
			}
		}
		return accounts, domain.AgentOnline
	}

	a.resetFailures(c.Name())
	return accounts, domain.AgentOnline
}

// triggerRecovery fires the agent's /refresh endpoint and resets its failure
// counter whether or not the call succeeded, so an unreachable agent cannot
// cause a refresh storm.
func (a *Aggregator) triggerRecovery(ctx context.Context, c *agent.Client) {
	a.logger.Warn("triggering auto-recovery", slog.String("agent", c.Name()))

	if err := c.Refresh(ctx); err != nil {
		a.logger.Error("auto-recovery refresh failed",
			slog.String("agent", c.Name()),
			slog.String("error", err.Error()),
		)
	} else if a.notifier != nil {
		_ = a.notifier.Notify(ctx, "agent_recovery",
			"Agent auto-recovery",
			fmt.Sprintf("Triggered refresh on agent %s after repeated failures", c.Name()),
		)
	}
	a.resetFailures(c.Name())
}

func (a *Aggregator) recordFailure(name string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failureCounts[name]++
	return a.failureCounts[name]
}

func (a *Aggregator) resetFailures(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failureCounts[name] = 0
}

// ResolveOwner returns the client owning the given account, running a full
// aggregation to repopulate the routing map when the account is unknown.
func (a *Aggregator) ResolveOwner(ctx context.Context, accountID uint64) (*agent.Client, error) {
	name, ok := a.routes.Get(accountID)
	if !ok {
		a.FetchAllAgents(ctx)
		name, ok = a.routes.Get(accountID)
		if !ok {
			return nil, fmt.Errorf("account %d: %w", accountID, domain.ErrNotFound)
		}
	}

	c, ok := a.registry.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("agent %s for account %d: %w", name, accountID, domain.ErrNotFound)
	}
	return c, nil
}

// FetchTradeHistory fetches closed trades for one account from its owner
// agent, either incrementally (fromDate set) or over a days window.
func (a *Aggregator) FetchTradeHistory(ctx context.Context, accountID uint64, fromDate *time.Time, days int) (domain.TradeHistory, error) {
	c, err := a.ResolveOwner(ctx, accountID)
	if err != nil {
		return domain.TradeHistory{}, err
	}

	hist, err := c.TradeHistory(ctx, fromDate, days)
	if err != nil {
		return domain.TradeHistory{}, fmt.Errorf("trade history for %d: %w", accountID, err)
	}
	hist.AccountID = accountID
	return hist, nil
}
