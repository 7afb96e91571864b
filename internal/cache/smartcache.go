// Package cache implements the per-account snapshot cache with TTL expiry
// and selective invalidation.
package cache

import (
	"sync"
	"time"

	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
)

type accountEntry struct {
	snapshot domain.AccountSnapshot
	cachedAt time.Time
}

type statusEntry struct {
	status   domain.AgentStatus
	cachedAt time.Time
}

// Stats is a point-in-time view of cache occupancy for the stats endpoint.
type Stats struct {
	AccountsCached  int        `json:"accounts_cached"`
	AgentsCached    int        `json:"agents_cached"`
	LastFullRefresh *time.Time `json:"last_full_refresh,omitempty"`
	TTLSeconds      int        `json:"ttl_seconds"`
}

// SmartCache caches account snapshots and agent statuses per key. A single
// mutex linearises every operation. Expired entries are pruned lazily on
// access. Collection reads are served only while the last bulk insert is
// still within TTL; single-account invalidation never touches that marker,
// which is what lets a trade evict one account without forcing a fleet
// refresh.
//
// No operation returns an error: misses and expiries report absence.
type SmartCache struct {
	mu              sync.Mutex
	ttl             time.Duration
	accounts        map[uint64]accountEntry
	agentStatuses   map[string]statusEntry
	lastFullRefresh time.Time
	now             func() time.Time
}

// New creates a SmartCache with the given entry TTL.
func New(ttl time.Duration) *SmartCache {
	return &SmartCache{
		ttl:           ttl,
		accounts:      make(map[uint64]accountEntry),
		agentStatuses: make(map[string]statusEntry),
		now:           time.Now,
	}
}

func (c *SmartCache) expired(cachedAt time.Time) bool {
	return c.now().Sub(cachedAt) > c.ttl
}

// GetAccount returns the cached snapshot for one account if present and
// fresh. An expired entry is removed on the way out.
func (c *SmartCache) GetAccount(accountID uint64) (domain.AccountSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.accounts[accountID]
	if !ok {
		return domain.AccountSnapshot{}, false
	}
	if c.expired(entry.cachedAt) {
		delete(c.accounts, accountID)
		return domain.AccountSnapshot{}, false
	}
	return entry.snapshot, true
}

// GetAllAccounts returns every fresh snapshot, or false when no full refresh
// has happened within TTL. Expired entries are pruned in the same pass.
func (c *SmartCache) GetAllAccounts() ([]domain.AccountSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastFullRefresh.IsZero() || c.expired(c.lastFullRefresh) {
		return nil, false
	}

	valid := make([]domain.AccountSnapshot, 0, len(c.accounts))
	for id, entry := range c.accounts {
		if c.expired(entry.cachedAt) {
			delete(c.accounts, id)
			continue
		}
		valid = append(valid, entry.snapshot)
	}
	if len(valid) == 0 {
		return nil, false
	}
	return valid, true
}

// SetAccounts bulk-inserts snapshots with one shared cached-at stamp. This is
// the only operation that marks the collection as fresh.
func (c *SmartCache) SetAccounts(accounts []domain.AccountSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, a := range accounts {
		c.accounts[a.AccountID] = accountEntry{snapshot: a, cachedAt: now}
	}
	c.lastFullRefresh = now
}

// SetAccount caches a single snapshot without touching the full-refresh
// marker.
func (c *SmartCache) SetAccount(a domain.AccountSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[a.AccountID] = accountEntry{snapshot: a, cachedAt: c.now()}
}

// InvalidateAccount removes one account from the cache. Idempotent; the
// full-refresh marker is untouched.
func (c *SmartCache) InvalidateAccount(accountID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.accounts, accountID)
}

// UpdateAccountField applies fn to a cached snapshot if it is present and
// fresh, refreshing its cached-at stamp. Returns false (no-op) otherwise.
// Used for overlay changes (phase, vs_group) that should not force a refetch.
func (c *SmartCache) UpdateAccountField(accountID uint64, fn func(*domain.AccountSnapshot)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.accounts[accountID]
	if !ok {
		return false
	}
	if c.expired(entry.cachedAt) {
		delete(c.accounts, accountID)
		return false
	}

	fn(&entry.snapshot)
	entry.cachedAt = c.now()
	c.accounts[accountID] = entry
	return true
}

// SetAgentStatuses caches the per-agent status vector.
func (c *SmartCache) SetAgentStatuses(statuses []domain.AgentStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, s := range statuses {
		c.agentStatuses[s.AgentName] = statusEntry{status: s, cachedAt: now}
	}
}

// GetAgentStatuses returns every fresh agent status.
func (c *SmartCache) GetAgentStatuses() ([]domain.AgentStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	valid := make([]domain.AgentStatus, 0, len(c.agentStatuses))
	for name, entry := range c.agentStatuses {
		if c.expired(entry.cachedAt) {
			delete(c.agentStatuses, name)
			continue
		}
		valid = append(valid, entry.status)
	}
	if len(valid) == 0 {
		return nil, false
	}
	return valid, true
}

// Clear drops everything, including the full-refresh marker.
func (c *SmartCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts = make(map[uint64]accountEntry)
	c.agentStatuses = make(map[string]statusEntry)
	c.lastFullRefresh = time.Time{}
}

// Stats reports occupancy counters.
func (c *SmartCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		AccountsCached: len(c.accounts),
		AgentsCached:   len(c.agentStatuses),
		TTLSeconds:     int(c.ttl / time.Second),
	}
	if !c.lastFullRefresh.IsZero() {
		t := c.lastFullRefresh
		s.LastFullRefresh = &t
	}
	return s
}

// SetClock overrides the cache's time source. Test hook.
func (c *SmartCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
