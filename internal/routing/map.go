// Package routing maintains the account-to-agent ownership map used to route
// single-account reads and trade commands without a fleet fan-out.
package routing

import (
	"sync"

	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
)

// Map is a concurrent account_id -> agent_name store. It is repopulated on
// every successful full aggregation and intentionally NOT cleared on cache
// refresh: ownership rarely changes, and a stale entry only costs one failed
// proxy call before the next aggregation corrects it.
type Map struct {
	mu      sync.RWMutex
	entries map[uint64]string
}

// NewMap creates an empty routing map.
func NewMap() *Map {
	return &Map{entries: make(map[uint64]string)}
}

// Update records the owning agent for one account. Last writer wins.
func (m *Map) Update(accountID uint64, agentName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[accountID] = agentName
}

// UpdateBulk records ownership for a batch of snapshots.
func (m *Map) UpdateBulk(accounts []domain.AccountSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range accounts {
		if a.AccountID != 0 && a.OwnerAgent != "" {
			m.entries[a.AccountID] = a.OwnerAgent
		}
	}
}

// Get returns the owning agent for an account.
func (m *Map) Get(accountID uint64) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.entries[accountID]
	return name, ok
}

// Clear drops every mapping.
func (m *Map) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[uint64]string)
}

// Size returns the number of mappings.
func (m *Map) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
