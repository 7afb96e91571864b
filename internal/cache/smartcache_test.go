package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
)

func snap(id uint64) domain.AccountSnapshot {
	return domain.AccountSnapshot{AccountID: id, Balance: 10000, Status: domain.AccountConnected}
}

func TestGetAccountExpiry(t *testing.T) {
	c := New(time.Minute)

	now := time.Now()
	c.SetClock(func() time.Time { return now })

	c.SetAccount(snap(100))

	got, ok := c.GetAccount(100)
	require.True(t, ok)
	assert.Equal(t, uint64(100), got.AccountID)

	now = now.Add(2 * time.Minute)
	_, ok = c.GetAccount(100)
	assert.False(t, ok)

	// The expired entry is pruned, not just hidden.
	assert.Equal(t, 0, c.Stats().AccountsCached)
}

func TestGetAllAccountsRequiresFullRefresh(t *testing.T) {
	c := New(time.Minute)

	// A single insert never marks the collection fresh.
	c.SetAccount(snap(100))
	_, ok := c.GetAllAccounts()
	assert.False(t, ok)

	c.SetAccounts([]domain.AccountSnapshot{snap(100), snap(200)})
	all, ok := c.GetAllAccounts()
	require.True(t, ok)
	assert.Len(t, all, 2)
}

func TestSelectiveInvalidation(t *testing.T) {
	c := New(time.Minute)
	c.SetAccounts([]domain.AccountSnapshot{snap(100), snap(200)})

	c.InvalidateAccount(100)

	_, ok := c.GetAccount(100)
	assert.False(t, ok)
	_, ok = c.GetAccount(200)
	assert.True(t, ok)

	// The collection marker survives single-account eviction.
	all, ok := c.GetAllAccounts()
	require.True(t, ok)
	assert.Len(t, all, 1)
}

func TestInvalidateIsIdempotent(t *testing.T) {
	c := New(time.Minute)
	c.SetAccounts([]domain.AccountSnapshot{snap(100)})

	c.InvalidateAccount(100)
	c.InvalidateAccount(100)
	c.InvalidateAccount(999)

	_, ok := c.GetAccount(100)
	assert.False(t, ok)
}

func TestUpdateAccountField(t *testing.T) {
	c := New(time.Minute)
	c.SetAccounts([]domain.AccountSnapshot{snap(100)})

	ok := c.UpdateAccountField(100, func(a *domain.AccountSnapshot) {
		a.Phase = "F2"
	})
	require.True(t, ok)

	got, ok := c.GetAccount(100)
	require.True(t, ok)
	assert.Equal(t, "F2", got.Phase)

	// Patching a missing account is a no-op.
	assert.False(t, c.UpdateAccountField(999, func(a *domain.AccountSnapshot) {
		a.Phase = "F9"
	}))
}

func TestClearDropsEverything(t *testing.T) {
	c := New(time.Minute)
	c.SetAccounts([]domain.AccountSnapshot{snap(100)})
	c.SetAgentStatuses([]domain.AgentStatus{{AgentName: "agent-1", Status: domain.AgentOnline}})

	c.Clear()

	stats := c.Stats()
	assert.Equal(t, 0, stats.AccountsCached)
	assert.Equal(t, 0, stats.AgentsCached)
	assert.Nil(t, stats.LastFullRefresh)
}

func TestStats(t *testing.T) {
	c := New(30 * time.Second)
	c.SetAccounts([]domain.AccountSnapshot{snap(100), snap(200)})

	stats := c.Stats()
	assert.Equal(t, 2, stats.AccountsCached)
	assert.Equal(t, 30, stats.TTLSeconds)
	require.NotNil(t, stats.LastFullRefresh)
}
