// Package domain defines the core value types shared across the backend:
// account snapshots, agent statuses, trade primitives, and versus records.
package domain

import "time"

// Account connection states as reported by the terminal agents.
const (
	AccountConnected    = "connected"
	AccountDisconnected = "disconnected"
)

// Agent reachability states as observed by the aggregator.
const (
	AgentOnline  = "online"
	AgentOffline = "offline"
	AgentTimeout = "timeout"
	AgentError   = "error"
)

// AccountSnapshot is a point-in-time view of one trading account, produced by
// the aggregator and enriched with the locally persisted phase and vs_group
// overlays. Snapshots are value-like; once cached they are never mutated in
// place (field updates replace the whole entry).
type AccountSnapshot struct {
	AccountID       uint64    `json:"account_id"`
	DisplayName     string    `json:"display_name"`
	Balance         float64   `json:"balance"`
	Status          string    `json:"status"`
	Phase           string    `json:"phase"`
	DaysOperating   uint32    `json:"days_operating"`
	HasOpenPosition bool      `json:"has_open_position"`
	OwnerAgent      string    `json:"owner_agent"`
	LastUpdated     time.Time `json:"last_updated"`
	Holder          string    `json:"holder"`
	PropFirm        string    `json:"prop_firm"`
	InitialBalance  float64   `json:"initial_balance"`
	VSGroup         string    `json:"vs_group,omitempty"`
}

// AgentStatus records the outcome of the most recent snapshot fetch from one
// agent.
type AgentStatus struct {
	AgentName     string    `json:"agent_name"`
	AgentURL      string    `json:"agent_url"`
	Status        string    `json:"status"`
	AccountsCount int       `json:"accounts_count"`
	LastChecked   time.Time `json:"last_checked"`
}

// AggregatedAccounts is the fleet-wide response returned by the accounts
// endpoint.
type AggregatedAccounts struct {
	Accounts             []AccountSnapshot `json:"accounts"`
	TotalAccounts        int               `json:"total_accounts"`
	ConnectedAccounts    int               `json:"connected_accounts"`
	DisconnectedAccounts int               `json:"disconnected_accounts"`
	TotalBalance         float64           `json:"total_balance"`
	LastRefresh          time.Time         `json:"last_refresh"`
}

// Aggregate builds the fleet summary from a list of snapshots.
func Aggregate(accounts []AccountSnapshot) AggregatedAccounts {
	resp := AggregatedAccounts{
		Accounts:      accounts,
		TotalAccounts: len(accounts),
		LastRefresh:   time.Now().UTC(),
	}
	for _, a := range accounts {
		if a.Status == AccountConnected {
			resp.ConnectedAccounts++
		}
		resp.TotalBalance += a.Balance
	}
	resp.DisconnectedAccounts = resp.TotalAccounts - resp.ConnectedAccounts
	return resp
}
