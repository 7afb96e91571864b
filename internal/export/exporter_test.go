package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
)

func TestAccountsCSV(t *testing.T) {
	updated := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	body, err := accountsCSV([]domain.AccountSnapshot{
		{
			AccountID:      100,
			DisplayName:    "Main",
			Balance:        10000.5,
			InitialBalance: 10000,
			Status:         domain.AccountConnected,
			Phase:          "F2",
			VSGroup:        "G1",
			Holder:         "Alice",
			PropFirm:       "FTMO",
			OwnerAgent:     "agent-1",
			LastUpdated:    updated,
		},
	})
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{
		"100", "Main", "10000.50", "10000.00", "connected", "F2", "G1",
		"0", "false", "Alice", "FTMO", "agent-1", "2026-08-20T12:00:00Z",
	}, rows[1])
}

func TestAccountsCSVEmptyFleet(t *testing.T) {
	body, err := accountsCSV(nil)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, csvHeader, rows[0])
}
