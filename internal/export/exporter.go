package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"time"

	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
)

// Exporter writes account snapshots to the object store as CSV.
type Exporter struct {
	store  *Store
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// NewExporter creates an Exporter writing under the given key prefix.
func NewExporter(store *Store, prefix string, logger *slog.Logger) *Exporter {
	return &Exporter{
		store:  store,
		prefix: prefix,
		logger: logger.With(slog.String("component", "exporter")),
		now:    time.Now,
	}
}

// ExportAccounts renders the snapshots as a timestamped CSV object and
// uploads it. Returns the object key.
func (e *Exporter) ExportAccounts(ctx context.Context, accounts []domain.AccountSnapshot) (string, error) {
	body, err := accountsCSV(accounts)
	if err != nil {
		return "", err
	}

	key := path.Join(e.prefix, fmt.Sprintf("accounts-%s.csv", e.now().UTC().Format("20060102-150405")))
	if err := e.store.put(ctx, key, bytes.NewReader(body), "text/csv"); err != nil {
		return "", err
	}

	e.logger.Info("exported accounts",
		slog.String("key", key),
		slog.Int("accounts", len(accounts)),
	)
	return key, nil
}

var csvHeader = []string{
	"account_id", "name", "balance", "initial_balance", "status", "phase",
	"vs_group", "days_operating", "has_open_position", "holder", "prop_firm",
	"owner_agent", "last_updated",
}

func accountsCSV(accounts []domain.AccountSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("export: write csv header: %w", err)
	}
	for _, a := range accounts {
		row := []string{
			strconv.FormatUint(a.AccountID, 10),
			a.DisplayName,
			strconv.FormatFloat(a.Balance, 'f', 2, 64),
			strconv.FormatFloat(a.InitialBalance, 'f', 2, 64),
			a.Status,
			a.Phase,
			a.VSGroup,
			strconv.FormatUint(uint64(a.DaysOperating), 10),
			strconv.FormatBool(a.HasOpenPosition),
			a.Holder,
			a.PropFirm,
			a.OwnerAgent,
			a.LastUpdated.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("export: write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export: flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
