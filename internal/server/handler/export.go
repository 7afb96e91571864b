package handler

import (
	"net/http"

	"github.com/Sinfolonokojo/mt5-monitor/internal/export"
	"github.com/Sinfolonokojo/mt5-monitor/internal/service"
)

// ExportHandler uploads account spreadsheets to the configured object store.
type ExportHandler struct {
	accounts *service.AccountService
	exporter *export.Exporter
}

// NewExportHandler creates the export endpoint. exporter may be nil when the
// sink is not configured.
func NewExportHandler(accounts *service.AccountService, exporter *export.Exporter) *ExportHandler {
	return &ExportHandler{accounts: accounts, exporter: exporter}
}

// ExportAccounts renders the current fleet view to CSV and uploads it.
// POST /api/export/accounts
func (h *ExportHandler) ExportAccounts(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export sink is not configured")
		return
	}

	fleet := h.accounts.List(r.Context(), boolQuery(r, "force_refresh"))
	key, err := h.exporter.ExportAccounts(r.Context(), fleet.Accounts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"key":      key,
		"accounts": fleet.TotalAccounts,
	})
}
