package handler

import (
	"net/http"
	"strings"

	"github.com/Sinfolonokojo/mt5-monitor/internal/service"
)

// AccountsHandler serves the fleet read and overlay endpoints.
type AccountsHandler struct {
	accounts *service.AccountService
}

// NewAccountsHandler creates the fleet endpoints.
func NewAccountsHandler(accounts *service.AccountService) *AccountsHandler {
	return &AccountsHandler{accounts: accounts}
}

// List returns the aggregated fleet view.
// GET /api/accounts?force_refresh=bool
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.accounts.List(r.Context(), boolQuery(r, "force_refresh")))
}

// Get returns one account snapshot.
// GET /api/accounts/{id}
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// AgentStatus returns the per-agent status vector.
// GET /api/agents/status
func (h *AccountsHandler) AgentStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agents": h.accounts.AgentStatuses(r.Context()),
	})
}

type phaseRequest struct {
	Phase string `json:"phase"`
}

// UpdatePhase sets the phase overlay for an account.
// PUT /api/accounts/{id}/phase
func (h *AccountsHandler) UpdatePhase(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req phaseRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Phase) == "" {
		writeError(w, http.StatusBadRequest, "phase is required")
		return
	}

	if err := h.accounts.UpdatePhase(id, strings.TrimSpace(req.Phase)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_id": id, "phase": strings.TrimSpace(req.Phase)})
}

type vsRequest struct {
	VSGroup string `json:"vs_group"`
}

// UpdateVS assigns an account to a vs group.
// PUT /api/accounts/{id}/vs
func (h *AccountsHandler) UpdateVS(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req vsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	group := strings.TrimSpace(req.VSGroup)
	if err := h.accounts.UpdateVS(id, group); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_id": id, "vs_group": group})
}

// TradeHistory returns the merged trade history for one account.
// GET /api/accounts/{id}/trade-history?force_refresh=bool
func (h *AccountsHandler) TradeHistory(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hist, err := h.accounts.TradeHistory(r.Context(), id, boolQuery(r, "force_refresh"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// Refresh clears the snapshot cache; the account-agent routing survives.
// POST /api/refresh
func (h *AccountsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.accounts.ClearCache()
	writeJSON(w, http.StatusOK, map[string]string{"message": "cache cleared"})
}

// CacheStats reports cache occupancy counters.
// GET /api/cache/stats
func (h *AccountsHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.accounts.CacheStats())
}
