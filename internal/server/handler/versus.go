package handler

import (
	"net/http"

	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
	"github.com/Sinfolonokojo/mt5-monitor/internal/service"
)

// VersusHandler serves the versus workflow endpoints.
type VersusHandler struct {
	versus *service.VersusService
}

// NewVersusHandler creates the versus endpoints.
func NewVersusHandler(versus *service.VersusService) *VersusHandler {
	return &VersusHandler{versus: versus}
}

// List returns every versus record.
// GET /api/versus
func (h *VersusHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"versus": h.versus.List()})
}

// FeatureStatus reports the feature flag. Reachable even when the feature is
// gated off.
// GET /api/versus/feature-status
func (h *VersusHandler) FeatureStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": h.versus.Enabled()})
}

// Create validates and persists a new pending record. No agent is contacted.
// POST /api/versus
func (h *VersusHandler) Create(w http.ResponseWriter, r *http.Request) {
	var params domain.VersusParams
	if err := decodeJSON(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.versus.Create(params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Delete removes a record in any state.
// DELETE /api/versus/{id}
func (h *VersusHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.versus.Delete(r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// Congelar executes step 1 now.
// POST /api/versus/{id}/congelar
func (h *VersusHandler) Congelar(w http.ResponseWriter, r *http.Request) {
	rec, err := h.versus.Congelar(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Transferir executes step 2 now.
// POST /api/versus/{id}/transferir
func (h *VersusHandler) Transferir(w http.ResponseWriter, r *http.Request) {
	rec, err := h.versus.Transferir(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
