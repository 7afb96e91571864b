package handler

import (
	"net/http"
	"strings"

	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
	"github.com/Sinfolonokojo/mt5-monitor/internal/service"
)

// TradeHandler proxies trade commands to the owner agent.
type TradeHandler struct {
	trades *service.TradeService
}

// NewTradeHandler creates the trade proxy endpoints.
func NewTradeHandler(trades *service.TradeService) *TradeHandler {
	return &TradeHandler{trades: trades}
}

// Open places a market order on the account's agent.
// POST /api/accounts/{id}/trade/open
func (h *TradeHandler) Open(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.OpenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	req.Side = domain.TradeSide(strings.ToUpper(string(req.Side)))

	if req.Symbol == "" || req.Lots <= 0 || !req.Side.Valid() {
		writeError(w, http.StatusBadRequest, "symbol, positive lots, and side BUY or SELL are required")
		return
	}

	res, err := h.trades.Open(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Close closes a position on the account's agent.
// POST /api/accounts/{id}/trade/close
func (h *TradeHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.CloseRequest
	if err := decodeJSON(r, &req); err != nil || req.Ticket == 0 {
		writeError(w, http.StatusBadRequest, "ticket is required")
		return
	}

	res, err := h.trades.Close(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Modify adjusts the stops of a position on the account's agent.
// PUT /api/accounts/{id}/trade/modify
func (h *TradeHandler) Modify(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.ModifyRequest
	if err := decodeJSON(r, &req); err != nil || req.Ticket == 0 {
		writeError(w, http.StatusBadRequest, "ticket is required")
		return
	}

	res, err := h.trades.Modify(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Positions lists the open positions on the account's agent. Unreachable
// agents yield an empty list, not an error.
// GET /api/accounts/{id}/positions
func (h *TradeHandler) Positions(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	positions, err := h.trades.Positions(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": positions})
}
