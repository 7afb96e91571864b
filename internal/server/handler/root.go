package handler

import "net/http"

// RootHandler serves the unauthenticated service descriptor.
type RootHandler struct {
	version string
}

// NewRootHandler creates the descriptor endpoint.
func NewRootHandler(version string) *RootHandler {
	return &RootHandler{version: version}
}

// Describe returns the service name and version.
// GET /
func (h *RootHandler) Describe(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "mt5-monitor",
		"version": h.version,
		"status":  "running",
	})
}
