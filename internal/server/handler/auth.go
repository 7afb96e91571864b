package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Sinfolonokojo/mt5-monitor/internal/auth"
)

// AuthHandler issues and verifies bearer tokens.
type AuthHandler struct {
	tokens   *auth.Tokens
	password string
}

// NewAuthHandler creates the auth endpoints with the configured login
// password.
func NewAuthHandler(tokens *auth.Tokens, password string) *AuthHandler {
	return &AuthHandler{tokens: tokens, password: password}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

// Login exchanges the shared password for a bearer token.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) != 1 {
		writeJSON(w, http.StatusUnauthorized, loginResponse{
			Success: false,
			Message: "invalid password",
		})
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Success: true,
		Token:   h.tokens.Issue(),
		Message: "authenticated",
	})
}

// Verify reports whether the presented bearer token is valid.
// GET /api/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	valid := false
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			valid = h.tokens.Verify(strings.TrimSpace(parts[1])) == nil
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}
