// Package middleware holds the HTTP middleware chain: request logging, CORS,
// bearer-token auth, and feature gates.
package middleware

import (
	"net/http"
	"strings"

	"github.com/Sinfolonokojo/mt5-monitor/internal/auth"
)

// publicPaths need no bearer token. Everything else on the API does.
var publicPaths = map[string]bool{
	"/":                true,
	"/api/auth/login":  true,
	"/api/auth/verify": true,
}

// Auth returns middleware that requires a valid bearer token on every
// non-public path. OPTIONS preflights pass through unconditionally. All
// rejections are a uniform 401 so callers cannot tell which check failed.
func Auth(tokens *auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			if err := tokens.Verify(bearerToken(r)); err != nil {
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from the Authorization header, falling back
// to the token query parameter for WebSocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return r.URL.Query().Get("token")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"detail":"not authenticated"}`))
}
