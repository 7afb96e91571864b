package middleware

import (
	"net/http"
	"strings"
)

// FeatureGates returns middleware that answers 503 for trade endpoints when
// trading is disabled and for versus endpoints when versus is disabled. The
// versus feature-status endpoint stays reachable so UIs can discover the
// flag.
func FeatureGates(tradingEnabled, versusEnabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path

			if !tradingEnabled && isTradePath(path) {
				writeDisabled(w, "trading is disabled")
				return
			}
			if !versusEnabled && isVersusPath(path) && path != "/api/versus/feature-status" {
				writeDisabled(w, "versus feature is disabled")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isTradePath(path string) bool {
	return strings.HasPrefix(path, "/api/accounts/") && strings.Contains(path, "/trade/")
}

func isVersusPath(path string) bool {
	return path == "/api/versus" || strings.HasPrefix(path, "/api/versus/")
}

func writeDisabled(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte(`{"detail":"` + msg + `"}`))
}
