package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Open lists paths served without a token.
var Open = map[string]bool{"/healthz": true, "/readyz": true, "/metrics": true}

// Middleware enforces "Authorization: Bearer <token>". An empty token
// disables the check.
func Middleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if Open[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				http.Error(w, "missing API token", http.StatusUnauthorized)
				return
			}

			got := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "invalid API token", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
