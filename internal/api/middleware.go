// Package api implements the fuda REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/corvid-labs/fuda/internal/apperr"
)

// AuthMiddleware returns middleware that validates a Bearer token.
// With enabled false every request passes through. The token comparison is
// constant-time so response timing leaks nothing about a partial match.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorBody(apperr.CodeValidationError, "unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
