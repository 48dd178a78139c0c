// Package api implements the livetag REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry "Authorization: Bearer <token>".
// GET requests may pass the token as ?access_token= instead, since a
// browser EventSource cannot set headers.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			got, ok := requestToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestToken(r *http.Request) (string, bool) {
	if auth, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return auth, true
	}
	if r.Method == http.MethodGet {
		if q := r.URL.Query().Get("access_token"); q != "" {
			return q, true
		}
	}
	return "", false
}
