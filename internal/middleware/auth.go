package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync/atomic"
)

type contextKey string

const ClientKey contextKey = "client"

// probe paths never require a key
func isProbe(path string) bool {
	switch path {
	case "/health", "/healthz", "/readyz":
		return true
	}
	return false
}

// Keys is the client id -> api key table; it can be swapped at runtime.
type Keys struct {
	v atomic.Pointer[map[string]string]
}

func NewKeys(m map[string]string) *Keys {
	k := &Keys{}
	k.Set(m)
	return k
}

// Set replaces the table with a copy of m.
func (k *Keys) Set(m map[string]string) {
	cp := make(map[string]string, len(m))
	for client, key := range m {
		if key != "" {
			cp[client] = key
		}
	}
	k.v.Store(&cp)
}

func (k *Keys) Len() int { return len(*k.v.Load()) }

// match returns the client owning apiKey, or "".
func (k *Keys) match(apiKey string) string {
	// constant-time comparison
	var client string
	for c, key := range *k.v.Load() {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			client = c
		}
	}
	return client
}

// APIKeyAuth validates API key from Authorization header. An empty table
// disables authentication.
func APIKeyAuth(keys *Keys) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbe(r.URL.Path) || r.Method == http.MethodOptions || keys.Len() == 0 {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			// Support both "Bearer <key>" and "<key>" formats
			apiKey := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if apiKey == "" {
				http.Error(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			client := keys.match(apiKey)
			if client == "" {
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}

			noteClient(r.Context(), client)
			ctx := context.WithValue(r.Context(), ClientKey, client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientFromContext extracts the authenticated client id from context
func GetClientFromContext(ctx context.Context) string {
	if client, ok := ctx.Value(ClientKey).(string); ok {
		return client
	}
	return ""
}
