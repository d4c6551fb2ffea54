// Package auth provides API-key authentication for the bridge surface.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/types"
)

type contextKey string

const callerKey contextKey = "caller_id"

// CallerFromContext extracts the authenticated caller ID from the context.
func CallerFromContext(ctx context.Context) string {
	v, _ := ctx.Value(callerKey).(string)
	return v
}

// APIKeyAuth returns middleware that validates API keys and sets caller
// context. An empty key store disables authentication (local development).
func APIKeyAuth(keys *KeyStore) func(http.Handler) http.Handler {
	skipPaths := map[string]bool{
		"/healthz": true,
		"/readyz":  true,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPaths[r.URL.Path] || keys.Empty() {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				// Also check Authorization: Bearer
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(auth, "Bearer ") {
					apiKey = strings.TrimPrefix(auth, "Bearer ")
				}
			}

			if apiKey == "" {
				types.ErrAuthentication("missing API key").WriteJSON(w)
				return
			}

			callerID, ok := keys.Lookup(apiKey)
			if !ok {
				types.ErrAuthentication("invalid API key").WriteJSON(w)
				return
			}

			ctx := context.WithValue(r.Context(), callerKey, callerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
