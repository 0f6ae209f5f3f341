package chi

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey int

const operatorKey ctxKey = iota

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// IsOperator reports whether the request authenticated with an operator key.
func IsOperator(ctx context.Context) bool {
	op, _ := ctx.Value(operatorKey).(bool)
	return op
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens.
// Operator keys additionally unlock operator-only toggles; they are marked
// in the request context. If both key lists are empty, authentication is
// disabled (pass-through).
func BearerAuthMiddleware(apiKeys, operatorKeys []string) func(http.Handler) http.Handler {
	validKeys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			validKeys[k] = struct{}{}
		}
	}
	opKeys := make(map[string]struct{}, len(operatorKeys))
	for _, k := range operatorKeys {
		if k != "" {
			opKeys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		// Auth disabled — pass everything through
		if len(validKeys) == 0 && len(opKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Exempt paths
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			token := auth[len(bearerPrefix):]
			if _, ok := opKeys[token]; ok {
				ctx := context.WithValue(r.Context(), operatorKey, true)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if _, ok := validKeys[token]; ok {
				next.ServeHTTP(w, r)
				return
			}

			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid api key")
		})
	}
}
