package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/jmcleod/sharedrop/token"
)

type contextKey int

const claimsKey contextKey = iota

// RequireAuth validates the Bearer token and stores its claims on the
// request context. It is the sole gate in front of the role checks.
func (a *API) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.codec.Validate(bearerToken(r))
		if err != nil {
			a.events.logFailure(EventTokenRejected, r, "missing or invalid token")
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}

func claimsFromContext(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(claimsKey).(*token.Claims)
	return claims
}
