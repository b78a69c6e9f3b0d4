package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
// A package-private key type means only this package can read or write the
// claims value in a request context — no collisions with other packages.
type contextKey string

const claimsKey contextKey = "claims"

// CookieName is the cookie consulted when no Authorization header is present.
const CookieName = "jwt"

// RequireAuth is the auth gate for protected routes.
//
// Routes are protected by default; a route is public simply by not being
// wrapped in this middleware — public/protected status is explicit per-route
// configuration in the server's route setup, not metadata on the handler.
//
// Token extraction order:
//  1. "Authorization: Bearer <token>" header
//  2. "jwt" cookie, if the header is absent
//
// A missing token, a malformed token, a forged signature, and an expired
// token all produce the same 401 — the gate is binary allow/deny and leaks
// nothing about why a token was rejected. On success the decoded claims are
// attached to the request context for handlers to read.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := extractToken(r)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			claims, err := tokens.Verify(tokenStr)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext retrieves the authenticated caller's claims.
// Returns (nil, false) if the request did not pass through RequireAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

// extractToken pulls the raw token string out of the request.
// The Bearer header wins; the jwt cookie is the fallback for browser clients
// that received the token via Set-Cookie at login.
func extractToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			return parts[1], nil
		}
		return "", errors.New("auth: malformed Authorization header")
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", errors.New("auth: no token in request")
	}
	return cookie.Value, nil
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
}
