package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lockerhub/server/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// AuthMiddleware validates the bearer token and attaches its claims to the context.
// It does not decide privilege; handlers pass the role on to the lifecycle service.
func AuthMiddleware(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return authenticate(jwtService, true)
}

// OptionalAuth attaches claims when a bearer token is present and lets anonymous
// requests through. A present but invalid token is still rejected.
func OptionalAuth(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return authenticate(jwtService, false)
}

func authenticate(jwtService *auth.JWTService, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				respondWithError(w, http.StatusUnauthorized, "unauthenticated", "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respondWithError(w, http.StatusUnauthorized, "unauthenticated", "invalid authorization header format")
				return
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				respondWithError(w, http.StatusUnauthorized, "unauthenticated", "missing token")
				return
			}

			claims, err := jwtService.VerifyToken(tokenString)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims returns the token claims attached by AuthMiddleware
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

// IsPrivileged reports whether the request carries an admin token
func IsPrivileged(ctx context.Context) bool {
	c, ok := GetClaims(ctx)
	return ok && c.IsAdmin()
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]string{"error": message, "code": code}
	_ = json.NewEncoder(w).Encode(response)
}
