/**
 * @description
 * Authentication middleware for the collections service: bearer-token auth
 * for class-rep endpoints and a shared-key check for internal
 * (scheduler/operator) endpoints.
 */
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

// RepUIDContextKey is the key used to store the rep's uid in the request context.
const RepUIDContextKey = contextKey("repUID")

func parseRepToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	uid, ok := claims["sub"].(string)
	if !ok || uid == "" {
		return "", fmt.Errorf("subject claim missing")
	}
	return uid, nil
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader || tokenString == "" {
		return "", false
	}
	return tokenString, true
}

// RepAuthMiddleware validates the rep's bearer token and injects the uid into context.
func RepAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			uid, err := parseRepToken(tokenString, jwtSecret)
			if err != nil {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), RepUIDContextKey, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalRepAuthMiddleware injects the rep uid when a valid bearer token is
// present and lets the request through anonymously otherwise. Used where one
// endpoint serves both self-service and admin callers.
func OptionalRepAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString, ok := bearerToken(r); ok {
				if uid, err := parseRepToken(tokenString, jwtSecret); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), RepUIDContextKey, uid))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// InternalAuthMiddleware validates the internal API key for server-to-server calls.
func InternalAuthMiddleware(requiredKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiredKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-Internal-API-Key")
			if provided == "" || provided != requiredKey {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RepUIDFromContext retrieves the rep uid from the request context.
func RepUIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(RepUIDContextKey).(string)
	return uid, ok
}
