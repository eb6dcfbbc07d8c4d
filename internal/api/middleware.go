/**
 * @description
 * This file contains custom middleware for the HTTP router. The ledger service
 * does not issue credentials itself: the session layer authenticates holders
 * and mints short-lived HS256 tokens whose `sub` claim carries the account
 * number. The middleware here only validates those tokens and gates the
 * internal endpoints behind a shared API key.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: session token validation.
 */

package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AccountContextKey is a custom type for the context key to avoid collisions.
type AccountContextKey string

const sessionAccountKey AccountContextKey = "sessionAccount"

// SessionAuthMiddleware creates a middleware that validates session tokens
// minted by the session layer. The `sub` claim must hold the account number.
func SessionAuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil {
				http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
				return
			}
			if !token.Valid {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}

			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				http.Error(w, "Account not found in token", http.StatusUnauthorized)
				return
			}
			accountNumber, err := strconv.ParseInt(sub, 10, 64)
			if err != nil {
				http.Error(w, "Invalid account in token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionAccountKey, accountNumber)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InternalKeyMiddleware gates endpoints reserved for the session layer and
// back-office tooling behind a shared API key.
func InternalKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				http.Error(w, "Internal endpoints are disabled", http.StatusForbidden)
				return
			}
			provided := r.Header.Get("X-Internal-Api-Key")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				http.Error(w, "Invalid internal API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSessionAccount retrieves the authenticated account number from the
// request context. Handlers should use this to get the caller's account.
func GetSessionAccount(ctx context.Context) (int64, bool) {
	number, ok := ctx.Value(sessionAccountKey).(int64)
	return number, ok
}
