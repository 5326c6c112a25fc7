package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const UserIDKey contextKey = "userID"

// SessionCookieName holds the access token for page navigation; API
// clients send it as a bearer header instead.
const SessionCookieName = "hapien_session"

// TokenVerifier validates an access token and resolves the caller.
// Implemented by services.SessionService.
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

// AuthMiddleware requires a valid session on every request it wraps.
// The token comes from the Authorization header, falling back to the
// session cookie.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractToken(r)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "Authorization required")
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware attaches the caller's identity when a valid
// token is present and passes through otherwise.
func OptionalAuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := extractToken(r); ok {
				if userID, err := verifier.Verify(token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), UserIDKey, userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token != authHeader && token != "" {
			return token, true
		}
		return "", false
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// GetUserID extracts the authenticated user id from context.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error": %q}`, message)
}
