package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKeyType string

const (
	userIDKey contextKeyType = "user_id"
	emailKey  contextKeyType = "email"
)

// Identity is the verified subject extracted by the auth middleware.
type Identity struct {
	UserID string
	Email  string
}

// TokenValidator verifies an access token string and returns the identity it
// proves. It must be a pure function of the token: no store lookups, no
// blocking I/O.
type TokenValidator func(token string) (*Identity, error)

// Auth gates requests on a bearer access token. The header must be exactly
// "Authorization: Bearer <token>"; any other scheme, a malformed header, or
// a token the validator rejects yields a generic 401 without revealing which
// check failed. On success the identity is attached to the request context.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w)
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				writeAuthError(w)
				return
			}

			identity, err := validate(token)
			if err != nil {
				writeAuthError(w)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, identity.UserID)
			ctx = context.WithValue(ctx, emailKey, identity.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext extracts the authenticated user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// EmailFromContext extracts the authenticated email from the request context.
func EmailFromContext(ctx context.Context) string {
	if email, ok := ctx.Value(emailKey).(string); ok {
		return email
	}
	return ""
}

func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "UNAUTHENTICATED",
			"message": "authentication required",
		},
	})
}
