package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/whatsup-net/whatsup/internal/entities"
)

type contextKey string

const userKey contextKey = "user"

// Authenticator resolves a bearer token into a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*entities.User, error)
}

// Auth requires a valid bearer token and puts the resolved user into the request context.
func Auth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				writeUnauthorized(w, "authentication credentials were not provided")
				return
			}

			user, err := a.Authenticate(r.Context(), token)
			if err != nil {
				writeUnauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
		})
	}
}

// GetUser returns the authenticated user put into ctx by Auth, nil if absent.
func GetUser(ctx context.Context) *entities.User {
	u, _ := ctx.Value(userKey).(*entities.User)
	return u
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		for _, prefix := range []string{"Bearer ", "Token "} {
			if strings.HasPrefix(h, prefix) {
				return strings.TrimPrefix(h, prefix)
			}
		}
		return ""
	}

	if c, err := r.Cookie("token"); err == nil {
		return c.Value
	}

	return ""
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
