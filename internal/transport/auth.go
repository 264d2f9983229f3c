package transport

import (
	"context"
	"net/http"
	"strings"

	"github.com/rpggio/tasklane/internal/domain/user"
)

type userKey struct{}

// Authenticator resolves a user from a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*user.User, error)
}

// UserFromContext returns the authenticated user, if present.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userKey{}).(*user.User)
	return u, ok
}

// WithUser returns ctx carrying u.
func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "missing bearer token")
				return
			}

			u, err := authn.Authenticate(r.Context(), token)
			if err != nil || u == nil {
				WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}
