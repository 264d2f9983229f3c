package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rpggio/tasklane/internal/domain/organization"
)

// OrgHeader names the organization a request acts on.
const OrgHeader = "X-Org-Id"

type memberKey struct{}

// MembershipResolver resolves a user's membership in an organization.
type MembershipResolver interface {
	Membership(ctx context.Context, orgID, userID string) (*organization.Member, error)
}

// MemberFromContext returns the resolved organization membership, if present.
func MemberFromContext(ctx context.Context) (*organization.Member, bool) {
	m, ok := ctx.Value(memberKey{}).(*organization.Member)
	return m, ok
}

// OrgMiddleware validates X-Org-Id and requires the authenticated user to be
// a member. It must run after AuthMiddleware.
func OrgMiddleware(members MembershipResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID := strings.TrimSpace(r.Header.Get(OrgHeader))
			if orgID == "" {
				WriteError(w, http.StatusBadRequest, CodeBadRequest, "missing X-Org-Id header")
				return
			}
			u, ok := UserFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
				return
			}

			m, err := members.Membership(r.Context(), orgID, u.ID)
			if err != nil {
				if errors.Is(err, organization.ErrNotMember) {
					WriteError(w, http.StatusForbidden, CodeForbidden, "you do not have access to this workspace")
					return
				}
				writeServiceError(w, logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), memberKey{}, m)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission rejects members whose role lacks p.
func RequirePermission(p organization.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m, ok := MemberFromContext(r.Context())
			if !ok || !m.Role.Can(p) {
				WriteError(w, http.StatusForbidden, CodeForbidden, "missing permission "+string(p))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
