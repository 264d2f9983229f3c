package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rpggio/tasklane/internal/domain/organization"
	"github.com/rpggio/tasklane/internal/domain/user"
	"github.com/stretchr/testify/require"
)

type testAuthenticator struct {
	tokens map[string]string
}

func (a *testAuthenticator) Authenticate(_ context.Context, token string) (*user.User, error) {
	id, ok := a.tokens[token]
	if !ok {
		return nil, user.ErrInvalidToken
	}
	return &user.User{ID: id}, nil
}

type testMembers struct {
	roles map[string]organization.Role
}

func (m *testMembers) Membership(_ context.Context, orgID, userID string) (*organization.Member, error) {
	role, ok := m.roles[orgID+"/"+userID]
	if !ok {
		return nil, organization.ErrNotMember
	}
	return &organization.Member{OrgID: orgID, UserID: userID, Role: role}, nil
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestAuthMiddleware(t *testing.T) {
	authn := &testAuthenticator{tokens: map[string]string{"token": "u1"}}

	handler := AuthMiddleware(authn)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "u1", u.ID)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_Invalid(t *testing.T) {
	authn := &testAuthenticator{}
	handler := AuthMiddleware(authn)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"", "Bearer nope", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code, header)
		env := decodeEnvelope(t, rec)
		require.False(t, env.Success)
		require.Equal(t, CodeUnauthorized, env.Error.Code)
	}
}

func TestOrgMiddleware(t *testing.T) {
	members := &testMembers{roles: map[string]organization.Role{"org1/u1": organization.RoleGuest}}
	chain := func(next http.Handler) http.Handler {
		return OrgMiddleware(members, nil)(next)
	}
	withUser := func(req *http.Request) *http.Request {
		return req.WithContext(WithUser(req.Context(), &user.User{ID: "u1"}))
	}

	t.Run("member", func(t *testing.T) {
		handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m, ok := MemberFromContext(r.Context())
			require.True(t, ok)
			require.Equal(t, "org1", m.OrgID)
			w.WriteHeader(http.StatusNoContent)
		}))
		req := withUser(httptest.NewRequest(http.MethodGet, "/", nil))
		req.Header.Set(OrgHeader, "org1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		chain(http.NotFoundHandler()).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/", nil)))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, CodeBadRequest, decodeEnvelope(t, rec).Error.Code)
	})

	t.Run("not a member", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodGet, "/", nil))
		req.Header.Set(OrgHeader, "org2")
		rec := httptest.NewRecorder()
		chain(http.NotFoundHandler()).ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, CodeForbidden, decodeEnvelope(t, rec).Error.Code)
	})

	t.Run("permission", func(t *testing.T) {
		handler := chain(RequirePermission(organization.PermTasksEdit)(http.NotFoundHandler()))
		req := withUser(httptest.NewRequest(http.MethodGet, "/", nil))
		req.Header.Set(OrgHeader, "org1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}
