package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rpggio/tasklane/internal/domain/hierarchy"
	"github.com/rpggio/tasklane/internal/domain/organization"
	"github.com/rpggio/tasklane/internal/domain/user"
)

// Authenticator resolves a user from a token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*user.User, error)
}

// MembershipResolver resolves a user's membership in an organization.
type MembershipResolver interface {
	Membership(ctx context.Context, orgID, userID string) (*organization.Member, error)
}

// ListResolver checks that a list belongs to an organization.
type ListResolver interface {
	GetList(ctx context.Context, orgID, id string) (*hierarchy.List, error)
}

// HandlerConfig configures the websocket endpoint.
type HandlerConfig struct {
	Hub            *Hub
	Users          Authenticator
	Members        MembershipResolver
	Lists          ListResolver
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Handler upgrades authenticated members to a websocket subscribed to their
// organization channel. The token comes from the Authorization header or
// the token query parameter; the organization from org_id.
type Handler struct {
	cfg      HandlerConfig
	upgrader websocket.Upgrader
}

// NewHandler creates the websocket endpoint handler.
func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{cfg: cfg}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	u, err := h.cfg.Users.Authenticate(r.Context(), token)
	if err != nil || u == nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	orgID := r.URL.Query().Get("org_id")
	if orgID == "" {
		http.Error(w, "missing org_id", http.StatusBadRequest)
		return
	}
	if _, err := h.cfg.Members.Membership(r.Context(), orgID, u.ID); err != nil {
		if errors.Is(err, organization.ErrNotMember) {
			http.Error(w, "not a member of this organization", http.StatusForbidden)
			return
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}

	c := newClient(h.cfg.Hub, conn, orgID, u.ID, h.cfg.Lists)
	if !h.cfg.Hub.register(c, OrgChannel(orgID)) {
		_ = conn.Close()
		return
	}
	if h.cfg.Logger != nil {
		h.cfg.Logger.Debug("realtime client connected", "org_id", orgID, "user_id", u.ID)
	}

	go c.writeLoop()
	c.readLoop()
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
