// Package testserver runs the full HTTP stack over an in-memory database.
package testserver

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rpggio/tasklane/internal/app"
	"github.com/rpggio/tasklane/internal/client"
	"github.com/rpggio/tasklane/internal/config"
	"github.com/rpggio/tasklane/internal/domain/user"
	"github.com/rpggio/tasklane/internal/sqlite"
	"github.com/stretchr/testify/require"
)

type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	App    *app.App
}

// New starts a server backed by a database private to t.
func New(t *testing.T) *TestServer {
	t.Helper()
	return NewWithConfig(t, config.Default())
}

// NewWithConfig starts a server with cfg. The database path is ignored.
func NewWithConfig(t *testing.T, cfg config.Config) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	a := app.New(cfg, db, nil)
	server := httptest.NewServer(a.Handler)

	t.Cleanup(func() {
		a.Close()
		server.Close()
		_ = db.Close()
	})

	return &TestServer{Server: server, DB: db, App: a}
}

// Client returns a REST client pointed at the server.
func (ts *TestServer) Client() *client.Client {
	return client.New(ts.Server.URL)
}

// Account is a registered user with an organization of its own.
type Account struct {
	UserID string
	Token  string
	OrgID  string
	Client *client.Client
}

// NewAccount registers a user and creates an organization owned by it.
func (ts *TestServer) NewAccount(t *testing.T, name string) Account {
	t.Helper()
	ctx := context.Background()

	c := ts.Client()
	auth, err := c.Register(ctx, client.RegisterInput{
		Email:       name + "@example.com",
		Password:    "password-" + name,
		DisplayName: name,
	})
	require.NoError(t, err)

	org, err := c.CreateOrganization(ctx, name+" org", nil)
	require.NoError(t, err)
	c.SetOrg(org.ID)

	return Account{UserID: auth.User.ID, Token: auth.Token, OrgID: org.ID, Client: c}
}

// Authenticate resolves a token the way the server does.
func (ts *TestServer) Authenticate(t *testing.T, token string) *user.User {
	t.Helper()
	u, err := ts.App.Users.Authenticate(context.Background(), token)
	require.NoError(t, err)
	return u
}
