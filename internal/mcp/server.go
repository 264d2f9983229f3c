package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/tasklane/internal/domain/hierarchy"
	"github.com/rpggio/tasklane/internal/domain/organization"
	"github.com/rpggio/tasklane/internal/domain/task"
	"github.com/rpggio/tasklane/internal/domain/user"
)

// UserService authenticates bearer tokens.
type UserService interface {
	Authenticate(ctx context.Context, token string) (*user.User, error)
}

// OrganizationService checks membership and permissions.
type OrganizationService interface {
	Authorize(ctx context.Context, orgID, userID string, p organization.Permission) (*organization.Member, error)
}

// HierarchyService defines workspace operations needed by MCP.
type HierarchyService interface {
	Tree(ctx context.Context, orgID string) (*hierarchy.Tree, error)
}

// TaskService defines task operations needed by MCP.
type TaskService interface {
	Create(ctx context.Context, orgID, userID string, req task.CreateRequest) (*task.Task, error)
	ListByList(ctx context.Context, orgID, listID string, includeArchived bool) ([]task.Task, error)
	Move(ctx context.Context, orgID, userID string, req task.MoveRequest) (*task.MoveResult, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Users         UserService
	Organizations OrganizationService
	Hierarchy     HierarchyService
	Tasks         TaskService
}

// Config contains server configuration.
type Config struct {
	Services Services
	// AuthEnabled requires a bearer token on every tool call. When false all
	// calls act as DefaultUserID.
	AuthEnabled   bool
	DefaultUserID string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "tasklane",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Each call wraps the previous handlers, so auth runs before logging.
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	if cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Services.Users))
	} else {
		server.AddReceivingMiddleware(noAuthMiddleware(cfg.DefaultUserID))
	}
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services)

	return server
}
