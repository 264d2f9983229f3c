// Package app assembles repositories, services and HTTP surfaces into one
// handler.
package app

import (
	"log/slog"
	"net/http"

	"github.com/rpggio/tasklane/internal/config"
	"github.com/rpggio/tasklane/internal/domain/activity"
	"github.com/rpggio/tasklane/internal/domain/hierarchy"
	"github.com/rpggio/tasklane/internal/domain/organization"
	"github.com/rpggio/tasklane/internal/domain/position"
	"github.com/rpggio/tasklane/internal/domain/task"
	"github.com/rpggio/tasklane/internal/domain/user"
	"github.com/rpggio/tasklane/internal/mcp"
	"github.com/rpggio/tasklane/internal/realtime"
	"github.com/rpggio/tasklane/internal/sqlite"
	"github.com/rpggio/tasklane/internal/transport"
)

// App is a fully wired server.
type App struct {
	Handler http.Handler
	Hub     *realtime.Hub

	Users         *user.Service
	Organizations *organization.Service
	Hierarchy     *hierarchy.Service
	Tasks         *task.Service
	Activity      *activity.Service
}

// New wires every service on top of db. logger may be nil.
func New(cfg config.Config, db *sqlite.DB, logger *slog.Logger) *App {
	params := position.Params{
		Gap:        cfg.Positioning.PositionGap(),
		MinSpacing: cfg.Positioning.PositionMinSpacing(),
	}

	hub := realtime.NewHub(logger)
	userSvc := user.NewService(sqlite.NewUserRepository(db), user.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), logger)
	hierarchySvc := hierarchy.NewService(sqlite.NewHierarchyRepository(db), params, logger)
	orgSvc := organization.NewService(sqlite.NewOrganizationRepository(db), hierarchySvc, logger)
	taskSvc := task.NewService(sqlite.NewTaskRepository(db), hub, params, cfg.Positioning.MoveRetries, logger)
	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), logger)

	var mcpHandler http.Handler
	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer(mcp.Config{
			Services: mcp.Services{
				Users:         userSvc,
				Organizations: orgSvc,
				Hierarchy:     hierarchySvc,
				Tasks:         taskSvc,
			},
			AuthEnabled: true,
			Logger:      logger,
		})
		mcpHandler = mcp.NewHTTPHandler(mcpServer)
	}

	ws := realtime.NewHandler(realtime.HandlerConfig{
		Hub:            hub,
		Users:          userSvc,
		Members:        orgSvc,
		Lists:          hierarchySvc,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
	})

	handler := transport.NewServer(transport.Config{
		Services: transport.Services{
			Users:         userSvc,
			Organizations: orgSvc,
			Hierarchy:     hierarchySvc,
			Tasks:         taskSvc,
			Activity:      activitySvc,
		},
		Realtime:       ws,
		MCP:            mcpHandler,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
	})

	return &App{
		Handler:       handler,
		Hub:           hub,
		Users:         userSvc,
		Organizations: orgSvc,
		Hierarchy:     hierarchySvc,
		Tasks:         taskSvc,
		Activity:      activitySvc,
	}
}

// Close disconnects realtime clients.
func (a *App) Close() {
	a.Hub.Close()
}
