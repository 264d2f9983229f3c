package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/tasklane/internal/domain/activity"
	"github.com/rpggio/tasklane/internal/domain/hierarchy"
	"github.com/rpggio/tasklane/internal/domain/organization"
	"github.com/rpggio/tasklane/internal/domain/task"
	"github.com/rpggio/tasklane/internal/domain/user"
	"github.com/rs/cors"
)

// UserService covers account endpoints.
type UserService interface {
	Authenticator
	Register(ctx context.Context, req user.RegisterRequest) (*user.AuthResult, error)
	Login(ctx context.Context, req user.LoginRequest) (*user.AuthResult, error)
}

// OrganizationService covers organization endpoints.
type OrganizationService interface {
	MembershipResolver
	Create(ctx context.Context, userID string, req organization.CreateRequest) (*organization.Organization, error)
	ListForUser(ctx context.Context, userID string) ([]organization.Membership, error)
}

// HierarchyService covers workspace tree endpoints.
type HierarchyService interface {
	Tree(ctx context.Context, orgID string) (*hierarchy.Tree, error)
	CreateSpace(ctx context.Context, orgID string, req hierarchy.CreateSpaceRequest) (*hierarchy.Space, error)
	CreateProject(ctx context.Context, orgID, spaceID string, req hierarchy.CreateProjectRequest) (*hierarchy.Project, error)
	CreateList(ctx context.Context, orgID, projectID string, req hierarchy.CreateListRequest) (*hierarchy.List, error)
}

// TaskService covers task endpoints.
type TaskService interface {
	Create(ctx context.Context, orgID, userID string, req task.CreateRequest) (*task.Task, error)
	Get(ctx context.Context, orgID, id string) (*task.Task, error)
	ListByList(ctx context.Context, orgID, listID string, includeArchived bool) ([]task.Task, error)
	Update(ctx context.Context, orgID, userID string, req task.UpdateRequest) (*task.Task, error)
	Move(ctx context.Context, orgID, userID string, req task.MoveRequest) (*task.MoveResult, error)
	MoveMany(ctx context.Context, orgID, userID string, req task.BulkMoveRequest) ([]task.MoveResult, error)
	Delete(ctx context.Context, orgID, userID, id string) error
}

// ActivityService covers the task activity endpoint.
type ActivityService interface {
	ListForTask(ctx context.Context, orgID, taskID string, opts activity.ListOptions) ([]activity.Entry, error)
}

// Services groups the domain services behind the REST API.
type Services struct {
	Users         UserService
	Organizations OrganizationService
	Hierarchy     HierarchyService
	Tasks         TaskService
	Activity      ActivityService
}

// Config configures the REST router.
type Config struct {
	Services Services
	// Realtime, when set, is mounted at /api/ws.
	Realtime http.Handler
	// MCP, when set, is mounted at /mcp.
	MCP            http.Handler
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	svc    Services
	logger *slog.Logger
}

// NewServer creates the HTTP router with middleware.
func NewServer(cfg Config) http.Handler {
	srv := &Server{svc: cfg.Services, logger: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(requestLogger(cfg.Logger))
	}

	r.Get("/health", srv.handleHealth)
	if cfg.MCP != nil {
		r.Handle("/mcp", cfg.MCP)
		r.Handle("/mcp/*", cfg.MCP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", srv.handleRegister)
		r.Post("/auth/login", srv.handleLogin)

		if cfg.Realtime != nil {
			// The websocket handler authenticates from its query string.
			r.Handle("/ws", cfg.Realtime)
		}

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.Services.Users))

			r.Get("/auth/me", srv.handleMe)
			r.Post("/organizations", srv.handleCreateOrganization)
			r.Get("/organizations", srv.handleListOrganizations)

			r.Group(func(r chi.Router) {
				r.Use(OrgMiddleware(cfg.Services.Organizations, cfg.Logger))

				r.Get("/hierarchy", srv.handleHierarchy)
				r.With(RequirePermission(organization.PermProjectsCreate)).Post("/spaces", srv.handleCreateSpace)
				r.With(RequirePermission(organization.PermProjectsCreate)).Post("/spaces/{spaceID}/projects", srv.handleCreateProject)
				r.With(RequirePermission(organization.PermProjectsCreate)).Post("/projects/{projectID}/lists", srv.handleCreateList)

				r.With(RequirePermission(organization.PermTasksRead)).Get("/lists/{listID}/tasks", srv.handleListTasks)
				r.With(RequirePermission(organization.PermTasksCreate)).Post("/tasks", srv.handleCreateTask)
				r.With(RequirePermission(organization.PermTasksEdit)).Post("/tasks/move-multiple", srv.handleMoveTasks)
				r.Route("/tasks/{taskID}", func(r chi.Router) {
					r.With(RequirePermission(organization.PermTasksRead)).Get("/", srv.handleGetTask)
					r.With(RequirePermission(organization.PermTasksEdit)).Put("/", srv.handleUpdateTask)
					r.With(RequirePermission(organization.PermTasksEdit)).Patch("/", srv.handlePatchTask)
					r.With(RequirePermission(organization.PermTasksEdit)).Patch("/move", srv.handleMoveTask)
					r.With(RequirePermission(organization.PermTasksDelete)).Delete("/", srv.handleDeleteTask)
					r.With(RequirePermission(organization.PermTasksRead)).Get("/activity", srv.handleTaskActivity)
				})
			})
		})
	})

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", OrgHeader, "Mcp-Session-Id"},
		ExposedHeaders:   []string{"Mcp-Session-Id"},
		AllowCredentials: false,
	}).Handler(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
