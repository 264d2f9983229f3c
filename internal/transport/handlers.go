package transport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/tasklane/internal/domain/activity"
	"github.com/rpggio/tasklane/internal/domain/hierarchy"
	"github.com/rpggio/tasklane/internal/domain/organization"
	"github.com/rpggio/tasklane/internal/domain/task"
	"github.com/rpggio/tasklane/internal/domain/user"
	"github.com/shopspring/decimal"
)

type registerBody struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createOrganizationBody struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type createSpaceBody struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type createListBody struct {
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

type createTaskBody struct {
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	ListID      string        `json:"listId"`
	Status      task.Status   `json:"status"`
	Priority    task.Priority `json:"priority"`
}

type moveTaskBody struct {
	TargetListID    string           `json:"targetListId"`
	Position        *decimal.Decimal `json:"position"`
	ExpectedVersion *int64           `json:"expectedVersion"`
}

type updateTaskBody struct {
	Title           *string        `json:"title"`
	Description     *string        `json:"description"`
	Status          *task.Status   `json:"status"`
	Priority        *task.Priority `json:"priority"`
	ExpectedVersion *int64         `json:"expectedVersion"`
}

type bulkMoveBody struct {
	Moves []struct {
		TaskID   string           `json:"taskId"`
		Position *decimal.Decimal `json:"newPosition"`
	} `json:"moves"`
	TargetListID string       `json:"targetListId"`
	TargetStatus *task.Status `json:"targetStatus"`
}

// moveResponse is a task plus the placement outcome of the move.
type moveResponse struct {
	*task.Task
	Collided   bool `json:"collided"`
	Renumbered int  `json:"renumbered"`
	Unchanged  bool `json:"unchanged"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	res, err := s.svc.Users.Register(r.Context(), user.RegisterRequest{
		Email:       body.Email,
		Password:    body.Password,
		DisplayName: body.DisplayName,
	})
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteData(w, http.StatusOK, res)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	res, err := s.svc.Users.Login(r.Context(), user.LoginRequest{Email: body.Email, Password: body.Password})
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteData(w, http.StatusOK, res)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	WriteData(w, http.StatusOK, u)
}

func (s *Server) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	var body createOrganizationBody
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	org, err := s.svc.Organizations.Create(r.Context(), u.ID, organization.CreateRequest{
		Name:        body.Name,
		Description: body.Description,
	})
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteData(w, http.StatusOK, org)
}

func (s *Server) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	list, err := s.svc.Organizations.ListForUser(r.Context(), u.ID)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteData(w, http.StatusOK, list)
}

func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	m, _ := MemberFromContext(r.Context())
	tree, err := s.svc.Hierarchy.Tree(r.Context(), m.OrgID)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteData(w, http.StatusOK, tree)
}

func (s *Server) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	m, _ := MemberFromContext(r.Context())
	var body createSpaceBody
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	sp, err := s.svc.Hierarchy.CreateSpace(r.Context(), m.OrgID, hierarchy.CreateSpaceRequest{
		Name:        body.Name,
		Description: body.Description,
	})
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteData(w, http.StatusOK, sp)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	m, _ := MemberFromContext(r.Context())
	var body createSpaceBody
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	p, err := s.svc.Hierarchy.CreateProject(r.Context(), m.OrgID, chi.URLParam(r, "spaceID"), hierarchy.CreateProjectRequest{
		Name:        body.Name,
		Description: body.Description,
	})
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteData(w, http.StatusOK, p)
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	m, _ := MemberFromContext(r.Context())
	var body createListBody
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	l, err := s.svc.Hierarchy.CreateList(r.Context(), m.OrgID, chi.URLParam(r, "projectID"), hierarchy.CreateListRequest{
		Name:  body.Name,
		Color: body.Color,
	})
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteData(w, http.StatusOK, l)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	m, _ := MemberFromContext(r.Context())
	includeArchived, _ := strconv.ParseBool(r.URL.Query().Get("include_archived"))
	tasks, err := s.svc.Tasks.ListByList(r.Context(), m.OrgID, chi.URLParam(r, "listID"), includeArchived)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteData(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	m, _ := MemberFromContext(r.Context())
	var body createTaskBody
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	t, err := s.svc.Tasks.Create(r.Context(), m.OrgID, m.UserID, task.CreateRequest{
		ListID:      body.ListID,
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
		Priority:    body.Priority,
	})
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteData(w, http.StatusOK, t)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	m, _ := MemberFromContext(r.Context())
	t, err := s.svc.Tasks.Get(r.Context(), m.OrgID, chi.URLParam(r, "taskID"))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteData(w, http.StatusOK, t)
}

func (s *Server) handleMoveTask(w http.ResponseWriter, r *http.Request) {
	m, _ := MemberFromContext(r.Context())
	var body moveTaskBody
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if body.TargetListID == "" || body.Position == nil {
		WriteError(w, http.StatusBadRequest, CodeValidation, "targetListId and position are required")
		return
	}

	res, err := s.svc.Tasks.Move(r.Context(), m.OrgID, m.UserID, task.MoveRequest{
		TaskID:          chi.URLParam(r, "taskID"),
		TargetListID:    body.TargetListID,
		Position:        *body.Position,
		ExpectedVersion: body.ExpectedVersion,
	})
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteData(w, http.StatusOK, moveResponse{
		Task:       res.Task,
		Collided:   res.Collided,
		Renumbered: res.Renumbered,
		Unchanged:  res.Unchanged,
	})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	s.updateTask(w, r, true)
}

// handlePatchTask applies a partial update without a version check.
func (s *Server) handlePatchTask(w http.ResponseWriter, r *http.Request) {
	s.updateTask(w, r, false)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request, versioned bool) {
	m, _ := MemberFromContext(r.Context())
	var body updateTaskBody
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if versioned && body.ExpectedVersion == nil {
		WriteError(w, http.StatusBadRequest, CodeValidation, "expectedVersion is required")
		return
	}
	if !versioned {
		body.ExpectedVersion = nil
	}

	t, err := s.svc.Tasks.Update(r.Context(), m.OrgID, m.UserID, task.UpdateRequest{
		TaskID:          chi.URLParam(r, "taskID"),
		Title:           body.Title,
		Description:     body.Description,
		Status:          body.Status,
		Priority:        body.Priority,
		ExpectedVersion: body.ExpectedVersion,
	})
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteData(w, http.StatusOK, t)
}

func (s *Server) handleMoveTasks(w http.ResponseWriter, r *http.Request) {
	m, _ := MemberFromContext(r.Context())
	var body bulkMoveBody
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	req := task.BulkMoveRequest{TargetListID: body.TargetListID, TargetStatus: body.TargetStatus}
	for _, mv := range body.Moves {
		if mv.TaskID == "" || mv.Position == nil {
			WriteError(w, http.StatusBadRequest, CodeValidation, "each move needs taskId and newPosition")
			return
		}
		req.Moves = append(req.Moves, task.BulkMove{TaskID: mv.TaskID, Position: *mv.Position})
	}

	results, err := s.svc.Tasks.MoveMany(r.Context(), m.OrgID, m.UserID, req)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	out := make([]moveResponse, len(results))
	for i, res := range results {
		out[i] = moveResponse{Task: res.Task, Collided: res.Collided, Renumbered: res.Renumbered, Unchanged: res.Unchanged}
	}
	WriteData(w, http.StatusOK, out)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	m, _ := MemberFromContext(r.Context())
	if err := s.svc.Tasks.Delete(r.Context(), m.OrgID, m.UserID, chi.URLParam(r, "taskID")); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteData(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleTaskActivity(w http.ResponseWriter, r *http.Request) {
	m, _ := MemberFromContext(r.Context())
	taskID := chi.URLParam(r, "taskID")
	if _, err := s.svc.Tasks.Get(r.Context(), m.OrgID, taskID); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	opts := activity.ListOptions{}
	q := r.URL.Query()
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage > 0 {
		opts.Limit = min(perPage, 100)
	}
	if page, _ := strconv.Atoi(q.Get("page")); page > 1 && opts.Limit > 0 {
		opts.Offset = (page - 1) * opts.Limit
	}

	entries, err := s.svc.Activity.ListForTask(r.Context(), m.OrgID, taskID, opts)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteData(w, http.StatusOK, entries)
}
