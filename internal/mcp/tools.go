package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/tasklane/internal/domain/organization"
	"github.com/rpggio/tasklane/internal/domain/task"
	"github.com/shopspring/decimal"
)

type tools struct {
	svc Services
}

func registerTools(server *sdkmcp.Server, svc Services) {
	t := &tools{svc: svc}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_hierarchy",
		Description: "Get the spaces, projects and lists of an organization in position order",
	}, t.getHierarchy)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_tasks",
		Description: "List the tasks of a list in position order",
	}, t.listTasks)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_task",
		Description: "Create a task at the end of a list",
	}, t.createTask)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "move_task",
		Description: "Move a task to a list at a desired position. Siblings keep their positions unless the target gap is exhausted.",
	}, t.moveTask)
}

// authorize resolves the caller and checks p in orgID.
func (t *tools) authorize(ctx context.Context, orgID string, p organization.Permission) (string, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return "", fmt.Errorf("unauthorized: no user")
	}
	if orgID == "" {
		return "", &APIError{Code: "VALIDATION_ERROR", Message: "org_id is required"}
	}
	if _, err := t.svc.Organizations.Authorize(ctx, orgID, userID, p); err != nil {
		return "", MapError(err)
	}
	return userID, nil
}

func (t *tools) getHierarchy(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetHierarchyParams) (*sdkmcp.CallToolResult, HierarchyResult, error) {
	if _, err := t.authorize(ctx, in.OrgID, organization.PermTasksRead); err != nil {
		return nil, HierarchyResult{}, err
	}
	tree, err := t.svc.Hierarchy.Tree(ctx, in.OrgID)
	if err != nil {
		return nil, HierarchyResult{}, MapError(err)
	}
	return nil, toHierarchyResult(tree), nil
}

func (t *tools) listTasks(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListTasksParams) (*sdkmcp.CallToolResult, ListTasksResult, error) {
	if _, err := t.authorize(ctx, in.OrgID, organization.PermTasksRead); err != nil {
		return nil, ListTasksResult{}, err
	}
	tasks, err := t.svc.Tasks.ListByList(ctx, in.OrgID, in.ListID, in.IncludeArchived)
	if err != nil {
		return nil, ListTasksResult{}, MapError(err)
	}
	out := ListTasksResult{Tasks: make([]TaskView, 0, len(tasks))}
	for i := range tasks {
		out.Tasks = append(out.Tasks, toTaskView(&tasks[i]))
	}
	return nil, out, nil
}

func (t *tools) createTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in CreateTaskParams) (*sdkmcp.CallToolResult, TaskView, error) {
	userID, err := t.authorize(ctx, in.OrgID, organization.PermTasksCreate)
	if err != nil {
		return nil, TaskView{}, err
	}
	req := task.CreateRequest{
		ListID:   in.ListID,
		Title:    in.Title,
		Status:   task.Status(in.Status),
		Priority: task.Priority(in.Priority),
	}
	if in.Description != "" {
		req.Description = &in.Description
	}
	created, err := t.svc.Tasks.Create(ctx, in.OrgID, userID, req)
	if err != nil {
		return nil, TaskView{}, MapError(err)
	}
	return nil, toTaskView(created), nil
}

func (t *tools) moveTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in MoveTaskParams) (*sdkmcp.CallToolResult, MoveTaskResult, error) {
	userID, err := t.authorize(ctx, in.OrgID, organization.PermTasksEdit)
	if err != nil {
		return nil, MoveTaskResult{}, err
	}
	res, err := t.svc.Tasks.Move(ctx, in.OrgID, userID, task.MoveRequest{
		TaskID:          in.TaskID,
		TargetListID:    in.TargetListID,
		Position:        decimal.NewFromFloat(in.Position),
		ExpectedVersion: in.ExpectedVersion,
	})
	if err != nil {
		return nil, MoveTaskResult{}, MapError(err)
	}
	return nil, MoveTaskResult{
		Task:       toTaskView(res.Task),
		Collided:   res.Collided,
		Renumbered: res.Renumbered,
		Unchanged:  res.Unchanged,
	}, nil
}
