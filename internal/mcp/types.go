package mcp

import (
	"time"

	"github.com/rpggio/tasklane/internal/domain/hierarchy"
	"github.com/rpggio/tasklane/internal/domain/task"
)

type GetHierarchyParams struct {
	OrgID string `json:"org_id" jsonschema:"organization id"`
}

type ListTasksParams struct {
	OrgID           string `json:"org_id" jsonschema:"organization id"`
	ListID          string `json:"list_id" jsonschema:"list whose tasks to return in position order"`
	IncludeArchived bool   `json:"include_archived,omitempty" jsonschema:"include archived tasks"`
}

type CreateTaskParams struct {
	OrgID       string `json:"org_id" jsonschema:"organization id"`
	ListID      string `json:"list_id" jsonschema:"list to append the task to"`
	Title       string `json:"title" jsonschema:"task title"`
	Description string `json:"description,omitempty" jsonschema:"task description"`
	Status      string `json:"status,omitempty" jsonschema:"todo, in_progress, in_review, done or cancelled"`
	Priority    string `json:"priority,omitempty" jsonschema:"low, medium, high or critical"`
}

type MoveTaskParams struct {
	OrgID           string  `json:"org_id" jsonschema:"organization id"`
	TaskID          string  `json:"task_id" jsonschema:"task to move"`
	TargetListID    string  `json:"target_list_id" jsonschema:"list to move the task into"`
	Position        float64 `json:"position" jsonschema:"desired position; a taken position places the task right after its holder"`
	ExpectedVersion *int64  `json:"expected_version,omitempty" jsonschema:"fail if the task version differs"`
}

// TaskView is a task as returned by tools. Positions are plain numbers.
type TaskView struct {
	ID          string  `json:"id"`
	ListID      string  `json:"list_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	Position    float64 `json:"position"`
	Version     int64   `json:"version"`
	UpdatedAt   string  `json:"updated_at"`
}

type ListView struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Position float64 `json:"position"`
}

type ProjectView struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Position float64    `json:"position"`
	Lists    []ListView `json:"lists"`
}

type SpaceView struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Position float64       `json:"position"`
	Projects []ProjectView `json:"projects"`
}

type HierarchyResult struct {
	Spaces []SpaceView `json:"spaces"`
}

type ListTasksResult struct {
	Tasks []TaskView `json:"tasks"`
}

type MoveTaskResult struct {
	Task       TaskView `json:"task"`
	Collided   bool     `json:"collided"`
	Renumbered int      `json:"renumbered"`
	Unchanged  bool     `json:"unchanged"`
}

func toTaskView(t *task.Task) TaskView {
	v := TaskView{
		ID:        t.ID,
		ListID:    t.ListID,
		Title:     t.Title,
		Status:    string(t.Status),
		Priority:  string(t.Priority),
		Position:  t.Position.InexactFloat64(),
		Version:   t.Version,
		UpdatedAt: t.UpdatedAt.Format(time.RFC3339),
	}
	if t.Description != nil {
		v.Description = *t.Description
	}
	return v
}

func toHierarchyResult(tree *hierarchy.Tree) HierarchyResult {
	out := HierarchyResult{Spaces: make([]SpaceView, 0, len(tree.Spaces))}
	for _, sn := range tree.Spaces {
		sv := SpaceView{
			ID:       sn.Space.ID,
			Name:     sn.Space.Name,
			Position: sn.Space.Position.InexactFloat64(),
			Projects: make([]ProjectView, 0, len(sn.Projects)),
		}
		for _, pn := range sn.Projects {
			pv := ProjectView{
				ID:       pn.Project.ID,
				Name:     pn.Project.Name,
				Position: pn.Project.Position.InexactFloat64(),
				Lists:    make([]ListView, 0, len(pn.Lists)),
			}
			for _, l := range pn.Lists {
				pv.Lists = append(pv.Lists, ListView{ID: l.ID, Name: l.Name, Position: l.Position.InexactFloat64()})
			}
			sv.Projects = append(sv.Projects, pv)
		}
		out.Spaces = append(out.Spaces, sv)
	}
	return out
}
