// Package smoke runs the end-to-end check of a live server: register, create
// an organization, read the hierarchy, create and list a task, add a second
// list and move the task into it.
package smoke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/google/uuid"
	"github.com/rpggio/tasklane/internal/client"
	"github.com/rpggio/tasklane/internal/domain/task"
	"github.com/shopspring/decimal"
)

// MovePosition is the position the task is moved to.
var MovePosition = decimal.NewFromInt(500)

// Options configures a run. Empty fields get generated values.
type Options struct {
	Email       string
	Password    string
	DisplayName string
	OrgName     string
}

// Report collects the ids created by a run.
type Report struct {
	UserID       string
	OrgID        string
	SourceListID string
	TargetListID string
	TaskID       string
	Moved        *client.MoveResult
}

var errEmptyHierarchy = errors.New("hierarchy has no list")

// Run executes every step against c, writing progress to out. It stops at
// the first failing step.
func Run(ctx context.Context, c *client.Client, out io.Writer, opts Options) (*Report, error) {
	suffix := uuid.NewString()[:8]
	if opts.Email == "" {
		opts.Email = "smoke+" + suffix + "@example.com"
	}
	if opts.Password == "" {
		opts.Password = "smoke-" + suffix
	}
	if opts.DisplayName == "" {
		opts.DisplayName = "Smoke Tester"
	}
	if opts.OrgName == "" {
		opts.OrgName = "Smoke Org " + suffix
	}

	report := &Report{}

	auth, err := c.Register(ctx, client.RegisterInput{
		Email:       opts.Email,
		Password:    opts.Password,
		DisplayName: opts.DisplayName,
	})
	if err != nil {
		return report, step(out, 1, "register", err)
	}
	report.UserID = auth.User.ID
	fmt.Fprintf(out, "1. registered %s (user %s)\n", auth.User.Email, auth.User.ID)

	org, err := c.CreateOrganization(ctx, opts.OrgName, nil)
	if err != nil {
		return report, step(out, 2, "create organization", err)
	}
	report.OrgID = org.ID
	c.SetOrg(org.ID)
	fmt.Fprintf(out, "2. created organization %q (%s)\n", org.Name, org.ID)

	tree, err := c.Hierarchy(ctx)
	if err != nil {
		return report, step(out, 3, "fetch hierarchy", err)
	}
	if len(tree.Spaces) == 0 || len(tree.Spaces[0].Projects) == 0 || len(tree.Spaces[0].Projects[0].Lists) == 0 {
		return report, step(out, 3, "fetch hierarchy", errEmptyHierarchy)
	}
	project := tree.Spaces[0].Projects[0]
	report.SourceListID = project.Lists[0].ID
	fmt.Fprintf(out, "3. hierarchy: space %q, project %q, list %q\n",
		tree.Spaces[0].Space.Name, project.Project.Name, project.Lists[0].Name)

	created, err := c.CreateTask(ctx, client.CreateTaskInput{
		Title:    "Smoke test task",
		ListID:   report.SourceListID,
		Priority: task.PriorityMedium,
	})
	if err != nil {
		return report, step(out, 4, "create task", err)
	}
	report.TaskID = created.ID
	fmt.Fprintf(out, "4. created task %s at position %s\n", created.ID, created.Position)

	tasks, err := c.ListTasks(ctx, report.SourceListID)
	if err != nil {
		return report, step(out, 5, "list tasks", err)
	}
	if !slices.ContainsFunc(tasks, func(t task.Task) bool { return t.ID == created.ID }) {
		return report, step(out, 5, "list tasks", fmt.Errorf("task %s missing from list %s", created.ID, report.SourceListID))
	}
	fmt.Fprintf(out, "5. list holds %d task(s)\n", len(tasks))

	target, err := c.CreateList(ctx, project.Project.ID, "In Progress List")
	if err != nil {
		return report, step(out, 6, "create list", err)
	}
	report.TargetListID = target.ID
	fmt.Fprintf(out, "6. created list %q (%s)\n", target.Name, target.ID)

	moved, err := c.MoveTask(ctx, created.ID, client.MoveInput{
		TargetListID: target.ID,
		Position:     MovePosition,
	})
	if err != nil {
		return report, step(out, 7, "move task", err)
	}
	if moved.ListID != target.ID {
		return report, step(out, 7, "move task", fmt.Errorf("task landed in %s", moved.ListID))
	}
	report.Moved = moved
	fmt.Fprintf(out, "7. moved task to %s at position %s (collided=%t renumbered=%d)\n",
		moved.ListID, moved.Position, moved.Collided, moved.Renumbered)

	return report, nil
}

func step(out io.Writer, n int, name string, err error) error {
	fmt.Fprintf(out, "%d. %s failed: %v\n", n, name, err)
	return fmt.Errorf("step %d (%s): %w", n, name, err)
}
