package hierarchy

import (
	"time"

	"github.com/shopspring/decimal"
)

// Space is the top level of an organization's workspace.
type Space struct {
	ID          string          `json:"id"`
	OrgID       string          `json:"org_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Position    decimal.Decimal `json:"position"`
	ArchivedAt  *time.Time      `json:"archived_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Project groups lists inside a space.
type Project struct {
	ID          string          `json:"id"`
	OrgID       string          `json:"-"`
	SpaceID     string          `json:"space_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Position    decimal.Decimal `json:"position"`
	ArchivedAt  *time.Time      `json:"archived_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// List is an ordered collection of tasks.
type List struct {
	ID         string          `json:"id"`
	OrgID      string          `json:"-"`
	ProjectID  string          `json:"project_id"`
	Name       string          `json:"name"`
	Color      *string         `json:"color,omitempty"`
	Position   decimal.Decimal `json:"position"`
	ArchivedAt *time.Time      `json:"archived_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Tree is the unarchived workspace of an organization in position order.
type Tree struct {
	Spaces []SpaceNode `json:"spaces"`
}

// SpaceNode is a space with its projects.
type SpaceNode struct {
	Space    Space         `json:"space"`
	Projects []ProjectNode `json:"projects"`
}

// ProjectNode is a project with its lists.
type ProjectNode struct {
	Project Project `json:"project"`
	Lists   []List  `json:"lists"`
}

// Names of the workspace seeded into every new organization.
const (
	DefaultSpaceName   = "Default Space"
	DefaultProjectName = "General Project"
	DefaultListName    = "To Do List"
)
