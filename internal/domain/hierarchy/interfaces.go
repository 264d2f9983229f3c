package hierarchy

import (
	"context"

	"github.com/rpggio/tasklane/internal/domain/position"
	"github.com/shopspring/decimal"
)

// Placer picks the position of a new child from its parent's current
// children.
type Placer func(siblings []position.Sibling) (decimal.Decimal, error)

// Repository provides persistence for spaces, projects and lists.
//
// The Create methods read the parent's children, call place and insert the
// new row inside one transaction, so concurrent creates never share a
// position.
type Repository interface {
	CreateSpace(ctx context.Context, sp *Space, place Placer) error
	GetSpace(ctx context.Context, orgID, id string) (*Space, error)
	ListSpaces(ctx context.Context, orgID string) ([]Space, error)

	CreateProject(ctx context.Context, p *Project, place Placer) error
	GetProject(ctx context.Context, orgID, id string) (*Project, error)
	ListProjects(ctx context.Context, orgID string) ([]Project, error)

	CreateList(ctx context.Context, l *List, place Placer) error
	GetList(ctx context.Context, orgID, id string) (*List, error)
	ListLists(ctx context.Context, orgID string) ([]List, error)
}
