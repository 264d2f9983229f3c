package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/tasklane/internal/domain/position"
	"github.com/rpggio/tasklane/internal/repository"
	"github.com/shopspring/decimal"
)

// Service manages the space, project and list tree of an organization.
type Service struct {
	repo   Repository
	params position.Params
	logger *slog.Logger
}

// NewService creates a new hierarchy service.
func NewService(repo Repository, params position.Params, logger *slog.Logger) *Service {
	return &Service{repo: repo, params: params, logger: logger}
}

// CreateSpaceRequest describes a new space.
type CreateSpaceRequest struct {
	Name        string
	Description *string
}

// CreateProjectRequest describes a new project.
type CreateProjectRequest struct {
	Name        string
	Description *string
}

// CreateListRequest describes a new list.
type CreateListRequest struct {
	Name  string
	Color *string
}

// CreateSpace appends a space to the organization.
func (s *Service) CreateSpace(ctx context.Context, orgID string, req CreateSpaceRequest) (*Space, error) {
	name, err := requireName(req.Name, "space")
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sp := &Space{
		ID:          uuid.NewString(),
		OrgID:       orgID,
		Name:        name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateSpace(ctx, sp, s.appendPosition); err != nil {
		return nil, s.translateCreate(err, "creating space")
	}
	return sp, nil
}

// CreateProject appends a project to a space of the organization.
func (s *Service) CreateProject(ctx context.Context, orgID, spaceID string, req CreateProjectRequest) (*Project, error) {
	name, err := requireName(req.Name, "project")
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetSpace(ctx, orgID, spaceID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSpaceNotFound
		}
		return nil, fmt.Errorf("loading space: %w", err)
	}

	now := time.Now().UTC()
	p := &Project{
		ID:          uuid.NewString(),
		OrgID:       orgID,
		SpaceID:     spaceID,
		Name:        name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateProject(ctx, p, s.appendPosition); err != nil {
		return nil, s.translateCreate(err, "creating project")
	}
	return p, nil
}

// CreateList appends a list to a project of the organization.
func (s *Service) CreateList(ctx context.Context, orgID, projectID string, req CreateListRequest) (*List, error) {
	name, err := requireName(req.Name, "list")
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetProject(ctx, orgID, projectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("loading project: %w", err)
	}

	now := time.Now().UTC()
	l := &List{
		ID:        uuid.NewString(),
		OrgID:     orgID,
		ProjectID: projectID,
		Name:      name,
		Color:     req.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateList(ctx, l, s.appendPosition); err != nil {
		return nil, s.translateCreate(err, "creating list")
	}
	return l, nil
}

// GetList returns a list of the organization.
func (s *Service) GetList(ctx context.Context, orgID, id string) (*List, error) {
	l, err := s.repo.GetList(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrListNotFound
		}
		return nil, fmt.Errorf("loading list: %w", err)
	}
	return l, nil
}

// Tree returns the unarchived spaces, projects and lists in position order.
func (s *Service) Tree(ctx context.Context, orgID string) (*Tree, error) {
	spaces, err := s.repo.ListSpaces(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing spaces: %w", err)
	}
	projects, err := s.repo.ListProjects(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	lists, err := s.repo.ListLists(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing lists: %w", err)
	}

	listsByProject := map[string][]List{}
	for _, l := range lists {
		if l.ArchivedAt == nil {
			listsByProject[l.ProjectID] = append(listsByProject[l.ProjectID], l)
		}
	}
	projectsBySpace := map[string][]ProjectNode{}
	for _, p := range projects {
		if p.ArchivedAt != nil {
			continue
		}
		node := ProjectNode{Project: p, Lists: listsByProject[p.ID]}
		if node.Lists == nil {
			node.Lists = []List{}
		}
		sortByPosition(node.Lists, func(l List) (string, decimal.Decimal) { return l.ID, l.Position })
		projectsBySpace[p.SpaceID] = append(projectsBySpace[p.SpaceID], node)
	}

	tree := &Tree{Spaces: []SpaceNode{}}
	for _, sp := range spaces {
		if sp.ArchivedAt != nil {
			continue
		}
		node := SpaceNode{Space: sp, Projects: projectsBySpace[sp.ID]}
		if node.Projects == nil {
			node.Projects = []ProjectNode{}
		}
		sortByPosition(node.Projects, func(p ProjectNode) (string, decimal.Decimal) {
			return p.Project.ID, p.Project.Position
		})
		tree.Spaces = append(tree.Spaces, node)
	}
	sortByPosition(tree.Spaces, func(sp SpaceNode) (string, decimal.Decimal) { return sp.Space.ID, sp.Space.Position })
	return tree, nil
}

// SeedDefault creates the default space, project and list of a new
// organization.
func (s *Service) SeedDefault(ctx context.Context, orgID string) error {
	sp, err := s.CreateSpace(ctx, orgID, CreateSpaceRequest{Name: DefaultSpaceName})
	if err != nil {
		return err
	}
	p, err := s.CreateProject(ctx, orgID, sp.ID, CreateProjectRequest{Name: DefaultProjectName})
	if err != nil {
		return err
	}
	if _, err := s.CreateList(ctx, orgID, p.ID, CreateListRequest{Name: DefaultListName}); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Debug("seeded default hierarchy", "org_id", orgID, "space_id", sp.ID, "project_id", p.ID)
	}
	return nil
}

// appendPosition places a new child after its last sibling.
func (s *Service) appendPosition(siblings []position.Sibling) (decimal.Decimal, error) {
	return position.Append(siblings, s.params)
}

func (s *Service) translateCreate(err error, action string) error {
	if errors.Is(err, position.ErrNoRoom) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return fmt.Errorf("%s: %w", action, err)
}

func requireName(name, kind string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: %s name is required", ErrInvalidInput, kind)
	}
	return name, nil
}

func sortByPosition[T any](items []T, key func(T) (string, decimal.Decimal)) {
	slices.SortFunc(items, func(a, b T) int {
		aID, aPos := key(a)
		bID, bPos := key(b)
		return position.Compare(position.Sibling{ID: aID, Position: aPos}, position.Sibling{ID: bID, Position: bPos})
	})
}
