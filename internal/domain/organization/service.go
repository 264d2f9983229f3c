package organization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/tasklane/internal/repository"
)

// Service handles organization lifecycle and membership checks.
type Service struct {
	repo   Repository
	seeder Seeder
	logger *slog.Logger
}

// NewService creates a new organization service. seeder may be nil.
func NewService(repo Repository, seeder Seeder, logger *slog.Logger) *Service {
	return &Service{repo: repo, seeder: seeder, logger: logger}
}

// CreateRequest describes a new organization.
type CreateRequest struct {
	Name        string
	Description *string
}

// Create stores a new organization owned by userID and seeds its default
// space, project and list.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	slug := Slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("%w: organization name has no usable characters", ErrInvalidInput)
	}

	now := time.Now().UTC()
	org := &Organization{
		ID:          uuid.NewString(),
		Name:        name,
		Slug:        slug,
		Description: req.Description,
		OwnerID:     userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	owner := &Member{OrgID: org.ID, UserID: userID, Role: RoleOwner, JoinedAt: now}

	if err := s.repo.Create(ctx, org, owner); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateSlug
		}
		return nil, fmt.Errorf("creating organization: %w", err)
	}

	if s.seeder != nil {
		if err := s.seeder.SeedDefault(ctx, org.ID); err != nil {
			return nil, fmt.Errorf("seeding organization: %w", err)
		}
	}

	if s.logger != nil {
		s.logger.Info("organization created", "org_id", org.ID, "slug", org.Slug)
	}
	return org, nil
}

// Get returns an organization by id.
func (s *Service) Get(ctx context.Context, id string) (*Organization, error) {
	org, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("loading organization: %w", err)
	}
	return org, nil
}

// ListForUser lists the organizations userID belongs to.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Membership, error) {
	list, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	if list == nil {
		list = []Membership{}
	}
	return list, nil
}

// Membership resolves userID's membership in orgID.
func (s *Service) Membership(ctx context.Context, orgID, userID string) (*Member, error) {
	m, err := s.repo.GetMember(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("loading membership: %w", err)
	}
	return m, nil
}

// Authorize resolves the membership and checks that its role grants p.
func (s *Service) Authorize(ctx context.Context, orgID, userID string, p Permission) (*Member, error) {
	m, err := s.Membership(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if !m.Role.Can(p) {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, p)
	}
	return m, nil
}
