package organization_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/tasklane/internal/domain/organization"
	"github.com/rpggio/tasklane/internal/repository"
	"github.com/rpggio/tasklane/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestOrganizationService_Create_SeedsDefaultHierarchy(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.OrganizationRepository{}
	seeder := &mocks.Seeder{}

	repo.On("Create", ctx, mock.MatchedBy(func(org *organization.Organization) bool {
		return org.Slug == "hierarchy-corp-42" && org.OwnerID == "u1"
	}), mock.MatchedBy(func(m *organization.Member) bool {
		return m.UserID == "u1" && m.Role == organization.RoleOwner
	})).Return(nil)
	seeder.On("SeedDefault", ctx, mock.Anything).Return(nil)

	svc := organization.NewService(repo, seeder, nil)
	org, err := svc.Create(ctx, "u1", organization.CreateRequest{Name: "Hierarchy Corp 42"})
	require.NoError(t, err)
	require.Equal(t, "Hierarchy Corp 42", org.Name)
	seeder.AssertCalled(t, "SeedDefault", ctx, org.ID)
}

func TestOrganizationService_Create_DuplicateSlug(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.OrganizationRepository{}
	repo.On("Create", ctx, mock.Anything, mock.Anything).Return(repository.ErrDuplicate)

	_, err := organization.NewService(repo, nil, nil).Create(ctx, "u1", organization.CreateRequest{Name: "Acme"})
	require.ErrorIs(t, err, organization.ErrDuplicateSlug)
}

func TestOrganizationService_Create_RequiresName(t *testing.T) {
	svc := organization.NewService(&mocks.OrganizationRepository{}, nil, nil)
	_, err := svc.Create(context.Background(), "u1", organization.CreateRequest{Name: "  "})
	require.ErrorIs(t, err, organization.ErrInvalidInput)

	_, err = svc.Create(context.Background(), "u1", organization.CreateRequest{Name: "!!!"})
	require.ErrorIs(t, err, organization.ErrInvalidInput)
}

func TestOrganizationService_Create_SeedFailure(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.OrganizationRepository{}
	seeder := &mocks.Seeder{}
	repo.On("Create", ctx, mock.Anything, mock.Anything).Return(nil)
	seeder.On("SeedDefault", ctx, mock.Anything).Return(errors.New("boom"))

	_, err := organization.NewService(repo, seeder, nil).Create(ctx, "u1", organization.CreateRequest{Name: "Acme"})
	require.Error(t, err)
}

func TestOrganizationService_Authorize(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.OrganizationRepository{}
	repo.On("GetMember", ctx, "org1", "guest").Return(&organization.Member{OrgID: "org1", UserID: "guest", Role: organization.RoleGuest}, nil)
	repo.On("GetMember", ctx, "org1", "stranger").Return(nil, repository.ErrNotFound)

	svc := organization.NewService(repo, nil, nil)

	_, err := svc.Authorize(ctx, "org1", "guest", organization.PermTasksRead)
	require.NoError(t, err)

	_, err = svc.Authorize(ctx, "org1", "guest", organization.PermTasksEdit)
	require.ErrorIs(t, err, organization.ErrForbidden)

	_, err = svc.Authorize(ctx, "org1", "stranger", organization.PermTasksRead)
	require.ErrorIs(t, err, organization.ErrNotMember)
}

func TestRole_Can(t *testing.T) {
	require.True(t, organization.RoleOwner.Can(organization.PermOrgDelete))
	require.False(t, organization.RoleAdmin.Can(organization.PermOrgDelete))
	require.True(t, organization.RoleManager.Can(organization.PermTasksDelete))
	require.False(t, organization.RoleMember.Can(organization.PermTasksDelete))
	require.True(t, organization.RoleMember.Can(organization.PermTasksEdit))
	require.False(t, organization.Role("root").Valid())
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "hierarchy-corp-1a2b", organization.Slugify("Hierarchy Corp 1a2b"))
	require.Equal(t, "acme-inc", organization.Slugify("ACME, Inc!"))
}
