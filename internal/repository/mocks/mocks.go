package mocks

import (
	"context"
	"time"

	"github.com/rpggio/tasklane/internal/domain/activity"
	"github.com/rpggio/tasklane/internal/domain/hierarchy"
	"github.com/rpggio/tasklane/internal/domain/organization"
	"github.com/rpggio/tasklane/internal/domain/position"
	"github.com/rpggio/tasklane/internal/domain/task"
	"github.com/rpggio/tasklane/internal/domain/user"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// UserRepository is a mock for user.Repository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// OrganizationRepository is a mock for organization.Repository.
type OrganizationRepository struct {
	mock.Mock
}

func (m *OrganizationRepository) Create(ctx context.Context, org *organization.Organization, owner *organization.Member) error {
	args := m.Called(ctx, org, owner)
	return args.Error(0)
}

func (m *OrganizationRepository) Get(ctx context.Context, id string) (*organization.Organization, error) {
	args := m.Called(ctx, id)
	if org, ok := args.Get(0).(*organization.Organization); ok {
		return org, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *OrganizationRepository) GetMember(ctx context.Context, orgID, userID string) (*organization.Member, error) {
	args := m.Called(ctx, orgID, userID)
	if member, ok := args.Get(0).(*organization.Member); ok {
		return member, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *OrganizationRepository) ListForUser(ctx context.Context, userID string) ([]organization.Membership, error) {
	args := m.Called(ctx, userID)
	if list, ok := args.Get(0).([]organization.Membership); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Seeder is a mock for organization.Seeder.
type Seeder struct {
	mock.Mock
}

func (m *Seeder) SeedDefault(ctx context.Context, orgID string) error {
	args := m.Called(ctx, orgID)
	return args.Error(0)
}

// placeWith fails with the first return value or positions dst among the
// optional sibling slice passed as the second one.
func placeWith(args mock.Arguments, place hierarchy.Placer, dst *decimal.Decimal) error {
	if err := args.Error(0); err != nil {
		return err
	}
	var siblings []position.Sibling
	if len(args) > 1 {
		siblings, _ = args.Get(1).([]position.Sibling)
	}
	p, err := place(siblings)
	if err != nil {
		return err
	}
	*dst = p
	return nil
}

// HierarchyRepository is a mock for hierarchy.Repository. Create calls
// return (error, []position.Sibling).
type HierarchyRepository struct {
	mock.Mock
}

func (m *HierarchyRepository) CreateSpace(ctx context.Context, sp *hierarchy.Space, place hierarchy.Placer) error {
	args := m.Called(ctx, sp)
	return placeWith(args, place, &sp.Position)
}

func (m *HierarchyRepository) GetSpace(ctx context.Context, orgID, id string) (*hierarchy.Space, error) {
	args := m.Called(ctx, orgID, id)
	if sp, ok := args.Get(0).(*hierarchy.Space); ok {
		return sp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *HierarchyRepository) ListSpaces(ctx context.Context, orgID string) ([]hierarchy.Space, error) {
	args := m.Called(ctx, orgID)
	if list, ok := args.Get(0).([]hierarchy.Space); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *HierarchyRepository) CreateProject(ctx context.Context, p *hierarchy.Project, place hierarchy.Placer) error {
	args := m.Called(ctx, p)
	return placeWith(args, place, &p.Position)
}

func (m *HierarchyRepository) GetProject(ctx context.Context, orgID, id string) (*hierarchy.Project, error) {
	args := m.Called(ctx, orgID, id)
	if p, ok := args.Get(0).(*hierarchy.Project); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *HierarchyRepository) ListProjects(ctx context.Context, orgID string) ([]hierarchy.Project, error) {
	args := m.Called(ctx, orgID)
	if list, ok := args.Get(0).([]hierarchy.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *HierarchyRepository) CreateList(ctx context.Context, l *hierarchy.List, place hierarchy.Placer) error {
	args := m.Called(ctx, l)
	return placeWith(args, place, &l.Position)
}

func (m *HierarchyRepository) GetList(ctx context.Context, orgID, id string) (*hierarchy.List, error) {
	args := m.Called(ctx, orgID, id)
	if l, ok := args.Get(0).(*hierarchy.List); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *HierarchyRepository) ListLists(ctx context.Context, orgID string) ([]hierarchy.List, error) {
	args := m.Called(ctx, orgID)
	if list, ok := args.Get(0).([]hierarchy.List); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// TaskRepository is a mock for task.Repository.
type TaskRepository struct {
	mock.Mock
}

func (m *TaskRepository) Get(ctx context.Context, orgID, id string) (*task.Task, error) {
	args := m.Called(ctx, orgID, id)
	if t, ok := args.Get(0).(*task.Task); ok {
		// Copy: repeated calls must not share one instance.
		copied := *t
		return &copied, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) ListByList(ctx context.Context, orgID, listID string, includeArchived bool) ([]task.Task, error) {
	args := m.Called(ctx, orgID, listID, includeArchived)
	if list, ok := args.Get(0).([]task.Task); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) Snapshot(ctx context.Context, orgID, listID string) (*task.Snapshot, error) {
	args := m.Called(ctx, orgID, listID)
	if snap, ok := args.Get(0).(*task.Snapshot); ok {
		return snap, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) Insert(ctx context.Context, orgID string, t *task.Task, expectedSeq int64, log []activity.Entry) error {
	args := m.Called(ctx, orgID, t, expectedSeq, log)
	return args.Error(0)
}

func (m *TaskRepository) ApplyMove(ctx context.Context, orgID string, mv task.Move) error {
	args := m.Called(ctx, orgID, mv)
	return args.Error(0)
}

func (m *TaskRepository) ApplyMoves(ctx context.Context, orgID string, moves []task.Move) error {
	args := m.Called(ctx, orgID, moves)
	return args.Error(0)
}

func (m *TaskRepository) Update(ctx context.Context, orgID string, t *task.Task, expectedVersion int64, log []activity.Entry) error {
	args := m.Called(ctx, orgID, t, expectedVersion, log)
	return args.Error(0)
}

func (m *TaskRepository) Delete(ctx context.Context, orgID, id string, log []activity.Entry) error {
	args := m.Called(ctx, orgID, id, log)
	return args.Error(0)
}

// Publisher is a mock for task.Publisher.
type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, orgID string, event task.Event) {
	m.Called(ctx, orgID, event)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, orgID string, entry *activity.Entry) error {
	args := m.Called(ctx, orgID, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, orgID string, opts activity.ListOptions) ([]activity.Entry, error) {
	args := m.Called(ctx, orgID, opts)
	if list, ok := args.Get(0).([]activity.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
