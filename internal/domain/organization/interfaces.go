package organization

import "context"

// Repository provides persistence for organizations and members.
type Repository interface {
	// Create stores the organization and its owner membership atomically.
	Create(ctx context.Context, org *Organization, owner *Member) error
	Get(ctx context.Context, id string) (*Organization, error)
	GetMember(ctx context.Context, orgID, userID string) (*Member, error)
	ListForUser(ctx context.Context, userID string) ([]Membership, error)
}

// Seeder creates the starting workspace of a new organization.
type Seeder interface {
	SeedDefault(ctx context.Context, orgID string) error
}
