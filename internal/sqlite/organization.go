package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/tasklane/internal/domain/organization"
	"github.com/rpggio/tasklane/internal/repository"
)

// OrganizationRepository implements organization.Repository for SQLite
type OrganizationRepository struct {
	db *DB
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create inserts the organization and its owner membership in one
// transaction. A taken slug returns repository.ErrDuplicate.
func (r *OrganizationRepository) Create(ctx context.Context, org *organization.Organization, owner *organization.Member) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO organizations (id, name, slug, description, owner_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, org.ID, org.Name, org.Slug, org.Description, org.OwnerID, org.CreatedAt, org.UpdatedAt)
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if err != nil {
			return fmt.Errorf("failed to create organization: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO organization_members (org_id, user_id, role, joined_at)
			VALUES (?, ?, ?, ?)
		`, owner.OrgID, owner.UserID, owner.Role, owner.JoinedAt)
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if err != nil {
			return fmt.Errorf("failed to add owner membership: %w", err)
		}
		return nil
	})
}

// Get retrieves an organization by ID
func (r *OrganizationRepository) Get(ctx context.Context, id string) (*organization.Organization, error) {
	var org organization.Organization
	var description sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, slug, description, owner_id, created_at, updated_at
		FROM organizations
		WHERE id = ?
	`, id).Scan(&org.ID, &org.Name, &org.Slug, &description, &org.OwnerID, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	org.Description = nullableString(description)
	return &org, nil
}

// GetMember retrieves a membership
func (r *OrganizationRepository) GetMember(ctx context.Context, orgID, userID string) (*organization.Member, error) {
	var m organization.Member
	err := r.db.QueryRowContext(ctx, `
		SELECT org_id, user_id, role, joined_at
		FROM organization_members
		WHERE org_id = ? AND user_id = ?
	`, orgID, userID).Scan(&m.OrgID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &m, nil
}

// ListForUser returns the organizations a user belongs to, oldest first
func (r *OrganizationRepository) ListForUser(ctx context.Context, userID string) ([]organization.Membership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.name, o.slug, o.description, o.owner_id, o.created_at, o.updated_at, m.role
		FROM organizations o
		JOIN organization_members m ON m.org_id = o.id
		WHERE m.user_id = ?
		ORDER BY o.created_at ASC, o.id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var list []organization.Membership
	for rows.Next() {
		var m organization.Membership
		var description sql.NullString
		if err := rows.Scan(
			&m.ID,
			&m.Name,
			&m.Slug,
			&description,
			&m.OwnerID,
			&m.CreatedAt,
			&m.UpdatedAt,
			&m.Role,
		); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		m.Description = nullableString(description)
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organization rows: %w", err)
	}
	return list, nil
}
