package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/tasklane/internal/domain/hierarchy"
	"github.com/rpggio/tasklane/internal/domain/position"
	"github.com/rpggio/tasklane/internal/repository"
	"github.com/shopspring/decimal"
)

// HierarchyRepository implements hierarchy.Repository for SQLite
type HierarchyRepository struct {
	db *DB
}

// NewHierarchyRepository creates a new HierarchyRepository
func NewHierarchyRepository(db *DB) *HierarchyRepository {
	return &HierarchyRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func insertErr(err error, what string) error {
	if isForeignKeyViolation(err) {
		return repository.ErrForeignKeyViolation
	}
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return fmt.Errorf("failed to create %s: %w", what, err)
}

// childPositions reads the id and position of every row query selects.
func childPositions(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]position.Sibling, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read sibling positions: %w", err)
	}
	defer rows.Close()

	var siblings []position.Sibling
	for rows.Next() {
		var id string
		var units int64
		if err := rows.Scan(&id, &units); err != nil {
			return nil, fmt.Errorf("failed to scan sibling position: %w", err)
		}
		siblings = append(siblings, position.Sibling{ID: id, Position: position.FromUnits(units)})
	}
	return siblings, rows.Err()
}

// placeChild sets *dst from the siblings query selects and then runs insert,
// all inside one transaction.
func (r *HierarchyRepository) placeChild(ctx context.Context, place hierarchy.Placer, dst *decimal.Decimal,
	query string, args []any, insert func(tx *sql.Tx) error) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		siblings, err := childPositions(ctx, tx, query, args...)
		if err != nil {
			return err
		}
		p, err := place(siblings)
		if err != nil {
			return err
		}
		*dst = p
		return insert(tx)
	})
}

// CreateSpace appends a space to its organization
func (r *HierarchyRepository) CreateSpace(ctx context.Context, sp *hierarchy.Space, place hierarchy.Placer) error {
	return r.placeChild(ctx, place, &sp.Position,
		`SELECT id, position FROM spaces WHERE org_id = ?`, []any{sp.OrgID},
		func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO spaces (id, org_id, name, description, position, archived_at, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, sp.ID, sp.OrgID, sp.Name, sp.Description, position.ToUnits(sp.Position),
				timeOrNil(sp.ArchivedAt), sp.CreatedAt, sp.UpdatedAt)
			if err != nil {
				return insertErr(err, "space")
			}
			return nil
		})
}

const spaceColumns = `id, org_id, name, description, position, archived_at, created_at, updated_at`

func scanSpace(row rowScanner) (*hierarchy.Space, error) {
	var sp hierarchy.Space
	var description sql.NullString
	var archived sql.NullTime
	var units int64
	if err := row.Scan(&sp.ID, &sp.OrgID, &sp.Name, &description, &units, &archived, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
		return nil, err
	}
	sp.Description = nullableString(description)
	sp.ArchivedAt = nullableTime(archived)
	sp.Position = position.FromUnits(units)
	return &sp, nil
}

// GetSpace retrieves a space scoped to an organization
func (r *HierarchyRepository) GetSpace(ctx context.Context, orgID, id string) (*hierarchy.Space, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+spaceColumns+` FROM spaces WHERE id = ? AND org_id = ?`, id, orgID)
	sp, err := scanSpace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get space: %w", err)
	}
	return sp, nil
}

// ListSpaces returns every space of an organization in position order
func (r *HierarchyRepository) ListSpaces(ctx context.Context, orgID string) ([]hierarchy.Space, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+spaceColumns+` FROM spaces WHERE org_id = ? ORDER BY position ASC, id ASC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	defer rows.Close()

	var spaces []hierarchy.Space
	for rows.Next() {
		sp, err := scanSpace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan space: %w", err)
		}
		spaces = append(spaces, *sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating space rows: %w", err)
	}
	return spaces, nil
}

// CreateProject appends a project to its space
func (r *HierarchyRepository) CreateProject(ctx context.Context, p *hierarchy.Project, place hierarchy.Placer) error {
	return r.placeChild(ctx, place, &p.Position,
		`SELECT id, position FROM projects WHERE org_id = ? AND space_id = ?`, []any{p.OrgID, p.SpaceID},
		func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO projects (id, org_id, space_id, name, description, position, archived_at, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, p.ID, p.OrgID, p.SpaceID, p.Name, p.Description, position.ToUnits(p.Position),
				timeOrNil(p.ArchivedAt), p.CreatedAt, p.UpdatedAt)
			if err != nil {
				return insertErr(err, "project")
			}
			return nil
		})
}

const projectColumns = `id, org_id, space_id, name, description, position, archived_at, created_at, updated_at`

func scanProject(row rowScanner) (*hierarchy.Project, error) {
	var p hierarchy.Project
	var description sql.NullString
	var archived sql.NullTime
	var units int64
	if err := row.Scan(&p.ID, &p.OrgID, &p.SpaceID, &p.Name, &description, &units, &archived, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = nullableString(description)
	p.ArchivedAt = nullableTime(archived)
	p.Position = position.FromUnits(units)
	return &p, nil
}

// GetProject retrieves a project scoped to an organization
func (r *HierarchyRepository) GetProject(ctx context.Context, orgID, id string) (*hierarchy.Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ? AND org_id = ?`, id, orgID)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// ListProjects returns every project of an organization in position order
func (r *HierarchyRepository) ListProjects(ctx context.Context, orgID string) ([]hierarchy.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE org_id = ? ORDER BY position ASC, id ASC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []hierarchy.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}
	return projects, nil
}

// CreateList appends a list with a fresh sequence to its project
func (r *HierarchyRepository) CreateList(ctx context.Context, l *hierarchy.List, place hierarchy.Placer) error {
	return r.placeChild(ctx, place, &l.Position,
		`SELECT id, position FROM task_lists WHERE org_id = ? AND project_id = ?`, []any{l.OrgID, l.ProjectID},
		func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO task_lists (id, org_id, project_id, name, color, position, seq, archived_at, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
			`, l.ID, l.OrgID, l.ProjectID, l.Name, l.Color, position.ToUnits(l.Position),
				timeOrNil(l.ArchivedAt), l.CreatedAt, l.UpdatedAt)
			if err != nil {
				return insertErr(err, "list")
			}
			return nil
		})
}

const listColumns = `id, org_id, project_id, name, color, position, archived_at, created_at, updated_at`

func scanList(row rowScanner) (*hierarchy.List, error) {
	var l hierarchy.List
	var color sql.NullString
	var archived sql.NullTime
	var units int64
	if err := row.Scan(&l.ID, &l.OrgID, &l.ProjectID, &l.Name, &color, &units, &archived, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Color = nullableString(color)
	l.ArchivedAt = nullableTime(archived)
	l.Position = position.FromUnits(units)
	return &l, nil
}

// GetList retrieves a list scoped to an organization
func (r *HierarchyRepository) GetList(ctx context.Context, orgID, id string) (*hierarchy.List, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+listColumns+` FROM task_lists WHERE id = ? AND org_id = ?`, id, orgID)
	l, err := scanList(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	return l, nil
}

// ListLists returns every list of an organization in position order
func (r *HierarchyRepository) ListLists(ctx context.Context, orgID string) ([]hierarchy.List, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listColumns+` FROM task_lists WHERE org_id = ? ORDER BY position ASC, id ASC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lists: %w", err)
	}
	defer rows.Close()

	var lists []hierarchy.List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		lists = append(lists, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating list rows: %w", err)
	}
	return lists, nil
}
