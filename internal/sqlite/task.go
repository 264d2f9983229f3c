package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/tasklane/internal/domain/activity"
	"github.com/rpggio/tasklane/internal/domain/position"
	"github.com/rpggio/tasklane/internal/domain/task"
	"github.com/rpggio/tasklane/internal/repository"
)

// TaskRepository implements task.Repository for SQLite
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, org_id, list_id, title, description, status, priority, position, version,
	created_by, archived_at, created_at, updated_at`

func scanTask(row rowScanner) (*task.Task, error) {
	var t task.Task
	var description, createdBy sql.NullString
	var archived sql.NullTime
	var units int64
	if err := row.Scan(
		&t.ID,
		&t.OrgID,
		&t.ListID,
		&t.Title,
		&description,
		&t.Status,
		&t.Priority,
		&units,
		&t.Version,
		&createdBy,
		&archived,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Description = nullableString(description)
	t.CreatedBy = nullableString(createdBy)
	t.ArchivedAt = nullableTime(archived)
	t.Position = position.FromUnits(units)
	return &t, nil
}

// Get retrieves a task scoped to an organization
func (r *TaskRepository) Get(ctx context.Context, orgID, id string) (*task.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ? AND org_id = ?`, id, orgID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// ListByList returns a list's tasks ordered by (position, id). A missing
// list returns repository.ErrNotFound.
func (r *TaskRepository) ListByList(ctx context.Context, orgID, listID string, includeArchived bool) ([]task.Task, error) {
	var tasks []task.Task
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := listSeq(ctx, tx, orgID, listID, true); err != nil {
			return err
		}

		query := `SELECT ` + taskColumns + ` FROM tasks WHERE org_id = ? AND list_id = ?`
		if !includeArchived {
			query += ` AND archived_at IS NULL`
		}
		query += ` ORDER BY position ASC, id ASC`

		rows, err := tx.QueryContext(ctx, query, orgID, listID)
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return fmt.Errorf("failed to scan task: %w", err)
			}
			tasks = append(tasks, *t)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating task rows: %w", err)
		}
		return nil
	})
	return tasks, err
}

// Snapshot reads a list's sequence and every task position in it as one
// consistent view. Missing or archived lists return repository.ErrNotFound.
func (r *TaskRepository) Snapshot(ctx context.Context, orgID, listID string) (*task.Snapshot, error) {
	snap := &task.Snapshot{ListID: listID}
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		seq, err := listSeq(ctx, tx, orgID, listID, false)
		if err != nil {
			return err
		}
		snap.Seq = seq

		rows, err := tx.QueryContext(ctx, `
			SELECT id, position FROM tasks
			WHERE org_id = ? AND list_id = ?
			ORDER BY position ASC, id ASC
		`, orgID, listID)
		if err != nil {
			return fmt.Errorf("failed to read list positions: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var sib position.Sibling
			var units int64
			if err := rows.Scan(&sib.ID, &units); err != nil {
				return fmt.Errorf("failed to scan position: %w", err)
			}
			sib.Position = position.FromUnits(units)
			snap.Siblings = append(snap.Siblings, sib)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Insert stores a new task if its list is still at expectedSeq.
func (r *TaskRepository) Insert(ctx context.Context, orgID string, t *task.Task, expectedSeq int64, log []activity.Entry) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if err := advanceSeq(ctx, tx, orgID, t.ListID, expectedSeq); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (`+taskColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			t.ID,
			orgID,
			t.ListID,
			t.Title,
			t.Description,
			t.Status,
			t.Priority,
			position.ToUnits(t.Position),
			t.Version,
			t.CreatedBy,
			timeOrNil(t.ArchivedAt),
			t.CreatedAt,
			t.UpdatedAt,
		)
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}

		return logAll(ctx, tx, orgID, log)
	})
}

// ApplyMove commits a placement. The target list must still be at
// mv.ExpectedSeq and the task at mv.ExpectedVersion.
func (r *TaskRepository) ApplyMove(ctx context.Context, orgID string, mv task.Move) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		return applyMove(ctx, tx, orgID, mv)
	})
}

// ApplyMoves commits placements in order, all or none.
func (r *TaskRepository) ApplyMoves(ctx context.Context, orgID string, moves []task.Move) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		for _, mv := range moves {
			if err := applyMove(ctx, tx, orgID, mv); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyMove(ctx context.Context, tx *sql.Tx, orgID string, mv task.Move) error {
	t := mv.Task
	if err := advanceSeq(ctx, tx, orgID, t.ListID, mv.ExpectedSeq); err != nil {
		return err
	}

	// Leaving a list changes its membership too.
	if _, err := tx.ExecContext(ctx, `
		UPDATE task_lists SET seq = seq + 1
		WHERE id = (SELECT list_id FROM tasks WHERE id = ? AND org_id = ?) AND id != ?
	`, t.ID, orgID, t.ListID); err != nil {
		return fmt.Errorf("failed to advance source list: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE tasks
		SET list_id = ?, position = ?, status = ?, version = ?, updated_at = ?
		WHERE id = ? AND org_id = ? AND version = ?
	`, t.ListID, position.ToUnits(t.Position), t.Status, t.Version, t.UpdatedAt, t.ID, orgID, mv.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("failed to move task: %w", err)
	}
	if err := requireVersionMatch(ctx, tx, result, orgID, t.ID); err != nil {
		return err
	}

	for _, sib := range mv.Renumbered {
		result, err := tx.ExecContext(ctx, `
			UPDATE tasks SET position = ?, updated_at = ?
			WHERE id = ? AND org_id = ? AND list_id = ?
		`, position.ToUnits(sib.Position), t.UpdatedAt, sib.ID, orgID, t.ListID)
		if err != nil {
			return fmt.Errorf("failed to renumber task: %w", err)
		}
		if rows, err := result.RowsAffected(); err != nil || rows == 0 {
			return repository.ErrConflict
		}
	}

	return logAll(ctx, tx, orgID, mv.Log)
}

// Update writes a task's editable fields under a version check.
func (r *TaskRepository) Update(ctx context.Context, orgID string, t *task.Task, expectedVersion int64, log []activity.Entry) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE tasks
			SET title = ?, description = ?, status = ?, priority = ?, archived_at = ?, version = ?, updated_at = ?
			WHERE id = ? AND org_id = ? AND version = ?
		`, t.Title, t.Description, t.Status, t.Priority, timeOrNil(t.ArchivedAt), t.Version, t.UpdatedAt,
			t.ID, orgID, expectedVersion)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		if err := requireVersionMatch(ctx, tx, result, orgID, t.ID); err != nil {
			return err
		}
		return logAll(ctx, tx, orgID, log)
	})
}

// requireVersionMatch tells a missing task from a stale version when a
// versioned UPDATE touched no row.
func requireVersionMatch(ctx context.Context, tx *sql.Tx, result sql.Result, orgID, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM tasks WHERE id = ? AND org_id = ?)`, id, orgID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check task existence: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStale
}

// Delete removes a task without touching its siblings' positions.
func (r *TaskRepository) Delete(ctx context.Context, orgID, id string, log []activity.Entry) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		var listID string
		err := tx.QueryRowContext(ctx, `SELECT list_id FROM tasks WHERE id = ? AND org_id = ?`, id, orgID).Scan(&listID)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get task: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND org_id = ?`, id, orgID); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE task_lists SET seq = seq + 1 WHERE id = ?`, listID); err != nil {
			return fmt.Errorf("failed to advance list: %w", err)
		}
		return logAll(ctx, tx, orgID, log)
	})
}

// listSeq reads a list's sequence inside tx.
func listSeq(ctx context.Context, tx *sql.Tx, orgID, listID string, includeArchived bool) (int64, error) {
	query := `SELECT seq FROM task_lists WHERE id = ? AND org_id = ?`
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	var seq int64
	err := tx.QueryRowContext(ctx, query, listID, orgID).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, repository.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read list sequence: %w", err)
	}
	return seq, nil
}

// advanceSeq bumps a list's sequence if it still equals expected.
func advanceSeq(ctx context.Context, tx *sql.Tx, orgID, listID string, expected int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE task_lists SET seq = seq + 1
		WHERE id = ? AND org_id = ? AND seq = ? AND archived_at IS NULL
	`, listID, orgID, expected)
	if err != nil {
		return fmt.Errorf("failed to advance list sequence: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// The list changed or disappeared; either way the snapshot is stale.
		return repository.ErrConflict
	}
	return nil
}

func logAll(ctx context.Context, tx *sql.Tx, orgID string, log []activity.Entry) error {
	for i := range log {
		if err := insertActivity(ctx, tx, orgID, &log[i]); err != nil {
			return err
		}
	}
	return nil
}
