package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpggio/tasklane/internal/domain/activity"
)

// ActivityRepository implements activity.Repository for SQLite
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Log inserts a new activity entry
func (r *ActivityRepository) Log(ctx context.Context, orgID string, entry *activity.Entry) error {
	return insertActivity(ctx, r.db, orgID, entry)
}

func insertActivity(ctx context.Context, ex execer, orgID string, entry *activity.Entry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var metadata any
	if len(entry.Metadata) > 0 {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode activity metadata: %w", err)
		}
		metadata = string(data)
	}

	result, err := ex.ExecContext(ctx, `
		INSERT INTO task_activities (org_id, task_id, user_id, type, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, orgID, entry.TaskID, entry.UserID, entry.Type, entry.Content, metadata, createdAt)
	if err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}
	entry.OrgID = orgID
	entry.CreatedAt = createdAt
	return nil
}

// List returns activity entries matching the given filters, newest first
func (r *ActivityRepository) List(ctx context.Context, orgID string, opts activity.ListOptions) ([]activity.Entry, error) {
	query := `
		SELECT id, org_id, task_id, user_id, type, content, metadata, created_at
		FROM task_activities
		WHERE org_id = ?
	`
	args := []any{orgID}

	if opts.TaskID != "" {
		query += " AND task_id = ?"
		args = append(args, opts.TaskID)
	}
	if opts.Type != nil {
		query += " AND type = ?"
		args = append(args, *opts.Type)
	}

	query += " ORDER BY created_at DESC, id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var entries []activity.Entry
	for rows.Next() {
		var entry activity.Entry
		var userID, content, metadata sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&entry.OrgID,
			&entry.TaskID,
			&userID,
			&entry.Type,
			&content,
			&metadata,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		entry.UserID = nullableString(userID)
		entry.Content = nullableString(content)
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode activity metadata: %w", err)
			}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}

	return entries, nil
}
