package activity

import "context"

// Repository provides persistence operations for activity entries.
type Repository interface {
	Log(ctx context.Context, orgID string, entry *Entry) error
	List(ctx context.Context, orgID string, opts ListOptions) ([]Entry, error)
}
