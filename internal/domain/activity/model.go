package activity

import "time"

// Type represents the type of task activity event
type Type string

const (
	TypeCreated             Type = "created"
	TypeMoved               Type = "moved"
	TypePositionsRebalanced Type = "positions_rebalanced"
	TypeDeleted             Type = "deleted"
	TypeUpdated             Type = "updated"
	TypeStatusChanged       Type = "status_changed"
	TypePriorityChanged     Type = "priority_changed"
)

// Entry represents an event in a task's activity log
type Entry struct {
	ID        int64             `json:"id"`
	OrgID     string            `json:"org_id"`
	TaskID    string            `json:"task_id"`
	UserID    *string           `json:"user_id,omitempty"`
	Type      Type              `json:"type"`
	Content   *string           `json:"content,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
