package task

import (
	"time"

	"github.com/rpggio/tasklane/internal/domain/position"
	"github.com/shopspring/decimal"
)

// Status is the workflow state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusInReview   Status = "in_review"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusInReview, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Priority ranks task urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Task is a positioned item inside a list.
type Task struct {
	ID          string          `json:"id"`
	OrgID       string          `json:"org_id"`
	ListID      string          `json:"list_id"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	Status      Status          `json:"status"`
	Priority    Priority        `json:"priority"`
	Position    decimal.Decimal `json:"position"`
	Version     int64           `json:"version"`
	CreatedBy   *string         `json:"created_by,omitempty"`
	ArchivedAt  *time.Time      `json:"archived_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Sibling returns the task as seen by the positioner.
func (t *Task) Sibling() position.Sibling {
	return position.Sibling{ID: t.ID, Position: t.Position}
}

// MoveResult is the outcome of a move.
type MoveResult struct {
	Task *Task `json:"task"`
	// Collided reports that the requested position was taken.
	Collided bool `json:"collided"`
	// Renumbered counts siblings respread to make room.
	Renumbered int `json:"renumbered"`
	// Unchanged reports a move onto the task's current list and position.
	Unchanged bool `json:"unchanged"`
}

// EventType names a task change published to subscribers.
type EventType string

const (
	EventCreated EventType = "task.created"
	EventUpdated EventType = "task.updated"
	EventMoved   EventType = "task.moved"
	EventDeleted EventType = "task.deleted"
)

// Event describes a committed task change.
type Event struct {
	Type       EventType `json:"type"`
	TaskID     string    `json:"task_id"`
	Task       *Task     `json:"task,omitempty"`
	FromListID string    `json:"from_list_id,omitempty"`
}
