package task

import (
	"context"

	"github.com/rpggio/tasklane/internal/domain/activity"
	"github.com/rpggio/tasklane/internal/domain/position"
)

// Snapshot is the ordered content of one list at a sequence number. The
// sequence advances on every change to the list's membership or positions.
type Snapshot struct {
	ListID   string
	Seq      int64
	Siblings []position.Sibling
}

// Move is a placement ready to commit.
type Move struct {
	Task            *Task
	ExpectedVersion int64
	ExpectedSeq     int64
	Renumbered      []position.Sibling
	Log             []activity.Entry
}

// Repository provides persistence for tasks.
type Repository interface {
	Get(ctx context.Context, orgID, id string) (*Task, error)
	ListByList(ctx context.Context, orgID, listID string, includeArchived bool) ([]Task, error)
	// Snapshot returns repository.ErrNotFound for a missing or archived list.
	Snapshot(ctx context.Context, orgID, listID string) (*Snapshot, error)
	// Insert returns repository.ErrConflict when the list moved past expectedSeq.
	Insert(ctx context.Context, orgID string, t *Task, expectedSeq int64, log []activity.Entry) error
	// ApplyMove commits the task row, the renumbered siblings, the target
	// list sequence and log in one transaction. A stale task version returns
	// repository.ErrStale and a stale list sequence repository.ErrConflict.
	ApplyMove(ctx context.Context, orgID string, mv Move) error
	// ApplyMoves commits moves in order inside one transaction. Each move's
	// ExpectedSeq accounts for the moves before it.
	ApplyMoves(ctx context.Context, orgID string, moves []Move) error
	// Update writes the task's editable fields if its stored version is
	// still expectedVersion, otherwise it returns repository.ErrStale.
	Update(ctx context.Context, orgID string, t *Task, expectedVersion int64, log []activity.Entry) error
	Delete(ctx context.Context, orgID, id string, log []activity.Entry) error
}

// Publisher fans committed task changes out to subscribers.
type Publisher interface {
	Publish(ctx context.Context, orgID string, event Event)
}
