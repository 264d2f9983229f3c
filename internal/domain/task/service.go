package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/tasklane/internal/domain/activity"
	"github.com/rpggio/tasklane/internal/domain/position"
	"github.com/rpggio/tasklane/internal/repository"
	"github.com/shopspring/decimal"
)

// DefaultMaxRetries bounds how often a stale list snapshot is re-read.
const DefaultMaxRetries = 3

// Service handles task business logic. It is the only writer of task
// positions.
type Service struct {
	tasks      Repository
	publisher  Publisher
	params     position.Params
	maxRetries int
	logger     *slog.Logger
}

// NewService creates a new task service. publisher may be nil.
func NewService(tasks Repository, publisher Publisher, params position.Params, maxRetries int, logger *slog.Logger) *Service {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Service{
		tasks:      tasks,
		publisher:  publisher,
		params:     params,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// CreateRequest describes a task creation request.
type CreateRequest struct {
	ListID      string
	Title       string
	Description *string
	Status      Status
	Priority    Priority
}

// MoveRequest describes a move of one task to a list and position.
type MoveRequest struct {
	TaskID       string
	TargetListID string
	Position     decimal.Decimal
	// ExpectedVersion, when set, fails the move with
	// ErrConcurrentModification if the task changed since it was read.
	ExpectedVersion *int64
}

// UpdateRequest describes an edit of a task's fields. Nil fields are left
// unchanged.
type UpdateRequest struct {
	TaskID          string
	Title           *string
	Description     *string
	Status          *Status
	Priority        *Priority
	ExpectedVersion *int64
}

func (r UpdateRequest) validate() error {
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	}
	if r.Status != nil && !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *r.Status)
	}
	if r.Priority != nil && !r.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *r.Priority)
	}
	return nil
}

func (r UpdateRequest) apply(current *Task) *Task {
	updated := *current
	if r.Title != nil {
		updated.Title = strings.TrimSpace(*r.Title)
	}
	if r.Description != nil {
		updated.Description = r.Description
	}
	if r.Status != nil {
		updated.Status = *r.Status
	}
	if r.Priority != nil {
		updated.Priority = *r.Priority
	}
	return &updated
}

// Create appends a task to the end of its list.
func (s *Service) Create(ctx context.Context, orgID, userID string, req CreateRequest) (*Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if req.ListID == "" {
		return nil, fmt.Errorf("%w: list id is required", ErrInvalidInput)
	}
	status := req.Status
	if status == "" {
		status = StatusTodo
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, priority)
	}

	for attempt := 0; ; attempt++ {
		snap, err := s.snapshot(ctx, orgID, req.ListID)
		if err != nil {
			return nil, err
		}
		last, err := position.Append(snap.Siblings, s.params)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPosition, err)
		}

		now := time.Now().UTC()
		t := &Task{
			ID:          uuid.NewString(),
			OrgID:       orgID,
			ListID:      req.ListID,
			Title:       title,
			Description: req.Description,
			Status:      status,
			Priority:    priority,
			Position:    last,
			Version:     1,
			CreatedBy:   optional(userID),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		log := []activity.Entry{{
			TaskID:    t.ID,
			UserID:    optional(userID),
			Type:      activity.TypeCreated,
			CreatedAt: now,
		}}

		err = s.tasks.Insert(ctx, orgID, t, snap.Seq, log)
		if errors.Is(err, repository.ErrConflict) && attempt < s.maxRetries {
			continue
		}
		if err != nil {
			return nil, s.translateWrite(err, "creating task")
		}

		s.publish(ctx, orgID, Event{Type: EventCreated, TaskID: t.ID, Task: t})
		return t, nil
	}
}

// Get returns a task of the organization.
func (s *Service) Get(ctx context.Context, orgID, id string) (*Task, error) {
	t, err := s.tasks.Get(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("loading task: %w", err)
	}
	return t, nil
}

// ListByList returns the tasks of a list ordered by position.
func (s *Service) ListByList(ctx context.Context, orgID, listID string, includeArchived bool) ([]Task, error) {
	tasks, err := s.tasks.ListByList(ctx, orgID, listID, includeArchived)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidTarget
		}
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return tasks, nil
}

// Move places a task in the target list at the desired position and
// persists list and position together. A stale list snapshot is re-read up
// to the retry bound before ErrConcurrentModification is returned. The task
// version is pinned by the first read, so a task changed by another writer
// is never silently overwritten.
func (s *Service) Move(ctx context.Context, orgID, userID string, req MoveRequest) (*MoveResult, error) {
	desired, err := position.Normalize(req.Position)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}

	pinned := req.ExpectedVersion
	for attempt := 0; ; attempt++ {
		current, err := s.Get(ctx, orgID, req.TaskID)
		if err != nil {
			return nil, err
		}
		if pinned == nil {
			pinned = &current.Version
		} else if current.Version != *pinned {
			return nil, ErrConcurrentModification
		}

		snap, err := s.snapshot(ctx, orgID, req.TargetListID)
		if err != nil {
			return nil, err
		}

		if current.ListID == snap.ListID && current.Position.Equal(desired) {
			return &MoveResult{Task: current, Unchanged: true}, nil
		}

		siblings := make([]position.Sibling, 0, len(snap.Siblings))
		for _, sib := range snap.Siblings {
			if sib.ID != current.ID {
				siblings = append(siblings, sib)
			}
		}
		placement, err := position.Place(siblings, desired, s.params)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
		}

		now := time.Now().UTC()
		moved := *current
		moved.ListID = snap.ListID
		moved.Position = placement.Position
		moved.Version = current.Version + 1
		moved.UpdatedAt = now

		mv := Move{
			Task:            &moved,
			ExpectedVersion: current.Version,
			ExpectedSeq:     snap.Seq,
			Renumbered:      placement.Renumbered,
			Log:             moveLog(current, &moved, userID, placement, now),
		}

		err = s.tasks.ApplyMove(ctx, orgID, mv)
		if errors.Is(err, repository.ErrConflict) && attempt < s.maxRetries {
			if s.logger != nil {
				s.logger.Debug("move conflict, retrying", "task_id", req.TaskID, "attempt", attempt+1)
			}
			continue
		}
		if err != nil {
			return nil, s.translateWrite(err, "moving task")
		}

		if len(placement.Renumbered) > 0 && s.logger != nil {
			s.logger.Info("renumbered list run", "list_id", snap.ListID, "run_size", len(placement.Renumbered))
		}
		s.publish(ctx, orgID, Event{Type: EventMoved, TaskID: moved.ID, Task: &moved, FromListID: current.ListID})
		return &MoveResult{
			Task:       &moved,
			Collided:   placement.Collided,
			Renumbered: len(placement.Renumbered),
		}, nil
	}
}

// Update edits a task's fields. With ExpectedVersion set the update fails
// on any intervening change; without it a stale read is retried.
func (s *Service) Update(ctx context.Context, orgID, userID string, req UpdateRequest) (*Task, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		current, err := s.Get(ctx, orgID, req.TaskID)
		if err != nil {
			return nil, err
		}
		if req.ExpectedVersion != nil && current.Version != *req.ExpectedVersion {
			return nil, ErrConcurrentModification
		}

		updated := req.apply(current)
		now := time.Now().UTC()
		log := updateLog(current, updated, userID, now)
		if len(log) == 0 {
			return current, nil
		}
		updated.Version = current.Version + 1
		updated.UpdatedAt = now

		err = s.tasks.Update(ctx, orgID, updated, current.Version, log)
		if errors.Is(err, repository.ErrStale) && req.ExpectedVersion == nil && attempt < s.maxRetries {
			continue
		}
		if err != nil {
			return nil, s.translateWrite(err, "updating task")
		}

		s.publish(ctx, orgID, Event{Type: EventUpdated, TaskID: updated.ID, Task: updated})
		return updated, nil
	}
}

// Delete removes a task. Its siblings keep their positions.
func (s *Service) Delete(ctx context.Context, orgID, userID, id string) error {
	current, err := s.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	log := []activity.Entry{{
		TaskID:    id,
		UserID:    optional(userID),
		Type:      activity.TypeDeleted,
		Content:   &current.Title,
		Metadata:  map[string]string{"list": current.ListID},
		CreatedAt: time.Now().UTC(),
	}}
	if err := s.tasks.Delete(ctx, orgID, id, log); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("deleting task: %w", err)
	}
	s.publish(ctx, orgID, Event{Type: EventDeleted, TaskID: id, FromListID: current.ListID})
	return nil
}

func (s *Service) snapshot(ctx context.Context, orgID, listID string) (*Snapshot, error) {
	snap, err := s.tasks.Snapshot(ctx, orgID, listID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidTarget
		}
		return nil, fmt.Errorf("reading list snapshot: %w", err)
	}
	return snap, nil
}

func (s *Service) translateWrite(err error, action string) error {
	switch {
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrStale):
		return ErrConcurrentModification
	case errors.Is(err, repository.ErrNotFound):
		return ErrTaskNotFound
	case errors.Is(err, repository.ErrForeignKeyViolation):
		return ErrInvalidTarget
	}
	return fmt.Errorf("%s: %w", action, err)
}

func (s *Service) publish(ctx context.Context, orgID string, event Event) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, orgID, event)
	}
}

func moveLog(from, to *Task, userID string, placement position.Placement, at time.Time) []activity.Entry {
	log := []activity.Entry{{
		TaskID: to.ID,
		UserID: optional(userID),
		Type:   activity.TypeMoved,
		Metadata: map[string]string{
			"from_list": from.ListID,
			"to_list":   to.ListID,
			"position":  to.Position.String(),
		},
		CreatedAt: at,
	}}
	if len(placement.Renumbered) > 0 {
		log = append(log, activity.Entry{
			TaskID: to.ID,
			UserID: optional(userID),
			Type:   activity.TypePositionsRebalanced,
			Metadata: map[string]string{
				"list":       to.ListID,
				"renumbered": strconv.Itoa(len(placement.Renumbered)),
			},
			CreatedAt: at,
		})
	}
	return log
}

func updateLog(from, to *Task, userID string, at time.Time) []activity.Entry {
	var log []activity.Entry
	entry := func(typ activity.Type, metadata map[string]string) {
		log = append(log, activity.Entry{
			TaskID:    to.ID,
			UserID:    optional(userID),
			Type:      typ,
			Metadata:  metadata,
			CreatedAt: at,
		})
	}
	if from.Status != to.Status {
		entry(activity.TypeStatusChanged, map[string]string{"from": string(from.Status), "to": string(to.Status)})
	}
	if from.Priority != to.Priority {
		entry(activity.TypePriorityChanged, map[string]string{"from": string(from.Priority), "to": string(to.Priority)})
	}
	var fields []string
	if from.Title != to.Title {
		fields = append(fields, "title")
	}
	if deref(from.Description) != deref(to.Description) {
		fields = append(fields, "description")
	}
	if len(fields) > 0 {
		entry(activity.TypeUpdated, map[string]string{"fields": strings.Join(fields, ",")})
	}
	return log
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
