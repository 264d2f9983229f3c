package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/tasklane/internal/domain/activity"
	"github.com/rpggio/tasklane/internal/domain/position"
	"github.com/rpggio/tasklane/internal/repository"
	"github.com/shopspring/decimal"
)

// BulkMove is one entry of a bulk move.
type BulkMove struct {
	TaskID   string
	Position decimal.Decimal
}

// BulkMoveRequest moves several tasks at once. An empty TargetListID keeps
// each task in its current list. TargetStatus, when set, applies to every
// moved task.
type BulkMoveRequest struct {
	TargetListID string
	TargetStatus *Status
	Moves        []BulkMove
}

// listState is a list snapshot advanced by the moves planned so far.
type listState struct {
	seq      int64
	siblings []position.Sibling
}

func (l *listState) remove(id string) {
	kept := l.siblings[:0]
	for _, sib := range l.siblings {
		if sib.ID != id {
			kept = append(kept, sib)
		}
	}
	l.siblings = kept
}

func (l *listState) place(moved position.Sibling, renumbered []position.Sibling) {
	l.remove(moved.ID)
	next := make(map[string]decimal.Decimal, len(renumbered))
	for _, sib := range renumbered {
		next[sib.ID] = sib.Position
	}
	for i, sib := range l.siblings {
		if p, ok := next[sib.ID]; ok {
			l.siblings[i].Position = p
		}
	}
	l.siblings = append(l.siblings, moved)
	position.Sort(l.siblings)
}

// MoveMany places every task of the request in order and commits all of
// them in one transaction. Each move sees the lists as left by the moves
// before it.
func (s *Service) MoveMany(ctx context.Context, orgID, userID string, req BulkMoveRequest) ([]MoveResult, error) {
	if len(req.Moves) == 0 {
		return nil, fmt.Errorf("%w: no moves given", ErrInvalidInput)
	}
	if req.TargetStatus != nil && !req.TargetStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *req.TargetStatus)
	}
	desired := make([]decimal.Decimal, len(req.Moves))
	seen := make(map[string]bool, len(req.Moves))
	for i, m := range req.Moves {
		if m.TaskID == "" {
			return nil, fmt.Errorf("%w: task id is required", ErrInvalidInput)
		}
		if seen[m.TaskID] {
			return nil, fmt.Errorf("%w: task %s listed twice", ErrInvalidInput, m.TaskID)
		}
		seen[m.TaskID] = true
		p, err := position.Normalize(m.Position)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
		}
		desired[i] = p
	}

	pinned := make(map[string]int64, len(req.Moves))
	for attempt := 0; ; attempt++ {
		results, moves, err := s.planMoves(ctx, orgID, userID, req, desired, pinned)
		if err != nil {
			return nil, err
		}
		if len(moves) == 0 {
			return results, nil
		}

		err = s.tasks.ApplyMoves(ctx, orgID, moves)
		if errors.Is(err, repository.ErrConflict) && attempt < s.maxRetries {
			if s.logger != nil {
				s.logger.Debug("bulk move conflict, retrying", "moves", len(moves), "attempt", attempt+1)
			}
			continue
		}
		if err != nil {
			return nil, s.translateWrite(err, "moving tasks")
		}

		for _, mv := range moves {
			s.publish(ctx, orgID, Event{Type: EventMoved, TaskID: mv.Task.ID, Task: mv.Task, FromListID: mv.Log[0].Metadata["from_list"]})
		}
		return results, nil
	}
}

func (s *Service) planMoves(ctx context.Context, orgID, userID string, req BulkMoveRequest, desired []decimal.Decimal, pinned map[string]int64) ([]MoveResult, []Move, error) {
	currents := make([]*Task, len(req.Moves))
	lists := make(map[string]*listState)
	for i, m := range req.Moves {
		current, err := s.Get(ctx, orgID, m.TaskID)
		if err != nil {
			return nil, nil, err
		}
		if v, ok := pinned[current.ID]; ok && v != current.Version {
			return nil, nil, ErrConcurrentModification
		}
		pinned[current.ID] = current.Version
		currents[i] = current

		target := req.TargetListID
		if target == "" {
			target = current.ListID
		}
		if _, ok := lists[target]; ok {
			continue
		}
		snap, err := s.snapshot(ctx, orgID, target)
		if err != nil {
			return nil, nil, err
		}
		lists[target] = &listState{seq: snap.Seq, siblings: append([]position.Sibling(nil), snap.Siblings...)}
	}

	now := time.Now().UTC()
	results := make([]MoveResult, len(req.Moves))
	var moves []Move
	for i, current := range currents {
		targetID := req.TargetListID
		if targetID == "" {
			targetID = current.ListID
		}
		target := lists[targetID]
		status := current.Status
		if req.TargetStatus != nil {
			status = *req.TargetStatus
		}
		if current.ListID == targetID && current.Position.Equal(desired[i]) && current.Status == status {
			results[i] = MoveResult{Task: current, Unchanged: true}
			continue
		}

		siblings := make([]position.Sibling, 0, len(target.siblings))
		for _, sib := range target.siblings {
			if sib.ID != current.ID {
				siblings = append(siblings, sib)
			}
		}
		placement, err := position.Place(siblings, desired[i], s.params)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
		}

		moved := *current
		moved.ListID = targetID
		moved.Position = placement.Position
		moved.Status = status
		moved.Version = current.Version + 1
		moved.UpdatedAt = now

		log := moveLog(current, &moved, userID, placement, now)
		if current.Status != status {
			log = append(log, activity.Entry{
				TaskID:    moved.ID,
				UserID:    optional(userID),
				Type:      activity.TypeStatusChanged,
				Metadata:  map[string]string{"from": string(current.Status), "to": string(status)},
				CreatedAt: now,
			})
		}
		moves = append(moves, Move{
			Task:            &moved,
			ExpectedVersion: current.Version,
			ExpectedSeq:     target.seq,
			Renumbered:      placement.Renumbered,
			Log:             log,
		})
		results[i] = MoveResult{Task: &moved, Collided: placement.Collided, Renumbered: len(placement.Renumbered)}

		// Committing a move advances the target list and, when the task
		// leaves another list, that list too.
		target.seq++
		target.place(moved.Sibling(), placement.Renumbered)
		if source, ok := lists[current.ListID]; ok && current.ListID != targetID {
			source.seq++
			source.remove(current.ID)
		}
	}
	return results, moves, nil
}
