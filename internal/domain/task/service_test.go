package task_test

import (
	"context"
	"testing"

	"github.com/rpggio/tasklane/internal/domain/activity"
	"github.com/rpggio/tasklane/internal/domain/position"
	"github.com/rpggio/tasklane/internal/domain/task"
	"github.com/rpggio/tasklane/internal/repository"
	"github.com/rpggio/tasklane/internal/repository/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const orgID = "org1"

func pos(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func listSnapshot(listID string, seq int64, positions map[string]int64) *task.Snapshot {
	snap := &task.Snapshot{ListID: listID, Seq: seq}
	for id, p := range positions {
		snap.Siblings = append(snap.Siblings, position.Sibling{ID: id, Position: pos(p)})
	}
	return snap
}

func newService(repo *mocks.TaskRepository, pub task.Publisher) *task.Service {
	return task.NewService(repo, pub, position.DefaultParams(), 3, nil)
}

func TestTaskService_Move_BetweenNeighbors(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	pub := &mocks.Publisher{}

	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", ListID: "list1", Position: pos(1000), Version: 4}, nil)
	repo.On("Snapshot", ctx, orgID, "list2").Return(listSnapshot("list2", 9, map[string]int64{"a": 100, "b": 200, "c": 300}), nil)
	repo.On("ApplyMove", ctx, orgID, mock.MatchedBy(func(mv task.Move) bool {
		return mv.Task.ListID == "list2" &&
			mv.Task.Position.Equal(pos(150)) &&
			mv.Task.Version == 5 &&
			mv.ExpectedVersion == 4 &&
			mv.ExpectedSeq == 9 &&
			len(mv.Renumbered) == 0 &&
			len(mv.Log) == 1 && mv.Log[0].Type == activity.TypeMoved
	})).Return(nil)
	pub.On("Publish", ctx, orgID, mock.MatchedBy(func(e task.Event) bool {
		return e.Type == task.EventMoved && e.FromListID == "list1"
	})).Return()

	result, err := newService(repo, pub).Move(ctx, orgID, "u1", task.MoveRequest{
		TaskID: "x", TargetListID: "list2", Position: pos(150),
	})
	require.NoError(t, err)
	require.Equal(t, "list2", result.Task.ListID)
	require.True(t, result.Task.Position.GreaterThan(pos(100)))
	require.True(t, result.Task.Position.LessThan(pos(200)))
	require.False(t, result.Collided)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestTaskService_Move_CollisionRenumbersRun(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	snap := &task.Snapshot{ListID: "list1", Seq: 2, Siblings: []position.Sibling{
		{ID: "a", Position: pos(100)},
		{ID: "b", Position: decimal.RequireFromString("150")},
		{ID: "c", Position: decimal.RequireFromString("150.000001")},
		{ID: "d", Position: pos(200)},
	}}
	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", ListID: "list1", Position: pos(5000), Version: 1}, nil)
	repo.On("Snapshot", ctx, orgID, "list1").Return(snap, nil)
	repo.On("ApplyMove", ctx, orgID, mock.MatchedBy(func(mv task.Move) bool {
		return len(mv.Renumbered) == 2 && len(mv.Log) == 2 && mv.Log[1].Type == activity.TypePositionsRebalanced
	})).Return(nil)

	result, err := newService(repo, nil).Move(ctx, orgID, "u1", task.MoveRequest{
		TaskID: "x", TargetListID: "list1", Position: pos(150),
	})
	require.NoError(t, err)
	require.True(t, result.Collided)
	require.Equal(t, 2, result.Renumbered)
	require.True(t, result.Task.Position.GreaterThan(pos(100)))
	require.True(t, result.Task.Position.LessThan(pos(200)))
}

func TestTaskService_Move_SamePositionIsNoOp(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	current := &task.Task{ID: "x", ListID: "list1", Position: pos(500), Version: 3}
	repo.On("Get", ctx, orgID, "x").Return(current, nil)
	repo.On("Snapshot", ctx, orgID, "list1").Return(listSnapshot("list1", 1, map[string]int64{"x": 500, "y": 1000}), nil)

	result, err := newService(repo, nil).Move(ctx, orgID, "u1", task.MoveRequest{
		TaskID: "x", TargetListID: "list1", Position: pos(500),
	})
	require.NoError(t, err)
	require.True(t, result.Unchanged)
	require.Equal(t, int64(3), result.Task.Version)
	repo.AssertNotCalled(t, "ApplyMove", mock.Anything, mock.Anything, mock.Anything)
}

func TestTaskService_Move_TaskNotFound(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Get", ctx, orgID, "missing").Return(nil, repository.ErrNotFound)

	_, err := newService(repo, nil).Move(ctx, orgID, "u1", task.MoveRequest{
		TaskID: "missing", TargetListID: "list1", Position: pos(1),
	})
	require.ErrorIs(t, err, task.ErrTaskNotFound)
}

func TestTaskService_Move_InvalidTarget(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", ListID: "list1", Version: 1}, nil)
	repo.On("Snapshot", ctx, orgID, "elsewhere").Return(nil, repository.ErrNotFound)

	_, err := newService(repo, nil).Move(ctx, orgID, "u1", task.MoveRequest{
		TaskID: "x", TargetListID: "elsewhere", Position: pos(1),
	})
	require.ErrorIs(t, err, task.ErrInvalidTarget)
}

func TestTaskService_Move_InvalidPosition(t *testing.T) {
	_, err := newService(&mocks.TaskRepository{}, nil).Move(context.Background(), orgID, "u1", task.MoveRequest{
		TaskID: "x", TargetListID: "list1", Position: decimal.New(1, 13),
	})
	require.ErrorIs(t, err, task.ErrInvalidPosition)
}

func TestTaskService_Move_RetriesStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", ListID: "list1", Position: pos(10), Version: 1}, nil)
	repo.On("Snapshot", ctx, orgID, "list2").Return(listSnapshot("list2", 1, map[string]int64{"a": 500}), nil).Once()
	repo.On("Snapshot", ctx, orgID, "list2").Return(listSnapshot("list2", 2, map[string]int64{"a": 500, "b": 1000}), nil).Once()
	repo.On("ApplyMove", ctx, orgID, mock.MatchedBy(func(mv task.Move) bool { return mv.ExpectedSeq == 1 })).Return(repository.ErrConflict).Once()
	repo.On("ApplyMove", ctx, orgID, mock.MatchedBy(func(mv task.Move) bool { return mv.ExpectedSeq == 2 })).Return(nil).Once()

	result, err := newService(repo, nil).Move(ctx, orgID, "u1", task.MoveRequest{
		TaskID: "x", TargetListID: "list2", Position: pos(500),
	})
	require.NoError(t, err)
	require.True(t, result.Task.Position.Equal(pos(750)))
	repo.AssertNumberOfCalls(t, "Snapshot", 2)
}

func TestTaskService_Move_RetriesExhausted(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", ListID: "list1", Position: pos(10), Version: 1}, nil)
	repo.On("Snapshot", ctx, orgID, "list2").Return(listSnapshot("list2", 1, nil), nil)
	repo.On("ApplyMove", ctx, orgID, mock.Anything).Return(repository.ErrConflict)

	_, err := newService(repo, nil).Move(ctx, orgID, "u1", task.MoveRequest{
		TaskID: "x", TargetListID: "list2", Position: pos(500),
	})
	require.ErrorIs(t, err, task.ErrConcurrentModification)
	repo.AssertNumberOfCalls(t, "ApplyMove", 4)
}

func TestTaskService_Move_StaleVersionFailsWithoutRetry(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	// Both callers read version 1; the first commit bumps it to 2.
	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", ListID: "list1", Position: pos(10), Version: 1}, nil).Twice()
	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", ListID: "list2", Position: pos(500), Version: 2}, nil)
	repo.On("Snapshot", ctx, orgID, "list2").Return(listSnapshot("list2", 1, nil), nil)
	repo.On("ApplyMove", ctx, orgID, mock.Anything).Return(nil).Once()
	repo.On("ApplyMove", ctx, orgID, mock.Anything).Return(repository.ErrStale).Once()

	svc := newService(repo, nil)
	expected := int64(1)

	_, err := svc.Move(ctx, orgID, "u1", task.MoveRequest{
		TaskID: "x", TargetListID: "list2", Position: pos(500), ExpectedVersion: &expected,
	})
	require.NoError(t, err)

	_, err = svc.Move(ctx, orgID, "u2", task.MoveRequest{
		TaskID: "x", TargetListID: "list2", Position: pos(700), ExpectedVersion: &expected,
	})
	require.ErrorIs(t, err, task.ErrConcurrentModification)
	repo.AssertNumberOfCalls(t, "ApplyMove", 2)
}

func TestTaskService_Move_StaleVersionWithoutExpectedVersion(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	// Another writer committed between the read and the write.
	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", ListID: "list1", Position: pos(10), Version: 1}, nil)
	repo.On("Snapshot", ctx, orgID, "list2").Return(listSnapshot("list2", 1, nil), nil)
	repo.On("ApplyMove", ctx, orgID, mock.Anything).Return(repository.ErrStale)

	_, err := newService(repo, nil).Move(ctx, orgID, "u1", task.MoveRequest{
		TaskID: "x", TargetListID: "list2", Position: pos(500),
	})
	require.ErrorIs(t, err, task.ErrConcurrentModification)
	repo.AssertNumberOfCalls(t, "ApplyMove", 1)
	repo.AssertNumberOfCalls(t, "Get", 1)
}

func TestTaskService_Move_RetryKeepsFirstVersion(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	// The list changed and so did the task; the retry must not take the
	// newer version as its own.
	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", ListID: "list1", Position: pos(10), Version: 1}, nil).Once()
	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", ListID: "list3", Position: pos(90), Version: 2}, nil).Once()
	repo.On("Snapshot", ctx, orgID, "list2").Return(listSnapshot("list2", 1, nil), nil)
	repo.On("ApplyMove", ctx, orgID, mock.Anything).Return(repository.ErrConflict).Once()

	_, err := newService(repo, nil).Move(ctx, orgID, "u1", task.MoveRequest{
		TaskID: "x", TargetListID: "list2", Position: pos(500),
	})
	require.ErrorIs(t, err, task.ErrConcurrentModification)
	repo.AssertNumberOfCalls(t, "ApplyMove", 1)
}

func TestTaskService_Create_AppendsToList(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	pub := &mocks.Publisher{}

	repo.On("Snapshot", ctx, orgID, "list1").Return(listSnapshot("list1", 4, map[string]int64{"a": 1000, "b": 2000}), nil)
	repo.On("Insert", ctx, orgID, mock.MatchedBy(func(tk *task.Task) bool {
		return tk.Position.Equal(pos(3000)) && tk.Status == task.StatusTodo && tk.Priority == task.PriorityMedium
	}), int64(4), mock.Anything).Return(nil)
	pub.On("Publish", ctx, orgID, mock.Anything).Return()

	created, err := newService(repo, pub).Create(ctx, orgID, "u1", task.CreateRequest{ListID: "list1", Title: "Test Task 1"})
	require.NoError(t, err)
	require.Equal(t, int64(1), created.Version)
	require.Equal(t, "u1", *created.CreatedBy)
	pub.AssertExpectations(t)
}

func TestTaskService_Create_Validation(t *testing.T) {
	svc := newService(&mocks.TaskRepository{}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, orgID, "u1", task.CreateRequest{ListID: "list1"})
	require.ErrorIs(t, err, task.ErrInvalidInput)

	_, err = svc.Create(ctx, orgID, "u1", task.CreateRequest{ListID: "list1", Title: "t", Status: "blocked"})
	require.ErrorIs(t, err, task.ErrInvalidInput)

	_, err = svc.Create(ctx, orgID, "u1", task.CreateRequest{ListID: "list1", Title: "t", Priority: "urgent"})
	require.ErrorIs(t, err, task.ErrInvalidInput)
}

func TestTaskService_Create_UnknownList(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Snapshot", ctx, orgID, "nope").Return(nil, repository.ErrNotFound)

	_, err := newService(repo, nil).Create(ctx, orgID, "u1", task.CreateRequest{ListID: "nope", Title: "t"})
	require.ErrorIs(t, err, task.ErrInvalidTarget)
}

func TestTaskService_Delete(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", ListID: "list1", Title: "t"}, nil)
	repo.On("Delete", ctx, orgID, "x", mock.MatchedBy(func(log []activity.Entry) bool {
		return len(log) == 1 && log[0].Type == activity.TypeDeleted
	})).Return(nil)

	require.NoError(t, newService(repo, nil).Delete(ctx, orgID, "u1", "x"))
}

func TestTaskService_ListByList_UnknownList(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("ListByList", ctx, orgID, "nope", false).Return(nil, repository.ErrNotFound)

	_, err := newService(repo, nil).ListByList(ctx, orgID, "nope", false)
	require.ErrorIs(t, err, task.ErrInvalidTarget)
}

func TestTaskService_Create_NoRoomAfterLast(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Snapshot", ctx, orgID, "list1").Return(&task.Snapshot{ListID: "list1", Seq: 1, Siblings: []position.Sibling{
		{ID: "a", Position: decimal.RequireFromString("999999999999.999999")},
	}}, nil)

	_, err := newService(repo, nil).Create(ctx, orgID, "u1", task.CreateRequest{ListID: "list1", Title: "t"})
	require.ErrorIs(t, err, task.ErrInvalidPosition)
	require.ErrorIs(t, err, position.ErrNoRoom)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func ptr[T any](v T) *T {
	return &v
}

func TestTaskService_Update_LogsChanges(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	pub := &mocks.Publisher{}

	current := &task.Task{ID: "x", ListID: "list1", Title: "Old", Status: task.StatusTodo, Priority: task.PriorityMedium, Position: pos(100), Version: 3}
	repo.On("Get", ctx, orgID, "x").Return(current, nil)
	repo.On("Update", ctx, orgID, mock.MatchedBy(func(tk *task.Task) bool {
		return tk.Title == "New" && tk.Status == task.StatusDone && tk.Version == 4 && tk.Position.Equal(pos(100))
	}), int64(3), mock.MatchedBy(func(log []activity.Entry) bool {
		return len(log) == 2 &&
			log[0].Type == activity.TypeStatusChanged && log[0].Metadata["to"] == "done" &&
			log[1].Type == activity.TypeUpdated && log[1].Metadata["fields"] == "title"
	})).Return(nil)
	pub.On("Publish", ctx, orgID, mock.MatchedBy(func(e task.Event) bool {
		return e.Type == task.EventUpdated && e.TaskID == "x"
	})).Return()

	updated, err := newService(repo, pub).Update(ctx, orgID, "u1", task.UpdateRequest{
		TaskID: "x", Title: ptr(" New "), Status: ptr(task.StatusDone), ExpectedVersion: ptr(int64(3)),
	})
	require.NoError(t, err)
	require.Equal(t, int64(4), updated.Version)
	require.Equal(t, "Old", current.Title)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestTaskService_Update_VersionMismatch(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", Title: "t", Version: 5}, nil)

	_, err := newService(repo, nil).Update(ctx, orgID, "u1", task.UpdateRequest{
		TaskID: "x", Title: ptr("n"), ExpectedVersion: ptr(int64(4)),
	})
	require.ErrorIs(t, err, task.ErrConcurrentModification)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTaskService_Update_StaleWriteWithVersionFails(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", Title: "t", Version: 1}, nil)
	repo.On("Update", ctx, orgID, mock.Anything, int64(1), mock.Anything).Return(repository.ErrStale)

	_, err := newService(repo, nil).Update(ctx, orgID, "u1", task.UpdateRequest{
		TaskID: "x", Title: ptr("n"), ExpectedVersion: ptr(int64(1)),
	})
	require.ErrorIs(t, err, task.ErrConcurrentModification)
	repo.AssertNumberOfCalls(t, "Update", 1)
}

func TestTaskService_Update_PartialRetriesStaleRead(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", Title: "t", Priority: task.PriorityLow, Version: 1}, nil).Once()
	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", Title: "t2", Priority: task.PriorityLow, Version: 2}, nil).Once()
	repo.On("Update", ctx, orgID, mock.Anything, int64(1), mock.Anything).Return(repository.ErrStale).Once()
	repo.On("Update", ctx, orgID, mock.MatchedBy(func(tk *task.Task) bool {
		return tk.Title == "t2" && tk.Priority == task.PriorityHigh
	}), int64(2), mock.MatchedBy(func(log []activity.Entry) bool {
		return len(log) == 1 && log[0].Type == activity.TypePriorityChanged
	})).Return(nil).Once()

	updated, err := newService(repo, nil).Update(ctx, orgID, "u1", task.UpdateRequest{
		TaskID: "x", Priority: ptr(task.PriorityHigh),
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), updated.Version)
	repo.AssertExpectations(t)
}

func TestTaskService_Update_NoChange(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", Title: "t", Status: task.StatusTodo, Version: 2}, nil)

	updated, err := newService(repo, nil).Update(ctx, orgID, "u1", task.UpdateRequest{
		TaskID: "x", Title: ptr("t"), Status: ptr(task.StatusTodo),
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), updated.Version)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTaskService_Update_Validation(t *testing.T) {
	svc := newService(&mocks.TaskRepository{}, nil)
	ctx := context.Background()

	_, err := svc.Update(ctx, orgID, "u1", task.UpdateRequest{TaskID: "x", Title: ptr("  ")})
	require.ErrorIs(t, err, task.ErrInvalidInput)
	_, err = svc.Update(ctx, orgID, "u1", task.UpdateRequest{TaskID: "x", Status: ptr(task.Status("blocked"))})
	require.ErrorIs(t, err, task.ErrInvalidInput)
	_, err = svc.Update(ctx, orgID, "u1", task.UpdateRequest{TaskID: "x", Priority: ptr(task.Priority("urgent"))})
	require.ErrorIs(t, err, task.ErrInvalidInput)
}

func TestTaskService_MoveMany_SequencesMovesInOneList(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	pub := &mocks.Publisher{}

	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", ListID: "list1", Position: pos(3000), Version: 1}, nil)
	repo.On("Get", ctx, orgID, "y").Return(&task.Task{ID: "y", ListID: "list1", Position: pos(4000), Version: 7}, nil)
	repo.On("Snapshot", ctx, orgID, "list1").Return(listSnapshot("list1", 10, map[string]int64{"a": 1000, "b": 2000, "x": 3000, "y": 4000}), nil).Once()
	repo.On("ApplyMoves", ctx, orgID, mock.MatchedBy(func(moves []task.Move) bool {
		// y lands at 1500, which x took first.
		return len(moves) == 2 &&
			moves[0].Task.ID == "x" && moves[0].Task.Position.Equal(pos(1500)) && moves[0].ExpectedSeq == 10 &&
			moves[1].Task.ID == "y" && moves[1].ExpectedSeq == 11 && moves[1].ExpectedVersion == 7 &&
			moves[1].Task.Position.GreaterThan(pos(1500)) && moves[1].Task.Position.LessThan(pos(2000))
	})).Return(nil)
	pub.On("Publish", ctx, orgID, mock.MatchedBy(func(e task.Event) bool { return e.Type == task.EventMoved })).Return().Twice()

	results, err := newService(repo, pub).MoveMany(ctx, orgID, "u1", task.BulkMoveRequest{Moves: []task.BulkMove{
		{TaskID: "x", Position: pos(1500)},
		{TaskID: "y", Position: pos(1500)},
	}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.False(t, results[0].Collided)
	require.True(t, results[1].Collided)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestTaskService_MoveMany_AcrossListsWithStatus(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", ListID: "list1", Status: task.StatusTodo, Position: pos(1000), Version: 1}, nil)
	repo.On("Snapshot", ctx, orgID, "done").Return(listSnapshot("done", 3, map[string]int64{"d": 1000}), nil)
	repo.On("ApplyMoves", ctx, orgID, mock.MatchedBy(func(moves []task.Move) bool {
		mv := moves[0]
		return mv.Task.ListID == "done" && mv.Task.Status == task.StatusDone &&
			mv.Task.Position.Equal(pos(2000)) && mv.ExpectedSeq == 3 &&
			len(mv.Log) == 2 && mv.Log[1].Type == activity.TypeStatusChanged
	})).Return(nil)

	done := task.StatusDone
	results, err := newService(repo, nil).MoveMany(ctx, orgID, "u1", task.BulkMoveRequest{
		TargetListID: "done",
		TargetStatus: &done,
		Moves:        []task.BulkMove{{TaskID: "x", Position: pos(1000)}},
	})
	require.NoError(t, err)
	require.True(t, results[0].Collided)
	repo.AssertExpectations(t)
}

func TestTaskService_MoveMany_RetriesStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", ListID: "list1", Position: pos(100), Version: 1}, nil)
	repo.On("Snapshot", ctx, orgID, "list2").Return(listSnapshot("list2", 1, nil), nil).Once()
	repo.On("Snapshot", ctx, orgID, "list2").Return(listSnapshot("list2", 2, map[string]int64{"z": 500, "w": 1000}), nil).Once()
	repo.On("ApplyMoves", ctx, orgID, mock.Anything).Return(repository.ErrConflict).Once()
	repo.On("ApplyMoves", ctx, orgID, mock.MatchedBy(func(moves []task.Move) bool {
		return moves[0].ExpectedSeq == 2 && moves[0].Task.Position.Equal(pos(750))
	})).Return(nil).Once()

	_, err := newService(repo, nil).MoveMany(ctx, orgID, "u1", task.BulkMoveRequest{
		TargetListID: "list2",
		Moves:        []task.BulkMove{{TaskID: "x", Position: pos(500)}},
	})
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "ApplyMoves", 2)
}

func TestTaskService_MoveMany_StaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}

	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", ListID: "list1", Position: pos(100), Version: 1}, nil)
	repo.On("Snapshot", ctx, orgID, "list1").Return(listSnapshot("list1", 1, map[string]int64{"x": 100}), nil)
	repo.On("ApplyMoves", ctx, orgID, mock.Anything).Return(repository.ErrStale)

	_, err := newService(repo, nil).MoveMany(ctx, orgID, "u1", task.BulkMoveRequest{
		Moves: []task.BulkMove{{TaskID: "x", Position: pos(900)}},
	})
	require.ErrorIs(t, err, task.ErrConcurrentModification)
	repo.AssertNumberOfCalls(t, "ApplyMoves", 1)
}

func TestTaskService_MoveMany_Validation(t *testing.T) {
	svc := newService(&mocks.TaskRepository{}, nil)
	ctx := context.Background()

	_, err := svc.MoveMany(ctx, orgID, "u1", task.BulkMoveRequest{})
	require.ErrorIs(t, err, task.ErrInvalidInput)

	_, err = svc.MoveMany(ctx, orgID, "u1", task.BulkMoveRequest{Moves: []task.BulkMove{
		{TaskID: "x", Position: pos(1)}, {TaskID: "x", Position: pos(2)},
	}})
	require.ErrorIs(t, err, task.ErrInvalidInput)

	_, err = svc.MoveMany(ctx, orgID, "u1", task.BulkMoveRequest{Moves: []task.BulkMove{
		{TaskID: "x", Position: decimal.New(1, 13)},
	}})
	require.ErrorIs(t, err, task.ErrInvalidPosition)
}

func TestTaskService_MoveMany_MissingTask(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskRepository{}
	repo.On("Get", ctx, orgID, "x").Return(&task.Task{ID: "x", ListID: "list1", Version: 1}, nil)
	repo.On("Snapshot", ctx, orgID, "list1").Return(listSnapshot("list1", 1, nil), nil)
	repo.On("Get", ctx, orgID, "ghost").Return(nil, repository.ErrNotFound)

	_, err := newService(repo, nil).MoveMany(ctx, orgID, "u1", task.BulkMoveRequest{Moves: []task.BulkMove{
		{TaskID: "x", Position: pos(1)}, {TaskID: "ghost", Position: pos(2)},
	}})
	require.ErrorIs(t, err, task.ErrTaskNotFound)
	repo.AssertNotCalled(t, "ApplyMoves", mock.Anything, mock.Anything, mock.Anything)
}
