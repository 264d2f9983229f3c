package integration_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rpggio/tasklane/internal/client"
	"github.com/rpggio/tasklane/internal/domain/activity"
	"github.com/rpggio/tasklane/internal/domain/position"
	"github.com/rpggio/tasklane/internal/domain/task"
	"github.com/rpggio/tasklane/internal/realtime"
	"github.com/rpggio/tasklane/internal/smoke"
	"github.com/rpggio/tasklane/internal/sqlite"
	"github.com/rpggio/tasklane/internal/testserver"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func firstList(t *testing.T, c *client.Client) (projectID, listID string) {
	t.Helper()
	tree, err := c.Hierarchy(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, tree.Spaces)
	require.NotEmpty(t, tree.Spaces[0].Projects)
	require.NotEmpty(t, tree.Spaces[0].Projects[0].Lists)
	p := tree.Spaces[0].Projects[0]
	return p.Project.ID, p.Lists[0].ID
}

func requireOrdered(t *testing.T, tasks []task.Task) {
	t.Helper()
	for i := 1; i < len(tasks); i++ {
		require.True(t, tasks[i-1].Position.LessThan(tasks[i].Position),
			"positions %s and %s not strictly increasing", tasks[i-1].Position, tasks[i].Position)
	}
}

func TestIntegration_SmokeFlow(t *testing.T) {
	ts := testserver.New(t)

	var out bytes.Buffer
	report, err := smoke.Run(context.Background(), ts.Client(), &out, smoke.Options{})
	require.NoError(t, err, out.String())

	require.Equal(t, 7, strings.Count(out.String(), "\n"))
	require.Equal(t, report.TargetListID, report.Moved.ListID)
	require.True(t, report.Moved.Position.Equal(decimal.NewFromInt(500)))
	require.False(t, report.Moved.Collided)
	require.Equal(t, int64(2), report.Moved.Version)

	c := ts.Client()
	_, err = c.GetTask(context.Background(), report.TaskID)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "UNAUTHORIZED", apiErr.Code)
}

func TestIntegration_MoveCollisionAndNoOp(t *testing.T) {
	ts := testserver.New(t)
	acct := ts.NewAccount(t, "alice")
	ctx := context.Background()
	c := acct.Client

	projectID, source := firstList(t, c)
	target, err := c.CreateList(ctx, projectID, "Target")
	require.NoError(t, err)

	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		created, err := c.CreateTask(ctx, client.CreateTaskInput{Title: title, ListID: source})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	first, err := c.MoveTask(ctx, ids[0], client.MoveInput{TargetListID: target.ID, Position: decimal.NewFromInt(500)})
	require.NoError(t, err)
	require.False(t, first.Collided)

	// A taken position ranks the mover right after the holder.
	second, err := c.MoveTask(ctx, ids[1], client.MoveInput{TargetListID: target.ID, Position: decimal.NewFromInt(500)})
	require.NoError(t, err)
	require.True(t, second.Collided)
	require.True(t, second.Position.Equal(decimal.NewFromInt(1500)))

	third, err := c.MoveTask(ctx, ids[2], client.MoveInput{TargetListID: target.ID, Position: decimal.NewFromInt(500)})
	require.NoError(t, err)
	require.True(t, third.Position.Equal(decimal.NewFromInt(1000)))

	tasks, err := c.ListTasks(ctx, target.ID)
	require.NoError(t, err)
	require.Equal(t, []string{ids[0], ids[2], ids[1]}, []string{tasks[0].ID, tasks[1].ID, tasks[2].ID})
	requireOrdered(t, tasks)

	// Moving onto the current list and position changes nothing.
	same, err := c.MoveTask(ctx, ids[0], client.MoveInput{TargetListID: target.ID, Position: decimal.NewFromInt(500)})
	require.NoError(t, err)
	require.True(t, same.Unchanged)
	require.Equal(t, first.Version, same.Version)

	left, err := c.ListTasks(ctx, source)
	require.NoError(t, err)
	require.Empty(t, left)
}

func TestIntegration_MoveErrors(t *testing.T) {
	ts := testserver.New(t)
	alice := ts.NewAccount(t, "alice")
	bob := ts.NewAccount(t, "bob")
	ctx := context.Background()

	_, aliceList := firstList(t, alice.Client)
	_, bobList := firstList(t, bob.Client)

	created, err := alice.Client.CreateTask(ctx, client.CreateTaskInput{Title: "mine", ListID: aliceList})
	require.NoError(t, err)

	cases := []struct {
		name string
		c    *client.Client
		id   string
		in   client.MoveInput
		code string
	}{
		{"unknown task", alice.Client, "missing", client.MoveInput{TargetListID: aliceList, Position: decimal.NewFromInt(1)}, "ITEM_NOT_FOUND"},
		{"foreign task", bob.Client, created.ID, client.MoveInput{TargetListID: bobList, Position: decimal.NewFromInt(1)}, "ITEM_NOT_FOUND"},
		{"foreign list", alice.Client, created.ID, client.MoveInput{TargetListID: bobList, Position: decimal.NewFromInt(1)}, "INVALID_TARGET"},
		{"out of range", alice.Client, created.ID, client.MoveInput{TargetListID: aliceList, Position: decimal.New(1, 13)}, "INVALID_POSITION"},
		{"stale version", alice.Client, created.ID, client.MoveInput{TargetListID: aliceList, Position: decimal.NewFromInt(7), ExpectedVersion: ptr(created.Version + 5)}, "CONCURRENT_MODIFICATION"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.c.MoveTask(ctx, tc.id, tc.in)
			var apiErr *client.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tc.code, apiErr.Code)
		})
	}

	// Failed moves leave the task untouched.
	got, err := alice.Client.GetTask(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Version, got.Version)
	require.True(t, got.Position.Equal(created.Position))
}

func TestIntegration_RepeatedInsertsRenumberLocally(t *testing.T) {
	ts := testserver.New(t)
	acct := ts.NewAccount(t, "carol")
	ctx := context.Background()
	c := acct.Client

	projectID, source := firstList(t, c)
	target, err := c.CreateList(ctx, projectID, "Dense")
	require.NoError(t, err)

	low, err := c.CreateTask(ctx, client.CreateTaskInput{Title: "low", ListID: target.ID})
	require.NoError(t, err)
	anchor, err := c.CreateTask(ctx, client.CreateTaskInput{Title: "anchor", ListID: target.ID})
	require.NoError(t, err)
	high, err := c.CreateTask(ctx, client.CreateTaskInput{Title: "high", ListID: target.ID})
	require.NoError(t, err)

	renumbered := 0
	for i := range 40 {
		created, err := c.CreateTask(ctx, client.CreateTaskInput{Title: "mover", ListID: source})
		require.NoError(t, err, "create %d", i)
		res, err := c.MoveTask(ctx, created.ID, client.MoveInput{TargetListID: target.ID, Position: anchor.Position})
		require.NoError(t, err, "move %d", i)
		renumbered += res.Renumbered
	}
	require.Positive(t, renumbered)

	tasks, err := c.ListTasks(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 43)
	requireOrdered(t, tasks)
	// Every mover lands right after the anchor and only that run is respread.
	require.Equal(t, low.ID, tasks[0].ID)
	require.Equal(t, anchor.ID, tasks[1].ID)
	require.True(t, tasks[0].Position.Equal(low.Position))
	require.Equal(t, high.ID, tasks[len(tasks)-1].ID)
	require.True(t, tasks[len(tasks)-1].Position.Equal(high.Position))
}

func TestIntegration_ConcurrentMoves(t *testing.T) {
	ts := testserver.New(t)
	acct := ts.NewAccount(t, "dave")
	ctx := context.Background()

	projectID, source := firstList(t, acct.Client)
	target, err := acct.Client.CreateList(ctx, projectID, "Contended")
	require.NoError(t, err)

	const movers = 12
	ids := make([]string, movers)
	for i := range ids {
		created, err := acct.Client.CreateTask(ctx, client.CreateTaskInput{Title: "t", ListID: source})
		require.NoError(t, err)
		ids[i] = created.ID
	}

	results := make([]error, movers)
	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			_, results[i] = ts.App.Tasks.Move(ctx, acct.OrgID, acct.UserID, task.MoveRequest{
				TaskID:       id,
				TargetListID: target.ID,
				Position:     decimal.NewFromInt(500),
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.True(t, errors.Is(err, task.ErrConcurrentModification), "unexpected error: %v", err)
	}
	require.Positive(t, succeeded)

	tasks, err := ts.App.Tasks.ListByList(ctx, acct.OrgID, target.ID, false)
	require.NoError(t, err)
	require.Len(t, tasks, succeeded)
	requireOrdered(t, tasks)

	stayed, err := ts.App.Tasks.ListByList(ctx, acct.OrgID, source, false)
	require.NoError(t, err)
	require.Len(t, stayed, movers-succeeded)
}

func TestIntegration_ConcurrentMovesOfOneTask(t *testing.T) {
	ts := testserver.New(t)
	acct := ts.NewAccount(t, "grace")
	ctx := context.Background()

	projectID, source := firstList(t, acct.Client)
	other, err := acct.Client.CreateList(ctx, projectID, "Other")
	require.NoError(t, err)
	created, err := acct.Client.CreateTask(ctx, client.CreateTaskInput{Title: "contested", ListID: source})
	require.NoError(t, err)

	targets := []string{source, other.ID}
	results := make([]error, len(targets))
	var g errgroup.Group
	for i, listID := range targets {
		g.Go(func() error {
			_, results[i] = ts.App.Tasks.Move(ctx, acct.OrgID, acct.UserID, task.MoveRequest{
				TaskID:          created.ID,
				TargetListID:    listID,
				Position:        decimal.NewFromInt(int64(100 * (i + 1))),
				ExpectedVersion: ptr(created.Version),
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, task.ErrConcurrentModification)
	}
	require.Equal(t, 1, succeeded)

	got, err := ts.App.Tasks.Get(ctx, acct.OrgID, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Version+1, got.Version)
}

// readGate holds every move's write until it has served readers reads, so
// concurrent movers start from the same version.
type readGate struct {
	*sqlite.TaskRepository
	readers int32
	reads   atomic.Int32
	once    sync.Once
	open    chan struct{}
}

func (g *readGate) Get(ctx context.Context, orgID, id string) (*task.Task, error) {
	t, err := g.TaskRepository.Get(ctx, orgID, id)
	if g.reads.Add(1) >= g.readers {
		g.once.Do(func() { close(g.open) })
	}
	return t, err
}

func (g *readGate) ApplyMove(ctx context.Context, orgID string, mv task.Move) error {
	<-g.open
	return g.TaskRepository.ApplyMove(ctx, orgID, mv)
}

func TestIntegration_ConcurrentMovesOfOneTaskWithoutVersion(t *testing.T) {
	ts := testserver.New(t)
	acct := ts.NewAccount(t, "heidi")
	ctx := context.Background()

	projectID, source := firstList(t, acct.Client)
	other, err := acct.Client.CreateList(ctx, projectID, "Other")
	require.NoError(t, err)
	created, err := acct.Client.CreateTask(ctx, client.CreateTaskInput{Title: "contested", ListID: source})
	require.NoError(t, err)

	gate := &readGate{TaskRepository: sqlite.NewTaskRepository(ts.DB), readers: 2, open: make(chan struct{})}
	svc := task.NewService(gate, nil, position.DefaultParams(), task.DefaultMaxRetries, nil)

	// Whichever write lands second saw a version that no longer exists and
	// must not overwrite the first.
	targets := []string{source, other.ID}
	results := make([]*task.MoveResult, len(targets))
	errs := make([]error, len(targets))
	var g errgroup.Group
	for i, listID := range targets {
		g.Go(func() error {
			results[i], errs[i] = svc.Move(ctx, acct.OrgID, acct.UserID, task.MoveRequest{
				TaskID:       created.ID,
				TargetListID: listID,
				Position:     decimal.NewFromInt(int64(100 * (i + 1))),
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "both moves succeeded")
			winner = i
			continue
		}
		require.ErrorIs(t, err, task.ErrConcurrentModification)
	}
	require.NotEqual(t, -1, winner)

	got, err := ts.App.Tasks.Get(ctx, acct.OrgID, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Version+1, got.Version)
	require.Equal(t, targets[winner], got.ListID)
	require.True(t, got.Position.Equal(results[winner].Task.Position))
}

func TestIntegration_UpdateTask(t *testing.T) {
	ts := testserver.New(t)
	acct := ts.NewAccount(t, "ivan")
	ctx := context.Background()

	_, list := firstList(t, acct.Client)
	created, err := acct.Client.CreateTask(ctx, client.CreateTaskInput{Title: "draft", ListID: list})
	require.NoError(t, err)

	done := task.StatusDone
	updated, err := acct.Client.UpdateTask(ctx, created.ID, client.UpdateTaskInput{
		Title: ptr("final"), Status: &done, ExpectedVersion: ptr(created.Version),
	})
	require.NoError(t, err)
	require.Equal(t, "final", updated.Title)
	require.Equal(t, created.Version+1, updated.Version)
	require.True(t, updated.Position.Equal(created.Position))

	// The version the first edit consumed is gone.
	_, err = acct.Client.UpdateTask(ctx, created.ID, client.UpdateTaskInput{
		Title: ptr("again"), ExpectedVersion: ptr(created.Version),
	})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "CONCURRENT_MODIFICATION", apiErr.Code)

	high := task.PriorityHigh
	patched, err := acct.Client.UpdateTask(ctx, created.ID, client.UpdateTaskInput{Priority: &high})
	require.NoError(t, err)
	require.Equal(t, task.PriorityHigh, patched.Priority)
	require.Equal(t, "final", patched.Title)

	entries, err := ts.App.Activity.ListForTask(ctx, acct.OrgID, created.ID, activity.ListOptions{})
	require.NoError(t, err)
	types := make(map[activity.Type]bool)
	for _, e := range entries {
		types[e.Type] = true
	}
	require.True(t, types[activity.TypeStatusChanged])
	require.True(t, types[activity.TypePriorityChanged])
	require.True(t, types[activity.TypeUpdated])
}

func TestIntegration_MoveMultiple(t *testing.T) {
	ts := testserver.New(t)
	acct := ts.NewAccount(t, "judy")
	ctx := context.Background()

	projectID, source := firstList(t, acct.Client)
	target, err := acct.Client.CreateList(ctx, projectID, "Done")
	require.NoError(t, err)
	anchor, err := acct.Client.CreateTask(ctx, client.CreateTaskInput{Title: "anchor", ListID: target.ID})
	require.NoError(t, err)

	var moves []client.BulkMove
	for range 3 {
		created, err := acct.Client.CreateTask(ctx, client.CreateTaskInput{Title: "t", ListID: source})
		require.NoError(t, err)
		// All three asked for the anchor's slot.
		moves = append(moves, client.BulkMove{TaskID: created.ID, Position: anchor.Position})
	}

	done := task.StatusDone
	results, err := acct.Client.MoveTasks(ctx, client.MoveTasksInput{Moves: moves, TargetListID: target.ID, TargetStatus: &done})
	require.NoError(t, err)
	require.Len(t, results, 3)

	tasks, err := acct.Client.ListTasks(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	requireOrdered(t, tasks)
	require.Equal(t, anchor.ID, tasks[0].ID)
	for _, tk := range tasks[1:] {
		require.Equal(t, task.StatusDone, tk.Status)
	}

	// One missing task fails the whole batch.
	_, err = acct.Client.MoveTasks(ctx, client.MoveTasksInput{Moves: []client.BulkMove{
		{TaskID: tasks[1].ID, Position: decimal.NewFromInt(1)},
		{TaskID: "missing", Position: decimal.NewFromInt(2)},
	}})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "ITEM_NOT_FOUND", apiErr.Code)
	unchanged, err := acct.Client.GetTask(ctx, tasks[1].ID)
	require.NoError(t, err)
	require.True(t, unchanged.Position.Equal(tasks[1].Position))
}

func TestIntegration_RealtimeMoveEvent(t *testing.T) {
	ts := testserver.New(t)
	acct := ts.NewAccount(t, "erin")
	ctx := context.Background()

	projectID, source := firstList(t, acct.Client)
	target, err := acct.Client.CreateList(ctx, projectID, "Watched")
	require.NoError(t, err)
	created, err := acct.Client.CreateTask(ctx, client.CreateTaskInput{Title: "watched", ListID: source})
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(ts.Server.URL, "http") + "/api/ws?org_id=" + acct.OrgID + "&token=" + acct.Token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return ts.App.Hub.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = acct.Client.MoveTask(ctx, created.ID, client.MoveInput{TargetListID: target.ID, Position: decimal.NewFromInt(500)})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev realtime.ServerEvent
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, task.EventMoved, ev.Type)
	require.Equal(t, created.ID, ev.EntityID)
	require.Equal(t, target.ID, ev.ListID)
	require.Equal(t, source, ev.FromListID)
	require.True(t, ev.Task.Position.Equal(decimal.NewFromInt(500)))
}

func TestIntegration_PositionsStoredAsUnits(t *testing.T) {
	ts := testserver.New(t)
	acct := ts.NewAccount(t, "frank")
	ctx := context.Background()

	_, list := firstList(t, acct.Client)
	created, err := acct.Client.CreateTask(ctx, client.CreateTaskInput{Title: "x", ListID: list})
	require.NoError(t, err)

	_, err = acct.Client.MoveTask(ctx, created.ID, client.MoveInput{TargetListID: list, Position: decimal.RequireFromString("12.3456789")})
	require.NoError(t, err)

	var units int64
	require.NoError(t, ts.DB.QueryRow(`SELECT position FROM tasks WHERE id = ?`, created.ID).Scan(&units))
	require.Equal(t, position.ToUnits(decimal.RequireFromString("12.345678")), units)
}

func ptr[T any](v T) *T { return &v }
