package activity_test

import (
	"context"
	"testing"

	"github.com/rpggio/tasklane/internal/domain/activity"
	"github.com/rpggio/tasklane/internal/repository/mocks"
	"github.com/stretchr/testify/require"
)

func TestActivityService_LogAndList(t *testing.T) {
	ctx := context.Background()
	orgID := "org1"

	repo := &mocks.ActivityRepository{}
	entry := &activity.Entry{
		TaskID:   "task1",
		Type:     activity.TypeMoved,
		Metadata: map[string]string{"to_list": "list2"},
	}

	repo.On("Log", ctx, orgID, entry).Return(nil)
	repo.On("List", ctx, orgID, activity.ListOptions{TaskID: "task1", Limit: 100}).Return(nil, nil)

	svc := activity.NewService(repo, nil)
	require.NoError(t, svc.LogActivity(ctx, orgID, entry))
	require.False(t, entry.CreatedAt.IsZero())

	entries, err := svc.ListForTask(ctx, orgID, "task1", activity.ListOptions{})
	require.NoError(t, err)
	require.NotNil(t, entries)
	require.Empty(t, entries)
}

func TestActivityService_LogActivity_RejectsIncompleteEntry(t *testing.T) {
	svc := activity.NewService(&mocks.ActivityRepository{}, nil)
	require.ErrorIs(t, svc.LogActivity(context.Background(), "org1", nil), activity.ErrInvalidInput)
	require.ErrorIs(t, svc.LogActivity(context.Background(), "org1", &activity.Entry{TaskID: "t"}), activity.ErrInvalidInput)
}
