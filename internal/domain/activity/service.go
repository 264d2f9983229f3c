package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const defaultListLimit = 100

// Service handles activity log operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// LogActivity logs an activity entry with the current timestamp if missing.
func (s *Service) LogActivity(ctx context.Context, orgID string, entry *Entry) error {
	if entry == nil || entry.TaskID == "" || entry.Type == "" {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Log(ctx, orgID, entry); err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	return nil
}

// ListForTask lists a task's activity, newest first.
func (s *Service) ListForTask(ctx context.Context, orgID, taskID string, opts ListOptions) ([]Entry, error) {
	opts.TaskID = taskID
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	entries, err := s.repo.List(ctx, orgID, opts)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
