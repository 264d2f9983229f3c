package task

import "errors"

var (
	// ErrTaskNotFound indicates the task doesn't exist in the organization.
	ErrTaskNotFound = errors.New("task not found in this organization")
	// ErrInvalidTarget indicates the target list doesn't exist or isn't visible.
	ErrInvalidTarget = errors.New("target list not found in this organization")
	// ErrConcurrentModification indicates the task or the target list changed
	// since it was read and retrying did not help.
	ErrConcurrentModification = errors.New("task was modified concurrently")
	// ErrInvalidPosition indicates a desired position that cannot be stored.
	ErrInvalidPosition = errors.New("invalid position")
	// ErrInvalidInput indicates invalid task input.
	ErrInvalidInput = errors.New("invalid task input")
)
