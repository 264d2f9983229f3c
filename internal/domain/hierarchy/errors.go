package hierarchy

import "errors"

var (
	// ErrSpaceNotFound indicates the space doesn't exist in the organization.
	ErrSpaceNotFound = errors.New("space not found in this organization")
	// ErrProjectNotFound indicates the project doesn't exist in the organization.
	ErrProjectNotFound = errors.New("project not found in this organization")
	// ErrListNotFound indicates the list doesn't exist in the organization.
	ErrListNotFound = errors.New("list not found in this organization")
	// ErrInvalidInput indicates invalid hierarchy input.
	ErrInvalidInput = errors.New("invalid hierarchy input")
)
