// Package repository holds the storage errors shared by every repository
// implementation. Domain services translate them into their own sentinels.
package repository

import "errors"

var (
	// ErrNotFound means no row matched inside the caller's organization.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a list sequence check failed at commit. The caller's
	// snapshot of the list is stale and may be re-read.
	ErrConflict = errors.New("conflict: stale list sequence")

	// ErrStale means the row's version moved past the one the caller read.
	ErrStale = errors.New("stale version")

	// ErrDuplicate means a unique constraint rejected the write.
	ErrDuplicate = errors.New("duplicate entity")

	// ErrForeignKeyViolation means a referenced parent row does not exist.
	ErrForeignKeyViolation = errors.New("foreign key violation")
)
