package organization

import "errors"

var (
	// ErrOrganizationNotFound indicates the organization doesn't exist.
	ErrOrganizationNotFound = errors.New("organization not found")
	// ErrDuplicateSlug indicates another organization already uses the slug.
	ErrDuplicateSlug = errors.New("an organization with this name already exists")
	// ErrNotMember indicates the user does not belong to the organization.
	ErrNotMember = errors.New("not a member of this organization")
	// ErrForbidden indicates the member's role lacks a permission.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrInvalidInput indicates invalid organization input.
	ErrInvalidInput = errors.New("invalid organization input")
)
