package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/tasklane/internal/domain/organization"
	"github.com/rpggio/tasklane/internal/domain/task"
)

// APIError represents an MCP tool error.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to tool error codes. Unknown errors pass
// through unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		return &APIError{Code: "ITEM_NOT_FOUND", Message: "task not found", RecoveryHint: "Check the task id with list_tasks"}
	case errors.Is(err, task.ErrInvalidTarget):
		return &APIError{Code: "INVALID_TARGET", Message: "target list not found", RecoveryHint: "Pick a list from get_hierarchy"}
	case errors.Is(err, task.ErrConcurrentModification):
		return &APIError{Code: "CONCURRENT_MODIFICATION", Message: "task or list changed concurrently", RecoveryHint: "Reload with list_tasks and retry"}
	case errors.Is(err, task.ErrInvalidPosition):
		return &APIError{Code: "INVALID_POSITION", Message: err.Error()}
	case errors.Is(err, task.ErrInvalidInput):
		return &APIError{Code: "VALIDATION_ERROR", Message: err.Error()}
	case errors.Is(err, organization.ErrNotMember):
		return &APIError{Code: "FORBIDDEN", Message: "not a member of this organization"}
	case errors.Is(err, organization.ErrForbidden):
		return &APIError{Code: "FORBIDDEN", Message: err.Error()}
	default:
		return err
	}
}
