package transport

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rpggio/tasklane/internal/domain/activity"
	"github.com/rpggio/tasklane/internal/domain/hierarchy"
	"github.com/rpggio/tasklane/internal/domain/organization"
	"github.com/rpggio/tasklane/internal/domain/task"
	"github.com/rpggio/tasklane/internal/domain/user"
)

var (
	// ErrUnauthorized indicates invalid or missing credentials.
	ErrUnauthorized = errors.New("unauthorized")

	errBadRequest = errors.New("malformed request body")
)

// Error codes carried in the envelope.
const (
	CodeBadRequest             = "BAD_REQUEST"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeNotFound               = "NOT_FOUND"
	CodeItemNotFound           = "ITEM_NOT_FOUND"
	CodeInvalidTarget          = "INVALID_TARGET"
	CodeInvalidPosition        = "INVALID_POSITION"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeConflict               = "CONFLICT"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInternal               = "INTERNAL_ERROR"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{errBadRequest, http.StatusBadRequest, CodeBadRequest},
	{ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
	{user.ErrInvalidCredentials, http.StatusUnauthorized, CodeUnauthorized},
	{user.ErrInvalidToken, http.StatusUnauthorized, CodeUnauthorized},
	{user.ErrEmailTaken, http.StatusConflict, CodeConflict},
	{user.ErrInvalidInput, http.StatusBadRequest, CodeValidation},
	{user.ErrUserNotFound, http.StatusNotFound, CodeNotFound},
	{organization.ErrNotMember, http.StatusForbidden, CodeForbidden},
	{organization.ErrForbidden, http.StatusForbidden, CodeForbidden},
	{organization.ErrDuplicateSlug, http.StatusConflict, CodeConflict},
	{organization.ErrOrganizationNotFound, http.StatusNotFound, CodeNotFound},
	{organization.ErrInvalidInput, http.StatusBadRequest, CodeValidation},
	{hierarchy.ErrSpaceNotFound, http.StatusNotFound, CodeNotFound},
	{hierarchy.ErrProjectNotFound, http.StatusNotFound, CodeNotFound},
	{hierarchy.ErrListNotFound, http.StatusNotFound, CodeNotFound},
	{hierarchy.ErrInvalidInput, http.StatusBadRequest, CodeValidation},
	{task.ErrTaskNotFound, http.StatusNotFound, CodeItemNotFound},
	{task.ErrInvalidTarget, http.StatusUnprocessableEntity, CodeInvalidTarget},
	{task.ErrInvalidPosition, http.StatusBadRequest, CodeInvalidPosition},
	{task.ErrConcurrentModification, http.StatusConflict, CodeConcurrentModification},
	{task.ErrInvalidInput, http.StatusBadRequest, CodeValidation},
	{activity.ErrInvalidInput, http.StatusBadRequest, CodeValidation},
}

// StatusFor maps a service error to an HTTP status and envelope code.
func StatusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", "error", err)
		}
		message = "internal server error"
	}
	WriteError(w, status, code, message)
}
