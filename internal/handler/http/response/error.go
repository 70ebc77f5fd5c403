package response

import (
	"errors"
	"net/http"

	"github.com/glowhouse/portal-backend-go/internal/domain/auth"
	"github.com/glowhouse/portal-backend-go/internal/domain/employee"
	"github.com/glowhouse/portal-backend-go/internal/domain/notification"
	"github.com/glowhouse/portal-backend-go/internal/domain/timeoff"
	"github.com/glowhouse/portal-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Payload shape errors
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Business validation errors carry the full error and warning lists
	var failed *timeoff.ValidationFailedError
	if errors.As(err, &failed) {
		ValidationFailed(w, failed.Result.Errors, failed.Result.Warnings)
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrRefreshTokenRevoked):
		Unauthorized(w, "Refresh token revoked")
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid token")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrEmployeeInactive):
		Forbidden(w, "Employee account is inactive")

	// Time-off domain errors
	case errors.Is(err, timeoff.ErrRequestNotFound):
		NotFound(w, "Time-off request not found")
	case errors.Is(err, timeoff.ErrAlreadyProcessed):
		Conflict(w, "Time-off request already processed")
	case errors.Is(err, timeoff.ErrNotRequestOwner):
		Forbidden(w, "Not the owner of this request")
	case errors.Is(err, timeoff.ErrApproverRequired):
		Forbidden(w, "Approver role required")
	case errors.Is(err, timeoff.ErrArchivePending):
		Conflict(w, "Pending requests cannot be archived")
	case errors.Is(err, timeoff.ErrBalanceNotFound):
		NotFound(w, "Balance record not found")

	// Notification domain errors
	case errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, "Notification not found")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
