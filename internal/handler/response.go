package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
	"github.com/josh-kwaku/lingualance-api/internal/service/settlement"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Kind    string `json:"error_kind"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type listResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Kind:    appErr.Kind,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	RespondAppError(w, appErrorFor(err), nil)
}

func appErrorFor(err error) *AppError {
	var stepErr *settlement.StepError
	if errors.As(err, &stepErr) {
		base := ErrPartialFailure
		if errors.Is(err, domain.ErrTimeout) {
			base = ErrTimeout
		}
		return base.WithMessage(fmt.Sprintf("%s (step: %s)", base.Message, stepErr.Step))
	}

	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, domain.ErrProjectNotFound):
		return ErrProjectNotFound
	case errors.Is(err, domain.ErrClientNotFound):
		return ErrClientNotFound
	case errors.Is(err, domain.ErrFreelancerNotFound):
		return ErrFreelancerNotFound
	case errors.Is(err, domain.ErrAlreadySettled):
		return ErrAlreadySettled
	case errors.Is(err, domain.ErrProjectMismatch):
		return ErrProjectMismatch
	case errors.Is(err, domain.ErrProjectNotSettleable):
		return ErrProjectNotSettleable
	case errors.Is(err, domain.ErrTimeout):
		return ErrTimeout
	case errors.Is(err, domain.ErrPartialFailure):
		return ErrPartialFailure
	case errors.Is(err, domain.ErrNotFound):
		return ErrResourceNotFound
	case errors.Is(err, domain.ErrForbidden):
		return ErrForbidden
	case errors.Is(err, domain.ErrEmailTaken):
		return ErrEmailTaken
	case errors.Is(err, domain.ErrInvalidCredentials):
		return ErrInvalidCredentials
	case errors.Is(err, domain.ErrInvalidRole):
		return ErrInvalidRole
	case errors.Is(err, domain.ErrInvalidTransition):
		return ErrInvalidTransition
	case errors.Is(err, domain.ErrProjectAssigned):
		return ErrProjectAssigned
	case errors.Is(err, domain.ErrVersionConflict):
		return ErrVersionConflict
	case errors.Is(err, domain.ErrRateLimited):
		return ErrRateLimited
	case errors.Is(err, domain.ErrDuplicateIdempotency):
		return ErrDuplicateRequest
	case errors.Is(err, domain.ErrInvalidAmount):
		return ErrValidationFailed.WithMessage(domain.ErrInvalidAmount.Error())
	case errors.Is(err, domain.ErrInvalidRequest):
		return ErrValidationFailed
	default:
		slog.Error("unhandled domain error", "error", err)
		return ErrInternalError
	}
}
