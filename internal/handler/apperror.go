package handler

import "net/http"

type AppError struct {
	Status  int
	Kind    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

// WithMessage copies e with a more specific message.
func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{Status: e.Status, Kind: e.Kind, Message: msg}
}

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MissingToken", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "InvalidToken", "Token is invalid"}
	ErrTokenExpired       = &AppError{http.StatusUnauthorized, "TokenExpired", "Token has expired, log in again"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "InvalidCredentials", "Invalid email or password"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "ValidationFailed", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "ValidationFailed", "Validation failed"}
	ErrForbidden          = &AppError{http.StatusForbidden, "Forbidden", "You are not allowed to perform this action"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "NotFound", "Resource not found"}
	ErrRateLimited        = &AppError{http.StatusTooManyRequests, "RateLimited", "Too many requests, slow down"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "InternalError", "An unexpected error occurred"}

	ErrEmailTaken        = &AppError{http.StatusConflict, "EmailTaken", "Email is already registered"}
	ErrInvalidRole       = &AppError{http.StatusBadRequest, "InvalidRole", "Role must be client or freelancer"}
	ErrInvalidTransition = &AppError{http.StatusUnprocessableEntity, "InvalidTransition", "Status transition not allowed"}
	ErrProjectAssigned   = &AppError{http.StatusConflict, "ProjectAssigned", "Project already has a freelancer"}
	ErrVersionConflict   = &AppError{http.StatusConflict, "VersionConflict", "Resource was modified concurrently, please retry"}

	ErrInsufficientFunds    = &AppError{http.StatusUnprocessableEntity, "InsufficientFunds", "Client balance does not cover the amount"}
	ErrProjectNotFound      = &AppError{http.StatusNotFound, "ProjectNotFound", "Project not found"}
	ErrClientNotFound       = &AppError{http.StatusNotFound, "ClientNotFound", "Client not found"}
	ErrFreelancerNotFound   = &AppError{http.StatusNotFound, "FreelancerNotFound", "Freelancer not found"}
	ErrAlreadySettled       = &AppError{http.StatusConflict, "AlreadySettled", "Project has already been settled"}
	ErrProjectMismatch      = &AppError{http.StatusUnprocessableEntity, "ProjectMismatch", "Project does not belong to the given client and freelancer"}
	ErrProjectNotSettleable = &AppError{http.StatusUnprocessableEntity, "ProjectNotSettleable", "Project is not in a settleable status"}
	ErrPartialFailure       = &AppError{http.StatusInternalServerError, "PartialFailure", "Settlement aborted; no changes were applied"}
	ErrTimeout              = &AppError{http.StatusGatewayTimeout, "Timeout", "Datastore did not respond in time; no changes were applied"}

	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MissingIdempotencyKey", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IdempotencyConflict", "Idempotency key already used with a different request"}
	ErrDuplicateRequest      = &AppError{http.StatusConflict, "DuplicateRequest", "A request with this idempotency key was already applied"}
)
