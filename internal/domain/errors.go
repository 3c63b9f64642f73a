package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInvalidFeeRate       = errors.New("fee rate must be in [0, 1)")
	ErrForbidden            = errors.New("forbidden")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidRole          = errors.New("invalid role")
	ErrInvalidTransition    = errors.New("invalid project status transition")
	ErrProjectAssigned      = errors.New("project already has a freelancer")
	ErrVersionConflict      = errors.New("optimistic lock conflict")
	ErrRateLimited          = errors.New("rate limit exceeded")
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")

	// Settlement outcomes.
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrProjectNotFound      = errors.New("project not found")
	ErrClientNotFound       = errors.New("client not found")
	ErrFreelancerNotFound   = errors.New("freelancer not found")
	ErrAlreadySettled       = errors.New("project already settled")
	ErrProjectMismatch      = errors.New("project does not belong to the given client and freelancer")
	ErrProjectNotSettleable = errors.New("project is not in a settleable status")
	ErrPartialFailure       = errors.New("settlement aborted mid-sequence")
	ErrTimeout              = errors.New("datastore call timed out")
)
