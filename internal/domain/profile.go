package domain

import (
	"time"

	"github.com/google/uuid"
)

type AccountKind string

const (
	AccountKindClient     AccountKind = "client"
	AccountKindFreelancer AccountKind = "freelancer"
)

type Client struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	DisplayName string
	Company     *string
	Bio         *string
	Balance     Money
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Freelancer struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	DisplayName string
	Bio         *string
	Languages   []string
	Services    []string
	HourlyRate  *Money
	Balance     Money
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProfilePatch carries the mutable profile fields. Nil means unchanged.
// Balances are deliberately absent.
type ProfilePatch struct {
	DisplayName *string
	Company     *string
	Bio         *string
	Languages   []string
	Services    []string
	HourlyRate  *Money
}
