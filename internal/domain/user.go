package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus gates login. Suspended and closed users keep their data but
// cannot obtain tokens or act as admins.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusClosed    UserStatus = "closed"
)

func (s UserStatus) IsValid() bool {
	return s == UserStatusActive || s == UserStatusSuspended || s == UserStatusClosed
}

// Role decides which profile a user owns: clients fund and settle projects,
// freelancers deliver them, admins only read platform revenue.
type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
	RoleAdmin      Role = "admin"
)

// IsSelfAssignable reports whether a user may pick this role at registration.
func (r Role) IsSelfAssignable() bool {
	return r == RoleClient || r == RoleFreelancer
}

func (r Role) IsValid() bool {
	return r.IsSelfAssignable() || r == RoleAdmin
}

// ProfileKind is the account kind backing the role, or "" for admins.
func (r Role) ProfileKind() AccountKind {
	switch r {
	case RoleClient:
		return AccountKindClient
	case RoleFreelancer:
		return AccountKindFreelancer
	default:
		return ""
	}
}

type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Status       UserStatus
	CreatedAt    time.Time
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// IsActiveAdmin is the check behind every admin-only read.
func (u *User) IsActiveAdmin() bool {
	return u.Role == RoleAdmin && u.IsActive()
}
