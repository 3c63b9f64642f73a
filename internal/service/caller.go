package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
)

// Caller is the authenticated user on whose behalf a service call runs.
type Caller struct {
	UserID uuid.UUID
	Role   domain.Role
}

func (c Caller) Actor() string {
	return "user:" + c.UserID.String()
}

type userGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// requireAdmin re-reads the role from the users table; the token claim alone
// is not trusted for admin access.
func requireAdmin(ctx context.Context, users userGetter, userID uuid.UUID) error {
	u, err := users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("requireAdmin: %w", domain.ErrForbidden)
		}
		return fmt.Errorf("requireAdmin: %w", err)
	}
	if !u.IsActiveAdmin() {
		return fmt.Errorf("requireAdmin: %w", domain.ErrForbidden)
	}
	return nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
