package service

import (
	"context"
	"fmt"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
)

type AdminService struct {
	users   userGetter
	revenue revenueRepository
}

func NewAdminService(users userGetter, revenue revenueRepository) *AdminService {
	return &AdminService{users: users, revenue: revenue}
}

type RevenueReport struct {
	Entries []domain.RevenueEntry
	Total   domain.Money
	Count   int
}

func (s *AdminService) Revenue(ctx context.Context, caller Caller, limit, offset int) (*RevenueReport, error) {
	if err := requireAdmin(ctx, s.users, caller.UserID); err != nil {
		return nil, fmt.Errorf("Revenue: %w", err)
	}
	limit, offset = clampPage(limit, offset)
	entries, total, count, err := s.revenue.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("Revenue: %w", err)
	}
	return &RevenueReport{Entries: entries, Total: total, Count: count}, nil
}
