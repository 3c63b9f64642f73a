package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
)

type ProfileService struct {
	clients     clientRepository
	freelancers freelancerRepository
}

func NewProfileService(clients clientRepository, freelancers freelancerRepository) *ProfileService {
	return &ProfileService{clients: clients, freelancers: freelancers}
}

// Profile holds exactly one of Client or Freelancer.
type Profile struct {
	Client     *domain.Client
	Freelancer *domain.Freelancer
}

func (s *ProfileService) GetClient(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	c, err := s.clients.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetClient: %w", err)
	}
	return c, nil
}

func (s *ProfileService) GetFreelancer(ctx context.Context, id uuid.UUID) (*domain.Freelancer, error) {
	f, err := s.freelancers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetFreelancer: %w", err)
	}
	return f, nil
}

func (s *ProfileService) ListFreelancers(ctx context.Context, service string, limit, offset int) ([]domain.Freelancer, int, error) {
	if service != "" && !domain.ServiceType(service).IsValid() {
		return nil, 0, fmt.Errorf("ListFreelancers: service %q: %w", service, domain.ErrInvalidRequest)
	}
	limit, offset = clampPage(limit, offset)
	list, total, err := s.freelancers.List(ctx, service, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ListFreelancers: %w", err)
	}
	return list, total, nil
}

func (s *ProfileService) UpdateClient(ctx context.Context, caller Caller, id uuid.UUID, patch domain.ProfilePatch) (*domain.Client, error) {
	c, err := s.clients.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("UpdateClient: %w", err)
	}
	if c.UserID != caller.UserID {
		return nil, fmt.Errorf("UpdateClient: %w", domain.ErrForbidden)
	}
	if err := validatePatch(patch); err != nil {
		return nil, fmt.Errorf("UpdateClient: %w", err)
	}
	updated, err := s.clients.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("UpdateClient: %w", err)
	}
	return updated, nil
}

func (s *ProfileService) UpdateFreelancer(ctx context.Context, caller Caller, id uuid.UUID, patch domain.ProfilePatch) (*domain.Freelancer, error) {
	f, err := s.freelancers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("UpdateFreelancer: %w", err)
	}
	if f.UserID != caller.UserID {
		return nil, fmt.Errorf("UpdateFreelancer: %w", domain.ErrForbidden)
	}
	if err := validatePatch(patch); err != nil {
		return nil, fmt.Errorf("UpdateFreelancer: %w", err)
	}
	for _, svc := range patch.Services {
		if !domain.ServiceType(svc).IsValid() {
			return nil, fmt.Errorf("UpdateFreelancer: service %q: %w", svc, domain.ErrInvalidRequest)
		}
	}
	updated, err := s.freelancers.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("UpdateFreelancer: %w", err)
	}
	return updated, nil
}

func validatePatch(p domain.ProfilePatch) error {
	if p.DisplayName != nil && strings.TrimSpace(*p.DisplayName) == "" {
		return fmt.Errorf("display_name: %w", domain.ErrInvalidRequest)
	}
	if p.HourlyRate != nil && *p.HourlyRate < 0 {
		return fmt.Errorf("hourly_rate: %w", domain.ErrInvalidAmount)
	}
	return nil
}

// MyProfile resolves the caller's own profile from its role.
func (s *ProfileService) MyProfile(ctx context.Context, caller Caller) (*Profile, error) {
	switch caller.Role.ProfileKind() {
	case domain.AccountKindClient:
		c, err := s.clients.GetByUserID(ctx, caller.UserID)
		if err != nil {
			return nil, fmt.Errorf("MyProfile: %w", err)
		}
		return &Profile{Client: c}, nil
	case domain.AccountKindFreelancer:
		f, err := s.freelancers.GetByUserID(ctx, caller.UserID)
		if err != nil {
			return nil, fmt.Errorf("MyProfile: %w", err)
		}
		return &Profile{Freelancer: f}, nil
	default:
		return nil, fmt.Errorf("MyProfile: role %s has no profile: %w", caller.Role, domain.ErrNotFound)
	}
}
