package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/lingualance-api/internal/auth"
	"github.com/josh-kwaku/lingualance-api/internal/domain"
	"github.com/josh-kwaku/lingualance-api/internal/logging"
)

type AuthService struct {
	db          txBeginner
	users       userRepository
	clients     clientRepository
	freelancers freelancerRepository
	jwtSecret   string
	jwtExpiry   time.Duration
}

func NewAuthService(db txBeginner, users userRepository, clients clientRepository, freelancers freelancerRepository, jwtSecret string, jwtExpiry time.Duration) *AuthService {
	return &AuthService{
		db:          db,
		users:       users,
		clients:     clients,
		freelancers: freelancers,
		jwtSecret:   jwtSecret,
		jwtExpiry:   jwtExpiry,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
}

// Register creates the user together with its client or freelancer profile.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	log := logging.FromContext(ctx)

	email := strings.TrimSpace(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("Register: email: %w", domain.ErrInvalidRequest)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("Register: name: %w", domain.ErrInvalidRequest)
	}
	if !in.Role.IsSelfAssignable() {
		return nil, fmt.Errorf("Register: %w", domain.ErrInvalidRole)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         in.Role,
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Register: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.users.Create(ctx, tx, user); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	switch in.Role.ProfileKind() {
	case domain.AccountKindClient:
		err = s.clients.Create(ctx, tx, &domain.Client{
			ID:          uuid.New(),
			UserID:      user.ID,
			DisplayName: name,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	case domain.AccountKindFreelancer:
		err = s.freelancers.Create(ctx, tx, &domain.Freelancer{
			ID:          uuid.New(),
			UserID:      user.ID,
			DisplayName: name,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("Register: profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Register: commit: %w", err)
	}

	log.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Login returns a signed token for valid credentials. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, fmt.Errorf("Login: %w", domain.ErrInvalidCredentials)
		}
		return "", nil, fmt.Errorf("Login: %w", err)
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return "", nil, fmt.Errorf("Login: %w", err)
	}
	if !user.IsActive() {
		return "", nil, fmt.Errorf("Login: user %s: %w", user.Status, domain.ErrForbidden)
	}

	token, err := auth.GenerateToken(user, s.jwtSecret, s.jwtExpiry)
	if err != nil {
		return "", nil, fmt.Errorf("Login: %w", err)
	}
	return token, user, nil
}

func (s *AuthService) GetUser(ctx context.Context, caller Caller, id uuid.UUID) (*domain.User, error) {
	if caller.UserID != id {
		return nil, fmt.Errorf("GetUser: %w", domain.ErrNotFound)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetUser: %w", err)
	}
	return u, nil
}
