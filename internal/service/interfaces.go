package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
	"github.com/josh-kwaku/lingualance-api/internal/repository"
)

type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type userRepository interface {
	Create(ctx context.Context, tx *sql.Tx, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type clientRepository interface {
	Create(ctx context.Context, tx *sql.Tx, c *domain.Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Client, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.ProfilePatch) (*domain.Client, error)
	Credit(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount domain.Money) (domain.Money, error)
}

type freelancerRepository interface {
	Create(ctx context.Context, tx *sql.Tx, f *domain.Freelancer) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Freelancer, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Freelancer, error)
	List(ctx context.Context, service string, limit, offset int) ([]domain.Freelancer, int, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.ProfilePatch) (*domain.Freelancer, error)
}

type projectRepository interface {
	Create(ctx context.Context, tx *sql.Tx, p *domain.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Project, error)
	List(ctx context.Context, f repository.ProjectFilter) ([]domain.Project, int, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, from, to domain.ProjectStatus) error
	Assign(ctx context.Context, tx *sql.Tx, id, freelancerID uuid.UUID) error
}

type projectEventRepository interface {
	Create(ctx context.Context, tx *sql.Tx, event *domain.ProjectEvent) error
	GetByProjectID(ctx context.Context, projectID uuid.UUID) ([]domain.ProjectEvent, error)
}

type messageRepository interface {
	Create(ctx context.Context, m *domain.Message) error
	ListByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]domain.Message, error)
}

type balanceTransactionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.BalanceTransaction) error
	ListByAccount(ctx context.Context, kind domain.AccountKind, accountID uuid.UUID, limit, offset int) ([]domain.BalanceTransaction, int, error)
}

type revenueRepository interface {
	List(ctx context.Context, limit, offset int) ([]domain.RevenueEntry, domain.Money, int, error)
}

type expiringStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
