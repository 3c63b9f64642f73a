package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
)

const freelancerColumns = `id, user_id, display_name, bio, languages, services, hourly_rate,
	balance, created_at, updated_at`

type FreelancerRepository struct {
	db *sql.DB
}

func NewFreelancerRepository(db *sql.DB) *FreelancerRepository {
	return &FreelancerRepository{db: db}
}

func (r *FreelancerRepository) Create(ctx context.Context, tx *sql.Tx, f *domain.Freelancer) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO freelancers (`+freelancerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		f.ID, f.UserID, f.DisplayName, f.Bio,
		pq.Array(nonNil(f.Languages)), pq.Array(nonNil(f.Services)), f.HourlyRate,
		f.Balance, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *FreelancerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Freelancer, error) {
	return r.getOne(ctx, r.db, "GetByID", `SELECT `+freelancerColumns+` FROM freelancers WHERE id = $1`, id)
}

func (r *FreelancerRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Freelancer, error) {
	return r.getOne(ctx, r.db, "GetByUserID", `SELECT `+freelancerColumns+` FROM freelancers WHERE user_id = $1`, userID)
}

// GetForUpdate locks the freelancer row until tx ends.
func (r *FreelancerRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Freelancer, error) {
	return r.getOne(ctx, tx, "GetForUpdate", `SELECT `+freelancerColumns+` FROM freelancers WHERE id = $1 FOR UPDATE`, id)
}

func (r *FreelancerRepository) getOne(ctx context.Context, q execer, op, query string, arg any) (*domain.Freelancer, error) {
	f, err := scanFreelancer(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, domain.ErrFreelancerNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return f, nil
}

// List returns freelancers ordered by name. An empty service matches all.
func (r *FreelancerRepository) List(ctx context.Context, service string, limit, offset int) ([]domain.Freelancer, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM freelancers WHERE $1 = '' OR $1 = ANY(services)`, service,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("List: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+freelancerColumns+` FROM freelancers
		WHERE $1 = '' OR $1 = ANY(services)
		ORDER BY display_name, id LIMIT $2 OFFSET $3`,
		service, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var out []domain.Freelancer
	for rows.Next() {
		f, err := scanFreelancer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("List: scan: %w", err)
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("List: rows: %w", err)
	}
	return out, total, nil
}

func (r *FreelancerRepository) Update(ctx context.Context, id uuid.UUID, patch domain.ProfilePatch) (*domain.Freelancer, error) {
	var languages, services any
	if patch.Languages != nil {
		languages = pq.Array(patch.Languages)
	}
	if patch.Services != nil {
		services = pq.Array(patch.Services)
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE freelancers SET
			display_name = COALESCE($2, display_name),
			bio = COALESCE($3, bio),
			languages = COALESCE($4, languages),
			services = COALESCE($5, services),
			hourly_rate = COALESCE($6, hourly_rate),
			updated_at = now()
		WHERE id = $1
		RETURNING `+freelancerColumns,
		id, patch.DisplayName, patch.Bio, languages, services, patch.HourlyRate,
	)
	f, err := scanFreelancer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Update: %w", domain.ErrFreelancerNotFound)
		}
		return nil, fmt.Errorf("Update: %w", err)
	}
	return f, nil
}

func (r *FreelancerRepository) Credit(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount domain.Money) (domain.Money, error) {
	var balance domain.Money
	err := tx.QueryRowContext(ctx,
		`UPDATE freelancers SET balance = balance + $1, updated_at = $3
		WHERE id = $2
		RETURNING balance`,
		amount, id, time.Now().UTC(),
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("Credit: %w", domain.ErrFreelancerNotFound)
		}
		return 0, fmt.Errorf("Credit: %w", err)
	}
	return balance, nil
}

func scanFreelancer(s scanner) (*domain.Freelancer, error) {
	var f domain.Freelancer
	var hourlyRate sql.NullInt64
	err := s.Scan(
		&f.ID, &f.UserID, &f.DisplayName, &f.Bio,
		pq.Array(&f.Languages), pq.Array(&f.Services), &hourlyRate,
		&f.Balance, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if hourlyRate.Valid {
		rate := domain.Money(hourlyRate.Int64)
		f.HourlyRate = &rate
	}
	return &f, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
