package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/lingualance-api/internal/domain"
)

const clientColumns = `id, user_id, display_name, company, bio, balance, created_at, updated_at`

type ClientRepository struct {
	db *sql.DB
}

func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Create(ctx context.Context, tx *sql.Tx, c *domain.Client) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO clients (`+clientColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.UserID, c.DisplayName, c.Company, c.Bio, c.Balance, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	return r.getOne(ctx, r.db, "GetByID", `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
}

func (r *ClientRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Client, error) {
	return r.getOne(ctx, r.db, "GetByUserID", `SELECT `+clientColumns+` FROM clients WHERE user_id = $1`, userID)
}

// GetForUpdate locks the client row until tx ends.
func (r *ClientRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Client, error) {
	return r.getOne(ctx, tx, "GetForUpdate", `SELECT `+clientColumns+` FROM clients WHERE id = $1 FOR UPDATE`, id)
}

func (r *ClientRepository) getOne(ctx context.Context, q execer, op, query string, arg any) (*domain.Client, error) {
	c, err := scanClient(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, domain.ErrClientNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (r *ClientRepository) Update(ctx context.Context, id uuid.UUID, patch domain.ProfilePatch) (*domain.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE clients SET
			display_name = COALESCE($2, display_name),
			company = COALESCE($3, company),
			bio = COALESCE($4, bio),
			updated_at = now()
		WHERE id = $1
		RETURNING `+clientColumns,
		id, patch.DisplayName, patch.Company, patch.Bio,
	)
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Update: %w", domain.ErrClientNotFound)
		}
		return nil, fmt.Errorf("Update: %w", err)
	}
	return c, nil
}

// Debit subtracts amount only while the balance covers it, so concurrent
// debits can never drive it negative.
func (r *ClientRepository) Debit(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount domain.Money) (domain.Money, error) {
	var balance domain.Money
	err := tx.QueryRowContext(ctx,
		`UPDATE clients SET balance = balance - $1, updated_at = $3
		WHERE id = $2 AND balance >= $1
		RETURNING balance`,
		amount, id, time.Now().UTC(),
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("Debit: %w", domain.ErrInsufficientFunds)
		}
		return 0, fmt.Errorf("Debit: %w", err)
	}
	return balance, nil
}

func (r *ClientRepository) Credit(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount domain.Money) (domain.Money, error) {
	var balance domain.Money
	err := tx.QueryRowContext(ctx,
		`UPDATE clients SET balance = balance + $1, updated_at = $3
		WHERE id = $2
		RETURNING balance`,
		amount, id, time.Now().UTC(),
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("Credit: %w", domain.ErrClientNotFound)
		}
		return 0, fmt.Errorf("Credit: %w", err)
	}
	return balance, nil
}

func scanClient(s scanner) (*domain.Client, error) {
	var c domain.Client
	err := s.Scan(
		&c.ID, &c.UserID, &c.DisplayName, &c.Company, &c.Bio,
		&c.Balance, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
