package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/josh-kwaku/lingualance-api/internal/domain"
)

const revenueColumns = `id, project_id, client_id, freelancer_id, amount, fee_percentage, created_at`

type RevenueRepository struct {
	db *sql.DB
}

func NewRevenueRepository(db *sql.DB) *RevenueRepository {
	return &RevenueRepository{db: db}
}

// Create appends a fee entry. project_id is unique, so a second entry for the
// same project reports ErrAlreadySettled.
func (r *RevenueRepository) Create(ctx context.Context, tx *sql.Tx, e *domain.RevenueEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO platform_revenue (`+revenueColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.ProjectID, e.ClientID, e.FreelancerID, e.Amount, e.FeePercentage, e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrAlreadySettled)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *RevenueRepository) GetByProjectID(ctx context.Context, projectID uuid.UUID) (*domain.RevenueEntry, error) {
	e, err := scanRevenueEntry(r.db.QueryRowContext(ctx,
		`SELECT `+revenueColumns+` FROM platform_revenue WHERE project_id = $1`, projectID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByProjectID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByProjectID: %w", err)
	}
	return e, nil
}

func (r *RevenueRepository) List(ctx context.Context, limit, offset int) ([]domain.RevenueEntry, domain.Money, int, error) {
	var total int
	var sum domain.Money
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM platform_revenue`,
	).Scan(&total, &sum)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("List: totals: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+revenueColumns+` FROM platform_revenue
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var entries []domain.RevenueEntry
	for rows.Next() {
		e, err := scanRevenueEntry(rows)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("List: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, fmt.Errorf("List: rows: %w", err)
	}
	return entries, sum, total, nil
}

func scanRevenueEntry(s scanner) (*domain.RevenueEntry, error) {
	var e domain.RevenueEntry
	err := s.Scan(
		&e.ID, &e.ProjectID, &e.ClientID, &e.FreelancerID,
		&e.Amount, &e.FeePercentage, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
