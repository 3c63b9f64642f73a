package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/josh-kwaku/lingualance-api/internal/domain"
)

const balanceTransactionColumns = `id, account_kind, account_id, project_id, kind, amount,
	balance_before, balance_after, created_at`

type BalanceTransactionRepository struct {
	db *sql.DB
}

func NewBalanceTransactionRepository(db *sql.DB) *BalanceTransactionRepository {
	return &BalanceTransactionRepository{db: db}
}

// Create inserts a ledger row. A repeated idempotency key on the same account
// returns domain.ErrDuplicateIdempotency.
func (r *BalanceTransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *domain.BalanceTransaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO balance_transactions (`+balanceTransactionColumns+`, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))`,
		t.ID, t.AccountKind, t.AccountID, t.ProjectID, t.Kind, t.Amount,
		t.BalanceBefore, t.BalanceAfter, t.CreatedAt, t.IdempotencyKey,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateIdempotency)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *BalanceTransactionRepository) ListByAccount(ctx context.Context, kind domain.AccountKind, accountID uuid.UUID, limit, offset int) ([]domain.BalanceTransaction, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM balance_transactions WHERE account_kind = $1 AND account_id = $2`,
		kind, accountID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+balanceTransactionColumns+` FROM balance_transactions
		WHERE account_kind = $1 AND account_id = $2
		ORDER BY created_at DESC, id LIMIT $3 OFFSET $4`,
		kind, accountID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: %w", err)
	}
	defer rows.Close()

	var txns []domain.BalanceTransaction
	for rows.Next() {
		t, err := scanBalanceTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListByAccount: scan: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: rows: %w", err)
	}
	return txns, total, nil
}

func scanBalanceTransaction(s scanner) (*domain.BalanceTransaction, error) {
	var t domain.BalanceTransaction
	var projectID uuid.NullUUID
	err := s.Scan(
		&t.ID, &t.AccountKind, &t.AccountID, &projectID, &t.Kind, &t.Amount,
		&t.BalanceBefore, &t.BalanceAfter, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if projectID.Valid {
		t.ProjectID = &projectID.UUID
	}
	return &t, nil
}
