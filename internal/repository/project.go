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

const projectColumns = `id, client_id, freelancer_id, title, description, service_type,
	budget, status, created_at, updated_at, paid_at`

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, tx *sql.Tx, p *domain.Project) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.ClientID, p.FreelancerID, p.Title, p.Description, p.ServiceType,
		p.Budget, p.Status, p.CreatedAt, p.UpdatedAt, p.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrProjectNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return p, nil
}

// GetForUpdate locks the project row until tx ends.
func (r *ProjectRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Project, error) {
	p, err := scanProject(tx.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 FOR UPDATE`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrProjectNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return p, nil
}

type ProjectFilter struct {
	ClientID     *uuid.UUID
	FreelancerID *uuid.UUID
	Status       *domain.ProjectStatus
	Limit        int
	Offset       int
}

// List returns projects where the caller is the client or the freelancer.
// When both ids are set they are OR-ed.
func (r *ProjectRepository) List(ctx context.Context, f ProjectFilter) ([]domain.Project, int, error) {
	where := `(($1::uuid IS NOT NULL AND client_id = $1) OR ($2::uuid IS NOT NULL AND freelancer_id = $2))
		AND ($3::text IS NULL OR status = $3)`

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE `+where,
		f.ClientID, f.FreelancerID, f.Status,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("List: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE `+where+`
		ORDER BY created_at DESC LIMIT $4 OFFSET $5`,
		f.ClientID, f.FreelancerID, f.Status, f.Limit, f.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("List: scan: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("List: rows: %w", err)
	}
	return projects, total, nil
}

// UpdateStatus moves the project from one status to another. The update is
// conditional on the current status so a concurrent change is detected.
func (r *ProjectRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, from, to domain.ProjectStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, time.Now().UTC(), id, from,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	if err := expectOneRow(res, domain.ErrVersionConflict); err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	return nil
}

// MarkPaid is the only write path to the paid status.
func (r *ProjectRepository) MarkPaid(ctx context.Context, tx *sql.Tx, id uuid.UUID, paidAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET status = $1, paid_at = $2, updated_at = $2
		WHERE id = $3 AND status <> $1`,
		domain.ProjectStatusPaid, paidAt, id,
	)
	if err != nil {
		return fmt.Errorf("MarkPaid: %w", err)
	}
	if err := expectOneRow(res, domain.ErrAlreadySettled); err != nil {
		return fmt.Errorf("MarkPaid: %w", err)
	}
	return nil
}

func (r *ProjectRepository) Assign(ctx context.Context, tx *sql.Tx, id, freelancerID uuid.UUID) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET freelancer_id = $1, updated_at = $2
		WHERE id = $3 AND freelancer_id IS NULL AND status = $4`,
		freelancerID, time.Now().UTC(), id, domain.ProjectStatusPending,
	)
	if err != nil {
		return fmt.Errorf("Assign: %w", err)
	}
	if err := expectOneRow(res, domain.ErrProjectAssigned); err != nil {
		return fmt.Errorf("Assign: %w", err)
	}
	return nil
}

func scanProject(s scanner) (*domain.Project, error) {
	var p domain.Project
	var freelancerID uuid.NullUUID

	err := s.Scan(
		&p.ID, &p.ClientID, &freelancerID, &p.Title, &p.Description, &p.ServiceType,
		&p.Budget, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	if freelancerID.Valid {
		p.FreelancerID = &freelancerID.UUID
	}
	return &p, nil
}
