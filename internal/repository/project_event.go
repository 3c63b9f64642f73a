package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/josh-kwaku/lingualance-api/internal/domain"
)

const projectEventColumns = `id, project_id, event_type, from_status, to_status, actor, payload, created_at`

type ProjectEventRepository struct {
	db *sql.DB
}

func NewProjectEventRepository(db *sql.DB) *ProjectEventRepository {
	return &ProjectEventRepository{db: db}
}

func (r *ProjectEventRepository) Create(ctx context.Context, tx *sql.Tx, event *domain.ProjectEvent) error {
	var payload any
	if len(event.Payload) > 0 {
		payload = []byte(event.Payload)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO project_events (`+projectEventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.ProjectID, event.EventType, event.FromStatus, event.ToStatus,
		event.Actor, payload, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ProjectEventRepository) GetByProjectID(ctx context.Context, projectID uuid.UUID) ([]domain.ProjectEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectEventColumns+` FROM project_events
		WHERE project_id = $1 ORDER BY created_at, id`, projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByProjectID: %w", err)
	}
	defer rows.Close()

	var events []domain.ProjectEvent
	for rows.Next() {
		e, err := scanProjectEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByProjectID: scan: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByProjectID: rows: %w", err)
	}
	return events, nil
}

func scanProjectEvent(s scanner) (*domain.ProjectEvent, error) {
	var e domain.ProjectEvent
	var from sql.NullString
	var payload []byte
	err := s.Scan(
		&e.ID, &e.ProjectID, &e.EventType, &from, &e.ToStatus,
		&e.Actor, &payload, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if from.Valid {
		st := domain.ProjectStatus(from.String)
		e.FromStatus = &st
	}
	e.Payload = payload
	return &e, nil
}
