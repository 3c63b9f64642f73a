package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
	"github.com/josh-kwaku/lingualance-api/internal/logging"
	"github.com/josh-kwaku/lingualance-api/internal/repository"
)

type ProjectService struct {
	db          txBeginner
	projects    projectRepository
	events      projectEventRepository
	clients     clientRepository
	freelancers freelancerRepository
	users       userGetter
}

func NewProjectService(
	db txBeginner,
	projects projectRepository,
	events projectEventRepository,
	clients clientRepository,
	freelancers freelancerRepository,
	users userGetter,
) *ProjectService {
	return &ProjectService{
		db:          db,
		projects:    projects,
		events:      events,
		clients:     clients,
		freelancers: freelancers,
		users:       users,
	}
}

type CreateProjectInput struct {
	Title        string
	Description  string
	ServiceType  domain.ServiceType
	Budget       domain.Money
	FreelancerID *uuid.UUID
}

func (s *ProjectService) Create(ctx context.Context, caller Caller, in CreateProjectInput) (*domain.Project, error) {
	log := logging.FromContext(ctx)

	if caller.Role != domain.RoleClient {
		return nil, fmt.Errorf("Create: only clients create projects: %w", domain.ErrForbidden)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("Create: title: %w", domain.ErrInvalidRequest)
	}
	if !in.ServiceType.IsValid() {
		return nil, fmt.Errorf("Create: service_type %q: %w", in.ServiceType, domain.ErrInvalidRequest)
	}
	if in.Budget <= 0 {
		return nil, fmt.Errorf("Create: budget: %w", domain.ErrInvalidAmount)
	}

	client, err := s.clients.GetByUserID(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	if in.FreelancerID != nil {
		if _, err := s.freelancers.GetByID(ctx, *in.FreelancerID); err != nil {
			return nil, fmt.Errorf("Create: %w", err)
		}
	}

	now := time.Now().UTC()
	p := &domain.Project{
		ID:           uuid.New(),
		ClientID:     client.ID,
		FreelancerID: in.FreelancerID,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		ServiceType:  in.ServiceType,
		Budget:       in.Budget,
		Status:       domain.ProjectStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Create: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.projects.Create(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	if err := s.recordEvent(ctx, tx, p.ID, domain.ProjectEventCreated, nil, p.Status, caller.Actor(), nil); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Create: commit: %w", err)
	}

	log.Info("project created", "project_id", p.ID, "client_id", client.ID, "service_type", p.ServiceType)
	return p, nil
}

// List returns the caller's projects, as client or as freelancer.
func (s *ProjectService) List(ctx context.Context, caller Caller, status *domain.ProjectStatus, limit, offset int) ([]domain.Project, int, error) {
	if status != nil && !status.IsValid() {
		return nil, 0, fmt.Errorf("List: status %q: %w", *status, domain.ErrInvalidRequest)
	}
	limit, offset = clampPage(limit, offset)
	filter := repository.ProjectFilter{Status: status, Limit: limit, Offset: offset}

	switch caller.Role {
	case domain.RoleClient:
		c, err := s.clients.GetByUserID(ctx, caller.UserID)
		if err != nil {
			return nil, 0, fmt.Errorf("List: %w", err)
		}
		filter.ClientID = &c.ID
	case domain.RoleFreelancer:
		f, err := s.freelancers.GetByUserID(ctx, caller.UserID)
		if err != nil {
			return nil, 0, fmt.Errorf("List: %w", err)
		}
		filter.FreelancerID = &f.ID
	default:
		return []domain.Project{}, 0, nil
	}

	projects, total, err := s.projects.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	return projects, total, nil
}

// party reports which side of p the caller is on, if any.
func (s *ProjectService) party(ctx context.Context, caller Caller, p *domain.Project) (domain.ProjectParty, error) {
	switch caller.Role {
	case domain.RoleClient:
		c, err := s.clients.GetByUserID(ctx, caller.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrClientNotFound) {
				return domain.PartyNone, nil
			}
			return domain.PartyNone, err
		}
		if c.ID == p.ClientID {
			return domain.PartyClient, nil
		}
	case domain.RoleFreelancer:
		f, err := s.freelancers.GetByUserID(ctx, caller.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrFreelancerNotFound) {
				return domain.PartyNone, nil
			}
			return domain.PartyNone, err
		}
		if p.FreelancerID != nil && *p.FreelancerID == f.ID {
			return domain.PartyFreelancer, nil
		}
	}
	return domain.PartyNone, nil
}

func (s *ProjectService) isAdmin(ctx context.Context, caller Caller) (bool, error) {
	if caller.Role != domain.RoleAdmin {
		return false, nil
	}
	if err := requireAdmin(ctx, s.users, caller.UserID); err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Participant loads the project and the caller's side of it. Callers who are
// neither participant nor admin get ErrProjectNotFound so project ids do not
// leak.
func (s *ProjectService) Participant(ctx context.Context, caller Caller, id uuid.UUID) (*domain.Project, domain.ProjectParty, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, domain.PartyNone, fmt.Errorf("Participant: %w", err)
	}
	party, err := s.party(ctx, caller, p)
	if err != nil {
		return nil, domain.PartyNone, fmt.Errorf("Participant: %w", err)
	}
	if party != domain.PartyNone {
		return p, party, nil
	}
	admin, err := s.isAdmin(ctx, caller)
	if err != nil {
		return nil, domain.PartyNone, fmt.Errorf("Participant: %w", err)
	}
	if !admin {
		return nil, domain.PartyNone, fmt.Errorf("Participant: %w", domain.ErrProjectNotFound)
	}
	return p, domain.PartyNone, nil
}

func (s *ProjectService) Get(ctx context.Context, caller Caller, id uuid.UUID) (*domain.Project, error) {
	p, _, err := s.Participant(ctx, caller, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return p, nil
}

// AuthorizeSettlement allows the project's client or an admin to settle it.
func (s *ProjectService) AuthorizeSettlement(ctx context.Context, caller Caller, projectID uuid.UUID) error {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("AuthorizeSettlement: %w", err)
	}
	party, err := s.party(ctx, caller, p)
	if err != nil {
		return fmt.Errorf("AuthorizeSettlement: %w", err)
	}
	if party == domain.PartyClient {
		return nil
	}
	admin, err := s.isAdmin(ctx, caller)
	if err != nil {
		return fmt.Errorf("AuthorizeSettlement: %w", err)
	}
	if !admin {
		return fmt.Errorf("AuthorizeSettlement: %w", domain.ErrForbidden)
	}
	return nil
}

// UpdateStatus applies one status transition. Paid is reachable only through
// settlement.
func (s *ProjectService) UpdateStatus(ctx context.Context, caller Caller, id uuid.UUID, to domain.ProjectStatus) (*domain.Project, error) {
	log := logging.FromContext(ctx)

	if !to.IsValid() {
		return nil, fmt.Errorf("UpdateStatus: status %q: %w", to, domain.ErrInvalidRequest)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("UpdateStatus: begin tx: %w", err)
	}
	defer tx.Rollback()

	p, err := s.projects.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("UpdateStatus: %w", err)
	}
	party, err := s.party(ctx, caller, p)
	if err != nil {
		return nil, fmt.Errorf("UpdateStatus: %w", err)
	}
	if party == domain.PartyNone {
		return nil, fmt.Errorf("UpdateStatus: %w", domain.ErrProjectNotFound)
	}
	if p.Status.IsTerminal() {
		return nil, fmt.Errorf("UpdateStatus: project is %s: %w", p.Status, domain.ErrInvalidTransition)
	}
	if to == domain.ProjectStatusInProgress && p.FreelancerID == nil {
		return nil, fmt.Errorf("UpdateStatus: unassigned project: %w", domain.ErrInvalidTransition)
	}
	if !domain.CanTransition(p.Status, to, party) {
		return nil, fmt.Errorf("UpdateStatus: %s -> %s by %s: %w", p.Status, to, party, domain.ErrInvalidTransition)
	}

	if err := s.projects.UpdateStatus(ctx, tx, p.ID, p.Status, to); err != nil {
		return nil, fmt.Errorf("UpdateStatus: %w", err)
	}
	from := p.Status
	if err := s.recordEvent(ctx, tx, p.ID, domain.ProjectEventStatusChanged, &from, to, caller.Actor(), nil); err != nil {
		return nil, fmt.Errorf("UpdateStatus: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("UpdateStatus: commit: %w", err)
	}

	p.Status = to
	p.UpdatedAt = time.Now().UTC()
	log.Info("project status changed", "project_id", p.ID, "from", from, "to", to, "party", party)
	return p, nil
}

// Assign attaches a freelancer to a pending, unassigned project.
func (s *ProjectService) Assign(ctx context.Context, caller Caller, id, freelancerID uuid.UUID) (*domain.Project, error) {
	log := logging.FromContext(ctx)

	if _, err := s.freelancers.GetByID(ctx, freelancerID); err != nil {
		return nil, fmt.Errorf("Assign: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Assign: begin tx: %w", err)
	}
	defer tx.Rollback()

	p, err := s.projects.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("Assign: %w", err)
	}
	party, err := s.party(ctx, caller, p)
	if err != nil {
		return nil, fmt.Errorf("Assign: %w", err)
	}
	if party != domain.PartyClient {
		return nil, fmt.Errorf("Assign: %w", domain.ErrProjectNotFound)
	}
	if p.FreelancerID != nil {
		return nil, fmt.Errorf("Assign: %w", domain.ErrProjectAssigned)
	}
	if p.Status != domain.ProjectStatusPending {
		return nil, fmt.Errorf("Assign: status %s: %w", p.Status, domain.ErrInvalidTransition)
	}

	if err := s.projects.Assign(ctx, tx, p.ID, freelancerID); err != nil {
		return nil, fmt.Errorf("Assign: %w", err)
	}
	payload, err := json.Marshal(map[string]string{"freelancer_id": freelancerID.String()})
	if err != nil {
		return nil, fmt.Errorf("Assign: payload: %w", err)
	}
	if err := s.recordEvent(ctx, tx, p.ID, domain.ProjectEventAssigned, &p.Status, p.Status, caller.Actor(), payload); err != nil {
		return nil, fmt.Errorf("Assign: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Assign: commit: %w", err)
	}

	p.FreelancerID = &freelancerID
	log.Info("freelancer assigned", "project_id", p.ID, "freelancer_id", freelancerID)
	return p, nil
}

func (s *ProjectService) Events(ctx context.Context, caller Caller, id uuid.UUID) ([]domain.ProjectEvent, error) {
	if _, _, err := s.Participant(ctx, caller, id); err != nil {
		return nil, fmt.Errorf("Events: %w", err)
	}
	events, err := s.events.GetByProjectID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Events: %w", err)
	}
	return events, nil
}

func (s *ProjectService) recordEvent(
	ctx context.Context,
	tx *sql.Tx,
	projectID uuid.UUID,
	eventType domain.ProjectEventType,
	from *domain.ProjectStatus,
	to domain.ProjectStatus,
	actor string,
	payload json.RawMessage,
) error {
	return s.events.Create(ctx, tx, &domain.ProjectEvent{
		ID:         uuid.New(),
		ProjectID:  projectID,
		EventType:  eventType,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
	})
}
