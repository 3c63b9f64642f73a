package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
	"github.com/josh-kwaku/lingualance-api/internal/service"
)

type projectService interface {
	Create(ctx context.Context, caller service.Caller, in service.CreateProjectInput) (*domain.Project, error)
	List(ctx context.Context, caller service.Caller, status *domain.ProjectStatus, limit, offset int) ([]domain.Project, int, error)
	Get(ctx context.Context, caller service.Caller, id uuid.UUID) (*domain.Project, error)
	UpdateStatus(ctx context.Context, caller service.Caller, id uuid.UUID, to domain.ProjectStatus) (*domain.Project, error)
	Assign(ctx context.Context, caller service.Caller, id, freelancerID uuid.UUID) (*domain.Project, error)
	Events(ctx context.Context, caller service.Caller, id uuid.UUID) ([]domain.ProjectEvent, error)
}

type ProjectHandler struct {
	projects projectService
}

func NewProjectHandler(projects projectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

type projectDTO struct {
	ID           uuid.UUID    `json:"id"`
	ClientID     uuid.UUID    `json:"client_id"`
	FreelancerID *uuid.UUID   `json:"freelancer_id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	ServiceType  string       `json:"service_type"`
	Budget       domain.Money `json:"budget"`
	Status       string       `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	PaidAt       *time.Time   `json:"paid_at"`
}

func toProjectDTO(p *domain.Project) projectDTO {
	return projectDTO{
		ID:           p.ID,
		ClientID:     p.ClientID,
		FreelancerID: p.FreelancerID,
		Title:        p.Title,
		Description:  p.Description,
		ServiceType:  string(p.ServiceType),
		Budget:       p.Budget,
		Status:       string(p.Status),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		PaidAt:       p.PaidAt,
	}
}

type projectEventDTO struct {
	ID         uuid.UUID       `json:"id"`
	EventType  string          `json:"event_type"`
	FromStatus *string         `json:"from_status"`
	ToStatus   string          `json:"to_status"`
	Actor      string          `json:"actor"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type createProjectRequest struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	ServiceType  string       `json:"service_type"`
	Budget       domain.Money `json:"budget"`
	FreelancerID *uuid.UUID   `json:"freelancer_id"`
}

func (r createProjectRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Title == "" {
		errs = append(errs, FieldError{Field: "title", Message: "required"})
	}
	if !domain.ServiceType(r.ServiceType).IsValid() {
		errs = append(errs, FieldError{Field: "service_type", Message: "must be translation, voice_over or dubbing"})
	}
	if r.Budget <= 0 {
		errs = append(errs, FieldError{Field: "budget", Message: "must be greater than zero"})
	}
	return errs
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type assignRequest struct {
	FreelancerID uuid.UUID `json:"freelancer_id"`
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, appErr := callerFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	p, err := h.projects.Create(r.Context(), caller, service.CreateProjectInput{
		Title:        req.Title,
		Description:  req.Description,
		ServiceType:  domain.ServiceType(req.ServiceType),
		Budget:       req.Budget,
		FreelancerID: req.FreelancerID,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toProjectDTO(p))
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, appErr := callerFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	limit, offset := pagination(r)

	var status *domain.ProjectStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.ProjectStatus(s)
		status = &st
	}

	projects, total, err := h.projects.List(r.Context(), caller, status, limit, offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	items := make([]projectDTO, 0, len(projects))
	for i := range projects {
		items = append(items, toProjectDTO(&projects[i]))
	}
	RespondSuccess(w, http.StatusOK, listResponse[projectDTO]{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, appErr := callerFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	id, appErr := pathID(r, ErrProjectNotFound)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	p, err := h.projects.Get(r.Context(), caller, id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toProjectDTO(p))
}

func (h *ProjectHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller, appErr := callerFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	id, appErr := pathID(r, ErrProjectNotFound)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if !domain.ProjectStatus(req.Status).IsValid() {
		RespondValidationError(w, []FieldError{{Field: "status", Message: "unknown status"}})
		return
	}

	p, err := h.projects.UpdateStatus(r.Context(), caller, id, domain.ProjectStatus(req.Status))
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toProjectDTO(p))
}

func (h *ProjectHandler) Assign(w http.ResponseWriter, r *http.Request) {
	caller, appErr := callerFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	id, appErr := pathID(r, ErrProjectNotFound)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.FreelancerID == uuid.Nil {
		RespondValidationError(w, []FieldError{{Field: "freelancer_id", Message: "required"}})
		return
	}

	p, err := h.projects.Assign(r.Context(), caller, id, req.FreelancerID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toProjectDTO(p))
}

func (h *ProjectHandler) Events(w http.ResponseWriter, r *http.Request) {
	caller, appErr := callerFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	id, appErr := pathID(r, ErrProjectNotFound)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	events, err := h.projects.Events(r.Context(), caller, id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	items := make([]projectEventDTO, 0, len(events))
	for _, e := range events {
		dto := projectEventDTO{
			ID:        e.ID,
			EventType: string(e.EventType),
			ToStatus:  string(e.ToStatus),
			Actor:     e.Actor,
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt,
		}
		if e.FromStatus != nil {
			from := string(*e.FromStatus)
			dto.FromStatus = &from
		}
		items = append(items, dto)
	}
	RespondSuccess(w, http.StatusOK, items)
}
