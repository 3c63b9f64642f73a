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

type profileService interface {
	GetClient(ctx context.Context, id uuid.UUID) (*domain.Client, error)
	GetFreelancer(ctx context.Context, id uuid.UUID) (*domain.Freelancer, error)
	ListFreelancers(ctx context.Context, service string, limit, offset int) ([]domain.Freelancer, int, error)
	UpdateClient(ctx context.Context, caller service.Caller, id uuid.UUID, patch domain.ProfilePatch) (*domain.Client, error)
	UpdateFreelancer(ctx context.Context, caller service.Caller, id uuid.UUID, patch domain.ProfilePatch) (*domain.Freelancer, error)
	MyProfile(ctx context.Context, caller service.Caller) (*service.Profile, error)
}

type ProfileHandler struct {
	profiles profileService
}

func NewProfileHandler(profiles profileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Balances are only present on the owner's own view.
type clientDTO struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	DisplayName string        `json:"display_name"`
	Company     *string       `json:"company"`
	Bio         *string       `json:"bio"`
	Balance     *domain.Money `json:"balance,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

type freelancerDTO struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	DisplayName string        `json:"display_name"`
	Bio         *string       `json:"bio"`
	Languages   []string      `json:"languages"`
	Services    []string      `json:"services"`
	HourlyRate  *domain.Money `json:"hourly_rate"`
	Balance     *domain.Money `json:"balance,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

func toClientDTO(c *domain.Client, withBalance bool) clientDTO {
	dto := clientDTO{
		ID:          c.ID,
		UserID:      c.UserID,
		DisplayName: c.DisplayName,
		Company:     c.Company,
		Bio:         c.Bio,
		CreatedAt:   c.CreatedAt,
	}
	if withBalance {
		b := c.Balance
		dto.Balance = &b
	}
	return dto
}

func toFreelancerDTO(f *domain.Freelancer, withBalance bool) freelancerDTO {
	dto := freelancerDTO{
		ID:          f.ID,
		UserID:      f.UserID,
		DisplayName: f.DisplayName,
		Bio:         f.Bio,
		Languages:   f.Languages,
		Services:    f.Services,
		HourlyRate:  f.HourlyRate,
		CreatedAt:   f.CreatedAt,
	}
	if withBalance {
		b := f.Balance
		dto.Balance = &b
	}
	return dto
}

type profilePatchRequest struct {
	DisplayName *string       `json:"display_name"`
	Company     *string       `json:"company"`
	Bio         *string       `json:"bio"`
	Languages   []string      `json:"languages"`
	Services    []string      `json:"services"`
	HourlyRate  *domain.Money `json:"hourly_rate"`
}

func (p profilePatchRequest) toPatch() domain.ProfilePatch {
	return domain.ProfilePatch{
		DisplayName: p.DisplayName,
		Company:     p.Company,
		Bio:         p.Bio,
		Languages:   p.Languages,
		Services:    p.Services,
		HourlyRate:  p.HourlyRate,
	}
}

// decodePatch rejects unknown fields so a stray "balance" is an error rather
// than silently ignored.
func decodePatch(r *http.Request) (profilePatchRequest, *AppError) {
	var req profilePatchRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, ErrInvalidRequest
	}
	return req, nil
}

func (h *ProfileHandler) ListFreelancers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	list, total, err := h.profiles.ListFreelancers(r.Context(), r.URL.Query().Get("service"), limit, offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	items := make([]freelancerDTO, 0, len(list))
	for i := range list {
		items = append(items, toFreelancerDTO(&list[i], false))
	}
	RespondSuccess(w, http.StatusOK, listResponse[freelancerDTO]{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (h *ProfileHandler) GetFreelancer(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r, ErrFreelancerNotFound)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	f, err := h.profiles.GetFreelancer(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toFreelancerDTO(f, false))
}

func (h *ProfileHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r, ErrClientNotFound)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	c, err := h.profiles.GetClient(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toClientDTO(c, false))
}

func (h *ProfileHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	caller, appErr := callerFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	id, appErr := pathID(r, ErrClientNotFound)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	req, appErr := decodePatch(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	c, err := h.profiles.UpdateClient(r.Context(), caller, id, req.toPatch())
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toClientDTO(c, true))
}

func (h *ProfileHandler) UpdateFreelancer(w http.ResponseWriter, r *http.Request) {
	caller, appErr := callerFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	id, appErr := pathID(r, ErrFreelancerNotFound)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	req, appErr := decodePatch(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	f, err := h.profiles.UpdateFreelancer(r.Context(), caller, id, req.toPatch())
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toFreelancerDTO(f, true))
}

type myProfileResponse struct {
	Role       string         `json:"role"`
	Client     *clientDTO     `json:"client,omitempty"`
	Freelancer *freelancerDTO `json:"freelancer,omitempty"`
}

func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, appErr := callerFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	p, err := h.profiles.MyProfile(r.Context(), caller)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	resp := myProfileResponse{Role: string(caller.Role)}
	if p.Client != nil {
		dto := toClientDTO(p.Client, true)
		resp.Client = &dto
	}
	if p.Freelancer != nil {
		dto := toFreelancerDTO(p.Freelancer, true)
		resp.Freelancer = &dto
	}
	RespondSuccess(w, http.StatusOK, resp)
}
