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

type adminService interface {
	Revenue(ctx context.Context, caller service.Caller, limit, offset int) (*service.RevenueReport, error)
}

type AdminHandler struct {
	admin adminService
}

func NewAdminHandler(admin adminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

type revenueEntryDTO struct {
	ID            uuid.UUID    `json:"id"`
	ProjectID     uuid.UUID    `json:"project_id"`
	ClientID      uuid.UUID    `json:"client_id"`
	FreelancerID  uuid.UUID    `json:"freelancer_id"`
	Amount        domain.Money `json:"amount"`
	FeePercentage json.Number  `json:"fee_percentage"`
	CreatedAt     time.Time    `json:"created_at"`
}

type revenueResponse struct {
	Total   domain.Money      `json:"total"`
	Count   int               `json:"count"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
	Entries []revenueEntryDTO `json:"entries"`
}

func (h *AdminHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	caller, appErr := callerFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	limit, offset := pagination(r)

	report, err := h.admin.Revenue(r.Context(), caller, limit, offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	entries := make([]revenueEntryDTO, 0, len(report.Entries))
	for _, e := range report.Entries {
		entries = append(entries, revenueEntryDTO{
			ID:            e.ID,
			ProjectID:     e.ProjectID,
			ClientID:      e.ClientID,
			FreelancerID:  e.FreelancerID,
			Amount:        e.Amount,
			FeePercentage: json.Number(e.FeePercentage.String()),
			CreatedAt:     e.CreatedAt,
		})
	}
	RespondSuccess(w, http.StatusOK, revenueResponse{
		Total:   report.Total,
		Count:   report.Count,
		Limit:   limit,
		Offset:  offset,
		Entries: entries,
	})
}
