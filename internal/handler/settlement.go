package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
	"github.com/josh-kwaku/lingualance-api/internal/service"
	"github.com/josh-kwaku/lingualance-api/internal/service/settlement"
)

type settler interface {
	Settle(ctx context.Context, req settlement.Request) (*settlement.Result, error)
	Quote(amount domain.Money) (settlement.Split, error)
}

type settlementAuthorizer interface {
	AuthorizeSettlement(ctx context.Context, caller service.Caller, projectID uuid.UUID) error
}

type SettlementHandler struct {
	settlements settler
	authz       settlementAuthorizer
}

func NewSettlementHandler(settlements settler, authz settlementAuthorizer) *SettlementHandler {
	return &SettlementHandler{settlements: settlements, authz: authz}
}

type settleRequest struct {
	ProjectID    uuid.UUID    `json:"project_id"`
	ClientID     uuid.UUID    `json:"client_id"`
	FreelancerID uuid.UUID    `json:"freelancer_id"`
	Amount       domain.Money `json:"amount"`
}

func (r settleRequest) Validate() []FieldError {
	var errs []FieldError
	if r.ProjectID == uuid.Nil {
		errs = append(errs, FieldError{Field: "project_id", Message: "required"})
	}
	if r.ClientID == uuid.Nil {
		errs = append(errs, FieldError{Field: "client_id", Message: "required"})
	}
	if r.FreelancerID == uuid.Nil {
		errs = append(errs, FieldError{Field: "freelancer_id", Message: "required"})
	}
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than zero"})
	}
	return errs
}

type settlementResponse struct {
	ProjectID          uuid.UUID    `json:"project_id"`
	FeePercentage      json.Number  `json:"fee_percentage"`
	PlatformFee        domain.Money `json:"platform_fee"`
	AmountToFreelancer domain.Money `json:"amount_to_freelancer"`
	ClientBalance      domain.Money `json:"client_balance"`
	FreelancerBalance  domain.Money `json:"freelancer_balance"`
}

type quoteResponse struct {
	Amount             domain.Money `json:"amount"`
	FeePercentage      json.Number  `json:"fee_percentage"`
	PlatformFee        domain.Money `json:"platform_fee"`
	AmountToFreelancer domain.Money `json:"amount_to_freelancer"`
}

func (h *SettlementHandler) Settle(w http.ResponseWriter, r *http.Request) {
	caller, appErr := callerFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	if err := h.authz.AuthorizeSettlement(r.Context(), caller, req.ProjectID); err != nil {
		RespondDomainError(w, err)
		return
	}

	res, err := h.settlements.Settle(r.Context(), settlement.Request{
		ProjectID:    req.ProjectID,
		ClientID:     req.ClientID,
		FreelancerID: req.FreelancerID,
		Amount:       req.Amount,
		Actor:        caller.Actor(),
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, settlementResponse{
		ProjectID:          res.ProjectID,
		FeePercentage:      json.Number(res.FeePercentage.String()),
		PlatformFee:        res.PlatformFee,
		AmountToFreelancer: res.AmountToFreelancer,
		ClientBalance:      res.ClientBalance,
		FreelancerBalance:  res.FreelancerBalance,
	})
}

// Quote previews the fee split for ?amount= without settling anything.
func (h *SettlementHandler) Quote(w http.ResponseWriter, r *http.Request) {
	amount, err := domain.ParseMoney(r.URL.Query().Get("amount"))
	if err != nil || amount <= 0 {
		RespondValidationError(w, []FieldError{{Field: "amount", Message: "must be a positive amount with at most two decimals"}})
		return
	}

	split, err := h.settlements.Quote(amount)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, quoteResponse{
		Amount:             split.Amount,
		FeePercentage:      json.Number(split.Rate.String()),
		PlatformFee:        split.Fee,
		AmountToFreelancer: split.Payout,
	})
}
