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

type fundsService interface {
	AddFunds(ctx context.Context, caller service.Caller, clientID uuid.UUID, amount domain.Money, idempotencyKey string) (domain.Money, error)
	Transactions(ctx context.Context, caller service.Caller, limit, offset int) ([]domain.BalanceTransaction, int, error)
}

type FundsHandler struct {
	funds fundsService
}

func NewFundsHandler(funds fundsService) *FundsHandler {
	return &FundsHandler{funds: funds}
}

type addFundsRequest struct {
	Amount domain.Money `json:"amount"`
}

type addFundsResponse struct {
	ClientID uuid.UUID    `json:"client_id"`
	Balance  domain.Money `json:"balance"`
}

type transactionDTO struct {
	ID            uuid.UUID    `json:"id"`
	AccountKind   string       `json:"account_kind"`
	AccountID     uuid.UUID    `json:"account_id"`
	ProjectID     *uuid.UUID   `json:"project_id"`
	Kind          string       `json:"kind"`
	Amount        domain.Money `json:"amount"`
	BalanceBefore domain.Money `json:"balance_before"`
	BalanceAfter  domain.Money `json:"balance_after"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (h *FundsHandler) AddFunds(w http.ResponseWriter, r *http.Request) {
	caller, appErr := callerFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	clientID, appErr := pathID(r, ErrClientNotFound)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req addFundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.Amount <= 0 {
		RespondValidationError(w, []FieldError{{Field: "amount", Message: "must be greater than zero"}})
		return
	}

	balance, err := h.funds.AddFunds(r.Context(), caller, clientID, req.Amount, r.Header.Get("Idempotency-Key"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, addFundsResponse{ClientID: clientID, Balance: balance})
}

func (h *FundsHandler) MyTransactions(w http.ResponseWriter, r *http.Request) {
	caller, appErr := callerFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	limit, offset := pagination(r)

	txs, total, err := h.funds.Transactions(r.Context(), caller, limit, offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	items := make([]transactionDTO, 0, len(txs))
	for _, t := range txs {
		items = append(items, transactionDTO{
			ID:            t.ID,
			AccountKind:   string(t.AccountKind),
			AccountID:     t.AccountID,
			ProjectID:     t.ProjectID,
			Kind:          string(t.Kind),
			Amount:        t.Amount,
			BalanceBefore: t.BalanceBefore,
			BalanceAfter:  t.BalanceAfter,
			CreatedAt:     t.CreatedAt,
		})
	}
	RespondSuccess(w, http.StatusOK, listResponse[transactionDTO]{Items: items, Total: total, Limit: limit, Offset: offset})
}
