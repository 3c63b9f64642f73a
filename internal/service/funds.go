package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
	"github.com/josh-kwaku/lingualance-api/internal/logging"
)

type FundsService struct {
	db           txBeginner
	clients      clientRepository
	freelancers  freelancerRepository
	transactions balanceTransactionRepository
}

func NewFundsService(db txBeginner, clients clientRepository, freelancers freelancerRepository, transactions balanceTransactionRepository) *FundsService {
	return &FundsService{db: db, clients: clients, freelancers: freelancers, transactions: transactions}
}

// AddFunds credits a client's balance. Deposits carry no platform fee. The
// idempotency key is stored on the ledger row inside the same transaction, so
// a second deposit with the same key rolls back with
// domain.ErrDuplicateIdempotency.
func (s *FundsService) AddFunds(ctx context.Context, caller Caller, clientID uuid.UUID, amount domain.Money, idempotencyKey string) (domain.Money, error) {
	log := logging.FromContext(ctx)

	if amount <= 0 {
		return 0, fmt.Errorf("AddFunds: %w", domain.ErrInvalidAmount)
	}

	c, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return 0, fmt.Errorf("AddFunds: %w", err)
	}
	if c.UserID != caller.UserID {
		return 0, fmt.Errorf("AddFunds: %w", domain.ErrForbidden)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("AddFunds: begin tx: %w", err)
	}
	defer tx.Rollback()

	balance, err := s.clients.Credit(ctx, tx, clientID, amount)
	if err != nil {
		return 0, fmt.Errorf("AddFunds: %w", err)
	}

	err = s.transactions.Create(ctx, tx, &domain.BalanceTransaction{
		ID:             uuid.New(),
		AccountKind:    domain.AccountKindClient,
		AccountID:      clientID,
		Kind:           domain.TransactionDeposit,
		Amount:         amount,
		BalanceBefore:  balance - amount,
		BalanceAfter:   balance,
		CreatedAt:      time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	})
	if errors.Is(err, domain.ErrDuplicateIdempotency) {
		log.Warn("duplicate deposit rejected", "client_id", clientID, "idempotency_key", idempotencyKey)
		return 0, fmt.Errorf("AddFunds: %w", err)
	}
	if err != nil {
		return 0, fmt.Errorf("AddFunds: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("AddFunds: commit: %w", err)
	}

	log.Info("funds added", "client_id", clientID, "amount", amount, "balance", balance)
	return balance, nil
}

func (s *FundsService) Transactions(ctx context.Context, caller Caller, limit, offset int) ([]domain.BalanceTransaction, int, error) {
	limit, offset = clampPage(limit, offset)

	var (
		kind      domain.AccountKind
		accountID uuid.UUID
	)
	switch caller.Role {
	case domain.RoleClient:
		c, err := s.clients.GetByUserID(ctx, caller.UserID)
		if err != nil {
			return nil, 0, fmt.Errorf("Transactions: %w", err)
		}
		kind, accountID = domain.AccountKindClient, c.ID
	case domain.RoleFreelancer:
		f, err := s.freelancers.GetByUserID(ctx, caller.UserID)
		if err != nil {
			return nil, 0, fmt.Errorf("Transactions: %w", err)
		}
		kind, accountID = domain.AccountKindFreelancer, f.ID
	default:
		return nil, 0, fmt.Errorf("Transactions: %w", domain.ErrNotFound)
	}

	txs, total, err := s.transactions.ListByAccount(ctx, kind, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("Transactions: %w", err)
	}
	return txs, total, nil
}
