package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RevenueEntry records the platform fee taken by one settlement.
type RevenueEntry struct {
	ID            uuid.UUID
	ProjectID     uuid.UUID
	ClientID      uuid.UUID
	FreelancerID  uuid.UUID
	Amount        Money
	FeePercentage decimal.Decimal
	CreatedAt     time.Time
}

type TransactionKind string

const (
	TransactionDeposit          TransactionKind = "deposit"
	TransactionSettlementDebit  TransactionKind = "settlement_debit"
	TransactionSettlementCredit TransactionKind = "settlement_credit"
)

type BalanceTransaction struct {
	ID            uuid.UUID
	AccountKind   AccountKind
	AccountID     uuid.UUID
	ProjectID     *uuid.UUID
	Kind          TransactionKind
	Amount        Money
	BalanceBefore Money
	BalanceAfter  Money
	CreatedAt     time.Time

	// IdempotencyKey is set on deposits only; settlement rows are guarded by
	// the project status instead.
	IdempotencyKey string
}
