package settlement

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
	"github.com/josh-kwaku/lingualance-api/internal/logging"
)

type Request struct {
	ProjectID    uuid.UUID
	ClientID     uuid.UUID
	FreelancerID uuid.UUID
	Amount       domain.Money
	// Actor is recorded on the project audit trail, e.g. "user:<id>".
	Actor string
}

type Result struct {
	ProjectID          uuid.UUID
	FeePercentage      decimal.Decimal
	PlatformFee        domain.Money
	AmountToFreelancer domain.Money
	ClientBalance      domain.Money
	FreelancerBalance  domain.Money
	SettledAt          time.Time
}

// Settle marks a project paid, records the platform fee, debits the client and
// credits the freelancer. All four effects commit together or not at all.
func (s *Service) Settle(ctx context.Context, req Request) (*Result, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	res, err := s.settle(ctx, req)
	s.metrics.ObserveSettlement(Outcome(err), time.Since(start))
	if err != nil {
		log.Warn("settlement failed",
			"project_id", req.ProjectID,
			"client_id", req.ClientID,
			"freelancer_id", req.FreelancerID,
			"amount", req.Amount,
			"outcome", Outcome(err),
			"error", err,
		)
		return nil, fmt.Errorf("Settle: %w", err)
	}

	log.Info("project settled",
		"project_id", res.ProjectID,
		"client_id", req.ClientID,
		"freelancer_id", req.FreelancerID,
		"amount", req.Amount,
		"platform_fee", res.PlatformFee,
		"amount_to_freelancer", res.AmountToFreelancer,
	)
	return res, nil
}

func validateRequest(req Request) error {
	if req.ProjectID == uuid.Nil || req.ClientID == uuid.Nil || req.FreelancerID == uuid.Nil {
		return fmt.Errorf("validateRequest: missing identifier: %w", domain.ErrInvalidRequest)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("validateRequest: %w", domain.ErrInvalidAmount)
	}
	return nil
}

func (s *Service) settle(ctx context.Context, req Request) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	split, err := s.calc.Split(req.Amount)
	if err != nil {
		return nil, err
	}

	// Every step below runs under ctx, so no single step can outlive the
	// transaction deadline. database/sql rolls the transaction back when it
	// expires.
	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	var tx *sql.Tx
	if err := s.callDetached(ctx, StepBegin, cancel, func() error {
		var err error
		tx, err = s.db.BeginTx(ctx, nil)
		return err
	}); err != nil {
		return nil, err
	}
	defer tx.Rollback()

	project, client, freelancer, err := s.lockParties(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	if err := checkSettleable(project, req); err != nil {
		return nil, err
	}

	if client.Balance < req.Amount {
		return nil, fmt.Errorf("balance %s below %s: %w", client.Balance, req.Amount, domain.ErrInsufficientFunds)
	}

	now := s.now().UTC()

	if err := s.call(ctx, StepMarkPaid, func(ctx context.Context) error {
		return s.markPaid(ctx, tx, project, split, req.Actor, now)
	}); err != nil {
		return nil, err
	}

	if err := s.call(ctx, StepRecordFee, func(ctx context.Context) error {
		return s.revenue.Create(ctx, tx, &domain.RevenueEntry{
			ID:            uuid.New(),
			ProjectID:     project.ID,
			ClientID:      client.ID,
			FreelancerID:  freelancer.ID,
			Amount:        split.Fee,
			FeePercentage: split.Rate,
			CreatedAt:     now,
		})
	}); err != nil {
		return nil, err
	}

	var clientBalance domain.Money
	if err := s.call(ctx, StepDebitClient, func(ctx context.Context) error {
		clientBalance, err = s.clients.Debit(ctx, tx, client.ID, split.Amount)
		if err != nil {
			return err
		}
		return s.transactions.Create(ctx, tx, &domain.BalanceTransaction{
			ID:            uuid.New(),
			AccountKind:   domain.AccountKindClient,
			AccountID:     client.ID,
			ProjectID:     &project.ID,
			Kind:          domain.TransactionSettlementDebit,
			Amount:        split.Amount,
			BalanceBefore: clientBalance + split.Amount,
			BalanceAfter:  clientBalance,
			CreatedAt:     now,
		})
	}); err != nil {
		return nil, err
	}

	var freelancerBalance domain.Money
	if err := s.call(ctx, StepCreditFreelancer, func(ctx context.Context) error {
		freelancerBalance, err = s.freelancers.Credit(ctx, tx, freelancer.ID, split.Payout)
		if err != nil {
			return err
		}
		return s.transactions.Create(ctx, tx, &domain.BalanceTransaction{
			ID:            uuid.New(),
			AccountKind:   domain.AccountKindFreelancer,
			AccountID:     freelancer.ID,
			ProjectID:     &project.ID,
			Kind:          domain.TransactionSettlementCredit,
			Amount:        split.Payout,
			BalanceBefore: freelancerBalance - split.Payout,
			BalanceAfter:  freelancerBalance,
			CreatedAt:     now,
		})
	}); err != nil {
		return nil, err
	}

	// A commit that times out may still land; a retry then sees AlreadySettled.
	if err := s.callDetached(ctx, StepCommit, cancel, tx.Commit); err != nil {
		return nil, err
	}

	return &Result{
		ProjectID:          project.ID,
		FeePercentage:      split.Rate,
		PlatformFee:        split.Fee,
		AmountToFreelancer: split.Payout,
		ClientBalance:      clientBalance,
		FreelancerBalance:  freelancerBalance,
		SettledAt:          now,
	}, nil
}

// lockParties takes row locks in a fixed order (project, client, freelancer) so
// concurrent settlements touching the same rows queue instead of deadlocking.
func (s *Service) lockParties(ctx context.Context, tx *sql.Tx, req Request) (*domain.Project, *domain.Client, *domain.Freelancer, error) {
	var (
		project    *domain.Project
		client     *domain.Client
		freelancer *domain.Freelancer
	)

	err := s.call(ctx, StepLockProject, func(ctx context.Context) error {
		p, err := s.projects.GetForUpdate(ctx, tx, req.ProjectID)
		project = p
		return err
	})
	if err != nil {
		return nil, nil, nil, err
	}

	err = s.call(ctx, StepLockClient, func(ctx context.Context) error {
		c, err := s.clients.GetForUpdate(ctx, tx, req.ClientID)
		client = c
		return err
	})
	if err != nil {
		return nil, nil, nil, err
	}

	err = s.call(ctx, StepLockFreelancer, func(ctx context.Context) error {
		f, err := s.freelancers.GetForUpdate(ctx, tx, req.FreelancerID)
		freelancer = f
		return err
	})
	if err != nil {
		return nil, nil, nil, err
	}

	return project, client, freelancer, nil
}

func checkSettleable(p *domain.Project, req Request) error {
	if p.Status == domain.ProjectStatusPaid {
		return fmt.Errorf("checkSettleable: %w", domain.ErrAlreadySettled)
	}
	if p.ClientID != req.ClientID || p.FreelancerID == nil || *p.FreelancerID != req.FreelancerID {
		return fmt.Errorf("checkSettleable: %w", domain.ErrProjectMismatch)
	}
	if !p.Status.IsSettleable() {
		return fmt.Errorf("checkSettleable: status %s: %w", p.Status, domain.ErrProjectNotSettleable)
	}
	return nil
}

type settledPayload struct {
	Amount        domain.Money    `json:"amount"`
	PlatformFee   domain.Money    `json:"platform_fee"`
	Payout        domain.Money    `json:"amount_to_freelancer"`
	FeePercentage decimal.Decimal `json:"fee_percentage"`
}

func (s *Service) markPaid(ctx context.Context, tx *sql.Tx, p *domain.Project, split Split, actor string, now time.Time) error {
	if err := s.projects.MarkPaid(ctx, tx, p.ID, now); err != nil {
		return err
	}

	payload, err := json.Marshal(settledPayload{
		Amount:        split.Amount,
		PlatformFee:   split.Fee,
		Payout:        split.Payout,
		FeePercentage: split.Rate,
	})
	if err != nil {
		return fmt.Errorf("markPaid: payload: %w", err)
	}

	from := p.Status
	return s.events.Create(ctx, tx, &domain.ProjectEvent{
		ID:         uuid.New(),
		ProjectID:  p.ID,
		EventType:  domain.ProjectEventSettled,
		FromStatus: &from,
		ToStatus:   domain.ProjectStatusPaid,
		Actor:      actor,
		Payload:    payload,
		CreatedAt:  now,
	})
}
