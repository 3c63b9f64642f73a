package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
)

type projectRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Project, error)
	MarkPaid(ctx context.Context, tx *sql.Tx, id uuid.UUID, paidAt time.Time) error
}

type clientRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Client, error)
	Debit(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount domain.Money) (domain.Money, error)
}

type freelancerRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Freelancer, error)
	Credit(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount domain.Money) (domain.Money, error)
}

type revenueRepo interface {
	Create(ctx context.Context, tx *sql.Tx, e *domain.RevenueEntry) error
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.BalanceTransaction) error
}

type eventRepo interface {
	Create(ctx context.Context, tx *sql.Tx, event *domain.ProjectEvent) error
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type recorder interface {
	ObserveSettlement(outcome string, d time.Duration)
}

type Service struct {
	projects     projectRepo
	clients      clientRepo
	freelancers  freelancerRepo
	revenue      revenueRepo
	transactions transactionRepo
	events       eventRepo
	db           txBeginner
	calc         *Calculator
	callTimeout  time.Duration
	txTimeout    time.Duration
	metrics      recorder
	now          func() time.Time
}

type Deps struct {
	Projects     projectRepo
	Clients      clientRepo
	Freelancers  freelancerRepo
	Revenue      revenueRepo
	Transactions transactionRepo
	Events       eventRepo
	DB           txBeginner
	Metrics      recorder
}

func NewService(deps Deps, calc *Calculator, callTimeout time.Duration) *Service {
	m := deps.Metrics
	if m == nil {
		m = nopRecorder{}
	}
	return &Service{
		projects:     deps.Projects,
		clients:      deps.Clients,
		freelancers:  deps.Freelancers,
		revenue:      deps.Revenue,
		transactions: deps.Transactions,
		events:       deps.Events,
		db:           deps.DB,
		calc:         calc,
		callTimeout:  callTimeout,
		txTimeout:    callTimeout * callsPerSettlement,
		metrics:      m,
		now:          time.Now,
	}
}

// Quote previews the split for amount without touching the datastore.
func (s *Service) Quote(amount domain.Money) (Split, error) {
	split, err := s.calc.Split(amount)
	if err != nil {
		return Split{}, fmt.Errorf("Quote: %w", err)
	}
	return split, nil
}

type nopRecorder struct{}

func (nopRecorder) ObserveSettlement(string, time.Duration) {}

// Step names the write or lock a settlement was performing when it failed.
type Step string

const (
	StepBegin            Step = "begin"
	StepLockProject      Step = "lock_project"
	StepLockClient       Step = "lock_client"
	StepLockFreelancer   Step = "lock_freelancer"
	StepMarkPaid         Step = "mark_paid"
	StepRecordFee        Step = "record_fee"
	StepDebitClient      Step = "debit_client"
	StepCreditFreelancer Step = "credit_freelancer"
	StepCommit           Step = "commit"
)

// callsPerSettlement is the number of Steps. The transaction as a whole gets
// one call timeout per step.
const callsPerSettlement = 9

// StepError wraps an infrastructure failure with the step it happened in.
// Err always wraps either domain.ErrPartialFailure or domain.ErrTimeout.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Business outcomes pass through a step unchanged; anything else is an
// infrastructure failure.
var businessErrors = []error{
	domain.ErrProjectNotFound,
	domain.ErrClientNotFound,
	domain.ErrFreelancerNotFound,
	domain.ErrAlreadySettled,
	domain.ErrInsufficientFunds,
}

func isBusinessError(err error) bool {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// call runs one datastore interaction under the per-call timeout and
// classifies its failure.
func (s *Service) call(ctx context.Context, step Step, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	err := fn(callCtx)
	if err == nil {
		return nil
	}
	return classify(callCtx, step, err)
}

// callDetached is call for operations that cannot take the per-call context:
// beginning the transaction, whose context must outlive the call, and
// committing it. On timeout abort cancels the transaction context so
// database/sql rolls back whatever fn left behind.
func (s *Service) callDetached(ctx context.Context, step Step, abort context.CancelFunc, fn func() error) error {
	return s.call(ctx, step, func(callCtx context.Context) error {
		done := make(chan error, 1)
		go func() { done <- fn() }()

		select {
		case err := <-done:
			return err
		case <-callCtx.Done():
			abort()
			return callCtx.Err()
		}
	})
}

func classify(ctx context.Context, step Step, err error) error {
	switch {
	case isBusinessError(err):
		return fmt.Errorf("%s: %w", step, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return &StepError{Step: step, Err: fmt.Errorf("%w: %w", domain.ErrTimeout, err)}
	default:
		return &StepError{Step: step, Err: fmt.Errorf("%w: %w", domain.ErrPartialFailure, err)}
	}
}

// Outcome is a metrics-friendly label for the result of a settlement.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrAlreadySettled):
		return "already_settled"
	case errors.Is(err, domain.ErrProjectNotFound),
		errors.Is(err, domain.ErrClientNotFound),
		errors.Is(err, domain.ErrFreelancerNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrPartialFailure):
		return "partial_failure"
	default:
		return "rejected"
	}
}
