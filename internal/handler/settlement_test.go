package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/lingualance-api/internal/auth"
	"github.com/josh-kwaku/lingualance-api/internal/domain"
	"github.com/josh-kwaku/lingualance-api/internal/logging"
	"github.com/josh-kwaku/lingualance-api/internal/service"
	"github.com/josh-kwaku/lingualance-api/internal/service/settlement"
)

type mockSettler struct {
	result   *settlement.Result
	err      error
	split    settlement.Split
	quoteErr error
	got      *settlement.Request
}

func (m *mockSettler) Settle(_ context.Context, req settlement.Request) (*settlement.Result, error) {
	m.got = &req
	return m.result, m.err
}

func (m *mockSettler) Quote(amount domain.Money) (settlement.Split, error) {
	return m.split, m.quoteErr
}

type mockAuthorizer struct {
	err error
}

func (m *mockAuthorizer) AuthorizeSettlement(context.Context, service.Caller, uuid.UUID) error {
	return m.err
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Kind    string `json:"error_kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func authed(r *http.Request, userID uuid.UUID, role domain.Role) *http.Request {
	return r.WithContext(auth.ContextWithClaims(r.Context(), &auth.Claims{UserID: userID, Role: role}))
}

func settleBody(projectID, clientID, freelancerID uuid.UUID, amount string) string {
	return fmt.Sprintf(`{"project_id":%q,"client_id":%q,"freelancer_id":%q,"amount":%s}`,
		projectID, clientID, freelancerID, amount)
}

func TestSettlementHandler_Settle(t *testing.T) {
	projectID, clientID, freelancerID := uuid.New(), uuid.New(), uuid.New()
	callerID := uuid.New()
	validBody := settleBody(projectID, clientID, freelancerID, "100.00")

	stepErr := func(step settlement.Step, base error) error {
		return fmt.Errorf("Settle: %w", &settlement.StepError{Step: step, Err: fmt.Errorf("%w: boom", base)})
	}

	tests := []struct {
		name       string
		body       string
		authzErr   error
		settleErr  error
		noClaims   bool
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{
			name:       "success",
			body:       validBody,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing token",
			body:       validBody,
			noClaims:   true,
			wantStatus: http.StatusUnauthorized,
			wantKind:   "MissingToken",
		},
		{
			name:       "malformed json",
			body:       `{"project_id":`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "ValidationFailed",
		},
		{
			name:       "zero amount",
			body:       settleBody(projectID, clientID, freelancerID, "0"),
			wantStatus: http.StatusBadRequest,
			wantKind:   "ValidationFailed",
		},
		{
			name:       "missing ids",
			body:       `{"amount":10}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "ValidationFailed",
		},
		{
			name:       "too many decimals",
			body:       settleBody(projectID, clientID, freelancerID, "10.001"),
			wantStatus: http.StatusBadRequest,
			wantKind:   "ValidationFailed",
		},
		{
			name:       "not the project's client",
			body:       validBody,
			authzErr:   fmt.Errorf("AuthorizeSettlement: %w", domain.ErrForbidden),
			wantStatus: http.StatusForbidden,
			wantKind:   "Forbidden",
		},
		{
			name:       "insufficient funds",
			body:       validBody,
			settleErr:  fmt.Errorf("Settle: %w", domain.ErrInsufficientFunds),
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "InsufficientFunds",
		},
		{
			name:       "already settled",
			body:       validBody,
			settleErr:  fmt.Errorf("Settle: %w", domain.ErrAlreadySettled),
			wantStatus: http.StatusConflict,
			wantKind:   "AlreadySettled",
		},
		{
			name:       "freelancer missing",
			body:       validBody,
			settleErr:  fmt.Errorf("Settle: %w", domain.ErrFreelancerNotFound),
			wantStatus: http.StatusNotFound,
			wantKind:   "FreelancerNotFound",
		},
		{
			name:       "partial failure names the step",
			body:       validBody,
			settleErr:  stepErr(settlement.StepDebitClient, domain.ErrPartialFailure),
			wantStatus: http.StatusInternalServerError,
			wantKind:   "PartialFailure",
			wantMsg:    "(step: debit_client)",
		},
		{
			name:       "timeout names the step",
			body:       validBody,
			settleErr:  stepErr(settlement.StepCreditFreelancer, domain.ErrTimeout),
			wantStatus: http.StatusGatewayTimeout,
			wantKind:   "Timeout",
			wantMsg:    "(step: credit_freelancer)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settler := &mockSettler{
				err: tt.settleErr,
				result: &settlement.Result{
					ProjectID:          projectID,
					FeePercentage:      decimal.RequireFromString("0.02"),
					PlatformFee:        200,
					AmountToFreelancer: 9800,
					ClientBalance:      40000,
					FreelancerBalance:  9800,
					SettledAt:          time.Now(),
				},
			}
			h := NewSettlementHandler(settler, &mockAuthorizer{err: tt.authzErr})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/settlements", strings.NewReader(tt.body))
			if !tt.noClaims {
				req = authed(req, callerID, domain.RoleClient)
			}
			rec := httptest.NewRecorder()
			h.Settle(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)

			if tt.wantKind != "" {
				assert.False(t, env.Success)
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.wantKind, env.Error.Kind)
				if tt.wantMsg != "" {
					assert.Contains(t, env.Error.Message, tt.wantMsg)
				}
				return
			}

			assert.True(t, env.Success)
			var data map[string]any
			require.NoError(t, json.Unmarshal(env.Data, &data))
			assert.Equal(t, projectID.String(), data["project_id"])
			assert.Equal(t, 0.02, data["fee_percentage"])
			assert.Equal(t, float64(2), data["platform_fee"])
			assert.Equal(t, float64(98), data["amount_to_freelancer"])
			assert.Equal(t, float64(400), data["client_balance"])

			require.NotNil(t, settler.got)
			assert.Equal(t, domain.Money(10000), settler.got.Amount)
			assert.Equal(t, "user:"+callerID.String(), settler.got.Actor)
		})
	}
}

func TestSettlementHandler_SettleSkipsServiceWhenForbidden(t *testing.T) {
	settler := &mockSettler{}
	h := NewSettlementHandler(settler, &mockAuthorizer{err: domain.ErrForbidden})

	body := settleBody(uuid.New(), uuid.New(), uuid.New(), "5")
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/settlements", strings.NewReader(body)), uuid.New(), domain.RoleFreelancer)
	h.Settle(httptest.NewRecorder(), req)

	assert.Nil(t, settler.got)
}

func TestSettlementHandler_SettleFailureLoggedOnce(t *testing.T) {
	// The service logs failed settlements; the handler only maps the error.
	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	settler := &mockSettler{err: fmt.Errorf("Settle: %w", domain.ErrInsufficientFunds)}
	h := NewSettlementHandler(settler, &mockAuthorizer{})

	body := settleBody(uuid.New(), uuid.New(), uuid.New(), "5")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/settlements", strings.NewReader(body)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Settle(rec, authed(req, uuid.New(), domain.RoleClient))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, buf.String())
}

func TestSettlementHandler_Quote(t *testing.T) {
	settler := &mockSettler{split: settlement.Split{
		Amount: 25050,
		Fee:    501,
		Payout: 24549,
		Rate:   decimal.RequireFromString("0.02"),
	}}
	h := NewSettlementHandler(settler, &mockAuthorizer{})

	t.Run("valid amount", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Quote(rec, httptest.NewRequest(http.MethodGet, "/api/v1/settlements/quote?amount=250.50", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.JSONEq(t, `{"amount":250.5,"fee_percentage":0.02,"platform_fee":5.01,"amount_to_freelancer":245.49}`, string(env.Data))
	})

	for _, raw := range []string{"", "abc", "-5", "0", "1.234"} {
		t.Run("rejects "+raw, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Quote(rec, httptest.NewRequest(http.MethodGet, "/api/v1/settlements/quote?amount="+raw, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAppErrorFor(t *testing.T) {
	tests := []struct {
		err  error
		want *AppError
	}{
		{fmt.Errorf("x: %w", domain.ErrProjectNotFound), ErrProjectNotFound},
		{fmt.Errorf("x: %w", domain.ErrClientNotFound), ErrClientNotFound},
		{fmt.Errorf("x: %w", domain.ErrProjectMismatch), ErrProjectMismatch},
		{fmt.Errorf("x: %w", domain.ErrProjectNotSettleable), ErrProjectNotSettleable},
		{fmt.Errorf("x: %w", domain.ErrNotFound), ErrResourceNotFound},
		{fmt.Errorf("x: %w", domain.ErrEmailTaken), ErrEmailTaken},
		{fmt.Errorf("x: %w", domain.ErrInvalidCredentials), ErrInvalidCredentials},
		{fmt.Errorf("x: %w", domain.ErrInvalidTransition), ErrInvalidTransition},
		{fmt.Errorf("x: %w", domain.ErrProjectAssigned), ErrProjectAssigned},
		{fmt.Errorf("x: %w", domain.ErrVersionConflict), ErrVersionConflict},
		{fmt.Errorf("AddFunds: Create: %w", domain.ErrDuplicateIdempotency), ErrDuplicateRequest},
		{fmt.Errorf("x: %w", domain.ErrInvalidRequest), ErrValidationFailed},
		{errors.New("driver: bad connection"), ErrInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got := appErrorFor(tt.err)
			assert.Equal(t, tt.want.Status, got.Status)
			assert.Equal(t, tt.want.Kind, got.Kind)
		})
	}
}
