package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
	"github.com/josh-kwaku/lingualance-api/internal/service"
)

type mockAuthService struct {
	user     *domain.User
	token    string
	err      error
	register *service.RegisterInput
}

func (m *mockAuthService) Register(_ context.Context, in service.RegisterInput) (*domain.User, error) {
	m.register = &in
	return m.user, m.err
}

func (m *mockAuthService) Login(context.Context, string, string) (string, *domain.User, error) {
	return m.token, m.user, m.err
}

func TestAuthHandler_Register(t *testing.T) {
	user := &domain.User{
		ID:        uuid.New(),
		Email:     "ada@example.com",
		Name:      "Ada",
		Role:      domain.RoleFreelancer,
		Status:    domain.UserStatusActive,
		CreatedAt: time.Now().UTC(),
	}

	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantKind   string
	}{
		{
			name:       "created",
			body:       `{"email":"ada@example.com","password":"s3cretpass","name":"Ada","role":"freelancer"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "admin is not self assignable",
			body:       `{"email":"ada@example.com","password":"s3cretpass","name":"Ada","role":"admin"}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "ValidationFailed",
		},
		{
			name:       "short password",
			body:       `{"email":"ada@example.com","password":"short","name":"Ada","role":"client"}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "ValidationFailed",
		},
		{
			name:       "email taken",
			body:       `{"email":"ada@example.com","password":"s3cretpass","name":"Ada","role":"client"}`,
			svcErr:     errors.Join(errors.New("Register"), domain.ErrEmailTaken),
			wantStatus: http.StatusConflict,
			wantKind:   "EmailTaken",
		},
		{
			name:       "not json",
			body:       `nope`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "ValidationFailed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{user: user, err: tt.svcErr}
			h := NewAuthHandler(svc)

			rec := httptest.NewRecorder()
			h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			if tt.wantKind != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.wantKind, env.Error.Kind)
				return
			}

			var got map[string]any
			require.NoError(t, json.Unmarshal(env.Data, &got))
			assert.Equal(t, "ada@example.com", got["email"])
			assert.Equal(t, "freelancer", got["role"])
			assert.NotContains(t, got, "password_hash")
			assert.Equal(t, domain.RoleFreelancer, svc.register.Role)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "ada@example.com", Role: domain.RoleClient}

	t.Run("returns token", func(t *testing.T) {
		h := NewAuthHandler(&mockAuthService{user: user, token: "jwt-token"})
		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"email":"ada@example.com","password":"whatever1"}`)))

		assert.Equal(t, http.StatusOK, rec.Code)
		var got loginResponse
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
		assert.Equal(t, "jwt-token", got.Token)
		assert.Equal(t, user.ID, got.User.ID)
	})

	t.Run("bad credentials", func(t *testing.T) {
		h := NewAuthHandler(&mockAuthService{err: domain.ErrInvalidCredentials})
		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"email":"ada@example.com","password":"wrong"}`)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "InvalidCredentials", decodeEnvelope(t, rec).Error.Kind)
	})
}

type mockProfileService struct {
	client *domain.Client
	err    error
	called bool
}

func (m *mockProfileService) GetClient(context.Context, uuid.UUID) (*domain.Client, error) {
	return m.client, m.err
}

func (m *mockProfileService) GetFreelancer(context.Context, uuid.UUID) (*domain.Freelancer, error) {
	return nil, domain.ErrFreelancerNotFound
}

func (m *mockProfileService) ListFreelancers(context.Context, string, int, int) ([]domain.Freelancer, int, error) {
	return nil, 0, nil
}

func (m *mockProfileService) UpdateClient(_ context.Context, _ service.Caller, _ uuid.UUID, _ domain.ProfilePatch) (*domain.Client, error) {
	m.called = true
	return m.client, m.err
}

func (m *mockProfileService) UpdateFreelancer(context.Context, service.Caller, uuid.UUID, domain.ProfilePatch) (*domain.Freelancer, error) {
	m.called = true
	return nil, m.err
}

func (m *mockProfileService) MyProfile(context.Context, service.Caller) (*service.Profile, error) {
	return &service.Profile{Client: m.client}, m.err
}

func TestProfileHandler_UpdateClient(t *testing.T) {
	client := &domain.Client{ID: uuid.New(), UserID: uuid.New(), DisplayName: "Acme", Balance: 50000}

	t.Run("balance cannot be patched", func(t *testing.T) {
		svc := &mockProfileService{client: client}
		h := NewProfileHandler(svc)

		req := httptest.NewRequest(http.MethodPatch, "/api/v1/clients/"+client.ID.String(),
			strings.NewReader(`{"display_name":"Acme","balance":999999}`))
		req.SetPathValue("id", client.ID.String())
		rec := httptest.NewRecorder()
		h.UpdateClient(rec, authed(req, client.UserID, domain.RoleClient))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, svc.called)
	})

	t.Run("owner sees balance", func(t *testing.T) {
		svc := &mockProfileService{client: client}
		h := NewProfileHandler(svc)

		req := httptest.NewRequest(http.MethodPatch, "/api/v1/clients/"+client.ID.String(),
			strings.NewReader(`{"display_name":"Acme"}`))
		req.SetPathValue("id", client.ID.String())
		rec := httptest.NewRecorder()
		h.UpdateClient(rec, authed(req, client.UserID, domain.RoleClient))

		assert.Equal(t, http.StatusOK, rec.Code)
		var got map[string]any
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
		assert.Equal(t, float64(500), got["balance"])
	})

	t.Run("someone else's profile", func(t *testing.T) {
		svc := &mockProfileService{err: domain.ErrForbidden}
		h := NewProfileHandler(svc)

		req := httptest.NewRequest(http.MethodPatch, "/api/v1/clients/"+client.ID.String(),
			strings.NewReader(`{"bio":"hi"}`))
		req.SetPathValue("id", client.ID.String())
		rec := httptest.NewRecorder()
		h.UpdateClient(rec, authed(req, uuid.New(), domain.RoleClient))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestProfileHandler_PublicViewHidesBalance(t *testing.T) {
	client := &domain.Client{ID: uuid.New(), DisplayName: "Acme", Balance: 50000}
	h := NewProfileHandler(&mockProfileService{client: client})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/"+client.ID.String(), nil)
	req.SetPathValue("id", client.ID.String())
	rec := httptest.NewRecorder()
	h.GetClient(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	assert.NotContains(t, got, "balance")
}

func TestProfileHandler_MalformedIDIsNotFound(t *testing.T) {
	h := NewProfileHandler(&mockProfileService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/freelancers/not-a-uuid", nil)
	req.SetPathValue("id", "not-a-uuid")
	rec := httptest.NewRecorder()
	h.GetFreelancer(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "FreelancerNotFound", decodeEnvelope(t, rec).Error.Kind)
}

type mockMessageService struct {
	posted string
	err    error
}

func (m *mockMessageService) Post(_ context.Context, caller service.Caller, projectID uuid.UUID, body string) (*domain.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.posted = body
	return &domain.Message{ID: uuid.New(), ProjectID: projectID, SenderUserID: caller.UserID, Body: body}, nil
}

func (m *mockMessageService) List(context.Context, service.Caller, uuid.UUID, int, int) ([]domain.Message, error) {
	return nil, m.err
}

func TestMessageHandler_Post(t *testing.T) {
	projectID := uuid.New()

	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
	}{
		{name: "ok", body: "Draft attached, please review.", wantStatus: http.StatusCreated},
		{name: "empty", body: "", wantStatus: http.StatusBadRequest},
		{name: "max length in runes", body: strings.Repeat("é", domain.MaxMessageLength), wantStatus: http.StatusCreated},
		{name: "too long", body: strings.Repeat("a", domain.MaxMessageLength+1), wantStatus: http.StatusBadRequest},
		{name: "not a participant", body: "hi", svcErr: domain.ErrForbidden, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMessageHandler(&mockMessageService{err: tt.svcErr})
			payload, err := json.Marshal(postMessageRequest{Body: tt.body})
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/"+projectID.String()+"/messages", strings.NewReader(string(payload)))
			req.SetPathValue("id", projectID.String())
			rec := httptest.NewRecorder()
			h.Post(rec, authed(req, uuid.New(), domain.RoleClient))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHealthHandler(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("liveness", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(nil).Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("all dependencies up", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(map[string]Pinger{"postgres": up, "redis": up}).
			Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("one dependency down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(map[string]Pinger{"postgres": up, "redis": down}).
			Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var got struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "down", got.Status)
		assert.Equal(t, "ok", got.Checks["postgres"])
		assert.Equal(t, "down", got.Checks["redis"])
	})
}
