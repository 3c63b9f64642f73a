package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/lingualance-api/internal/auth"
	"github.com/josh-kwaku/lingualance-api/internal/domain"
	"github.com/josh-kwaku/lingualance-api/internal/handler"
	"github.com/josh-kwaku/lingualance-api/internal/ratelimit"
	"github.com/josh-kwaku/lingualance-api/internal/repository"
)

const testSecret = "test-secret-key-for-testing-only"

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Kind string `json:"error_kind"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Kind
}

func tokenFor(t *testing.T, role domain.Role) (string, uuid.UUID) {
	t.Helper()
	u := &domain.User{ID: uuid.New(), Email: "u@example.com", Role: role}
	token, err := auth.GenerateToken(u, testSecret, time.Hour)
	require.NoError(t, err)
	return token, u.ID
}

func TestAuth(t *testing.T) {
	validToken, userID := tokenFor(t, domain.RoleClient)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantKind   string
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized, wantKind: "MissingToken"},
		{name: "not bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantKind: "InvalidToken"},
		{name: "bearer without token", header: "Bearer ", wantStatus: http.StatusUnauthorized, wantKind: "InvalidToken"},
		{name: "garbage token", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized, wantKind: "InvalidToken"},
		{name: "valid", header: "Bearer " + validToken, wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotClaims *auth.Claims
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotClaims, _ = auth.ClaimsFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Auth(testSecret)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, errorKind(t, rec))
				return
			}
			require.NotNil(t, gotClaims)
			assert.Equal(t, userID, gotClaims.UserID)
			assert.Equal(t, domain.RoleClient, gotClaims.Role)
		})
	}
}

type memIdempotencyRepo struct {
	mu      sync.Mutex
	records map[string]*repository.IdempotencyRecord
}

func newMemIdempotencyRepo() *memIdempotencyRepo {
	return &memIdempotencyRepo{records: map[string]*repository.IdempotencyRecord{}}
}

func (m *memIdempotencyRepo) Get(_ context.Context, key string, userID uuid.UUID) (*repository.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[key+userID.String()], nil
}

func (m *memIdempotencyRepo) Save(_ context.Context, rec *repository.IdempotencyRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := rec.Key + rec.UserID.String()
	if _, ok := m.records[k]; ok {
		return false, nil
	}
	m.records[k] = rec
	return true, nil
}

func withClaims(r *http.Request, userID uuid.UUID) *http.Request {
	ctx := auth.ContextWithClaims(r.Context(), &auth.Claims{UserID: userID, Role: domain.RoleClient})
	return r.WithContext(ctx)
}

func TestIdempotency(t *testing.T) {
	userID := uuid.New()
	repo := newMemIdempotencyRepo()

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"echo":` + string(body) + `}`))
	})
	h := Idempotency(repo)(next)

	send := func(key, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/settlements", strings.NewReader(body))
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withClaims(req, userID))
		return rec
	}

	t.Run("missing key", func(t *testing.T) {
		rec := send("", `{"amount":1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "MissingIdempotencyKey", errorKind(t, rec))
	})

	t.Run("replay returns cached response", func(t *testing.T) {
		first := send("key-1", `{"amount":1}`)
		second := send("key-1", `{"amount":1}`)

		assert.Equal(t, http.StatusOK, second.Code)
		assert.Equal(t, first.Body.String(), second.Body.String())
		assert.Equal(t, "true", second.Header().Get("X-Idempotent-Replayed"))
		assert.Equal(t, 1, calls)
	})

	t.Run("same key different body conflicts", func(t *testing.T) {
		rec := send("key-1", `{"amount":2}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "IdempotencyConflict", errorKind(t, rec))
	})

	t.Run("get bypasses", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withClaims(req, userID))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestIdempotency_ServerErrorsNotCached(t *testing.T) {
	userID := uuid.New()
	repo := newMemIdempotencyRepo()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/settlements", strings.NewReader(`{}`))
	req.Header.Set("Idempotency-Key", "boom")
	Idempotency(repo)(next).ServeHTTP(httptest.NewRecorder(), withClaims(req, userID))

	assert.Empty(t, repo.records)
}

func TestIdempotency_ConcurrentSameKeyReplaysWinner(t *testing.T) {
	userID := uuid.New()
	repo := newMemIdempotencyRepo()

	// Both requests miss the cache before either finishes. The ledger lets one
	// deposit through and rejects the other with DuplicateRequest.
	var entered sync.WaitGroup
	entered.Add(2)
	var applied atomic.Bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entered.Done()
		entered.Wait()
		if !applied.CompareAndSwap(false, true) {
			handler.RespondAppError(w, handler.ErrDuplicateRequest, nil)
			return
		}
		handler.RespondSuccess(w, http.StatusOK, map[string]int{"balance": 500})
	})
	h := Idempotency(repo)(next)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/x/funds", strings.NewReader(`{"amount":500}`))
		req.Header.Set("Idempotency-Key", "same-key")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withClaims(req, userID))
		return rec
	}

	results := make([]*httptest.ResponseRecorder, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = send()
		}()
	}
	wg.Wait()

	codes := []int{results[0].Code, results[1].Code}
	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusConflict}, codes)

	replay := send()
	assert.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("X-Idempotent-Replayed"))
}

type stubLimiter struct {
	decision ratelimit.Decision
	err      error
	keys     []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (ratelimit.Decision, error) {
	s.keys = append(s.keys, key)
	return s.decision, s.err
}

type countingObserver struct {
	rateLimited map[string]int
	routes      []string
	statuses    []int
}

func (c *countingObserver) IncRateLimited(scope string) {
	if c.rateLimited == nil {
		c.rateLimited = map[string]int{}
	}
	c.rateLimited[scope]++
}

func (c *countingObserver) ObserveHTTP(_, route string, status int, _ time.Duration) {
	c.routes = append(c.routes, route)
	c.statuses = append(c.statuses, status)
}

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	t.Run("blocked", func(t *testing.T) {
		limiter := &stubLimiter{decision: ratelimit.Decision{Allowed: false, Count: 11, RetryAfter: 42 * time.Second}}
		obs := &countingObserver{}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()

		RateLimit(limiter, "login", obs)(ok).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "RateLimited", errorKind(t, rec))
		assert.Equal(t, "42", rec.Header().Get("Retry-After"))
		assert.Equal(t, []string{"login:203.0.113.7"}, limiter.keys)
		assert.Equal(t, 1, obs.rateLimited["login"])
	})

	t.Run("allowed", func(t *testing.T) {
		limiter := &stubLimiter{decision: ratelimit.Decision{Allowed: true, Count: 1}}
		rec := httptest.NewRecorder()
		RateLimit(limiter, "login", &countingObserver{})(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("limiter down fails open", func(t *testing.T) {
		limiter := &stubLimiter{err: errors.New("redis: connection refused")}
		rec := httptest.NewRecorder()
		RateLimit(limiter, "login", &countingObserver{})(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	obs := &countingObserver{}
	h := Metrics(obs)(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/projects/"+uuid.NewString(), nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, []string{"GET /api/v1/projects/{id}", "unmatched"}, obs.routes)
	assert.Equal(t, []int{http.StatusTeapot, http.StatusNotFound}, obs.statuses)
}

func TestRecovery(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	rec := httptest.NewRecorder()

	Recovery(panicky).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "InternalError", errorKind(t, rec))
}

func TestTracing(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "propagates caller id", incoming: "req-123", keep: true},
		{name: "mints when absent", incoming: ""},
		{name: "replaces header injection", incoming: "abc\r\nX-Evil: 1"},
		{name: "replaces oversized id", incoming: strings.Repeat("a", maxRequestIDLen+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { seen = RequestIDFromContext(r.Context()) })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set("X-Request-ID", tt.incoming)
			}
			rec := httptest.NewRecorder()
			Tracing(next).ServeHTTP(rec, req)

			assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
			if tt.keep {
				assert.Equal(t, tt.incoming, seen)
				return
			}
			_, err := uuid.Parse(seen)
			assert.NoError(t, err)
		})
	}
}

func TestRecovery_ReraisesAbortHandler(t *testing.T) {
	aborting := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic(http.ErrAbortHandler) })

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		Recovery(aborting).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestAuth_ExpiredToken(t *testing.T) {
	u := &domain.User{ID: uuid.New(), Email: "u@example.com", Role: domain.RoleClient}
	token, err := auth.GenerateToken(u, testSecret, -time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Auth(testSecret)(http.NotFoundHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TokenExpired", errorKind(t, rec))
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	gate := RequireRole(domain.RoleAdmin)(ok)

	tests := []struct {
		name       string
		role       domain.Role
		noClaims   bool
		wantStatus int
	}{
		{name: "admin passes", role: domain.RoleAdmin, wantStatus: http.StatusNoContent},
		{name: "client blocked", role: domain.RoleClient, wantStatus: http.StatusForbidden},
		{name: "anonymous", noClaims: true, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/revenue", nil)
			if !tt.noClaims {
				req = req.WithContext(auth.ContextWithClaims(req.Context(), &auth.Claims{UserID: uuid.New(), Role: tt.role}))
			}
			rec := httptest.NewRecorder()
			gate.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
