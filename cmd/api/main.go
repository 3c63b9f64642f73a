package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/josh-kwaku/lingualance-api/internal/config"
	"github.com/josh-kwaku/lingualance-api/internal/domain"
	"github.com/josh-kwaku/lingualance-api/internal/handler"
	"github.com/josh-kwaku/lingualance-api/internal/logging"
	"github.com/josh-kwaku/lingualance-api/internal/metrics"
	"github.com/josh-kwaku/lingualance-api/internal/middleware"
	"github.com/josh-kwaku/lingualance-api/internal/ratelimit"
	"github.com/josh-kwaku/lingualance-api/internal/repository"
	"github.com/josh-kwaku/lingualance-api/internal/service"
	"github.com/josh-kwaku/lingualance-api/internal/service/settlement"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("lingualance-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		PingAttempts:     30,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := connectRedis(ctx, cfg.RedisURL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()

	users := repository.NewUserRepository(db)
	clients := repository.NewClientRepository(db)
	freelancers := repository.NewFreelancerRepository(db)
	projects := repository.NewProjectRepository(db)
	events := repository.NewProjectEventRepository(db)
	messages := repository.NewMessageRepository(db)
	revenue := repository.NewRevenueRepository(db)
	transactions := repository.NewBalanceTransactionRepository(db)
	idempotency := repository.NewIdempotencyRepository(db)
	rateLimits := repository.NewRateLimitRepository(db)

	calc, err := settlement.NewCalculator(cfg.PlatformFeeRate)
	if err != nil {
		slog.Error("invalid platform fee rate", "error", err)
		os.Exit(1)
	}
	settlements := settlement.NewService(settlement.Deps{
		Projects:     projects,
		Clients:      clients,
		Freelancers:  freelancers,
		Revenue:      revenue,
		Transactions: transactions,
		Events:       events,
		DB:           db,
		Metrics:      m,
	}, calc, cfg.DBCallTimeout)

	authSvc := service.NewAuthService(db, users, clients, freelancers, cfg.JWTSecret, cfg.JWTExpiry)
	profileSvc := service.NewProfileService(clients, freelancers)
	fundsSvc := service.NewFundsService(db, clients, freelancers, transactions)
	projectSvc := service.NewProjectService(db, projects, events, clients, freelancers, users)
	messageSvc := service.NewMessageService(messages, projectSvc)
	adminSvc := service.NewAdminService(users, revenue)

	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.NewRedisLimiter(redisClient, "", cfg.RateLimitAuthMax, cfg.RateLimitAuthWindow)
	} else {
		limiter = ratelimit.NewPostgresLimiter(rateLimits, cfg.RateLimitAuthMax, cfg.RateLimitAuthWindow)
	}

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	healthH := handler.NewHealthHandler(checks)
	authH := handler.NewAuthHandler(authSvc)
	userH := handler.NewUserHandler(authSvc)
	profileH := handler.NewProfileHandler(profileSvc)
	fundsH := handler.NewFundsHandler(fundsSvc)
	projectH := handler.NewProjectHandler(projectSvc)
	messageH := handler.NewMessageHandler(messageSvc)
	settlementH := handler.NewSettlementHandler(settlements, projectSvc)
	adminH := handler.NewAdminHandler(adminSvc)

	authed := middleware.Auth(cfg.JWTSecret)
	idem := middleware.Idempotency(idempotency)
	limited := func(scope string) func(http.Handler) http.Handler {
		return middleware.RateLimit(limiter, scope, m)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthH.Liveness)
	mux.HandleFunc("GET /health/ready", healthH.Readiness)
	mux.Handle("GET /metrics", m.Handler())

	mux.Handle("POST /api/v1/auth/register", limited("register")(http.HandlerFunc(authH.Register)))
	mux.Handle("POST /api/v1/auth/login", limited("login")(http.HandlerFunc(authH.Login)))

	mux.Handle("GET /api/v1/users/{id}", chain(userH.GetByID, authed))
	mux.Handle("GET /api/v1/me/profile", chain(profileH.Me, authed))
	mux.Handle("GET /api/v1/me/transactions", chain(fundsH.MyTransactions, authed))

	mux.Handle("GET /api/v1/freelancers", chain(profileH.ListFreelancers, authed))
	mux.Handle("GET /api/v1/freelancers/{id}", chain(profileH.GetFreelancer, authed))
	mux.Handle("PATCH /api/v1/freelancers/{id}", chain(profileH.UpdateFreelancer, authed))
	mux.Handle("GET /api/v1/clients/{id}", chain(profileH.GetClient, authed))
	mux.Handle("PATCH /api/v1/clients/{id}", chain(profileH.UpdateClient, authed))
	mux.Handle("POST /api/v1/clients/{id}/funds", chain(fundsH.AddFunds, authed, idem))

	mux.Handle("POST /api/v1/projects", chain(projectH.Create, authed))
	mux.Handle("GET /api/v1/projects", chain(projectH.List, authed))
	mux.Handle("GET /api/v1/projects/{id}", chain(projectH.Get, authed))
	mux.Handle("PATCH /api/v1/projects/{id}/status", chain(projectH.UpdateStatus, authed))
	mux.Handle("POST /api/v1/projects/{id}/assign", chain(projectH.Assign, authed))
	mux.Handle("GET /api/v1/projects/{id}/events", chain(projectH.Events, authed))
	mux.Handle("POST /api/v1/projects/{id}/messages", chain(messageH.Post, authed))
	mux.Handle("GET /api/v1/projects/{id}/messages", chain(messageH.List, authed))

	mux.Handle("POST /api/v1/settlements", chain(settlementH.Settle, authed, idem))
	mux.Handle("GET /api/v1/settlements/quote", chain(settlementH.Quote, authed))

	mux.Handle("GET /api/v1/admin/revenue", chain(adminH.Revenue, authed, middleware.RequireRole(domain.RoleAdmin)))

	var root http.Handler = middleware.Metrics(m)(mux)
	root = middleware.Logging(root)
	root = middleware.Tracing(root)
	root = middleware.Recovery(root)

	housekeeper := service.NewHousekeeper(idempotency, rateLimits, logger, cfg.HousekeepingInterval)
	go housekeeper.Start(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// chain applies middleware so the first one listed runs first.
func chain(h http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
	var out http.Handler = h
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// connectRedis returns nil when Redis is not configured or not reachable, in
// which case rate limiting falls back to Postgres.
func connectRedis(ctx context.Context, url string) *redis.Client {
	if strings.TrimSpace(url) == "" {
		slog.Info("redis url not set; rate limiting uses postgres")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		slog.Warn("redis url parse failed; rate limiting uses postgres", "error", err)
		return nil
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis ping failed; rate limiting uses postgres", "error", err)
		client.Close()
		return nil
	}

	slog.Info("redis connected")
	return client
}
