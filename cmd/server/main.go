package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/config"
	"github.com/stemsi/proctor-backend/internal/database"
	"github.com/stemsi/proctor-backend/internal/handler"
	"github.com/stemsi/proctor-backend/internal/logger"
	"github.com/stemsi/proctor-backend/internal/middleware"
	"github.com/stemsi/proctor-backend/internal/repository"
	"github.com/stemsi/proctor-backend/internal/router"
	"github.com/stemsi/proctor-backend/internal/service"
	"github.com/stemsi/proctor-backend/internal/validator"
	"github.com/stemsi/proctor-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Bool("strict_submit", cfg.StrictSubmit).
		Bool("keep_blocked_on_violation", cfg.KeepBlockedOnViolation).
		Msg("Starting proctoring backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	sessionRepo := repository.NewExamSessionRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	monitorRepo := repository.NewMonitorRepository(pool)
	lockRepo := repository.NewLockRepository(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	bus := service.NewRedisEventBus(rdb)
	authService := service.NewAuthService(cfg)
	userService := service.NewUserService(userRepo)
	examService := service.NewExamService(examRepo, service.NewRedisExamCache(rdb, cfg.ExamCacheTTL, log), log)
	sessionService := service.NewExamSessionService(
		sessionRepo,
		examService,
		service.NewQuestionSelector(questionRepo),
		lockRepo,
		bus,
		bus,
		service.PolicyFromConfig(cfg),
		log,
	)
	monitorService := service.NewMonitorService(monitorRepo, auditRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	health := map[string]handler.Pinger{
		"postgres": handler.PingFunc(pool.Ping),
		"redis": handler.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}),
	}
	auditDepth := func(ctx context.Context) (int64, error) {
		return rdb.LLen(ctx, config.WorkerKey.PersistAuditQueue).Result()
	}

	violationLimit := middleware.NewUserRateLimiter(middleware.NewRedisCounter(rdb), cfg.ViolationRateLimit, time.Minute, log)

	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(userService, log),
		StudentPortal: handler.NewStudentPortalHandler(examService, sessionService, userService, log),
		Exam:          handler.NewExamHandler(examService, sessionService, monitorService, log),
		Monitor:       handler.NewMonitorHandler(bus, examService, sessionService, monitorService, cfg.MonitorKeepAlive, log),
		WS:            handler.NewWSHandler(bus, sessionService, violationLimit, log, cfg.AllowedOrigins),
		System:        handler.NewSystemHandler(health, auditDepth, log),
	}
	guards := router.Guards{
		Tokens:         authService,
		Roles:          userService,
		ViolationLimit: violationLimit,
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})

	auditWorker := worker.NewAuditWorker(auditRepo, rdb, log)
	go func() {
		defer close(workerDone)
		auditWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, guards, cfg, log)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests. SSE and WebSocket streams end
	// when their request contexts are cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the audit worker and wait for its final flush.
	workerCancel()
	select {
	case <-workerDone:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Audit worker did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
