package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"creator-payout-service/config"
	httpHandler "creator-payout-service/internal/adapter/http/handler"
	"creator-payout-service/internal/adapter/notify"
	pgStorage "creator-payout-service/internal/adapter/storage/postgres"
	redisStorage "creator-payout-service/internal/adapter/storage/redis"
	"creator-payout-service/internal/core/domain"
	"creator-payout-service/internal/core/ports"
	"creator-payout-service/internal/service"
	"creator-payout-service/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Creator Payout Service")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	codeRepo := pgStorage.NewOneTimeCodeRepo(pool)
	withdrawalRepo := pgStorage.NewWithdrawalRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	lockoutStore := redisStorage.NewLockoutStore(rdb, cfg.Security.LockoutMaxAttempts, cfg.Security.LockoutWindow)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	hashSvc := service.NewArgon2HashService(cfg.Security.HashConcurrency)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.StepUpExpiry, cfg.JWT.Issuer)

	// Notification dispatch: webhook when configured, log-only otherwise
	var notifier ports.Notifier
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, &http.Client{Timeout: cfg.Notify.Timeout}, log)
	} else {
		log.Warn().Msg("No notify webhook configured, notifications will only be logged")
		notifier = notify.NewLogNotifier(log)
	}

	// Initialize business services
	pinSvc := service.NewPinService(accountRepo, hashSvc, lockoutStore, cfg.Security.LockoutMaxAttempts, log)
	otpSvc := service.NewOTPService(
		accountRepo,
		codeRepo,
		hashSvc,
		lockoutStore,
		tokenSvc,
		notifier,
		transactor,
		service.OTPConfig{
			TTL:            cfg.Security.OTPTTL,
			ResendCooldown: cfg.Security.OTPResendCooldown,
			MaxAttempts:    cfg.Security.OTPMaxAttempts,
			ProofWindow:    cfg.Security.OTPProofWindow,
		},
		log,
	)
	withdrawalSvc := service.NewWithdrawalService(
		accountRepo,
		withdrawalRepo,
		tokenSvc,
		notifier,
		transactor,
		domain.FeeModel{
			Mode:   domain.FeeMode(cfg.Fee.Mode),
			Amount: cfg.Fee.Amount,
			Rate:   cfg.Fee.Rate,
			Floor:  cfg.Fee.Floor,
		},
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		PinSvc:         pinSvc,
		OTPSvc:         otpSvc,
		WithdrawalSvc:  withdrawalSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
