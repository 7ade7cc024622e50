package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/safishield/internal/api"
	"github.com/saturnino-fabrica-de-software/safishield/internal/audit"
	"github.com/saturnino-fabrica-de-software/safishield/internal/challenge"
	"github.com/saturnino-fabrica-de-software/safishield/internal/config"
	"github.com/saturnino-fabrica-de-software/safishield/internal/database"
	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/enrollment"
	"github.com/saturnino-fabrica-de-software/safishield/internal/extractor"
	"github.com/saturnino-fabrica-de-software/safishield/internal/face"
	"github.com/saturnino-fabrica-de-software/safishield/internal/provider/mfcc"
	"github.com/saturnino-fabrica-de-software/safishield/internal/quality"
	"github.com/saturnino-fabrica-de-software/safishield/internal/repository"
	"github.com/saturnino-fabrica-de-software/safishield/internal/risk"
	"github.com/saturnino-fabrica-de-software/safishield/internal/service"
	"github.com/saturnino-fabrica-de-software/safishield/internal/store"
	"github.com/saturnino-fabrica-de-software/safishield/internal/verification"
	"github.com/saturnino-fabrica-de-software/safishield/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting SafiShield API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("store", cfg.StoreBackend),
		slog.String("templates", cfg.TemplateBackend),
		slog.String("face_provider", cfg.FaceProvider),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if cfg.UsesDatabase() {
		pool, err = database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		defer pool.Close()
		logger.Info("connected to database")
	}

	var kv store.KV = store.NewMemoryStore()
	if cfg.StoreBackend == "postgres" {
		kv = store.NewPGStore(pool)
	}

	var templates repository.TemplateRepository = repository.NewKVTemplateRepository(kv)
	if cfg.TemplateBackend == "pgvector" {
		templates = repository.NewPGTemplateRepository(pool)
	}

	settings := repository.NewSettingsRepository(kv)

	// Every recorded security event is also pushed to live observers
	hub := ws.NewHub()
	events := audit.NewLog(kv, cfg.SecurityLogLimit, logger)
	recorder := ws.NewNotifier(events, hub)

	faceBackend, err := face.NewFaceBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create face backend: %w", err)
	}

	ex := extractor.New(faceBackend, mfcc.New())
	gate := quality.NewGate(quality.DefaultThresholds())

	enroll := enrollment.NewRunner(ex, gate, templates, recorder, enrollment.Config{
		TickInterval:  cfg.EnrollTickInterval,
		VoiceDuration: cfg.VoiceCaptureDuration,
	}, logger)

	verify := verification.NewRunner(ex, gate, templates, settings, recorder, verification.Config{
		TickInterval:  cfg.FaceTickInterval,
		Timeout:       cfg.VerifyTimeout,
		VoiceDuration: cfg.VoiceCaptureDuration,
		DisplayDelay:  cfg.ResultDisplayDelay,
	}, logger)

	riskCfg := risk.DefaultConfig()
	riskCfg.ChallengeThreshold = cfg.RiskChallengeThreshold
	riskCfg.BlockThreshold = cfg.RiskBlockThreshold
	riskCfg.SeedSimIccid = cfg.SeedSimIccid
	engine := risk.NewEngine(riskCfg, risk.NewAgents(domain.SeedAgents()))

	biometrics := service.NewBiometricService(templates, settings, recorder, logger)
	transactions := service.NewTransactionService(
		repository.NewProfileRepository(kv),
		repository.NewTransactionRepository(kv),
		repository.NewAlertRepository(kv),
		templates,
		settings,
		engine,
		challenge.NewVerifier(recorder, cfg.MockOTP, logger),
		recorder,
		logger,
	)

	deps := &api.Dependencies{
		Biometrics:   biometrics,
		Transactions: transactions,
		Events:       events,
		Hub:          hub,
		Sessions:     ws.NewSessions(enroll, verify, transactions, cfg.AudioSampleRate, logger),
		SeedIccid:    cfg.SeedSimIccid,
	}
	if pool != nil {
		deps.DB = pool
	}

	// Setup router
	router := api.NewRouter(logger, deps)
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")

	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
	}

	logger.Info("server stopped")

	return nil
}
