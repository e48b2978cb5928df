package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesops_backend/internal/aliases"
	"salesops_backend/internal/audit"
	"salesops_backend/internal/booking"
	"salesops_backend/internal/enrichment"
	"salesops_backend/internal/events"
	apphttp "salesops_backend/internal/http"
	"salesops_backend/internal/http/router"
	"salesops_backend/internal/notifier"
	"salesops_backend/internal/organizations"
	"salesops_backend/internal/payments"
	"salesops_backend/internal/pcf"
	"salesops_backend/platform/config"
	"salesops_backend/platform/db"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	replayCache, closeReplay := initReplayCache(cfg, log)
	if closeReplay != nil {
		defer closeReplay()
	}

	enrichClient, closeEnrich := initEnrichmentClient(cfg, log)
	if closeEnrich != nil {
		defer closeEnrich()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	orgsModule := organizations.NewModule(pool, val)
	aliasesModule := aliases.NewModule(pool, val)
	auditModule := audit.NewModule(pool, log)

	if seedPath := cfg.GetPlatformSeedFile(); seedPath != "" {
		if err := organizations.SeedFromFile(ctx, orgsModule.Repository(), seedPath, log); err != nil {
			log.Error("failed to seed platform configs", "error", err)
			panic("failed to seed platform configs: " + err.Error())
		}
	}

	var enricher booking.EnrichmentEnqueuer
	if enrichClient != nil {
		enricher = enrichClient
	}
	bookingModule := booking.NewModule(booking.ModuleDeps{
		DB:       pool,
		Tenants:  orgsModule.Resolver(),
		Secrets:  orgsModule.Resolver(),
		Aliases:  aliasesModule.Repository(),
		Replay:   replayCache,
		Auditor:  auditModule.Recorder(),
		Bus:      eventBus,
		Enricher: enricher,
		Logger:   log,
	})

	pcfModule := pcf.NewModule(pool, bookingModule.Service(), eventBus, val, log)
	paymentsModule := payments.NewModule(pool, bookingModule.Repository(), eventBus, val, log)

	// Ops alert notifier subscribes to domain events (not HTTP-facing)
	notifier.New(cfg, log).Register(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			orgsModule,
			bookingModule,
			pcfModule,
			paymentsModule,
			aliasesModule,
			auditModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initReplayCache(cfg *config.Config, log *logger.Logger) (*booking.ReplayCache, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; webhook replay dedup disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to parse redis url", "error", err)
		return nil, nil
	}
	client := redis.NewClient(opt)

	return booking.NewReplayCache(client, cfg.GetReplayCacheTTL(), log), func() {
		_ = client.Close()
	}
}

func initEnrichmentClient(cfg config.SchedulerConfig, log *logger.Logger) (*enrichment.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; crm enrichment disabled")
		return nil, nil
	}

	client, err := enrichment.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize enrichment client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
