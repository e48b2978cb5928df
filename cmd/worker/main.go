package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesops_backend/internal/audit"
	"salesops_backend/internal/booking"
	"salesops_backend/internal/crm"
	"salesops_backend/internal/enrichment"
	"salesops_backend/platform/config"
	"salesops_backend/platform/db"
	"salesops_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventStore := booking.NewRepository(pool)

	var crmSource enrichment.CRMSource
	if client := crm.NewClient(cfg); client != nil {
		crmSource = client
		log.Info("crm enrichment enabled", "base_url", cfg.GetCRMBaseURL())
	} else {
		log.Warn("crm enrichment disabled; enrichment tasks will be no-ops")
	}

	worker, err := enrichment.NewWorker(cfg, eventStore, crmSource, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	cleanup := enrichment.NewAuditCleanup(audit.NewRepository(pool), log, time.Hour, cfg.GetAuditRetention())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cleanup.Run(gctx)
		return nil
	})
	g.Go(worker.Run)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, stopping worker")
		worker.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("worker error", "error", err)
		panic("worker error: " + err.Error())
	}
}
