package enrichment

import (
	"context"
	"errors"
	"fmt"

	"salesops_backend/internal/booking"
	"salesops_backend/internal/crm"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/config"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// EventStore is the write surface the worker needs on tracked events.
// Satisfied by booking.Repository.
type EventStore interface {
	SaveEnrichment(ctx context.Context, orgID, eventID uuid.UUID, pipelineStage, ownerName string) error
}

// CRMSource fetches pipeline state for a lead. Satisfied by crm.Client.
type CRMSource interface {
	FetchLeadByEmail(ctx context.Context, email string) (crm.LeadSnapshot, error)
}

// Worker consumes enrichment tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	store  EventStore
	crm    CRMSource
	log    *logger.Logger
}

// NewWorker creates the enrichment worker.
func NewWorker(cfg config.SchedulerConfig, store EventStore, crmSource CRMSource, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	concurrency := cfg.GetAsynqConcurrency()
	if concurrency <= 0 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("enrichment task failed", "type", task.Type(), "error", err)
		}),
	})

	w := &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
		store:  store,
		crm:    crmSource,
		log:    log,
	}
	w.mux.HandleFunc(TaskTypeEventEnrichment, w.handleEventEnrichment)
	return w, nil
}

// Run starts processing tasks and blocks until Shutdown.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

// Shutdown stops the worker gracefully.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleEventEnrichment(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseEventEnrichmentPayload(task)
	if err != nil {
		// Malformed payloads never succeed; drop instead of retrying.
		w.log.Error("dropping malformed enrichment task", "error", err)
		return nil
	}

	if w.crm == nil {
		return nil
	}

	snapshot, err := w.crm.FetchLeadByEmail(ctx, payload.LeadEmail)
	if err != nil {
		if errors.Is(err, crm.ErrLeadNotFound) {
			w.log.Info("crm has no contact for lead, skipping enrichment",
				"event_id", payload.EventID, "lead_email", payload.LeadEmail)
			return nil
		}
		if apperr.Is(err, apperr.KindUnavailable) {
			return err // retried with backoff
		}
		w.log.Error("crm lookup failed permanently", "error", err, "event_id", payload.EventID)
		return nil
	}

	err = w.store.SaveEnrichment(ctx, payload.OrganizationID, payload.EventID, snapshot.PipelineStage, snapshot.OwnerName)
	if errors.Is(err, booking.ErrEventNotFound) {
		// Event was deleted between enqueue and processing.
		return nil
	}
	if err != nil {
		return err
	}

	w.log.Info("event enriched from crm",
		"event_id", payload.EventID,
		"pipeline_stage", snapshot.PipelineStage,
	)
	return nil
}
