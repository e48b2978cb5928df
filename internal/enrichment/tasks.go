// Package enrichment provides the background task queue that decorates
// tracked events with CRM pipeline state after reconciliation.
package enrichment

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TaskTypeEventEnrichment fetches CRM state for one tracked event.
const TaskTypeEventEnrichment = "enrichment:event"

// EventEnrichmentPayload identifies the event to enrich.
type EventEnrichmentPayload struct {
	OrganizationID uuid.UUID `json:"organizationId"`
	EventID        uuid.UUID `json:"eventId"`
	LeadEmail      string    `json:"leadEmail"`
}

// NewEventEnrichmentTask creates an enrichment task. Deduplicated by task id
// so replayed webhooks don't fan out into duplicate CRM calls.
func NewEventEnrichmentTask(p EventEnrichmentPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal enrichment payload: %w", err)
	}
	return asynq.NewTask(TaskTypeEventEnrichment, payload,
		asynq.TaskID("enrich:"+p.EventID.String()),
		asynq.MaxRetry(5),
	), nil
}

// ParseEventEnrichmentPayload decodes a task payload.
func ParseEventEnrichmentPayload(task *asynq.Task) (EventEnrichmentPayload, error) {
	var p EventEnrichmentPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return EventEnrichmentPayload{}, fmt.Errorf("unmarshal enrichment payload: %w", err)
	}
	return p, nil
}
