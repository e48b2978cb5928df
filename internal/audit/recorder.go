package audit

import (
	"context"

	"salesops_backend/platform/logger"
	"salesops_backend/platform/sanitize"
)

// Recorder is the write-side facade handed to the webhook pipeline. It
// redacts sensitive headers before persisting and never fails the caller:
// a broken audit trail is logged, not propagated into webhook responses.
type Recorder struct {
	repo *Repository
	log  *logger.Logger
}

// NewRecorder creates a new audit recorder.
func NewRecorder(repo *Repository, log *logger.Logger) *Recorder {
	return &Recorder{repo: repo, log: log}
}

// Record appends one entry. Safe to call with an almost-expired request
// context; the insert is detached from request cancellation.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	e.Headers = sanitize.RedactHeaders(e.Headers)
	e.AttendeeEmail = sanitize.Text(e.AttendeeEmail)

	if _, err := r.repo.Insert(context.WithoutCancel(ctx), e); err != nil {
		r.log.Error("failed to write audit entry",
			"error", err,
			"platform", e.Platform,
			"event_type", e.EventType,
			"native_id", e.NativeID,
		)
	}
}
