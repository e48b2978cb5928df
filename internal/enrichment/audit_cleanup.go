package enrichment

import (
	"context"
	"time"

	"salesops_backend/internal/audit"
	"salesops_backend/platform/logger"
)

const (
	defaultAuditCleanupInterval = time.Hour
	defaultAuditRetention       = 90 * 24 * time.Hour
)

// AuditCleanup periodically purges webhook audit entries past the retention
// window. Runs alongside the enrichment worker.
type AuditCleanup struct {
	repo      *audit.Repository
	log       *logger.Logger
	interval  time.Duration
	retention time.Duration
}

// NewAuditCleanup creates the retention loop.
func NewAuditCleanup(repo *audit.Repository, log *logger.Logger, interval, retention time.Duration) *AuditCleanup {
	if interval <= 0 {
		interval = defaultAuditCleanupInterval
	}
	if retention <= 0 {
		retention = defaultAuditRetention
	}

	return &AuditCleanup{
		repo:      repo,
		log:       log,
		interval:  interval,
		retention: retention,
	}
}

// Run blocks until the context is canceled.
func (c *AuditCleanup) Run(ctx context.Context) {
	if c == nil || c.repo == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *AuditCleanup) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-c.retention)

	deleted, err := c.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		c.log.Warn("audit log cleanup failed", "error", err)
		return
	}

	if deleted > 0 {
		c.log.Info("audit log cleanup deleted expired entries", "deleted", deleted)
	}
}
