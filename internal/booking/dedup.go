package booking

import (
	"context"
	"time"

	"salesops_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// ReplayCache short-circuits duplicate webhook deliveries. Both platforms
// redeliver on slow responses; the full reconciliation is idempotent anyway,
// so the cache fails open when redis is unreachable.
type ReplayCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewReplayCache creates a replay cache over the given redis client.
func NewReplayCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *ReplayCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ReplayCache{client: client, ttl: ttl, log: log}
}

// MarkSeen records the delivery id and reports whether it was already seen.
func (c *ReplayCache) MarkSeen(ctx context.Context, deliveryID string) bool {
	if c == nil || c.client == nil || deliveryID == "" {
		return false
	}

	stored, err := c.client.SetNX(ctx, "webhook:delivery:"+deliveryID, 1, c.ttl).Result()
	if err != nil {
		c.log.Warn("replay cache unavailable, processing without dedup", "error", err)
		return false
	}
	return !stored
}
