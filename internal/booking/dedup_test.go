package booking

import (
	"context"
	"testing"
	"time"

	"salesops_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestReplayCache(t *testing.T) *ReplayCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewReplayCache(client, time.Hour, logger.New("development"))
}

func TestReplayCacheMarkSeen(t *testing.T) {
	cache := newTestReplayCache(t)
	ctx := context.Background()

	if cache.MarkSeen(ctx, "calcom:abc") {
		t.Error("first delivery must not be seen")
	}
	if !cache.MarkSeen(ctx, "calcom:abc") {
		t.Error("second delivery must be seen")
	}
	if cache.MarkSeen(ctx, "calcom:other") {
		t.Error("different delivery id must not be seen")
	}
}

func TestReplayCacheEmptyDeliveryID(t *testing.T) {
	cache := newTestReplayCache(t)
	if cache.MarkSeen(context.Background(), "") {
		t.Error("empty delivery id must never dedup")
	}
}

func TestReplayCacheNilIsNoop(t *testing.T) {
	var cache *ReplayCache
	if cache.MarkSeen(context.Background(), "calcom:abc") {
		t.Error("nil cache must report unseen")
	}
}

func TestReplayCacheFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewReplayCache(client, time.Hour, logger.New("development"))

	mr.Close()
	if cache.MarkSeen(context.Background(), "calcom:abc") {
		t.Error("unavailable redis must fail open and process the delivery")
	}
}
