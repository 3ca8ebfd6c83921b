package admission

import (
	"context"
	"log/slog"
	"time"

	"widget-gateway/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisGuard serializes admissions per widget across gateway instances
// using an atomic Redis counter with a TTL.
//
// It is strictly best-effort: on Redis error or contention the admission
// proceeds unguarded, trading back the narrowed race window for
// availability. The TTL bounds guards leaked by a crashed process.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *RedisGuard {
	if log == nil {
		log = slog.Default()
	}
	return &RedisGuard{rdb: rdb, ttl: ttl, log: log}
}

func guardKey(widgetID string) string { return "admission:guard:" + widgetID }

func (g *RedisGuard) Acquire(ctx context.Context, widgetID string) (func(), bool) {
	if g.rdb == nil || widgetID == "" {
		return nil, false
	}

	key := guardKey(widgetID)
	ok, err := utils.GuardAcquire(ctx, g.rdb, key, 1, g.ttl)
	if err != nil {
		g.log.Warn("reservation guard acquire failed", "widget_id", widgetID, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	return func() {
		if err := utils.GuardRelease(ctx, g.rdb, key); err != nil {
			g.log.Warn("reservation guard release failed", "widget_id", widgetID, "err", err)
		}
	}, true
}
