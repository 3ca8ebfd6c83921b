package widgets

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedStore is a read-through Redis cache in front of a Store.
//
// The admission path reads widget config on every request; caching bounds
// the Postgres load at the cost of WidgetCacheTTL staleness. Cache failures
// are best-effort: a Redis outage degrades to direct store reads.
type CachedStore struct {
	inner Store
	rdb   *redis.Client
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedStore(inner Store, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *CachedStore {
	if log == nil {
		log = slog.Default()
	}
	return &CachedStore{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(id string) string { return "widget:cfg:" + id }

func (c *CachedStore) GetByID(ctx context.Context, id string) (Widget, error) {
	if id == "" {
		return Widget{}, ErrInvalidArgument
	}

	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, cacheKey(id)).Bytes()
		switch {
		case err == nil:
			var w cachedWidget
			if jerr := json.Unmarshal(raw, &w); jerr == nil {
				return w.toWidget(), nil
			}
			// Corrupt entry; fall through to the store and overwrite.
		case errors.Is(err, redis.Nil):
			// miss
		default:
			c.log.Warn("widget cache read failed", "err", err)
		}
	}

	w, err := c.inner.GetByID(ctx, id)
	if err != nil {
		return Widget{}, err
	}
	c.set(ctx, w)
	return w, nil
}

func (c *CachedStore) Create(ctx context.Context, w Widget) error {
	if err := c.inner.Create(ctx, w); err != nil {
		return err
	}
	c.set(ctx, w)
	return nil
}

func (c *CachedStore) Update(ctx context.Context, w Widget) error {
	if err := c.inner.Update(ctx, w); err != nil {
		return err
	}
	// Invalidate rather than write through; the store owns timestamps.
	if c.rdb != nil {
		if err := c.rdb.Del(ctx, cacheKey(w.ID)).Err(); err != nil {
			c.log.Warn("widget cache invalidation failed", "widget_id", w.ID, "err", err)
		}
	}
	return nil
}

func (c *CachedStore) set(ctx context.Context, w Widget) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(fromWidget(w))
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(w.ID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("widget cache write failed", "widget_id", w.ID, "err", err)
	}
}

// cachedWidget carries the fields Widget hides from JSON (access code,
// provider key). Redis is internal, so persisting them there is fine.
type cachedWidget struct {
	Widget
	AccessCode     string `json:"access_code"`
	ProviderAPIKey string `json:"provider_api_key"`
}

func fromWidget(w Widget) cachedWidget {
	return cachedWidget{Widget: w, AccessCode: w.AccessCode, ProviderAPIKey: w.ProviderAPIKey}
}

func (c cachedWidget) toWidget() Widget {
	w := c.Widget
	w.AccessCode = c.AccessCode
	w.ProviderAPIKey = c.ProviderAPIKey
	return w
}
