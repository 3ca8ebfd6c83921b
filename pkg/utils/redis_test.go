package utils

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestGuardScriptsCompile(t *testing.T) {
	// Compile-time smoke test: scripts should be initialized.
	if guardAcquireScript == nil || guardReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}

func TestGuardAcquire_ValidatesArguments(t *testing.T) {
	ctx := context.Background()
	// Never dialed; argument validation must reject before any network call.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})

	if _, err := GuardAcquire(ctx, nil, "k", 1, time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := GuardAcquire(ctx, rdb, "", 1, time.Second); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := GuardAcquire(ctx, rdb, "k", 0, time.Second); err == nil {
		t.Fatalf("expected error for non-positive limit")
	}
	if _, err := GuardAcquire(ctx, rdb, "k", 1, 0); err == nil {
		t.Fatalf("expected error for non-positive ttl")
	}
}

func TestGuardRelease_ValidatesArguments(t *testing.T) {
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})

	if err := GuardRelease(ctx, nil, "k"); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if err := GuardRelease(ctx, rdb, ""); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestRedisConfig_Defaults(t *testing.T) {
	c := RedisConfig{}.withDefaults()
	if c.DialTimeout != 3*time.Second || c.PoolSize != 20 {
		t.Fatalf("unexpected redis defaults: %+v", c)
	}

	c = RedisConfig{PoolSize: 3}.withDefaults()
	if c.PoolSize != 3 {
		t.Fatalf("explicit pool size overridden: %+v", c)
	}
}
