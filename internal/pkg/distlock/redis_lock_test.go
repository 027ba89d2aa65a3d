package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisLockAcquireRelease(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	lock := NewRedisLock(client, "expiry-alerts", time.Minute)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if !ok {
		t.Fatal("Acquire() = false, want true on free lock")
	}

	// A second holder must not get the same lock.
	other := NewRedisLock(client, "expiry-alerts", time.Minute)
	ok, err = other.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if ok {
		t.Fatal("Acquire() = true for second holder, want false")
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("Release() error: %v", err)
	}

	ok, err = other.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() after release error: %v", err)
	}
	if !ok {
		t.Fatal("Acquire() = false after release, want true")
	}
}

func TestRedisLockReleaseNotOwned(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	holder := NewRedisLock(client, "reverify", time.Minute)
	if ok, _ := holder.Acquire(ctx); !ok {
		t.Fatal("setup: could not acquire lock")
	}

	// Releasing a lock we never acquired must not free the holder's lock.
	stranger := NewRedisLock(client, "reverify", time.Minute)
	if err := stranger.Release(ctx); err != nil {
		t.Fatalf("Release() error: %v", err)
	}

	third := NewRedisLock(client, "reverify", time.Minute)
	if ok, _ := third.Acquire(ctx); ok {
		t.Fatal("lock was released by a non-owner")
	}
}

func TestRedisLockDifferentKeysIndependent(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "expiry-alerts", time.Minute)
	b := NewRedisLock(client, "reverify", time.Minute)

	if ok, _ := a.Acquire(ctx); !ok {
		t.Fatal("Acquire(expiry-alerts) = false, want true")
	}
	if ok, _ := b.Acquire(ctx); !ok {
		t.Fatal("Acquire(reverify) = false, want true; keys should be independent")
	}
}
