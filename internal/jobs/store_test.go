package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, ttl), mr
}

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, time.Minute)

	if err := store.Create(ctx, newTestJob("r1")); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := store.Create(ctx, newTestJob("r1")); err == nil {
		t.Fatal("expected error for duplicate id")
	}

	got, err := store.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Status != StatusProcessing || len(got.Latent) != LatentDim {
		t.Fatalf("unexpected job: %#v", got)
	}

	if err := store.Complete(ctx, "r1", Outcome{ImageURL: "data:image/png;base64,AA", Checksum: "abc"}); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if err := store.Fail(ctx, "r1", "late"); !errors.Is(err, ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}

	got, _ = store.Get(ctx, "r1")
	if got.Status != StatusCompleted || got.Checksum != "abc" || got.Error != "" {
		t.Fatalf("unexpected job: %#v", got)
	}
}

func TestRedisStoreFailAndNotFound(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, 0)

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Fail(ctx, "nope", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_ = store.Create(ctx, newTestJob("r2"))
	if err := store.Fail(ctx, "r2", "boom"); err != nil {
		t.Fatalf("Fail returned error: %v", err)
	}
	got, _ := store.Get(ctx, "r2")
	if got.Status != StatusFailed || got.Error != "boom" {
		t.Fatalf("unexpected job: %#v", got)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)

	_ = store.Create(ctx, newTestJob("r3"))
	if err := store.Complete(ctx, "r3", Outcome{ImageURL: "data:x", Checksum: "abc"}); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if ttl := mr.TTL(jobKey("r3")); ttl != time.Minute {
		t.Fatalf("unexpected ttl after completion: %v", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(ctx, "r3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired job to be gone, got %v", err)
	}
}

func TestRedisStoreKeepsProcessingJobPastRetention(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)

	_ = store.Create(ctx, newTestJob("r5"))
	if ttl := mr.TTL(jobKey("r5")); ttl != processingTTL {
		t.Fatalf("unexpected ttl while processing: %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	got, err := store.Get(ctx, "r5")
	if err != nil {
		t.Fatalf("processing job disappeared: %v", err)
	}
	if got.Status != StatusProcessing {
		t.Fatalf("unexpected status: %s", got.Status)
	}
	if err := store.Complete(ctx, "r5", Outcome{ImageURL: "data:x", Checksum: "abc"}); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	got, _ = store.Get(ctx, "r5")
	if got.Status != StatusCompleted || !got.ExpiresAt.Equal(got.UpdatedAt.Add(time.Minute)) {
		t.Fatalf("unexpected job after late completion: %#v", got)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(ctx, "r5"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected completed job to expire, got %v", err)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, time.Minute)
	_ = store.Create(ctx, newTestJob("r4"))

	if err := store.Delete(ctx, "r4"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := store.Get(ctx, "r4"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
