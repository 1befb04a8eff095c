package stream

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

func redisClient(t *testing.T) goredis.UniversalClient {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	store := NewRedisStore(client, time.Minute)
	id := uuid.New()
	t.Cleanup(func() { client.Del(ctx, Name(id), StatusKey(id), TaskIDKey(id)) })

	ok, err := store.Exists(ctx, id)
	if err != nil || ok {
		t.Fatalf("Exists before write=%v err=%v, want false", ok, err)
	}

	mustDo(t,
		store.SetStatus(ctx, id, StatusStarted),
		store.Append(ctx, id, "Stir "),
		store.Append(ctx, id, "well"),
	)

	ok, err = store.Exists(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Exists after write=%v err=%v, want true", ok, err)
	}

	entries, err := store.ReadSince(ctx, id, StartCursor)
	if err != nil {
		t.Fatalf("ReadSince: %v", err)
	}
	if len(entries) != 2 || entries[0].Token != "Stir " {
		t.Fatalf("entries=%+v, want [Stir , well]", entries)
	}

	more, err := store.ReadSince(ctx, id, entries[1].ID)
	if err != nil {
		t.Fatalf("ReadSince last: %v", err)
	}
	if len(more) != 0 {
		t.Fatalf("ReadSince past the end=%+v, want none", more)
	}

	mustDo(t, store.SetStatus(ctx, id, StatusCompleted))
	ttl, err := client.TTL(ctx, Name(id)).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 {
		t.Fatalf("TTL=%s after completion, want > 0", ttl)
	}
}
