package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	now = now.Add(2 * time.Second)
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
	assert.True(t, s.Has("b"))

	require.NoError(t, s.Delete(ctx, "b", "never-set"))
	assert.False(t, s.Has("b"))
}

func TestLoadReadsThrough(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	calls := 0
	fn := func() (map[string]int, error) {
		calls++
		return map[string]int{"n": calls}, nil
	}

	first, err := Load(ctx, s, "k", 0, fn)
	require.NoError(t, err)
	second, err := Load(ctx, s, "k", 0, fn)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	require.NoError(t, s.Delete(ctx, "k"))
	third, err := Load(ctx, s, "k", 0, fn)
	require.NoError(t, err)
	assert.Equal(t, 2, third["n"])
}

func TestLoadDoesNotCacheErrors(t *testing.T) {
	s := NewMemoryStore()
	boom := errors.New("boom")
	_, err := Load(context.Background(), s, "k", 0, func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, s.Has("k"))
}

func TestBatchDefersUntilFlush(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	threadID, userID := uuid.New(), uuid.New()
	require.NoError(t, s.Set(ctx, ThreadsKey(userID), []byte("[]"), 0))
	require.NoError(t, s.Set(ctx, ThreadKey(threadID), []byte("{}"), 0))

	b := NewBatch()
	b.Invalidate(ctx, ThreadUpdated, Target{ThreadID: threadID, UserID: userID})
	b.Invalidate(ctx, ThreadCreated, Target{UserID: userID})

	assert.ElementsMatch(t, []string{ThreadKey(threadID), ThreadsKey(userID)}, b.Keys())
	assert.True(t, s.Has(ThreadsKey(userID)))

	b.Flush(ctx, NewInvalidator(s, logger.NewNop()))
	assert.False(t, s.Has(ThreadsKey(userID)))
	assert.False(t, s.Has(ThreadKey(threadID)))
	assert.Empty(t, b.Keys())
}

func TestBatchDiscard(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	userID := uuid.New()
	require.NoError(t, s.Set(ctx, ThreadsKey(userID), []byte("[]"), 0))

	b := NewBatch()
	b.Invalidate(ctx, ThreadCreated, Target{UserID: userID})
	b.Discard()
	b.Flush(ctx, NewInvalidator(s, logger.NewNop()))

	assert.True(t, s.Has(ThreadsKey(userID)))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis integration tests")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	s := NewRedisStore(client, "cookgpt:test:"+uuid.NewString()+":")

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, s.Delete(ctx, "k", "missing"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}
