package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

type redisStore struct {
	client goredis.UniversalClient
	ttl    time.Duration
	batch  int64
}

// NewRedisStore backs streams with Redis Streams. ttl is applied to all keys
// of a stream once it is marked completed; zero keeps them forever.
func NewRedisStore(client goredis.UniversalClient, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl, batch: 100}
}

func (s *redisStore) Append(ctx context.Context, chatID uuid.UUID, token string) error {
	err := s.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: Name(chatID),
		MaxLen: MaxLen,
		Values: map[string]interface{}{"token": token, "count": 1},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", Name(chatID), err)
	}
	return nil
}

func (s *redisStore) ReadSince(ctx context.Context, chatID uuid.UUID, cursor string) ([]Entry, error) {
	if cursor == "" {
		cursor = StartCursor
	}
	res, err := s.client.XRead(ctx, &goredis.XReadArgs{
		Streams: []string{Name(chatID), cursor},
		Count:   s.batch,
		Block:   -1,
	}).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xread %s: %w", Name(chatID), err)
	}
	var out []Entry
	for _, st := range res {
		for _, msg := range st.Messages {
			tok, _ := msg.Values["token"].(string)
			out = append(out, Entry{ID: msg.ID, Token: tok})
		}
	}
	return out, nil
}

func (s *redisStore) SetStatus(ctx context.Context, chatID uuid.UUID, status string) error {
	if err := s.client.Set(ctx, StatusKey(chatID), status, 0).Err(); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if status != StatusCompleted || s.ttl <= 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, key := range []string{Name(chatID), StatusKey(chatID), TaskIDKey(chatID)} {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("expire stream keys: %w", err)
	}
	return nil
}

func (s *redisStore) Status(ctx context.Context, chatID uuid.UUID) (string, error) {
	return s.get(ctx, StatusKey(chatID))
}

func (s *redisStore) SetTaskID(ctx context.Context, chatID uuid.UUID, taskID string) error {
	if err := s.client.Set(ctx, TaskIDKey(chatID), taskID, 0).Err(); err != nil {
		return fmt.Errorf("set task id: %w", err)
	}
	return nil
}

func (s *redisStore) TaskID(ctx context.Context, chatID uuid.UUID) (string, error) {
	return s.get(ctx, TaskIDKey(chatID))
}

func (s *redisStore) Exists(ctx context.Context, chatID uuid.UUID) (bool, error) {
	n, err := s.client.Exists(ctx, Name(chatID), StatusKey(chatID)).Result()
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return n == 2, nil
}

func (s *redisStore) get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}
