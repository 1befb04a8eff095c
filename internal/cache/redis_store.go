package cache

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type redisStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewRedisStore keeps entries under prefix (e.g. "cookgpt:cache:").
func NewRedisStore(client goredis.UniversalClient, prefix string) Store {
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, encodeErr("get", key, err)
	}
	return raw, nil
}

// Set stores val; ttl <= 0 means no expiry.
func (s *redisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.prefix+key, val, ttl).Err(); err != nil {
		return encodeErr("set", key, err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.prefix+k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return encodeErr("delete", keys[0], err)
	}
	return nil
}
