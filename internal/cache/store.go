package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrMiss = errors.New("cache miss")

// Store is a byte-oriented key/value cache. Delete of an absent key is a no-op.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Invalidator receives the keys a mutation made stale.
type Invalidator interface {
	Invalidate(ctx context.Context, m Mutation, t Target)
}

// Load returns the cached JSON value for key, or computes it with fn and
// stores the result. Cache errors never fail the read.
func Load[T any](ctx context.Context, s Store, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	if s != nil {
		if raw, err := s.Get(ctx, key); err == nil {
			var out T
			if jsonErr := json.Unmarshal(raw, &out); jsonErr == nil {
				return out, nil
			}
		}
	}
	val, err := fn()
	if err != nil {
		return val, err
	}
	if s != nil {
		if raw, jsonErr := json.Marshal(val); jsonErr == nil {
			_ = s.Set(ctx, key, raw, ttl)
		}
	}
	return val, nil
}

func encodeErr(op, key string, err error) error {
	return fmt.Errorf("cache %s %q: %w", op, key, err)
}
