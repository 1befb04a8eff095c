package cache

import (
	"context"
	"sync"

	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

type directInvalidator struct {
	store Store
	log   *logger.Logger
}

// NewInvalidator deletes stale keys from store immediately. Failures are
// logged and never returned.
func NewInvalidator(store Store, log *logger.Logger) Invalidator {
	return &directInvalidator{store: store, log: log.With("component", "CacheInvalidator")}
}

func (d *directInvalidator) Invalidate(ctx context.Context, m Mutation, t Target) {
	keys := KeysFor(m, t)
	if len(keys) == 0 || d.store == nil {
		return
	}
	if err := d.store.Delete(ctx, keys...); err != nil {
		d.log.Warn("Cache invalidation failed", "mutation", m.String(), "keys", keys, "error", err)
		return
	}
	d.log.Debug("Cache invalidated", "mutation", m.String(), "keys", keys)
}

// Batch collects invalidations for a staged mutation and applies them only
// when Flush is called after commit.
type Batch struct {
	mu      sync.Mutex
	pending []batchEntry
}

type batchEntry struct {
	m Mutation
	t Target
}

func NewBatch() *Batch { return &Batch{} }

func (b *Batch) Invalidate(_ context.Context, m Mutation, t Target) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, batchEntry{m: m, t: t})
}

// Keys lists the distinct keys recorded so far.
func (b *Batch) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, e := range b.pending {
		for _, k := range KeysFor(e.m, e.t) {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

// Flush forwards every recorded invalidation to next and empties the batch.
func (b *Batch) Flush(ctx context.Context, next Invalidator) {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()
	if next == nil {
		return
	}
	for _, e := range pending {
		next.Invalidate(ctx, e.m, e.t)
	}
}

// Discard drops everything recorded, used on rollback.
func (b *Batch) Discard() {
	b.mu.Lock()
	b.pending = nil
	b.mu.Unlock()
}
